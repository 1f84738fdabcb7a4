package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/japaniel/yomidb/internal/config"
	"github.com/japaniel/yomidb/internal/logging"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := newApp(os.Stdout, os.Stderr)
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer

	out    io.Writer
	errOut io.Writer

	configFile string
}

func newApp(out, errOut io.Writer) *app {
	return &app{v: config.New(), out: out, errOut: errOut}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "yomidb",
		Short: "Convert term-bank dictionary archives to and from SQLite",
		Long: `yomidb imports zipped term-bank dictionaries into a single SQLite
translations table and exports the table back into an archive, either
re-chunked or with the shard layout of a reference archive restored.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (yaml, toml or json)")
	pf.String("db", config.DefaultDBPath, "Path to SQLite database")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("log-file", "", "Write logs to this file (rotated) instead of stderr")

	root.AddCommand(a.importCmd(), a.exportCmd(), a.lookupCmd(), a.versionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.ReadFile(a.v, a.configFile); err != nil {
		return err
	}
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger, a.closer = logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}, a.errOut)
	a.logger.Debug("configuration loaded", "db", cfg.Database.Path, "config", a.configFile)
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "yomidb %s\n", Version)
		},
	}
}

// checkOverwrite refuses to replace an existing file unless force is set.
func checkOverwrite(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; use -f to overwrite", path)
	}
	return nil
}
