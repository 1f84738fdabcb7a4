package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/japaniel/yomidb/internal/ui"
	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/fetch"
	"github.com/japaniel/yomidb/pkg/ingest"
	"github.com/japaniel/yomidb/pkg/termbank"
)

func (a *app) importCmd() *cobra.Command {
	var (
		output     string
		force      bool
		provenance bool
	)
	cmd := &cobra.Command{
		Use:   "import ARCHIVE|URL...",
		Short: "Import dictionary archives into a fresh database",
		Long: `Import one or more zipped term-bank dictionaries into a new SQLite
database. Any existing database at the target path is replaced when -f is
given. Each archive is imported in its own transaction: a broken archive is
skipped and reported, and the command exits non-zero.

With --provenance every row records its source shard and position, which
'yomidb export --reference' needs to rebuild the original layout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dbPath := output
			if dbPath == "" {
				dbPath = a.cfg.Database.Path
			}
			if err := checkOverwrite(dbPath, force); err != nil {
				return err
			}
			schema := db.SchemaMinimal
			if provenance {
				schema = db.SchemaProvenance
			}

			fetcher := fetch.New()
			fetcher.Logger = a.logger
			var (
				paths   []string
				failed  []ingest.ArchiveFailure
				display = make(map[string]string)
			)
			for _, src := range args {
				path, cleanup, err := fetcher.Resolve(ctx, src)
				defer cleanup()
				if err != nil {
					a.logger.Error("source skipped", "source", src, "error", err)
					fmt.Fprintf(a.out, "%s %s: %v\n", ui.RenderFail("✗"), src, err)
					failed = append(failed, ingest.ArchiveFailure{Path: src, Err: err})
					continue
				}
				display[path] = src
				paths = append(paths, path)
			}

			conn, err := db.CreateFresh(ctx, dbPath, schema)
			if err != nil {
				return err
			}
			defer conn.Close()

			im := ingest.NewImporter(conn, schema)
			im.Logger = a.logger
			im.OnProgress = a.importProgress(display)
			report, err := im.Import(ctx, paths)
			if err != nil {
				return err
			}
			report.Failed = append(failed, report.Failed...)

			total := len(args)
			fmt.Fprintf(a.out, "\nImported %d of %d archives, %s entries into %s (%s schema)\n",
				len(report.Imported), total, humanize.Comma(int64(report.Entries())), dbPath, schema)
			if n := len(report.Warnings); n > 0 {
				fmt.Fprintf(a.out, "%s %s %s contain %q and will not split back losslessly\n",
					ui.RenderWarn("⚠"), humanize.Comma(int64(n)), plural(n, "entry", "entries"), termbank.GlossSeparator)
			}
			if len(report.Failed) > 0 {
				fmt.Fprintf(a.out, "%s %d %s failed:\n", ui.RenderFail("✗"), len(report.Failed), plural(len(report.Failed), "archive", "archives"))
				for _, f := range report.Failed {
					fmt.Fprintf(a.out, "   %s\n", f.Err)
				}
				return fmt.Errorf("%d of %d archives failed to import", len(report.Failed), total)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Database to create (default: --db)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing database")
	cmd.Flags().BoolVar(&provenance, "provenance", false, "Record source shard and position of every entry")
	return cmd
}

func (a *app) importProgress(display map[string]string) func(termbank.Event) {
	live := ui.IsTerminal(a.out)
	name := func(path string) string {
		if src, ok := display[path]; ok {
			return src
		}
		return filepath.Base(path)
	}
	return func(ev termbank.Event) {
		switch ev.Stage {
		case termbank.StageShard:
			if live {
				fmt.Fprintf(a.out, "\r%s %s %s", ui.RenderAccent("…"), name(ev.Archive), ui.RenderMuted(ev.Shard))
			}
		case termbank.StageArchive:
			if live {
				fmt.Fprint(a.out, "\r\033[K")
			}
			fmt.Fprintf(a.out, "%s %s: %s entries\n", ui.RenderPass("✓"), name(ev.Archive), humanize.Comma(int64(ev.Entries)))
		case termbank.StageFailed:
			if live {
				fmt.Fprint(a.out, "\r\033[K")
			}
			fmt.Fprintf(a.out, "%s %s: skipped\n", ui.RenderFail("✗"), name(ev.Archive))
		case termbank.StageIndex:
			a.logger.Debug("indexes built", "entries", ev.Entries)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
