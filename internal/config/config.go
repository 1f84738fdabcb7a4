// Package config loads CLI settings from flags, YOMIDB_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix        = "YOMIDB"
	DefaultDBPath    = "dict.db"
	DefaultChunkSize = 10000
	DefaultTitle     = "Exported Dictionary"
	DefaultAuthor    = "yomidb"
)

type (
	Config struct {
		Database
		Export
		Log
	}

	Database struct {
		Path string
	}
	Export struct {
		ChunkSize   int
		Title       string
		Description string
		Author      string
	}
	Log struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
	}
)

// New returns a viper instance with defaults and environment binding.
// Keys use underscores; YOMIDB_CHUNK_SIZE overrides chunk_size.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", DefaultDBPath)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("title", DefaultTitle)
	v.SetDefault("description", "")
	v.SetDefault("author", DefaultAuthor)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 50)
	v.SetDefault("log_max_backups", 3)
	return v
}

// BindFlags maps each set flag name (dashes become underscores) onto its
// viper key, so an explicit flag wins over env and file values.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// ReadFile merges a YAML, TOML or JSON config file into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves the effective configuration.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: Database{
			Path: v.GetString("db"),
		},
		Export: Export{
			ChunkSize:   v.GetInt("chunk_size"),
			Title:       v.GetString("title"),
			Description: v.GetString("description"),
			Author:      v.GetString("author"),
		},
		Log: Log{
			Level:      v.GetString("log_level"),
			Format:     v.GetString("log_format"),
			File:       v.GetString("log_file"),
			MaxSizeMB:  v.GetInt("log_max_size_mb"),
			MaxBackups: v.GetInt("log_max_backups"),
		},
	}
	if cfg.Export.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", cfg.Export.ChunkSize)
	}
	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("db path must not be empty")
	}
	return cfg, nil
}
