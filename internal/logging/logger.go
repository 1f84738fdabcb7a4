// Package logging provides structured logging configuration using log/slog.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how log records are written.
type Options struct {
	Level  string // "debug", "info", "warn", "error" (default: "info")
	Format string // "text", "json" (default: "text")
	// File, when set, sends output to a size-rotated file instead of the
	// fallback writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup builds a logger from opts, installs it as the slog default and
// returns it together with a closer for the underlying file, if any.
func Setup(opts Options, fallback io.Writer) (*slog.Logger, io.Closer) {
	out := fallback
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		out, closer = lj, lj
	}

	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var handler slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
