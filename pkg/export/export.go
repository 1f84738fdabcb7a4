// Package export writes the translations table back out as a dictionary
// archive.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/japaniel/yomidb/pkg/archive"
	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/termbank"
)

const (
	DefaultTitle  = "Exported Dictionary"
	DefaultAuthor = "yomidb"
)

// Exporter streams rows from the table into a new archive. An export is
// all or nothing: on any error the output path is left untouched.
type Exporter struct {
	DB          *sql.DB
	ChunkSize   int
	Title       string
	Description string
	Author      string
	// Now stamps the revision of generated metadata. nil means time.Now.
	Now func() time.Time
	// Logger is used for informational messages. nil means slog.Default().
	Logger     *slog.Logger
	OnProgress func(termbank.Event)
}

// NewExporter creates an Exporter reading from conn with default settings.
func NewExporter(conn *sql.DB) *Exporter {
	return &Exporter{
		DB:        conn,
		ChunkSize: archive.DefaultChunkSize,
		Title:     DefaultTitle,
		Author:    DefaultAuthor,
	}
}

func (ex *Exporter) logger() *slog.Logger {
	if ex.Logger != nil {
		return ex.Logger
	}
	return slog.Default()
}

func (ex *Exporter) now() time.Time {
	if ex.Now != nil {
		return ex.Now()
	}
	return time.Now()
}

func (ex *Exporter) description() string {
	if ex.Description != "" {
		return ex.Description
	}
	return fmt.Sprintf("Dictionary '%s' exported from an SQLite database.", ex.Title)
}

// Export re-chunks every row into shards of ChunkSize entries and writes
// them with freshly generated metadata to outPath.
func (ex *Exporter) Export(ctx context.Context, outPath string) (archive.Stats, error) {
	if _, err := db.DetectSchema(ctx, ex.DB); err != nil {
		return archive.Stats{}, err
	}
	w, err := archive.Create(outPath)
	if err != nil {
		return archive.Stats{}, err
	}
	defer w.Abort()

	index := termbank.NewIndex(ex.Title, ex.description(), ex.Author, ex.now())
	entries := db.ReadEntries(ctx, ex.DB, db.OrderArbitrary)
	stats, err := archive.Rechunk(w, index, entries, ex.ChunkSize, ex.OnProgress)
	if err != nil {
		return stats, err
	}
	return ex.finish(w, stats)
}

// ExportWithReference rebuilds the shard layout of the archive at refPath
// from provenance columns. Every non-entry member of the reference is
// copied verbatim. The table must have the extended schema.
func (ex *Exporter) ExportWithReference(ctx context.Context, outPath, refPath string) (archive.Stats, error) {
	schema, err := db.DetectSchema(ctx, ex.DB)
	if err != nil {
		return archive.Stats{}, err
	}
	if schema != db.SchemaProvenance {
		return archive.Stats{}, &termbank.SinkAccessError{
			Op:  "export",
			Err: fmt.Errorf("table %s has no provenance columns; import with provenance first", db.TableName),
		}
	}

	ref, err := archive.Open(refPath)
	if err != nil {
		return archive.Stats{}, err
	}
	defer ref.Close()

	w, err := archive.Create(outPath)
	if err != nil {
		return archive.Stats{}, err
	}
	defer w.Abort()

	entries := db.ReadEntries(ctx, ex.DB, db.OrderProvenance)
	stats, err := archive.Reshard(w, ref, entries, ex.OnProgress)
	if err != nil {
		return stats, err
	}
	return ex.finish(w, stats)
}

func (ex *Exporter) finish(w *archive.Writer, stats archive.Stats) (archive.Stats, error) {
	if err := w.Commit(); err != nil {
		return stats, err
	}
	ex.logger().Info("archive exported", "path", w.Path(), "shards", stats.Shards, "entries", stats.Entries)
	if ex.OnProgress != nil {
		ex.OnProgress(termbank.Event{Stage: termbank.StageDone, Archive: w.Path(), Entries: stats.Entries})
	}
	return stats, nil
}
