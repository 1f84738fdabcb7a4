// Package ingest loads dictionary archives into the translations table.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/japaniel/yomidb/pkg/archive"
	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/termbank"
)

// Importer reads archives and appends their entries to the table.
type Importer struct {
	DB     *sql.DB
	Schema db.Schema
	// Logger is used for informational messages and lossy-gloss warnings. nil means slog.Default().
	Logger *slog.Logger
	// OnProgress receives one event per shard read, per archive finished or
	// failed, and once after the indexes are built.
	OnProgress func(termbank.Event)
}

// NewImporter creates an Importer writing into conn with the given schema.
func NewImporter(conn *sql.DB, schema db.Schema) *Importer {
	return &Importer{DB: conn, Schema: schema}
}

// ArchiveResult describes an archive that was fully imported.
type ArchiveResult struct {
	Path    string
	Shards  int
	Entries int
}

// ArchiveFailure describes an archive that contributed nothing to the table.
// Shard is empty when the failure was not tied to a single shard.
type ArchiveFailure struct {
	Path  string
	Shard string
	Err   error
}

// Report summarizes an import run.
type Report struct {
	Imported []ArchiveResult
	Failed   []ArchiveFailure
	Warnings []*termbank.LossyGlossJoinWarning
}

// Entries returns the number of rows inserted across all imported archives.
func (r *Report) Entries() int {
	n := 0
	for _, a := range r.Imported {
		n += a.Entries
	}
	return n
}

// Err aggregates every archive failure, or returns nil if there were none.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger != nil {
		return im.Logger
	}
	return slog.Default()
}

func (im *Importer) emit(ev termbank.Event) {
	if im.OnProgress != nil {
		im.OnProgress(ev)
	}
}

// Import creates the table if absent and processes archives in the given
// order. Each archive is inserted in its own transaction. An unreadable
// archive, a malformed shard or a failed insert rolls back that archive
// only; the failure is recorded in the report and the run moves on.
// Indexes are built once after the last archive.
//
// The returned error is non-nil only for failures that stop the whole run:
// the table cannot be written (*termbank.SinkAccessError) or ctx was
// canceled between archives. Per-archive failures are in Report.Failed.
func (im *Importer) Import(ctx context.Context, paths []string) (*Report, error) {
	log := im.logger()
	report := &Report{}

	if err := db.InitDB(ctx, im.DB, im.Schema); err != nil {
		return report, err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := im.importArchive(ctx, path, report)
		if err != nil {
			var sinkErr *termbank.SinkAccessError
			if errors.As(err, &sinkErr) {
				return report, err
			}
			shard := ""
			var decodeErr *termbank.EntryDecodeError
			if errors.As(err, &decodeErr) {
				shard = decodeErr.Shard
			}
			log.Error("archive skipped", "archive", path, "shard", shard, "error", err)
			report.Failed = append(report.Failed, ArchiveFailure{Path: path, Shard: shard, Err: err})
			im.emit(termbank.Event{Stage: termbank.StageFailed, Archive: path, Shard: shard, Err: err})
			continue
		}
		log.Info("archive imported", "archive", path, "shards", res.Shards, "entries", res.Entries)
		report.Imported = append(report.Imported, res)
		im.emit(termbank.Event{Stage: termbank.StageArchive, Archive: path, Entries: res.Entries})
	}

	if err := db.BuildIndexes(ctx, im.DB, im.Schema); err != nil {
		return report, err
	}
	log.Debug("indexes built", "schema", im.Schema)
	im.emit(termbank.Event{Stage: termbank.StageIndex, Entries: report.Entries()})
	im.emit(termbank.Event{Stage: termbank.StageDone, Entries: report.Entries()})
	return report, nil
}

func (im *Importer) importArchive(ctx context.Context, path string, report *Report) (ArchiveResult, error) {
	res := ArchiveResult{Path: path}
	r, err := archive.Open(path)
	if err != nil {
		return res, err
	}
	defer r.Close()

	shards, skipListed, passthrough := r.Counts()
	im.logger().Debug("archive opened", "archive", path, "shards", shards, "skip_listed", skipListed, "passthrough", passthrough)

	batch := NewBatch(im.DB)
	var (
		warnings []*termbank.LossyGlossJoinWarning
		current  string
		buf      []termbank.Entry
	)
	flush := func() error {
		if current == "" {
			return nil
		}
		entries := buf
		if err := batch.Submit(func(ctx context.Context, tx *sql.Tx) error {
			_, err := db.InsertEntries(ctx, tx, im.Schema, entries)
			return err
		}); err != nil {
			return err
		}
		res.Entries += len(entries)
		im.emit(termbank.Event{Stage: termbank.StageShard, Archive: path, Shard: current, Entries: len(entries)})
		buf = nil
		return nil
	}

	// Provenance is always tracked here; the minimal schema ignores it.
	for e, err := range r.Entries(true) {
		if err != nil {
			batch.Discard()
			return res, err
		}
		if e.Provenance.Shard != current {
			if err := flush(); err != nil {
				batch.Discard()
				return res, err
			}
			current = e.Provenance.Shard
		}
		if w := termbank.CheckGlosses(e); w != nil {
			w.Shard, w.Position = e.Provenance.Shard, e.Provenance.Position
			warnings = append(warnings, w)
		}
		buf = append(buf, e)
	}
	if err := flush(); err != nil {
		batch.Discard()
		return res, err
	}
	res.Shards = shards

	if err := batch.Commit(ctx); err != nil {
		return res, err
	}
	// Warnings are reported only for archives that were committed.
	for _, w := range warnings {
		im.logger().Warn("gloss contains separator", "archive", path, "word", w.Word, "shard", w.Shard, "position", w.Position, "gloss", w.Gloss)
	}
	report.Warnings = append(report.Warnings, warnings...)
	return res, nil
}
