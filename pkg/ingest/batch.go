package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/japaniel/yomidb/pkg/termbank"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// Batch buffers write operations for one source archive and runs them in a
// single transaction, so an archive is either fully imported or not at all.
type Batch struct {
	db     *sql.DB
	buf    []WriteFunc
	closed bool
}

// NewBatch creates an empty batch against db.
func NewBatch(db *sql.DB) *Batch {
	return &Batch{db: db}
}

// Submit enqueues a write function.
func (b *Batch) Submit(w WriteFunc) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.buf = append(b.buf, w)
	return nil
}

// Len returns the number of queued writes.
func (b *Batch) Len() int { return len(b.buf) }

// Discard drops every queued write and closes the batch.
func (b *Batch) Discard() {
	b.buf = nil
	b.closed = true
}

// Commit runs all queued writes in one transaction. If any write fails the
// transaction is rolled back and nothing from this batch is kept. Failing
// to start the transaction is reported as a *termbank.SinkAccessError.
func (b *Batch) Commit(ctx context.Context) error {
	if b.closed {
		return ErrBatchClosed
	}
	batch := b.buf
	b.Discard()
	if len(batch) == 0 {
		return nil
	}

	// If no DB is configured (e.g. testing without DB), just run callbacks with nil tx
	if b.db == nil {
		for _, w := range batch {
			if err := w(ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return &termbank.SinkAccessError{Op: "begin", Err: err}
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

// ErrBatchClosed is returned when writing to a committed or discarded batch.
var ErrBatchClosed = &BatchError{"batch closed"}

// BatchError is returned when the batch is misused.
type BatchError struct{ msg string }

func (e *BatchError) Error() string { return e.msg }
