package db

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"slices"

	"github.com/japaniel/yomidb/pkg/termbank"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

const (
	insertMinimalSQL    = `INSERT INTO translations (word, reading, kind, english, priority) VALUES (?, ?, ?, ?, ?)`
	insertProvenanceSQL = `INSERT INTO translations (word, reading, kind, english, priority, source_file, original_index) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// InsertEntries writes entries with one prepared statement. Glosses are
// joined with termbank.GlossSeparator. With SchemaProvenance every entry
// must carry provenance.
func InsertEntries(ctx context.Context, db DBExecutor, schema Schema, entries []termbank.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	query := insertMinimalSQL
	if schema == SchemaProvenance {
		query = insertProvenanceSQL
	}
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		args := []any{e.Word, e.Reading, e.Kind, termbank.JoinGlosses(e.Translation), e.Priority}
		if schema == SchemaProvenance {
			if e.Provenance == nil {
				return i, fmt.Errorf("insert %q: entry has no provenance", e.Word)
			}
			args = append(args, e.Provenance.Shard, e.Provenance.Position)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return i, fmt.Errorf("insert %q: %w", e.Word, err)
		}
	}
	return len(entries), nil
}

// Order selects how ReadEntries sorts rows.
type Order int

const (
	// OrderArbitrary returns rows in whatever order SQLite produces.
	OrderArbitrary Order = iota
	// OrderProvenance returns rows grouped by source shard, shards in
	// ascending numeric order, rows by ascending original_index.
	OrderProvenance
)

const selectColumns = `word, reading, kind, english, priority`

// ReadEntries streams every row back as an entry. Rows with a NULL word,
// english or priority end the sequence with an ExportIntegrityError.
func ReadEntries(ctx context.Context, db DBExecutor, order Order) iter.Seq2[termbank.Entry, error] {
	if order == OrderProvenance {
		return readByProvenance(ctx, db)
	}
	return func(yield func(termbank.Entry, error) bool) {
		rows, err := db.QueryContext(ctx, `SELECT `+selectColumns+` FROM translations`)
		if err != nil {
			yield(termbank.Entry{}, &termbank.SinkAccessError{Op: "read", Err: err})
			return
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanEntry(rows, nil)
			if !yield(e, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(termbank.Entry{}, &termbank.SinkAccessError{Op: "read", Err: err})
		}
	}
}

// SourceShards lists the distinct source_file values in numeric shard order.
func SourceShards(ctx context.Context, db DBExecutor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT source_file FROM translations`)
	if err != nil {
		return nil, &termbank.SinkAccessError{Op: "read", Err: err}
	}
	defer rows.Close()
	var shards []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &termbank.SinkAccessError{Op: "read", Err: err}
		}
		shards = append(shards, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &termbank.SinkAccessError{Op: "read", Err: err}
	}
	termbank.SortShardNames(shards)
	return shards, nil
}

func readByProvenance(ctx context.Context, db DBExecutor) iter.Seq2[termbank.Entry, error] {
	return func(yield func(termbank.Entry, error) bool) {
		shards, err := SourceShards(ctx, db)
		if err != nil {
			yield(termbank.Entry{}, err)
			return
		}
		for _, shard := range shards {
			if !readShard(ctx, db, shard, yield) {
				return
			}
		}
	}
}

// readShard yields the rows of one source shard and reports whether the
// caller wants more.
func readShard(ctx context.Context, db DBExecutor, shard string, yield func(termbank.Entry, error) bool) bool {
	rows, err := db.QueryContext(ctx,
		`SELECT `+selectColumns+`, original_index FROM translations WHERE source_file = ? ORDER BY original_index`, shard)
	if err != nil {
		yield(termbank.Entry{}, &termbank.SinkAccessError{Op: "read", Err: err})
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var pos sql.NullInt64
		e, err := scanEntry(rows, &pos)
		if err == nil {
			if !pos.Valid {
				err = &termbank.ExportIntegrityError{Shard: shard, Position: -1, Word: e.Word, Reason: "missing original_index"}
			} else {
				e = e.WithProvenance(shard, int(pos.Int64))
			}
		}
		if !yield(e, err) || err != nil {
			return false
		}
	}
	if err := rows.Err(); err != nil {
		yield(termbank.Entry{}, &termbank.SinkAccessError{Op: "read", Err: err})
		return false
	}
	return true
}

// scanEntry reads the five entry columns, plus original_index when pos is
// non-nil.
func scanEntry(rows *sql.Rows, pos *sql.NullInt64) (termbank.Entry, error) {
	var word, reading, kind, english sql.NullString
	var priority sql.NullInt64
	dest := []any{&word, &reading, &kind, &english, &priority}
	if pos != nil {
		dest = append(dest, pos)
	}
	if err := rows.Scan(dest...); err != nil {
		return termbank.Entry{}, &termbank.SinkAccessError{Op: "read", Err: err}
	}

	e := termbank.Entry{
		Word:     word.String,
		Reading:  reading.String,
		Kind:     kind.String,
		Priority: priority.Int64,
	}
	switch {
	case !word.Valid:
		return e, &termbank.ExportIntegrityError{Position: -1, Reason: "missing word"}
	case !english.Valid:
		return e, &termbank.ExportIntegrityError{Position: -1, Word: e.Word, Reason: "missing english"}
	case !priority.Valid:
		return e, &termbank.ExportIntegrityError{Position: -1, Word: e.Word, Reason: "missing priority"}
	}
	e.Translation = termbank.SplitGlosses(english.String)
	return e, nil
}

// LookupWord returns every row whose word matches exactly, highest
// priority first.
func LookupWord(ctx context.Context, db DBExecutor, word string) ([]termbank.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM translations WHERE word = ? ORDER BY priority DESC, rowid`, word)
	if err != nil {
		return nil, &termbank.SinkAccessError{Op: "lookup", Err: err}
	}
	defer rows.Close()
	var out []termbank.Entry
	for rows.Next() {
		e, err := scanEntry(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &termbank.SinkAccessError{Op: "lookup", Err: err}
	}
	return out, nil
}

// CountEntries returns the number of rows in the table.
func CountEntries(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		return 0, &termbank.SinkAccessError{Op: "count", Err: err}
	}
	return n, nil
}

// IndexNames lists the indexes defined on the translations table.
func IndexNames(ctx context.Context, db DBExecutor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL`, TableName)
	if err != nil {
		return nil, &termbank.SinkAccessError{Op: "inspect", Err: err}
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, &termbank.SinkAccessError{Op: "inspect", Err: err}
		}
		names = append(names, n)
	}
	slices.Sort(names)
	return names, rows.Err()
}
