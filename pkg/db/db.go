package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/japaniel/yomidb/pkg/termbank"

	_ "github.com/mattn/go-sqlite3"
)

// Open connects to an existing database file. The sink is single-writer,
// so the pool is capped at one connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &termbank.SinkAccessError{Op: "open", Err: err}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &termbank.SinkAccessError{Op: "open", Err: err}
	}
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, &termbank.SinkAccessError{Op: "open", Err: err}
	}
	return conn, nil
}

// CreateFresh removes any database at path and creates an empty one with
// the requested schema. Indexes are not created; see BuildIndexes.
func CreateFresh(ctx context.Context, path string, schema Schema) (*sql.DB, error) {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &termbank.SinkAccessError{Op: "create", Err: fmt.Errorf("remove %s: %w", p, err)}
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &termbank.SinkAccessError{Op: "create", Err: err}
	}
	conn.SetMaxOpenConns(1)
	if err := InitDB(ctx, conn, schema); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// InitDB creates the translations table if it does not exist.
func InitDB(ctx context.Context, db DBExecutor, schema Schema) error {
	return execScript(ctx, db, "create schema", schema.tableSQL())
}

// BuildIndexes creates the lookup indexes. Call it once, after the last
// bulk insert.
func BuildIndexes(ctx context.Context, db DBExecutor, schema Schema) error {
	return execScript(ctx, db, "build indexes", schema.indexSQL())
}

func execScript(ctx context.Context, db DBExecutor, op, script string) error {
	stmts := strings.Split(script, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, s); err != nil {
			return &termbank.SinkAccessError{Op: op, Err: err}
		}
	}
	return nil
}
