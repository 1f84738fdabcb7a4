package db

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/japaniel/yomidb/pkg/termbank"
	_ "github.com/mattn/go-sqlite3"
)

func tableColumns(t *testing.T, conn *sql.DB) map[string]bool {
	t.Helper()
	rows, err := conn.Query("PRAGMA table_info(translations)")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	return cols
}

// TestInitDBCreatesSchemas verifies both column sets and that no index
// exists until BuildIndexes runs.
func TestInitDBCreatesSchemas(t *testing.T) {
	ctx := context.Background()

	minimal := setupTestDB(t, SchemaMinimal)
	cols := tableColumns(t, minimal)
	for _, c := range []string{"word", "reading", "kind", "english", "priority"} {
		if !cols[c] {
			t.Fatalf("minimal schema missing %s: %v", c, cols)
		}
	}
	if cols["source_file"] || cols["id"] {
		t.Fatalf("minimal schema has provenance columns: %v", cols)
	}

	prov := setupTestDB(t, SchemaProvenance)
	cols = tableColumns(t, prov)
	for _, c := range []string{"id", "source_file", "original_index"} {
		if !cols[c] {
			t.Fatalf("provenance schema missing %s: %v", c, cols)
		}
	}

	names, err := IndexNames(ctx, prov)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no indexes before BuildIndexes, got %v", names)
	}
	if err := BuildIndexes(ctx, prov, SchemaProvenance); err != nil {
		t.Fatal(err)
	}
	names, err = IndexNames(ctx, prov)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"translations_index", "translations_source_index"}) {
		t.Fatalf("unexpected indexes %v", names)
	}
}

func TestDetectSchema(t *testing.T) {
	ctx := context.Background()
	if s, err := DetectSchema(ctx, setupTestDB(t, SchemaMinimal)); err != nil || s != SchemaMinimal {
		t.Fatalf("expected minimal, got %v %v", s, err)
	}

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	var se *termbank.SinkAccessError
	if _, err := DetectSchema(ctx, conn); !errors.As(err, &se) {
		t.Fatalf("expected SinkAccessError for missing table, got %v", err)
	}
	if _, err := conn.Exec(`CREATE TABLE translations (word TEXT, reading TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := DetectSchema(ctx, conn); !errors.As(err, &se) {
		t.Fatalf("expected SinkAccessError for missing columns, got %v", err)
	}
}
