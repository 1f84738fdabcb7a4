package db

import (
	"context"
	"fmt"

	"github.com/japaniel/yomidb/pkg/termbank"
)

// TableName is the single table entries are stored in.
const TableName = "translations"

// Schema selects the column set of the translations table.
type Schema int

const (
	// SchemaMinimal stores word, reading, kind, english and priority.
	SchemaMinimal Schema = iota
	// SchemaProvenance adds a row id plus source_file and original_index.
	SchemaProvenance
)

func (s Schema) String() string {
	if s == SchemaProvenance {
		return "provenance"
	}
	return "minimal"
}

const minimalTableSQL = `
CREATE TABLE IF NOT EXISTS translations (
	word TEXT,
	reading TEXT,
	kind TEXT,
	english TEXT,
	priority INTEGER
);`

const provenanceTableSQL = `
CREATE TABLE IF NOT EXISTS translations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word TEXT,
	reading TEXT,
	kind TEXT,
	english TEXT,
	priority INTEGER,
	source_file TEXT NOT NULL,
	original_index INTEGER NOT NULL
);`

const wordIndexSQL = `CREATE INDEX IF NOT EXISTS translations_index ON translations(word);`

const sourceIndexSQL = `CREATE INDEX IF NOT EXISTS translations_source_index ON translations(source_file, original_index);`

func (s Schema) tableSQL() string {
	if s == SchemaProvenance {
		return provenanceTableSQL
	}
	return minimalTableSQL
}

func (s Schema) indexSQL() string {
	if s == SchemaProvenance {
		return wordIndexSQL + sourceIndexSQL
	}
	return wordIndexSQL
}

var requiredColumns = []string{"word", "reading", "kind", "english", "priority"}

// DetectSchema inspects the translations table and reports which column
// set it has. A missing table or column is a SinkAccessError.
func DetectSchema(ctx context.Context, db DBExecutor) (Schema, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+TableName+")")
	if err != nil {
		return 0, &termbank.SinkAccessError{Op: "inspect", Err: err}
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return 0, &termbank.SinkAccessError{Op: "inspect", Err: err}
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return 0, &termbank.SinkAccessError{Op: "inspect", Err: err}
	}
	if len(cols) == 0 {
		return 0, &termbank.SinkAccessError{Op: "inspect", Err: fmt.Errorf("table %s does not exist", TableName)}
	}
	for _, c := range requiredColumns {
		if !cols[c] {
			return 0, &termbank.SinkAccessError{Op: "inspect", Err: fmt.Errorf("table %s has no %s column", TableName, c)}
		}
	}
	if cols["source_file"] && cols["original_index"] {
		return SchemaProvenance, nil
	}
	return SchemaMinimal, nil
}
