package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/yomidb/internal/testutil"
	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/ingest"
	"github.com/japaniel/yomidb/pkg/termbank"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func importArchives(t *testing.T, schema db.Schema, paths ...string) *sql.DB {
	t.Helper()
	conn, err := db.CreateFresh(context.Background(), filepath.Join(t.TempDir(), "dict.db"), schema)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	im := ingest.NewImporter(conn, schema)
	im.Logger = quietLogger()
	report, err := im.Import(context.Background(), paths)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	return conn
}

func newTestExporter(conn *sql.DB) *Exporter {
	ex := NewExporter(conn)
	ex.Now = fixedNow
	ex.Logger = quietLogger()
	return ex
}

func TestExportConcreteScenario(t *testing.T) {
	dir := t.TempDir()
	src := testutil.Dictionary(t, dir, "src.zip", `[["犬","いぬ","n","",100,["dog"]],["猫","ねこ","n","",90,["cat"]]]`)
	conn := importArchives(t, db.SchemaMinimal, src)

	ex := newTestExporter(conn)
	ex.ChunkSize = 1
	ex.Title = "Pets"
	out := filepath.Join(dir, "out.zip")

	stats, err := ex.Export(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Shards)
	assert.Equal(t, 2, stats.Entries)

	members, names := testutil.ReadArchive(t, out)
	assert.Equal(t, []string{"index.json", "tag_bank_1.json", "term_bank_1.json", "term_bank_2.json"}, names)
	assert.Equal(t, "[]", members["tag_bank_1.json"])

	got := []string{members["term_bank_1.json"], members["term_bank_2.json"]}
	assert.ElementsMatch(t, []string{
		`[["犬","いぬ","n","",100,["dog"]]]`,
		`[["猫","ねこ","n","",90,["cat"]]]`,
	}, got)

	var ix termbank.Index
	require.NoError(t, json.Unmarshal([]byte(members["index.json"]), &ix))
	assert.Equal(t, "Pets", ix.Title)
	assert.Equal(t, "db_export_2025.03.04_050607", ix.Revision)
	assert.Equal(t, "Dictionary 'Pets' exported from an SQLite database.", ix.Description)
	assert.Equal(t, DefaultAuthor, ix.Author)
}

func TestExportFromProvenanceTable(t *testing.T) {
	dir := t.TempDir()
	src := testutil.Dictionary(t, dir, "src.zip", `[["犬","いぬ","n","",100,["dog"]]]`, `[["猫","ねこ","n","",90,[]]]`)
	conn := importArchives(t, db.SchemaProvenance, src)

	out := filepath.Join(dir, "out.zip")
	stats, err := newTestExporter(conn).Export(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Shards)

	members, _ := testutil.ReadArchive(t, out)
	var tuples [][]any
	require.NoError(t, json.Unmarshal([]byte(members["term_bank_1.json"]), &tuples))
	assert.Len(t, tuples, 2)
}

func TestExportWithReferenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	shards := make([]string, 12)
	for i := range shards {
		shards[i] = fmt.Sprintf(`[["語%c","ご","n","x",%d,["word","term"]],["空","そら","","",0,[]]]`, 'a'+i, i)
	}
	shards[4] = "[]"
	members := []testutil.Member{
		{Name: "index.json", Body: testutil.DefaultIndex},
		{Name: "tag_bank_1.json", Body: `[["n","partOfSpeech",0,"noun",0]]`},
		{Name: "styles.css", Body: "div { color: red; }"},
	}
	for i, body := range shards {
		members = append(members, testutil.Member{Name: termbank.ShardName(i + 1), Body: body})
	}
	ref := testutil.WriteArchive(t, dir, "ref.zip", members...)

	conn := importArchives(t, db.SchemaProvenance, ref)
	out := filepath.Join(dir, "out.zip")
	var shardEvents []string
	ex := newTestExporter(conn)
	ex.OnProgress = func(ev termbank.Event) {
		if ev.Stage == termbank.StageShard {
			shardEvents = append(shardEvents, ev.Shard)
		}
	}
	stats, err := ex.ExportWithReference(context.Background(), out, ref)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Shards)
	assert.Equal(t, 22, stats.Entries)
	assert.Equal(t, "term_bank_10.json", shardEvents[8])

	orig, _ := testutil.ReadArchive(t, ref)
	got, names := testutil.ReadArchive(t, out)
	assert.Equal(t, []string{"index.json", "tag_bank_1.json", "styles.css"}, names[:3])
	require.Len(t, got, len(orig))

	for name, body := range orig {
		if !termbank.IsShardName(name) {
			assert.Equal(t, body, got[name], name)
			continue
		}
		want, err := termbank.DecodeShard(name, []byte(body), false)
		require.NoError(t, err)
		have, err := termbank.DecodeShard(name, []byte(got[name]), false)
		require.NoError(t, err)
		require.Len(t, have, len(want), name)
		for i := range want {
			// Only the unused fourth field may differ.
			assert.Equal(t, want[i], have[i], "%s[%d]", name, i)
		}
	}
	assert.Equal(t, `[["語a","ご","n","",0,["word","term"]],["空","そら","","",0,[]]]`, got["term_bank_1.json"])
}

func TestExportEmptyHeadwordRoundTrip(t *testing.T) {
	const shard = `[["","","n","",3000000000,["blank"]],["犬","いぬ","n","",100,["dog"]]]`
	dir := t.TempDir()
	ref := testutil.Dictionary(t, dir, "ref.zip", shard)
	want, err := termbank.DecodeShard("term_bank_1.json", []byte(shard), false)
	require.NoError(t, err)

	t.Run("stateless", func(t *testing.T) {
		conn := importArchives(t, db.SchemaMinimal, ref)
		out := filepath.Join(t.TempDir(), "out.zip")
		stats, err := newTestExporter(conn).Export(context.Background(), out)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Entries)

		got, _ := testutil.ReadArchive(t, out)
		have, err := termbank.DecodeShard("term_bank_1.json", []byte(got["term_bank_1.json"]), false)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, have)
	})

	t.Run("with reference", func(t *testing.T) {
		conn := importArchives(t, db.SchemaProvenance, ref)
		out := filepath.Join(t.TempDir(), "out.zip")
		_, err := newTestExporter(conn).ExportWithReference(context.Background(), out, ref)
		require.NoError(t, err)

		got, _ := testutil.ReadArchive(t, out)
		assert.Equal(t, shard, got["term_bank_1.json"])
	})
}

func TestExportWithReferenceSubstitutedTranslation(t *testing.T) {
	dir := t.TempDir()
	ref := testutil.Dictionary(t, dir, "ref.zip", `[["犬","いぬ","n","",100,["dog"]],["猫","ねこ","n","",90,["cat"]]]`)
	conn := importArchives(t, db.SchemaProvenance, ref)

	_, err := conn.Exec(`UPDATE translations SET english = ? WHERE word = ?`, "собака", "犬")
	require.NoError(t, err)

	out := filepath.Join(dir, "out.zip")
	_, err = newTestExporter(conn).ExportWithReference(context.Background(), out, ref)
	require.NoError(t, err)

	got, _ := testutil.ReadArchive(t, out)
	assert.Equal(t, `[["犬","いぬ","n","",100,["собака"]],["猫","ねこ","n","",90,["cat"]]]`, got["term_bank_1.json"])
}

func TestExportWithReferenceRequiresProvenance(t *testing.T) {
	dir := t.TempDir()
	ref := testutil.Dictionary(t, dir, "ref.zip", `[["犬","いぬ","n","",100,["dog"]]]`)
	conn := importArchives(t, db.SchemaMinimal, ref)

	out := filepath.Join(dir, "out.zip")
	_, err := newTestExporter(conn).ExportWithReference(context.Background(), out, ref)
	var sinkErr *termbank.SinkAccessError
	require.True(t, errors.As(err, &sinkErr), "got %v", err)
	assert.NoFileExists(t, out)
}

func TestExportIntegrityFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	ref := testutil.Dictionary(t, dir, "ref.zip", `[["犬","いぬ","n","",100,["dog"]],["猫","ねこ","n","",90,["cat"]]]`)
	conn := importArchives(t, db.SchemaProvenance, ref)

	// A duplicate provenance pair cannot be written back.
	_, err := conn.Exec(`INSERT INTO translations (word, reading, kind, english, priority, source_file, original_index) VALUES ('鳥','とり','n','bird',1,'term_bank_1.json',1)`)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.zip")
	_, err = newTestExporter(conn).ExportWithReference(context.Background(), out, ref)
	var integrityErr *termbank.ExportIntegrityError
	require.True(t, errors.As(err, &integrityErr), "got %v", err)
	assert.NoFileExists(t, out)

	// Nothing left behind in the output directory either.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestExportNullEnglishFails(t *testing.T) {
	dir := t.TempDir()
	src := testutil.Dictionary(t, dir, "src.zip", `[["犬","いぬ","n","",100,["dog"]]]`)
	conn := importArchives(t, db.SchemaMinimal, src)
	_, err := conn.Exec(`UPDATE translations SET english = NULL`)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.zip")
	_, err = newTestExporter(conn).Export(context.Background(), out)
	var integrityErr *termbank.ExportIntegrityError
	require.True(t, errors.As(err, &integrityErr), "got %v", err)
	assert.NoFileExists(t, out)
}

func TestExportMissingTable(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	out := filepath.Join(t.TempDir(), "out.zip")
	_, err = newTestExporter(conn).Export(context.Background(), out)
	var sinkErr *termbank.SinkAccessError
	require.True(t, errors.As(err, &sinkErr), "got %v", err)
	assert.NoFileExists(t, out)
}
