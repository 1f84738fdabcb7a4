// Package testutil builds dictionary archives for tests.
package testutil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// Member is one named blob of a fixture archive.
type Member struct {
	Name string
	Body string
}

// DefaultIndex is a minimal index.json for fixtures.
const DefaultIndex = `{"title":"Fixture","format":3,"revision":"fixture_1","sequenced":true,"description":"","author":"test"}`

// WriteArchive writes members, in order, into dir/name and returns the path.
func WriteArchive(t testing.TB, dir, name string, members ...Member) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: m.Name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("create member %s: %v", m.Name, err)
		}
		if _, err := w.Write([]byte(m.Body)); err != nil {
			t.Fatalf("write member %s: %v", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close fixture %s: %v", path, err)
	}
	return path
}

// Dictionary writes an archive with index.json, an empty tag bank and the
// given term banks named term_bank_1.json, term_bank_2.json, ...
func Dictionary(t testing.TB, dir, name string, shards ...string) string {
	t.Helper()
	members := []Member{
		{Name: "index.json", Body: DefaultIndex},
		{Name: "tag_bank_1.json", Body: "[]"},
	}
	for i, body := range shards {
		members = append(members, Member{Name: fmt.Sprintf("term_bank_%d.json", i+1), Body: body})
	}
	return WriteArchive(t, dir, name, members...)
}

// ReadArchive returns every member of the archive at path keyed by name,
// plus the member names in container order.
func ReadArchive(t testing.TB, path string) (map[string]string, []string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()

	out := make(map[string]string, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open member %s: %v", f.Name, err)
		}
		buf, err := io.ReadAll(rc)
		if err != nil {
			rc.Close()
			t.Fatalf("read member %s: %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = string(buf)
		names = append(names, f.Name)
	}
	return out, names
}

// WriteFile writes body to path, failing the test on error.
func WriteFile(t testing.TB, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
