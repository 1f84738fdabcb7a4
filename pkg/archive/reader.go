// Package archive reads and writes sharded dictionary archives: a zip
// container holding index.json, tag banks and term_bank_<N>.json shards.
package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/japaniel/yomidb/pkg/termbank"
)

// Reader gives access to the members of one archive, partitioned into
// entry shards and everything else.
type Reader struct {
	path string
	zr   *zip.ReadCloser

	shards      []*zip.File // term banks, numeric order
	nonEntry    []*zip.File // every other member, container order
	skipListed  int
	passthrough int
}

// Open opens the archive at path. A missing or corrupt container yields
// an *termbank.ArchiveFormatError.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &termbank.ArchiveFormatError{Archive: path, Err: err}
	}
	r := &Reader{path: path, zr: zr}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch {
		case termbank.IsSkipListed(f.Name):
			r.nonEntry = append(r.nonEntry, f)
			r.skipListed++
		case termbank.IsShardName(f.Name):
			r.shards = append(r.shards, f)
		default:
			r.nonEntry = append(r.nonEntry, f)
			r.passthrough++
		}
	}
	slices.SortStableFunc(r.shards, func(a, b *zip.File) int {
		return termbank.CompareShardNames(a.Name, b.Name)
	})
	return r, nil
}

// Path returns the file the reader was opened from.
func (r *Reader) Path() string { return r.path }

// Close releases the underlying file.
func (r *Reader) Close() error { return r.zr.Close() }

// ShardNames lists entry shards in ascending numeric order.
func (r *Reader) ShardNames() []string {
	names := make([]string, 0, len(r.shards))
	for _, f := range r.shards {
		names = append(names, f.Name)
	}
	return names
}

// NonEntry returns metadata, tag banks and any other member that is not an
// entry shard, in container order.
func (r *Reader) NonEntry() []*zip.File {
	return slices.Clone(r.nonEntry)
}

// Counts reports how many members fell into each class.
func (r *Reader) Counts() (shards, skipListed, passthrough int) {
	return len(r.shards), r.skipListed, r.passthrough
}

// Index decodes index.json. ok is false when the archive has none.
func (r *Reader) Index() (ix termbank.Index, ok bool, err error) {
	for _, f := range r.nonEntry {
		if f.Name != termbank.IndexFile {
			continue
		}
		data, err := r.readMember(f)
		if err != nil {
			return ix, true, err
		}
		if err := json.Unmarshal(data, &ix); err != nil {
			return ix, true, &termbank.ArchiveFormatError{Archive: r.path, Err: fmt.Errorf("%s: %w", f.Name, err)}
		}
		return ix, true, nil
	}
	return ix, false, nil
}

// Entries yields every entry of every shard, shards in numeric order and
// entries in array order. The sequence stops at the first error.
func (r *Reader) Entries(withProvenance bool) iter.Seq2[termbank.Entry, error] {
	return func(yield func(termbank.Entry, error) bool) {
		for _, f := range r.shards {
			entries, err := r.decode(f, withProvenance)
			if err != nil {
				yield(termbank.Entry{}, err)
				return
			}
			for _, e := range entries {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

func (r *Reader) decode(f *zip.File, withProvenance bool) ([]termbank.Entry, error) {
	data, err := r.readMember(f)
	if err != nil {
		return nil, err
	}
	entries, err := termbank.DecodeShard(f.Name, data, withProvenance)
	if err != nil {
		var decErr *termbank.EntryDecodeError
		if errors.As(err, &decErr) {
			decErr.Archive = r.path
		}
		return nil, err
	}
	return entries, nil
}

func (r *Reader) readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &termbank.ArchiveFormatError{Archive: r.path, Err: fmt.Errorf("%s: %w", f.Name, err)}
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &termbank.ArchiveFormatError{Archive: r.path, Err: fmt.Errorf("%s: %w", f.Name, err)}
	}
	return data, nil
}
