package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/japaniel/yomidb/pkg/termbank"
)

// State is the lifecycle position of a Writer. States only move forward,
// one step at a time.
type State int

const (
	StateInit State = iota
	StateCopyingMetadata
	StateEmittingShards
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCopyingMetadata:
		return "COPYING_METADATA"
	case StateEmittingShards:
		return "EMITTING_SHARDS"
	case StateFinalized:
		return "FINALIZED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrFinalized is returned by any write after Commit or Abort.
	ErrFinalized = errors.New("archive writer finalized")
	// ErrState is returned when a call would skip or rewind a state.
	ErrState = errors.New("archive writer: invalid state transition")
)

// Writer builds an archive in a temporary file next to its destination and
// only renames it into place on Commit, so a failed export leaves nothing
// behind.
type Writer struct {
	path      string
	tmp       *os.File
	zw        *zip.Writer
	state     State
	committed bool
	names     map[string]struct{}

	shards  int
	entries int
}

// Create starts a new archive that will be materialized at path.
func Create(path string) (*Writer, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp archive: %w", err)
	}
	return &Writer{
		path:  path,
		tmp:   tmp,
		zw:    zip.NewWriter(tmp),
		names: make(map[string]struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (w *Writer) State() State { return w.state }

// Path returns the final destination.
func (w *Writer) Path() string { return w.path }

// Shards returns the number of entry shards written so far.
func (w *Writer) Shards() int { return w.shards }

// Entries returns the number of entries written so far.
func (w *Writer) Entries() int { return w.entries }

func (w *Writer) advance(to State) error {
	if w.state == StateFinalized {
		return ErrFinalized
	}
	if to == w.state {
		return nil
	}
	if to != w.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrState, w.state, to)
	}
	w.state = to
	return nil
}

func (w *Writer) claim(name string) error {
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("archive %s: duplicate member %s", w.path, name)
	}
	w.names[name] = struct{}{}
	return nil
}

// WriteMember adds a non-entry member (metadata, tags) compressed with
// deflate. It is only valid before the first shard.
func (w *Writer) WriteMember(name string, data []byte) error {
	if err := w.advance(StateCopyingMetadata); err != nil {
		return err
	}
	if termbank.IsShardName(name) {
		return fmt.Errorf("archive %s: %s is an entry shard, use WriteShard", w.path, name)
	}
	if err := w.claim(name); err != nil {
		return err
	}
	return w.put(name, data)
}

// CopyMember copies a member of another archive byte for byte, without
// recompressing it.
func (w *Writer) CopyMember(f *zip.File) error {
	if err := w.advance(StateCopyingMetadata); err != nil {
		return err
	}
	if err := w.claim(f.Name); err != nil {
		return err
	}
	if err := w.zw.Copy(f); err != nil {
		return fmt.Errorf("copy member %s: %w", f.Name, err)
	}
	return nil
}

// WriteShard serializes entries as one term-bank member.
func (w *Writer) WriteShard(name string, entries []termbank.Entry) error {
	if w.state == StateInit {
		return fmt.Errorf("%w: metadata must be written before shards", ErrState)
	}
	if err := w.advance(StateEmittingShards); err != nil {
		return err
	}
	if !termbank.IsShardName(name) {
		return fmt.Errorf("archive %s: %q is not a term bank name", w.path, name)
	}
	if err := w.claim(name); err != nil {
		return err
	}
	data, err := termbank.EncodeShard(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := w.put(name, data); err != nil {
		return err
	}
	w.shards++
	w.entries += len(entries)
	return nil
}

func (w *Writer) put(name string, data []byte) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create member %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write member %s: %w", name, err)
	}
	return nil
}

// Commit finishes the container and moves it to its destination. On
// failure the temporary file is removed.
func (w *Writer) Commit() error {
	if w.state == StateFinalized {
		return ErrFinalized
	}
	if w.state == StateInit {
		return fmt.Errorf("%w: nothing written", ErrState)
	}
	if err := w.advance(StateEmittingShards); err != nil {
		return err
	}

	if err := w.zw.Close(); err != nil {
		w.discard()
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := w.tmp.Chmod(w.fileMode()); err != nil {
		w.discard()
		return fmt.Errorf("chmod archive: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("sync archive: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		w.discard()
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		w.discard()
		return fmt.Errorf("move archive into place: %w", err)
	}
	w.state = StateFinalized
	w.committed = true
	return nil
}

// fileMode keeps the permissions of a file being replaced. New archives
// get the usual 0644 instead of the 0600 of the temporary file.
func (w *Writer) fileMode() os.FileMode {
	if fi, err := os.Stat(w.path); err == nil && fi.Mode().IsRegular() {
		return fi.Mode().Perm()
	}
	return 0o644
}

// Abort discards everything written. It is a no-op after Commit, so it is
// safe to defer.
func (w *Writer) Abort() error {
	if w.committed || w.state == StateFinalized {
		return nil
	}
	return w.discard()
}

func (w *Writer) discard() error {
	w.state = StateFinalized
	_ = w.zw.Close()
	_ = w.tmp.Close()
	if err := os.Remove(w.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
