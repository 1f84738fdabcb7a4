package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/japaniel/yomidb/internal/testutil"
	"github.com/japaniel/yomidb/pkg/termbank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterStateMachine(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.zip")
	w, err := Create(out)
	require.NoError(t, err)
	defer w.Abort()

	assert.Equal(t, StateInit, w.State())
	err = w.WriteShard("term_bank_1.json", nil)
	assert.True(t, errors.Is(err, ErrState), "shards before metadata must fail")

	require.NoError(t, w.WriteMember("index.json", []byte(`{}`)))
	assert.Equal(t, StateCopyingMetadata, w.State())

	require.NoError(t, w.WriteShard("term_bank_1.json", []termbank.Entry{{Word: "犬"}}))
	assert.Equal(t, StateEmittingShards, w.State())

	err = w.WriteMember("tag_bank_1.json", []byte("[]"))
	assert.True(t, errors.Is(err, ErrState), "metadata after shards must fail")

	require.NoError(t, w.Commit())
	assert.Equal(t, StateFinalized, w.State())

	assert.ErrorIs(t, w.WriteShard("term_bank_2.json", nil), ErrFinalized)
	assert.ErrorIs(t, w.WriteMember("x.json", nil), ErrFinalized)
	assert.ErrorIs(t, w.Commit(), ErrFinalized)
	assert.NoError(t, w.Abort())

	members, names := testutil.ReadArchive(t, out)
	assert.Equal(t, []string{"index.json", "term_bank_1.json"}, names)
	assert.Equal(t, `[["犬","","","",0,[]]]`, members["term_bank_1.json"])
}

func TestWriterRejectsBadNames(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "out.zip"))
	require.NoError(t, err)
	defer w.Abort()

	assert.Error(t, w.WriteMember("term_bank_1.json", nil))
	require.NoError(t, w.WriteMember("index.json", []byte(`{}`)))
	assert.Error(t, w.WriteMember("index.json", []byte(`{}`)))
	assert.Error(t, w.WriteShard("index2.json", nil))
	require.NoError(t, w.WriteShard("term_bank_1.json", nil))
	assert.Error(t, w.WriteShard("term_bank_1.json", nil))
}

func TestWriterAbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.zip")
	w, err := Create(out)
	require.NoError(t, err)
	require.NoError(t, w.WriteMember("index.json", []byte(`{}`)))
	require.NoError(t, w.Abort())

	assert.ErrorIs(t, w.WriteShard("term_bank_1.json", nil), ErrFinalized)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestWriterCommitWithoutContent(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "out.zip"))
	require.NoError(t, err)
	defer w.Abort()
	assert.ErrorIs(t, w.Commit(), ErrState)
}

func TestWriterCommitFileMode(t *testing.T) {
	dir := t.TempDir()
	commit := func(path string) {
		w, err := Create(path)
		require.NoError(t, err)
		require.NoError(t, w.WriteMember("index.json", []byte(`{}`)))
		require.NoError(t, w.Commit())
	}

	fresh := filepath.Join(dir, "fresh.zip")
	commit(fresh)
	fi, err := os.Stat(fresh)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())

	existing := filepath.Join(dir, "existing.zip")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o600))
	require.NoError(t, os.Chmod(existing, 0o640))
	commit(existing)
	fi, err = os.Stat(existing)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "COPYING_METADATA", StateCopyingMetadata.String())
	assert.Equal(t, "State(9)", State(9).String())
}
