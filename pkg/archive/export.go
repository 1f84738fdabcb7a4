package archive

import (
	"errors"
	"iter"

	"github.com/japaniel/yomidb/pkg/termbank"
)

// DefaultChunkSize is the number of entries per shard in a stateless export.
const DefaultChunkSize = 10000

// emptyTagBank is the tag file content required even when no tags are used.
var emptyTagBank = []byte("[]")

// Stats summarizes an export.
type Stats struct {
	Shards  int
	Entries int
}

// Rechunk writes fresh metadata, an empty tag bank, and then packs entries
// into consecutive shards of chunkSize entries each. The last shard holds
// the remainder. The caller commits or aborts w.
func Rechunk(w *Writer, index termbank.Index, entries iter.Seq2[termbank.Entry, error], chunkSize int, onProgress func(termbank.Event)) (Stats, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	data, err := index.Marshal()
	if err != nil {
		return Stats{}, err
	}
	if err := w.WriteMember(termbank.IndexFile, data); err != nil {
		return Stats{}, err
	}
	if err := w.WriteMember(termbank.DefaultTagBank, emptyTagBank); err != nil {
		return Stats{}, err
	}

	buf := make([]termbank.Entry, 0, min(chunkSize, 4096))
	flush := func() error {
		name := termbank.ShardName(w.Shards() + 1)
		if err := w.WriteShard(name, buf); err != nil {
			return err
		}
		emit(onProgress, termbank.Event{Stage: termbank.StageShard, Shard: name, Entries: len(buf)})
		buf = buf[:0]
		return nil
	}

	for e, err := range entries {
		if err != nil {
			return stats(w), err
		}
		if err := checkRequired(e); err != nil {
			return stats(w), err
		}
		buf = append(buf, e)
		if len(buf) >= chunkSize {
			if err := flush(); err != nil {
				return stats(w), err
			}
		}
	}
	if len(buf) > 0 {
		if err := flush(); err != nil {
			return stats(w), err
		}
	}
	return stats(w), nil
}

// Reshard rebuilds the shard layout of ref. Every non-entry member of ref
// is copied verbatim, then entries, which must arrive grouped by shard and
// ordered by position, are written back under their original shard names.
// Shards of ref with no entries are written as empty arrays.
func Reshard(w *Writer, ref *Reader, entries iter.Seq2[termbank.Entry, error], onProgress func(termbank.Event)) (Stats, error) {
	if _, ok, err := ref.Index(); err != nil {
		return Stats{}, err
	} else if !ok {
		return Stats{}, &termbank.ArchiveFormatError{Archive: ref.Path(), Err: errors.New("reference archive has no " + termbank.IndexFile)}
	}
	for _, f := range ref.NonEntry() {
		if err := w.CopyMember(f); err != nil {
			return Stats{}, err
		}
	}

	var (
		current string
		group   []termbank.Entry
		lastPos = -1
		written = make(map[string]bool)
	)
	flush := func() error {
		if current == "" {
			return nil
		}
		if err := w.WriteShard(current, group); err != nil {
			return err
		}
		written[current] = true
		emit(onProgress, termbank.Event{Stage: termbank.StageShard, Shard: current, Entries: len(group)})
		group = group[:0]
		return nil
	}

	for e, err := range entries {
		if err != nil {
			return stats(w), err
		}
		if err := checkRequired(e); err != nil {
			return stats(w), err
		}
		p := e.Provenance
		if p == nil || p.Shard == "" {
			return stats(w), &termbank.ExportIntegrityError{Word: e.Word, Position: -1, Reason: "missing source shard"}
		}
		if !termbank.IsShardName(p.Shard) {
			return stats(w), &termbank.ExportIntegrityError{Shard: p.Shard, Position: p.Position, Word: e.Word, Reason: "source shard is not a term bank name"}
		}
		if p.Shard != current {
			if err := flush(); err != nil {
				return stats(w), err
			}
			if written[p.Shard] {
				return stats(w), &termbank.ExportIntegrityError{Shard: p.Shard, Position: p.Position, Word: e.Word, Reason: "entries of this shard are not contiguous"}
			}
			current = p.Shard
			lastPos = -1
		}
		if p.Position <= lastPos {
			return stats(w), &termbank.ExportIntegrityError{Shard: p.Shard, Position: p.Position, Word: e.Word, Reason: "duplicate or out-of-order position"}
		}
		lastPos = p.Position
		group = append(group, e)
	}
	if err := flush(); err != nil {
		return stats(w), err
	}

	for _, name := range ref.ShardNames() {
		if written[name] {
			continue
		}
		if err := w.WriteShard(name, nil); err != nil {
			return stats(w), err
		}
		emit(onProgress, termbank.Event{Stage: termbank.StageShard, Shard: name})
	}
	return stats(w), nil
}

// checkRequired rejects entries that cannot be placed in a shard. An empty
// headword is valid.
func checkRequired(e termbank.Entry) error {
	if e.Provenance != nil && e.Provenance.Position < 0 {
		return &termbank.ExportIntegrityError{Shard: e.Provenance.Shard, Position: e.Provenance.Position, Word: e.Word, Reason: "negative position"}
	}
	return nil
}

func stats(w *Writer) Stats {
	return Stats{Shards: w.Shards(), Entries: w.Entries()}
}

func emit(fn func(termbank.Event), ev termbank.Event) {
	if fn != nil {
		fn(ev)
	}
}
