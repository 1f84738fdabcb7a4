package termbank

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// TupleLen is the minimum number of positional fields in a shard record:
// word, reading, kind, <unused>, priority, glosses.
const TupleLen = 6

var jsonNull = []byte("null")

// DecodeTuple maps one positional record onto an Entry. Field 3 and any
// fields past the sixth are ignored.
func DecodeTuple(raw json.RawMessage) (Entry, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Entry{}, fmt.Errorf("record is not an array: %w", err)
	}
	if len(fields) < TupleLen {
		return Entry{}, fmt.Errorf("record has %d fields, want at least %d", len(fields), TupleLen)
	}

	var e Entry
	if bytes.Equal(bytes.TrimSpace(fields[0]), jsonNull) {
		return Entry{}, errors.New("word is null")
	}
	if err := json.Unmarshal(fields[0], &e.Word); err != nil {
		return Entry{}, fmt.Errorf("word: %w", err)
	}
	if err := json.Unmarshal(fields[1], &e.Reading); err != nil {
		return Entry{}, fmt.Errorf("reading: %w", err)
	}
	if err := json.Unmarshal(fields[2], &e.Kind); err != nil {
		return Entry{}, fmt.Errorf("kind: %w", err)
	}

	priority, err := decodePriority(fields[4])
	if err != nil {
		return Entry{}, err
	}
	e.Priority = priority

	if err := json.Unmarshal(fields[5], &e.Translation); err != nil {
		return Entry{}, fmt.Errorf("glosses: %w", err)
	}
	if e.Translation == nil {
		e.Translation = []string{}
	}
	return e, nil
}

// decodePriority accepts any JSON integer that fits in int64, and floats
// within that range truncated toward zero.
func decodePriority(raw json.RawMessage) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, fmt.Errorf("priority: %w", err)
	}
	if n, err := num.Int64(); err == nil {
		return n, nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("priority %q is not a number", raw)
	}
	if math.IsNaN(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, fmt.Errorf("priority %v out of range", f)
	}
	return int64(f), nil
}

// EncodeTuple renders an entry in the positional shape written to shards.
// The unused fourth field is always an empty string.
func EncodeTuple(e Entry) []any {
	glosses := e.Translation
	if glosses == nil {
		glosses = []string{}
	}
	return []any{e.Word, e.Reading, e.Kind, "", e.Priority, glosses}
}

// DecodeShard parses a whole term-bank member. When withProvenance is set
// every entry is tagged with shard and its position in the array.
func DecodeShard(shard string, data []byte, withProvenance bool) ([]Entry, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &EntryDecodeError{Shard: shard, Position: -1, Err: err}
	}
	if records == nil {
		return nil, &EntryDecodeError{Shard: shard, Position: -1, Err: errors.New("shard is null, want an array")}
	}
	entries := make([]Entry, 0, len(records))
	for i, rec := range records {
		e, err := DecodeTuple(rec)
		if err != nil {
			return nil, &EntryDecodeError{Shard: shard, Position: i, Err: err}
		}
		if withProvenance {
			e = e.WithProvenance(shard, i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// EncodeShard renders entries as one compact term-bank member.
func EncodeShard(entries []Entry) ([]byte, error) {
	tuples := make([][]any, 0, len(entries))
	for _, e := range entries {
		tuples = append(tuples, EncodeTuple(e))
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tuples); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
