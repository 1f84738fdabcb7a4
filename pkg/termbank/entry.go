// Package termbank holds the dictionary entry model shared by the archive
// and table sides of the converter, plus the term-bank wire codec.
package termbank

// Entry is one headword record.
type Entry struct {
	Word        string
	Reading     string
	Kind        string   // part-of-speech / definition tags, may be empty
	Translation []string // glosses in source order
	Priority    int64
	// Provenance is nil unless the entry was read with provenance tracking.
	Provenance *Provenance
}

// Provenance records where an entry came from inside its source archive.
type Provenance struct {
	Shard    string // e.g. "term_bank_3.json"
	Position int    // zero-based index within the shard
}

// WithProvenance returns a copy of e tagged with the given origin.
func (e Entry) WithProvenance(shard string, position int) Entry {
	e.Provenance = &Provenance{Shard: shard, Position: position}
	return e
}
