package termbank

import (
	"bytes"
	"encoding/json"
	"time"
)

// FormatVersion is the archive format revision we read and write.
const FormatVersion = 3

// Index is the content of index.json.
type Index struct {
	Title       string `json:"title"`
	Format      int    `json:"format"`
	Revision    string `json:"revision"`
	Sequenced   bool   `json:"sequenced"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// NewIndex builds metadata for a freshly exported archive.
func NewIndex(title, description, author string, now time.Time) Index {
	return Index{
		Title:       title,
		Format:      FormatVersion,
		Revision:    Revision(now),
		Sequenced:   true,
		Description: description,
		Author:      author,
	}
}

// Revision derives the revision string from the export time.
func Revision(now time.Time) string {
	return "db_export_" + now.Format("2006.01.02_150405")
}

// Marshal renders the index as indented JSON with non-ASCII text kept as is.
func (ix Index) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ix); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
