// Package lookup finds dictionary rows for words and for running Japanese
// text, using the word index of the translations table.
package lookup

import (
	"context"
	"slices"
	"strings"

	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/termbank"
)

// Match pairs a token of the input text with the rows found for it.
type Match struct {
	Token   Token
	Entries []termbank.Entry
}

// Lookup answers queries against an imported table.
type Lookup struct {
	DB       db.DBExecutor
	Analyzer *Analyzer
}

// New creates a Lookup. The analyzer is only needed for Text.
func New(conn db.DBExecutor, a *Analyzer) *Lookup {
	return &Lookup{DB: conn, Analyzer: a}
}

// Word returns rows whose word is exactly word. When reading is non-empty
// the rows are narrowed to those whose reading matches it, ignoring the
// katakana/hiragana distinction.
func (l *Lookup) Word(ctx context.Context, word, reading string) ([]termbank.Entry, error) {
	entries, err := db.LookupWord(ctx, l.DB, word)
	if err != nil {
		return nil, err
	}
	if reading == "" {
		return entries, nil
	}
	return filterReading(entries, reading), nil
}

// Text tokenizes text and looks up each token by surface and base form.
// Results are narrowed by the token reading; if that leaves nothing (as
// with conjugated forms, whose reading is not the base reading) every
// candidate is kept. Tokens without any row are included with no entries.
func (l *Lookup) Text(ctx context.Context, text string) ([]Match, error) {
	var matches []Match
	for _, tok := range l.Analyzer.Analyze(text) {
		candidates, err := l.candidates(ctx, tok)
		if err != nil {
			return nil, err
		}
		if narrowed := filterReading(candidates, tok.Reading); len(narrowed) > 0 {
			candidates = narrowed
		}
		matches = append(matches, Match{Token: tok, Entries: candidates})
	}
	return matches, nil
}

func (l *Lookup) candidates(ctx context.Context, tok Token) ([]termbank.Entry, error) {
	var out []termbank.Entry
	seen := make(map[string]bool)
	for _, term := range []string{tok.Surface, tok.BaseForm} {
		if term == "" {
			continue
		}
		entries, err := db.LookupWord(ctx, l.DB, term)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			k := entryKey(e)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, e)
		}
	}
	return out, nil
}

func entryKey(e termbank.Entry) string {
	return strings.Join([]string{e.Word, e.Reading, e.Kind, termbank.JoinGlosses(e.Translation)}, "\x00")
}

// filterReading keeps entries read as reading. Kana-only rows carry no
// reading of their own, so their word is compared instead.
func filterReading(entries []termbank.Entry, reading string) []termbank.Entry {
	if reading == "" {
		return entries
	}
	want := ToHiragana(reading)
	return slices.DeleteFunc(slices.Clone(entries), func(e termbank.Entry) bool {
		r := e.Reading
		if r == "" {
			r = e.Word
		}
		return ToHiragana(r) != want
	})
}
