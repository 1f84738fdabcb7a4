package termbank

import "strings"

// GlossSeparator joins glosses into the single text column of the table.
const GlossSeparator = "; "

// JoinGlosses flattens a gloss list for storage.
func JoinGlosses(glosses []string) string {
	return strings.Join(glosses, GlossSeparator)
}

// SplitGlosses reverses JoinGlosses. An empty string yields an empty,
// non-nil list so it serializes as [] rather than [""] or null.
func SplitGlosses(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, GlossSeparator)
}

// CheckGlosses reports the first gloss that would not survive a
// join/split round trip. It returns nil when the entry is lossless.
func CheckGlosses(e Entry) *LossyGlossJoinWarning {
	for _, g := range e.Translation {
		if strings.Contains(g, GlossSeparator) {
			w := &LossyGlossJoinWarning{Word: e.Word, Gloss: g, Position: -1}
			if e.Provenance != nil {
				w.Shard = e.Provenance.Shard
				w.Position = e.Provenance.Position
			}
			return w
		}
	}
	return nil
}
