package termbank

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	// IndexFile is the single metadata member every archive carries.
	IndexFile = "index.json"
	// TagBankPrefix marks tag files, which are never parsed as entries.
	TagBankPrefix = "tag_bank"
	// DefaultTagBank is the empty tag file written by stateless export.
	DefaultTagBank = "tag_bank_1.json"
)

var shardNameRe = regexp.MustCompile(`^term_bank_([0-9]+)\.json$`)

// ShardName returns the member name of the n-th entry shard (n >= 1).
func ShardName(n int) string {
	return fmt.Sprintf("term_bank_%d.json", n)
}

// ShardNumber extracts N from "term_bank_<N>.json".
func ShardNumber(name string) (int, bool) {
	m := shardNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// IsShardName reports whether name follows the entry shard convention.
func IsShardName(name string) bool {
	_, ok := ShardNumber(name)
	return ok
}

// IsSkipListed reports whether name is a metadata or tag member.
func IsSkipListed(name string) bool {
	return name == IndexFile || strings.HasPrefix(name, TagBankPrefix)
}

// CompareShardNames orders shard names by their numeric suffix, so
// term_bank_2.json sorts before term_bank_10.json. Names without a
// numeric suffix sort after all shards, lexicographically.
func CompareShardNames(a, b string) int {
	na, okA := ShardNumber(a)
	nb, okB := ShardNumber(b)
	switch {
	case okA && okB:
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// SortShardNames sorts names in place with CompareShardNames.
func SortShardNames(names []string) {
	slices.SortFunc(names, CompareShardNames)
}
