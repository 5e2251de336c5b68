package ingest

import "strings"

// NormalizeHeader canonicalizes a raw column label: leading/trailing
// whitespace is trimmed, interior whitespace runs collapse to a single
// space, everything is lowercased, and spaces become underscores.
//
// The function is total and idempotent; an empty or all-whitespace label
// canonicalizes to the empty string.
func NormalizeHeader(h string) string {
	s := strings.Join(strings.Fields(h), " ")
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, " ", "_")
}

// HeaderIndex maps a normalized header to its first position in the
// source row. Duplicate headers keep their first occurrence.
type HeaderIndex map[string]int

// MakeHeaderIndex normalizes a raw header row, preserving original column
// order, and builds the position index used to resolve mapped values.
func MakeHeaderIndex(raw []string) ([]string, HeaderIndex) {
	normalized := make([]string, len(raw))
	idx := make(HeaderIndex, len(raw))
	for i, h := range raw {
		n := NormalizeHeader(h)
		normalized[i] = n
		if _, ok := idx[n]; !ok {
			idx[n] = i
		}
	}
	return normalized, idx
}
