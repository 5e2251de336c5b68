package ingest

import "strings"

// ColumnMapping maps target column names to normalized source headers.
// It is not required to be total: a target with no plausible source stays
// unmapped and yields all-absent values for the run.
type ColumnMapping map[string]string

// MapColumns matches every target column against the normalized source
// headers. An exact match wins outright; otherwise headers are scanned in
// original column order and the first one satisfying any approximate rule
// is taken. A mapping is never revised once set, and nothing stops two
// targets from landing on the same source header. Downstream consumers
// depend on that first-match behavior, so don't get clever here.
//
// The mapper is a pure function of its inputs and fully deterministic.
func MapColumns(schema TargetSchema, headers []string) ColumnMapping {
	mapping := make(ColumnMapping, len(schema))
	for _, col := range schema {
		if src, ok := matchHeader(col.Name, headers); ok {
			mapping[col.Name] = src
		}
	}
	return mapping
}

// matchHeader finds the source header for one target column.
//
// Approximate rules, tried in order for each candidate:
//  1. the target is a substring of the header
//  2. the header is a substring of the target
//  3. the target's token before the first underscore is a substring
//  4. the target's token after the last underscore is a substring
func matchHeader(target string, headers []string) (string, bool) {
	for _, h := range headers {
		if h == target {
			return h, true
		}
	}

	prefix := target
	if i := strings.Index(target, "_"); i >= 0 {
		prefix = target[:i]
	}
	suffix := target
	if i := strings.LastIndex(target, "_"); i >= 0 {
		suffix = target[i+1:]
	}

	for _, h := range headers {
		switch {
		case strings.Contains(h, target),
			strings.Contains(target, h),
			strings.Contains(h, prefix),
			strings.Contains(h, suffix):
			return h, true
		}
	}
	return "", false
}
