package ingest

// coerce.go converts raw cell strings into typed pgtype values.
//
// Every coercion is total: dirty input degrades to the absent value
// (Valid=false), never to an error. Absent stays distinct from zero and
// from the empty string throughout. Integer columns in particular must
// be able to say "no value" without smuggling a zero into the store.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after
// cleanup. Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years that
// would land more than this many years in the future are assumed to be in
// the previous century.
var TwoDigitYearPivot = 20

// Date layouts, day first. The upstream spreadsheets write DD-MM-YYYY, so
// day is always tried before month; unambiguous ISO dates pass through.
var (
	twoDigitYearLayouts = []string{
		"2-1-06", "02-01-06", "2/1/06", "02/01/06", "2.1.06",
	}
	fourDigitYearLayouts = []string{
		"2-1-2006", "02-01-2006", "2/1/2006", "02/01/2006",
		"2.1.2006", "02.01.2006",
		"2006-01-02",
	}
)

// CoerceText trims the value. Empty cells and the literal token "nan"
// (the float-to-string artifact of spreadsheet exports) are absent, not
// text.
func CoerceText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" || s == "nan" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// CoerceDate parses a day-first calendar date.
func CoerceDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// CoerceInt parses a whole number. Fractional values are absent, never
// truncated; exports that render integers as "12.0" are accepted.
func CoerceInt(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{Valid: false}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return pgtype.Int8{Int64: i, Valid: true}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return pgtype.Int8{Valid: false}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: int64(f), Valid: true}
}

// CoerceDecimal parses a real number at full precision. Currency symbols,
// thousands separators, and accounting-style negatives are tolerated.
func CoerceDecimal(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	// Accounting format "(123.45)" means negative.
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// CoerceValue applies the column family's coercion to one raw cell.
func CoerceValue(t ColumnType, raw string) any {
	switch t {
	case TypeDate:
		return CoerceDate(raw)
	case TypeInteger:
		return CoerceInt(raw)
	case TypeDecimal:
		return CoerceDecimal(raw)
	default:
		return CoerceText(raw)
	}
}

// CanonicalTable holds coerced rows aligned 1:1 with the target schema.
// Each cell is a pgtype value whose Valid flag is the explicit absent
// marker. A table is built once per ingestion run and discarded after the
// bulk loader consumes it.
type CanonicalTable struct {
	Schema TargetSchema
	Rows   [][]any
}

// BuildTable coerces the raw rows into a CanonicalTable with one output
// row per input row, columns in target-schema order. Targets without a
// mapping, and cells past the end of a short row, come out absent.
func BuildTable(schema TargetSchema, idx HeaderIndex, rows [][]string, mapping ColumnMapping) CanonicalTable {
	// Resolve each target column to a source position once, up front.
	positions := make([]int, len(schema))
	for i, col := range schema {
		positions[i] = -1
		if src, ok := mapping[col.Name]; ok {
			if p, ok := idx[src]; ok {
				positions[i] = p
			}
		}
	}

	out := CanonicalTable{
		Schema: schema,
		Rows:   make([][]any, len(rows)),
	}
	for r, row := range rows {
		cells := make([]any, len(schema))
		for c, col := range schema {
			raw := ""
			if p := positions[c]; p >= 0 && p < len(row) {
				raw = row[p]
			}
			cells[c] = CoerceValue(col.Type, raw)
		}
		out.Rows[r] = cells
	}
	return out
}
