package source

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV parses a CSV export. The stream is BOM-stripped and sanitized
// to valid UTF-8 before parsing, rows may be ragged, and quoting follows
// whatever the exporting tool produced rather than strict RFC 4180.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(newUTF8Sanitizer(skipBOM(r)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv input has no header row")
	}

	return &Table{Headers: records[0], Rows: records[1:]}, nil
}
