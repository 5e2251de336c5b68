// Package source reads tabular input files into the raw header/row shape
// the ingestion pipeline consumes. The pipeline only requires this shape,
// not a particular file format; readers exist for Excel workbooks and
// CSV exports.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is an ordered tabular input: the raw header row plus data rows
// beneath it. It is read-only input to the pipeline and never mutated.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Open reads the file at path, picking the reader by extension.
func Open(path, sheet string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), sheet)
}

// Read parses a tabular stream. name is used only to pick the format by
// extension; sheet selects a worksheet for workbook formats (empty means
// the first sheet).
func Read(r io.Reader, name, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, sheet)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .xlsx, .xlsm, or .csv)", filepath.Ext(name))
	}
}
