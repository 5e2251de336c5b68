package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX parses one worksheet of an Excel workbook. sheet selects the
// worksheet by name; empty means the first sheet in the workbook. Cell
// values arrive as the display strings Excel would show, which is what
// the coercion layer expects.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	headers := records[0]
	rows := records[1:]

	// GetRows trims trailing empty cells, so pad every data row back out
	// to the header width.
	for i, row := range rows {
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			rows[i] = padded
		}
	}

	return &Table{Headers: headers, Rows: rows}, nil
}
