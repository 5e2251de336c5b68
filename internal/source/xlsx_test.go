package source

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) *bytes.Buffer {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	if sheet != "Sheet1" {
		if err := wb.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestReadXLSX(t *testing.T) {
	buf := writeWorkbook(t, "Sheet1", [][]any{
		{"Outlet", "Date", "Quantity"},
		{"Cafe One", "05-03-2024", "3"},
		{"Cafe Two", "06-03-2024", "5"},
	})

	table, err := ReadXLSX(buf, "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "Outlet" {
		t.Errorf("headers = %v, want Outlet/Date/Quantity", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if table.Rows[0][0] != "Cafe One" || table.Rows[1][2] != "5" {
		t.Errorf("rows = %v, want workbook cell values", table.Rows)
	}
}

func TestReadXLSXPadsShortRows(t *testing.T) {
	// Trailing empty cells are trimmed by the workbook reader; rows must
	// still come back at header width.
	buf := writeWorkbook(t, "Sheet1", [][]any{
		{"Outlet", "Date", "Quantity"},
		{"Cafe One"},
	})

	table, err := ReadXLSX(buf, "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(table.Rows[0]) != 3 {
		t.Fatalf("row width = %d, want 3", len(table.Rows[0]))
	}
	if table.Rows[0][1] != "" || table.Rows[0][2] != "" {
		t.Errorf("padded cells = %q/%q, want empty", table.Rows[0][1], table.Rows[0][2])
	}
}

func TestReadXLSXSheetByName(t *testing.T) {
	buf := writeWorkbook(t, "March", [][]any{
		{"Outlet"},
		{"Cafe One"},
	})

	table, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "March")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if table.Rows[0][0] != "Cafe One" {
		t.Errorf("row = %v, want Cafe One", table.Rows[0])
	}

	if _, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "April"); err == nil {
		t.Error("want error for missing sheet")
	}
}
