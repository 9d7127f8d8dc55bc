package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet describes a worksheet fixture. Rows are written from A1.
type Sheet struct {
	Name string
	Rows [][]any
}

// WriteWorkbook writes an .xlsx fixture holding the given sheets in order.
func WriteWorkbook(t testing.TB, path string, sheets ...Sheet) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("new sheet %s: %v", sheet.Name, err)
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := append([]any(nil), row...)
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				t.Fatalf("write row %d of %s: %v", r+1, sheet.Name, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// SheetNames returns the sheet names of the workbook at path.
func SheetNames(t testing.TB, path string) []string {
	t.Helper()
	f := openWorkbook(t, path)
	defer f.Close()
	return f.GetSheetList()
}

// ReadSheet returns the formatted cell values of a sheet.
func ReadSheet(t testing.TB, path, sheet string) [][]string {
	t.Helper()
	f := openWorkbook(t, path)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read %s of %s: %v", sheet, path, err)
	}
	return rows
}

func openWorkbook(t testing.TB, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return f
}
