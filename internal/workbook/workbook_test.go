package workbook_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"xlmerge/internal/failure"
	"xlmerge/internal/testsupport"
	"xlmerge/internal/workbook"
)

func TestOpenMissingFileIsEngineOpenError(t *testing.T) {
	_, err := workbook.Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, failure.ErrEngineOpen) {
		t.Fatalf("expected ErrEngineOpen, got %v", err)
	}
}

func TestOpenCorruptFileIsEngineOpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.xlsx")
	testsupport.WriteFile(t, path, "definitely not a zip archive")
	_, err := workbook.Open(path)
	if !errors.Is(err, failure.ErrEngineOpen) {
		t.Fatalf("expected ErrEngineOpen, got %v", err)
	}
}

func TestAddSheetBeforeFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.xlsx")
	testsupport.WriteWorkbook(t, path, testsupport.Sheet{Name: "Alpha"}, testsupport.Sheet{Name: "Beta"})

	book, err := workbook.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	if err := book.AddSheet("Report", 0); err != nil {
		t.Fatalf("AddSheet: %v", err)
	}
	if err := book.AddSheet("Tail", -1); err != nil {
		t.Fatalf("AddSheet append: %v", err)
	}
	want := []string{"Report", "Alpha", "Beta", "Tail"}
	if got := book.SheetNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sheet order = %v, want %v", got, want)
	}
	if err := book.AddSheet("report", 0); err == nil {
		t.Fatal("expected case-insensitive duplicate to be rejected")
	}
}

func TestCopySheetTransplantsContent(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.xlsx")
	src := excelize.NewFile()
	sheet := src.GetSheetName(0)
	must(t, src.SetSheetName(sheet, "Data"))
	must(t, src.SetCellValue("Data", "A1", "Region"))
	must(t, src.SetCellValue("Data", "B1", 42.5))
	must(t, src.SetCellBool("Data", "C1", true))
	must(t, src.SetCellFormula("Data", "D1", "B1*2"))
	must(t, src.SetCellValue("Data", "E2", "wide"))
	must(t, src.SetColWidth("Data", "A", "A", 31))
	must(t, src.SetRowHeight("Data", 1, 28))
	must(t, src.MergeCell("Data", "A3", "C3"))
	must(t, src.SetCellValue("Data", "A3", "merged"))
	styleID, err := src.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	must(t, err)
	must(t, src.SetCellStyle("Data", "A1", "A1", styleID))
	must(t, src.SaveAs(srcPath))
	must(t, src.Close())

	targetPath := filepath.Join(dir, "target.xlsx")
	testsupport.WriteWorkbook(t, targetPath, testsupport.Sheet{Name: "Report"})

	target, err := workbook.Open(targetPath)
	must(t, err)
	source, err := workbook.Open(srcPath)
	must(t, err)
	if err := target.CopySheet(source, "Data", "Data (1)"); err != nil {
		t.Fatalf("CopySheet: %v", err)
	}
	must(t, target.Save())
	must(t, source.Close())
	must(t, target.Close())

	got, err := excelize.OpenFile(targetPath)
	must(t, err)
	defer got.Close()

	if names := got.GetSheetList(); !reflect.DeepEqual(names, []string{"Report", "Data (1)"}) {
		t.Fatalf("sheets = %v", names)
	}
	if v, _ := got.GetCellValue("Data (1)", "A1"); v != "Region" {
		t.Fatalf("A1 = %q", v)
	}
	if v, _ := got.GetCellValue("Data (1)", "B1", excelize.Options{RawCellValue: true}); v != "42.5" {
		t.Fatalf("B1 = %q", v)
	}
	if typ, _ := got.GetCellType("Data (1)", "C1"); typ != excelize.CellTypeBool {
		t.Fatalf("C1 type = %v, want bool", typ)
	}
	if f, _ := got.GetCellFormula("Data (1)", "D1"); f != "B1*2" {
		t.Fatalf("D1 formula = %q", f)
	}
	if w, _ := got.GetColWidth("Data (1)", "A"); w != 31 {
		t.Fatalf("column A width = %v", w)
	}
	if h, _ := got.GetRowHeight("Data (1)", 1); h != 28 {
		t.Fatalf("row 1 height = %v", h)
	}
	merged, err := got.GetMergeCells("Data (1)")
	must(t, err)
	if len(merged) != 1 || merged[0].GetStartAxis() != "A3" || merged[0].GetEndAxis() != "C3" {
		t.Fatalf("merged cells = %v", merged)
	}
	copiedStyle, _ := got.GetCellStyle("Data (1)", "A1")
	style, err := got.GetStyle(copiedStyle)
	must(t, err)
	if style.Font == nil || !style.Font.Bold {
		t.Fatalf("expected bold font on copied A1, got %+v", style.Font)
	}
}

func TestCopySheetRejectsTakenName(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.xlsx")
	targetPath := filepath.Join(dir, "target.xlsx")
	testsupport.WriteWorkbook(t, srcPath, testsupport.Sheet{Name: "Data", Rows: [][]any{{"x"}}})
	testsupport.WriteWorkbook(t, targetPath, testsupport.Sheet{Name: "Report"}, testsupport.Sheet{Name: "Data"})

	target, err := workbook.Open(targetPath)
	must(t, err)
	defer target.Close()
	source, err := workbook.Open(srcPath)
	must(t, err)
	defer source.Close()

	if err := target.CopySheet(source, "Data", "DATA"); !errors.Is(err, failure.ErrEngine) {
		t.Fatalf("expected engine error for taken name, got %v", err)
	}
	if err := target.CopySheet(source, "Missing", "Other"); err == nil {
		t.Fatal("expected error copying a sheet the source does not have")
	}
	if target.HasSheet("Other") {
		t.Fatal("failed copy must not leave a partial sheet")
	}
}

func TestSaveLeavesNoTemporaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.xlsx")
	testsupport.WriteWorkbook(t, path, testsupport.Sheet{Name: "Report"})

	book, err := workbook.Open(path)
	must(t, err)
	must(t, book.WriteRow("Report", "A2", []any{"q1.xlsx", "Data", 3}))
	must(t, book.Save())
	must(t, book.Close())
	if err := book.Close(); err != nil {
		t.Fatalf("second Close returned %v", err)
	}

	entries, err := os.ReadDir(dir)
	must(t, err)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), workbook.TempPrefix) {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
	rows := testsupport.ReadSheet(t, path, "Report")
	if len(rows) < 2 || rows[1][0] != "q1.xlsx" || rows[1][2] != "3" {
		t.Fatalf("saved rows = %v", rows)
	}
}

func TestCreateWritesSingleSheetWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.xlsx")
	if err := workbook.Create(path, "Report"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if names := testsupport.SheetNames(t, path); !reflect.DeepEqual(names, []string{"Report"}) {
		t.Fatalf("sheets = %v", names)
	}
	if err := workbook.Create(path, "Report"); !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
