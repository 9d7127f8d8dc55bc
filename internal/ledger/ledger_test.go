package ledger_test

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"xlmerge/internal/ledger"
	"xlmerge/internal/testsupport"
	"xlmerge/internal/workbook"
)

func openBook(t *testing.T, sheets ...testsupport.Sheet) (*workbook.Book, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.xlsx")
	testsupport.WriteWorkbook(t, path, sheets...)
	book, err := workbook.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = book.Close() })
	return book, path
}

func TestEnsureCreatesReportFirstWithHeader(t *testing.T) {
	book, path := openBook(t, testsupport.Sheet{Name: "Existing", Rows: [][]any{{"keep"}}})

	if err := ledger.Ensure(book, "Report"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := ledger.Ensure(book, "Report"); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if err := book.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := testsupport.SheetNames(t, path); !reflect.DeepEqual(got, []string{"Report", "Existing"}) {
		t.Fatalf("sheet order = %v", got)
	}
	rows := testsupport.ReadSheet(t, path, "Report")
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], ledger.Header) {
		t.Fatalf("report rows = %v", rows)
	}
}

func TestEnsureRepairsHeaderOnExistingSheet(t *testing.T) {
	book, _ := openBook(t, testsupport.Sheet{Name: "Report", Rows: [][]any{{"wrong"}, {"q1.xlsx"}}})
	if err := ledger.Ensure(book, "Report"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for i, want := range ledger.Header {
		cell := string(rune('A'+i)) + "1"
		got, err := book.ReadCell("Report", cell)
		if err != nil || got != want {
			t.Fatalf("%s = %q (%v), want %q", cell, got, err, want)
		}
	}
	if names, _ := ledger.ExistingFileNames(book, "Report"); len(names) != 1 {
		t.Fatalf("existing rows must survive, got %v", names)
	}
}

func TestExistingFileNamesStopsAtFirstGap(t *testing.T) {
	book, _ := openBook(t, testsupport.Sheet{Name: "Report", Rows: [][]any{
		{"File Name"},
		{"q1.xlsx"},
		{"q2.xlsx"},
		{""},
		{"orphan.xlsx"},
	}})
	names, err := ledger.ExistingFileNames(book, "Report")
	if err != nil {
		t.Fatalf("ExistingFileNames: %v", err)
	}
	want := map[string]struct{}{"q1.xlsx": {}, "q2.xlsx": {}}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	next, err := ledger.NextRow(book, "Report")
	if err != nil || next != 4 {
		t.Fatalf("NextRow = %d (%v), want 4", next, err)
	}
}

func TestAppendWritesAtNextFreeRow(t *testing.T) {
	book, path := openBook(t, testsupport.Sheet{Name: "Report"})
	if err := ledger.Ensure(book, "Report"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if next, _ := ledger.NextRow(book, "Report"); next != 2 {
		t.Fatalf("empty report NextRow = %d, want 2", next)
	}

	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	first, err := ledger.Append(book, "Report", ledger.Row{FileName: "q1.xlsx", SheetName: "Data", Timestamp: ts, Status: ledger.StatusSuccess})
	if err != nil || first != 2 {
		t.Fatalf("Append = %d (%v), want row 2", first, err)
	}
	second, err := ledger.AppendInfo(book, "Report", "q1.xlsx", ledger.StatusFailed, true, ledger.MessageDuplicate, ts)
	if err != nil || second != 3 {
		t.Fatalf("AppendInfo = %d (%v), want row 3", second, err)
	}
	if err := book.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rows := testsupport.ReadSheet(t, path, "Report")
	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "q1.xlsx" || rows[1][1] != "Data" || rows[1][3] != "Success" || rows[1][4] != "FALSE" {
		t.Fatalf("success row = %v", rows[1])
	}
	if rows[1][2] == "" {
		t.Fatal("expected a timestamp")
	}
	if rows[2][1] != ledger.SheetNotApplicable || rows[2][3] != "Failed" || rows[2][4] != "TRUE" || rows[2][5] != ledger.MessageDuplicate {
		t.Fatalf("info row = %v", rows[2])
	}
}

func TestAppendRejectsEmptyFileName(t *testing.T) {
	book, _ := openBook(t, testsupport.Sheet{Name: "Report"})
	if _, err := ledger.Append(book, "Report", ledger.Row{SheetName: "Data", Status: ledger.StatusSuccess}); err == nil {
		t.Fatal("expected error for a row without file name")
	}
}

func TestMarkUnmovedOverridesLatestMessage(t *testing.T) {
	book, _ := openBook(t, testsupport.Sheet{Name: "Report"})
	if err := ledger.Ensure(book, "Report"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if row, err := ledger.MarkUnmoved(book, "Report"); err != nil || row != 0 {
		t.Fatalf("MarkUnmoved on empty report = %d (%v)", row, err)
	}
	now := time.Now()
	for _, sheet := range []string{"A", "B"} {
		if _, err := ledger.Append(book, "Report", ledger.Row{FileName: "q1.xlsx", SheetName: sheet, Timestamp: now, Status: ledger.StatusSuccess}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	row, err := ledger.MarkUnmoved(book, "Report")
	if err != nil || row != 3 {
		t.Fatalf("MarkUnmoved = %d (%v), want 3", row, err)
	}
	entries, err := ledger.Entries(book, "Report")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Message != "" {
		t.Fatalf("earlier row changed: %+v", entries[0])
	}
	if entries[1].Message != ledger.MessageNotMoved || entries[1].Row != 3 {
		t.Fatalf("latest row = %+v", entries[1])
	}
}

func TestEntriesRequiresReportSheet(t *testing.T) {
	book, _ := openBook(t, testsupport.Sheet{Name: "Other"})
	if _, err := ledger.Entries(book, "Report"); err == nil {
		t.Fatal("expected error for missing report sheet")
	}
}
