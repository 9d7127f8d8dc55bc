// Package ledger maintains the audit report sheet of a consolidation workbook.
//
// The report sheet holds one header row followed by one row per copied sheet
// or whole-file outcome. Column A of the contiguous block below the header is
// the set of file names already consolidated; it is the only memory the
// pipeline has of earlier merges.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"xlmerge/internal/failure"
	"xlmerge/internal/workbook"
)

// Status is the outcome recorded for an audit row.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

// SheetNotApplicable is the sheet column value of whole-file rows.
const SheetNotApplicable = "N/A"

const (
	// MessageDuplicate is recorded when a file is rejected as already merged.
	MessageDuplicate = "Duplicate file"
	// MessageNotMoved replaces the message of the latest row when the merged
	// file could not be relocated.
	MessageNotMoved = "Sheets copied but failed to move the file"
)

// Header is the fixed first row of the report sheet.
var Header = []string{"File Name", "Sheet Name", "Date and Time", "Status", "Is Duplicate File", "Message"}

const (
	firstDataRow  = 2
	messageColumn = 6
)

// Row is one audit entry.
type Row struct {
	FileName  string
	SheetName string
	Timestamp time.Time
	Status    Status
	Duplicate bool
	Message   string
}

// Ensure creates the report sheet before every other sheet when it is missing
// and writes the header. It is safe to call on every merge.
func Ensure(book *workbook.Book, sheet string) error {
	if !book.HasSheet(sheet) {
		if err := book.AddSheet(sheet, 0); err != nil {
			return err
		}
	}
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	return book.WriteRow(sheet, "A1", header)
}

// ExistingFileNames returns the file names recorded in the report, scanning
// column A from row 2 until the first empty cell.
func ExistingFileNames(book *workbook.Book, sheet string) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	err := scanFileNames(book, sheet, func(_ int, name string) {
		names[name] = struct{}{}
	})
	return names, err
}

// NextRow returns the row the next audit entry is written to.
func NextRow(book *workbook.Book, sheet string) (int, error) {
	next := firstDataRow
	err := scanFileNames(book, sheet, func(row int, _ string) {
		next = row + 1
	})
	return next, err
}

// Append writes row at NextRow and returns the row number used.
func Append(book *workbook.Book, sheet string, row Row) (int, error) {
	next, err := NextRow(book, sheet)
	if err != nil {
		return 0, err
	}
	ref, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return 0, failure.Wrap(failure.ErrEngine, "ledger", "append", "", err)
	}
	if strings.TrimSpace(row.FileName) == "" {
		return 0, failure.Wrap(failure.ErrEngine, "ledger", "append", "file name must not be empty", nil)
	}
	timestamp := row.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	values := []any{row.FileName, row.SheetName, timestamp, string(row.Status), row.Duplicate, row.Message}
	if err := book.WriteRow(sheet, ref, values); err != nil {
		return 0, err
	}
	return next, nil
}

// AppendInfo writes a whole-file row with the N/A sheet marker. fileName is
// the literal source file name so the row joins the duplicate key set.
func AppendInfo(book *workbook.Book, sheet, fileName string, status Status, duplicate bool, message string, now time.Time) (int, error) {
	return Append(book, sheet, Row{
		FileName:  fileName,
		SheetName: SheetNotApplicable,
		Timestamp: now,
		Status:    status,
		Duplicate: duplicate,
		Message:   message,
	})
}

// MarkUnmoved overwrites the message of the most recent row with
// MessageNotMoved, whatever it held before. It returns the row touched, or 0
// when the report has no entries.
func MarkUnmoved(book *workbook.Book, sheet string) (int, error) {
	next, err := NextRow(book, sheet)
	if err != nil {
		return 0, err
	}
	last := next - 1
	if last < firstDataRow {
		return 0, nil
	}
	ref, err := excelize.CoordinatesToCellName(messageColumn, last)
	if err != nil {
		return 0, failure.Wrap(failure.ErrEngine, "ledger", "mark unmoved", "", err)
	}
	if err := book.WriteCell(sheet, ref, MessageNotMoved); err != nil {
		return 0, err
	}
	return last, nil
}

// Entry is an audit row as read back from the sheet. Values keep the
// formatting the workbook applies.
type Entry struct {
	Row       int
	FileName  string
	SheetName string
	Timestamp string
	Status    string
	Duplicate string
	Message   string
}

// Entries reads the contiguous block of audit rows.
func Entries(book *workbook.Book, sheet string) ([]Entry, error) {
	if !book.HasSheet(sheet) {
		return nil, failure.Wrap(failure.ErrConfiguration, "ledger", "read", fmt.Sprintf("report sheet %q not found", sheet), nil)
	}
	rows, err := book.ReadRows(sheet)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for idx := firstDataRow - 1; idx < len(rows); idx++ {
		cells := rows[idx]
		if len(cells) == 0 || strings.TrimSpace(cells[0]) == "" {
			break
		}
		get := func(i int) string {
			if i < len(cells) {
				return cells[i]
			}
			return ""
		}
		entries = append(entries, Entry{
			Row:       idx + 1,
			FileName:  get(0),
			SheetName: get(1),
			Timestamp: get(2),
			Status:    get(3),
			Duplicate: get(4),
			Message:   get(5),
		})
	}
	return entries, nil
}

func scanFileNames(book *workbook.Book, sheet string, visit func(row int, name string)) error {
	for row := firstDataRow; ; row++ {
		ref, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return failure.Wrap(failure.ErrEngine, "ledger", "scan", "", err)
		}
		value, err := book.ReadCell(sheet, ref)
		if err != nil {
			return err
		}
		if value == "" {
			return nil
		}
		visit(row, value)
	}
}
