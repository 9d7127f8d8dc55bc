package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"xlmerge/internal/failure"
)

// TempPrefix starts the name of every temporary file Save writes. It matches
// the lock-artifact prefix so a watcher never picks such a file up.
const TempPrefix = "~$xlmerge-"

const component = "workbook"

// Book is an opened workbook.
type Book struct {
	path   string
	file   *excelize.File
	closed bool
}

// Open opens the workbook at path.
func Open(path string) (*Book, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.ErrEngineOpen, component, "open", filepath.Base(path), err)
	}
	return &Book{path: path, file: file}, nil
}

// Create writes a new workbook at path whose only sheet is firstSheet. It
// refuses to overwrite an existing file.
func Create(path, firstSheet string) error {
	if _, err := os.Stat(path); err == nil {
		return failure.Wrap(failure.ErrConfiguration, component, "create", fmt.Sprintf("%s already exists", path), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return failure.Wrap(failure.ErrPermission, component, "create", path, err)
	}
	file := excelize.NewFile()
	defer file.Close()

	defaultSheet := file.GetSheetName(0)
	if firstSheet != "" && firstSheet != defaultSheet {
		if err := file.SetSheetName(defaultSheet, firstSheet); err != nil {
			return failure.Wrap(failure.ErrEngine, component, "create", "rename first sheet", err)
		}
	}
	if err := file.SaveAs(path); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "create", path, err)
	}
	return nil
}

// Path returns the file the book was opened from.
func (b *Book) Path() string {
	return b.path
}

// SheetNames returns the sheet names in workbook order.
func (b *Book) SheetNames() []string {
	return b.file.GetSheetList()
}

// HasSheet reports whether a sheet with the given name exists. The lookup is
// case-insensitive, matching the engine.
func (b *Book) HasSheet(name string) bool {
	idx, err := b.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// AddSheet creates an empty sheet and positions it before the sheet currently
// at index before. An index outside the current sheet range appends.
func (b *Book) AddSheet(name string, before int) error {
	if b.HasSheet(name) {
		return failure.Wrap(failure.ErrEngine, component, "add sheet", fmt.Sprintf("sheet %q already exists", name), nil)
	}
	existing := b.file.GetSheetList()
	if _, err := b.file.NewSheet(name); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "add sheet", name, err)
	}
	if before < 0 || before >= len(existing) {
		return nil
	}
	if err := b.file.MoveSheet(name, existing[before]); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "add sheet", fmt.Sprintf("move %q before %q", name, existing[before]), err)
	}
	return nil
}

// ReadCell returns the formatted value of a single cell.
func (b *Book) ReadCell(sheet, ref string) (string, error) {
	value, err := b.file.GetCellValue(sheet, ref)
	if err != nil {
		return "", failure.Wrap(failure.ErrEngine, component, "read cell", sheet+"!"+ref, err)
	}
	return value, nil
}

// ReadRows returns the formatted values of every populated row of sheet.
func (b *Book) ReadRows(sheet string) ([][]string, error) {
	rows, err := b.file.GetRows(sheet)
	if err != nil {
		return nil, failure.Wrap(failure.ErrEngine, component, "read rows", sheet, err)
	}
	return rows, nil
}

// WriteCell writes a single value. Values keep their Go type: numbers become
// numeric cells, bools boolean cells, and time.Time a date cell.
func (b *Book) WriteCell(sheet, ref string, value any) error {
	if err := b.file.SetCellValue(sheet, ref, value); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "write cell", sheet+"!"+ref, err)
	}
	return nil
}

// WriteRow writes values left to right starting at ref.
func (b *Book) WriteRow(sheet, ref string, values []any) error {
	if err := b.file.SetSheetRow(sheet, ref, &values); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "write row", sheet+"!"+ref, err)
	}
	return nil
}

// Save persists the book to its original path through a temporary sibling.
func (b *Book) Save() error {
	dir, base := filepath.Split(b.path)
	tmp := filepath.Join(dir, TempPrefix+base)
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(b.path); err == nil {
		mode = info.Mode().Perm()
	}

	if err := b.file.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		b.file.Path = b.path
		return failure.Wrap(failure.ErrEngine, component, "save", base, err)
	}
	b.file.Path = b.path
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return failure.Wrap(failure.ErrPermission, component, "save", "restore file mode", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return failure.Wrap(failure.ErrPermission, component, "save", "replace "+base, err)
	}
	return nil
}

// Close releases the engine handle. It is safe to call more than once.
func (b *Book) Close() error {
	if b == nil || b.closed {
		return nil
	}
	b.closed = true
	if err := b.file.Close(); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "close", filepath.Base(b.path), err)
	}
	return nil
}
