package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"xlmerge/internal/failure"
)

// CopySheet transplants sheet from src into b as a new last sheet named as.
// Cell values keep their number, bool, or string type. Formulas, cell styles,
// column widths, row heights, and merged ranges are carried over. Styles are
// re-registered in b's style table since style IDs are per workbook.
//
// When any step fails the partially built sheet is removed again, so the
// target never holds a half-copied sheet.
func (b *Book) CopySheet(src *Book, sheet, as string) (err error) {
	if b.HasSheet(as) {
		return failure.Wrap(failure.ErrEngine, component, "copy sheet", fmt.Sprintf("sheet %q already exists", as), nil)
	}
	rows, err := src.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return failure.Wrap(failure.ErrEngine, component, "copy sheet", "read "+sheet, err)
	}
	if _, err := b.file.NewSheet(as); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "copy sheet", "create "+as, err)
	}
	defer func() {
		if err != nil {
			_ = b.file.DeleteSheet(as)
		}
	}()

	c := sheetCopier{src: src.file, dst: b.file, from: sheet, to: as, styles: map[int]int{}}
	// Rows come back trimmed of trailing empty values. Scanning every row to
	// the widest one keeps formulas without a cached value and styled blanks.
	maxCols := 0
	for _, row := range rows {
		maxCols = max(maxCols, len(row))
	}
	for r, row := range rows {
		for col := 0; col < maxCols; col++ {
			var raw string
			if col < len(row) {
				raw = row[col]
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+1)
			if err != nil {
				return failure.Wrap(failure.ErrEngine, component, "copy sheet", sheet, err)
			}
			if err := c.cell(cell, raw); err != nil {
				return failure.Wrap(failure.ErrEngine, component, "copy sheet", fmt.Sprintf("%s!%s", sheet, cell), err)
			}
		}
	}
	if err := c.dimensions(len(rows), maxCols); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "copy sheet", sheet+" dimensions", err)
	}
	if err := c.merges(); err != nil {
		return failure.Wrap(failure.ErrEngine, component, "copy sheet", sheet+" merged cells", err)
	}
	return nil
}

type sheetCopier struct {
	src, dst *excelize.File
	from, to string
	// styles maps source style IDs to the IDs registered in dst.
	styles map[int]int
}

func (c *sheetCopier) cell(cell, raw string) error {
	formula, err := c.src.GetCellFormula(c.from, cell)
	if err != nil {
		return err
	}
	switch {
	case formula != "":
		if err := c.dst.SetCellFormula(c.to, cell, formula); err != nil {
			return err
		}
	case raw != "":
		if err := c.value(cell, raw); err != nil {
			return err
		}
	}
	return c.style(cell)
}

func (c *sheetCopier) value(cell, raw string) error {
	kind, err := c.src.GetCellType(c.from, cell)
	if err != nil {
		return err
	}
	switch kind {
	case excelize.CellTypeBool:
		return c.dst.SetCellBool(c.to, cell, raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if number, err := strconv.ParseFloat(raw, 64); err == nil {
			return c.dst.SetCellFloat(c.to, cell, number, -1, 64)
		}
		return c.dst.SetCellStr(c.to, cell, raw)
	default:
		return c.dst.SetCellStr(c.to, cell, raw)
	}
}

func (c *sheetCopier) style(cell string) error {
	id, err := c.src.GetCellStyle(c.from, cell)
	if err != nil || id == 0 {
		return err
	}
	mapped, ok := c.styles[id]
	if !ok {
		style, err := c.src.GetStyle(id)
		if err != nil {
			return err
		}
		if mapped, err = c.dst.NewStyle(style); err != nil {
			return err
		}
		c.styles[id] = mapped
	}
	return c.dst.SetCellStyle(c.to, cell, cell, mapped)
}

// dimensions copies column widths and row heights that differ from the
// defaults of the freshly created sheet.
func (c *sheetCopier) dimensions(rows, cols int) error {
	for col := 1; col <= cols; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width, err := c.src.GetColWidth(c.from, name)
		if err != nil {
			return err
		}
		current, err := c.dst.GetColWidth(c.to, name)
		if err != nil {
			return err
		}
		if width == current {
			continue
		}
		if err := c.dst.SetColWidth(c.to, name, name, width); err != nil {
			return err
		}
	}
	for row := 1; row <= rows; row++ {
		height, err := c.src.GetRowHeight(c.from, row)
		if err != nil {
			return err
		}
		current, err := c.dst.GetRowHeight(c.to, row)
		if err != nil {
			return err
		}
		if height == current {
			continue
		}
		if err := c.dst.SetRowHeight(c.to, row, height); err != nil {
			return err
		}
	}
	return nil
}

func (c *sheetCopier) merges() error {
	merged, err := c.src.GetMergeCells(c.from)
	if err != nil {
		return err
	}
	for _, mc := range merged {
		if err := c.dst.MergeCell(c.to, mc.GetStartAxis(), mc.GetEndAxis()); err != nil {
			return err
		}
	}
	return nil
}
