// Package workbook is the thin adapter between the consolidation pipeline and
// the spreadsheet engine (excelize).
//
// A Book is one opened workbook file. Callers defer Close right after Open so
// the engine's handle is released on every exit path, including failures in
// the middle of a merge. Save writes to a temporary sibling and renames it
// over the original, so an interrupted save never leaves a truncated target.
package workbook
