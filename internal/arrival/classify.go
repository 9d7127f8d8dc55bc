// Package arrival decides what happens to each file that shows up in the
// watched folder and is the error boundary for per-file processing.
package arrival

import (
	"path/filepath"
	"strings"
)

// Kind classifies an arrived file.
type Kind string

const (
	Applicable    Kind = "applicable"
	LockArtifact  Kind = "lock_artifact"
	NotApplicable Kind = "not_applicable"
)

// LockPrefix marks owner/lock files spreadsheet applications leave next to
// an open workbook.
const LockPrefix = "~$"

var spreadsheetExtensions = map[string]struct{}{
	".xlsx": {},
	".xlsb": {},
	".xlsm": {},
	".xls":  {},
}

// Classify is pure: it looks only at the basename.
func Classify(path string) Kind {
	base := filepath.Base(path)
	if strings.HasPrefix(base, LockPrefix) {
		return LockArtifact
	}
	if _, ok := spreadsheetExtensions[strings.ToLower(filepath.Ext(base))]; ok {
		return Applicable
	}
	return NotApplicable
}
