// Package naming resolves collision-free worksheet names inside a workbook.
//
// Sheet names are compared the way spreadsheet engines compare them: case
// insensitively, so "Data" and "DATA" collide. Resolved names never exceed
// the 31 character sheet-name limit.
package naming

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxSheetNameLength is the longest sheet name a workbook accepts, in runes.
const MaxSheetNameLength = 31

const invalidSheetChars = `:\/?*[]`

// Resolve returns candidate unchanged when no name in existing matches it.
// Otherwise it returns the first of "candidate (1)", "candidate (2)", ...
// that is free, shortening the stem when the suffix would push the name past
// MaxSheetNameLength. existing must be a fresh snapshot of the workbook's
// sheet names; callers re-snapshot after every added sheet.
func Resolve(existing []string, candidate string) string {
	if !taken(existing, candidate) {
		return candidate
	}
	for n := 1; ; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name := truncate(candidate, MaxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
		if !taken(existing, name) {
			return name
		}
	}
}

// Equal reports whether two sheet names refer to the same sheet. It uses
// simple Unicode case folding, which is what the workbook engine applies
// when it looks a sheet up by name; "Straße" and "Strasse" stay distinct.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

func taken(existing []string, name string) bool {
	return slices.ContainsFunc(existing, func(other string) bool { return Equal(other, name) })
}

// Validate reports whether name is usable as a sheet name.
func Validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sheet name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxSheetNameLength {
		return fmt.Errorf("sheet name %q exceeds %d characters", name, MaxSheetNameLength)
	}
	if strings.ContainsAny(name, invalidSheetChars) {
		return fmt.Errorf("sheet name %q contains one of %s", name, invalidSheetChars)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("sheet name %q must not begin or end with an apostrophe", name)
	}
	return nil
}

func truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return strings.TrimRight(string(runes[:limit]), " ")
}
