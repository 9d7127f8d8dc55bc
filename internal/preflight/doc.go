// Package preflight checks the folders and the consolidation workbook a
// session depends on.
//
// Validate gates session start: missing or overlapping paths are reported
// together as one configuration error. RunAll produces the readiness report
// behind the CLI "xlmerge preflight" command and never gates anything.
package preflight
