// Package session owns the lifecycle of a watch session and of one-shot
// merges: preflight, the advisory lock on the consolidation workbook, the
// arrival journal, and the watcher goroutine.
//
// Only one process may write a consolidation workbook at a time. The lock
// lives next to the workbook so a watch session and a "merge" run started
// from another shell exclude each other.
package session
