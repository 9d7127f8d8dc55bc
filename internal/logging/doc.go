// Package logging assembles structured slog loggers and formatting helpers used
// across xlmerge.
//
// It owns the console and JSON handlers, the level and output plumbing, and
// context-aware helpers so the watcher, dispatcher, and consolidator tag
// their lines with the session ID, the file being handled, and the pipeline
// stage. Console output goes to the writer the caller supplies, in the
// configured format, while the per-run log file always receives JSON.
package logging
