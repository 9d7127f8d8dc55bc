// Package config loads, normalizes, and validates xlmerge configuration.
//
// It owns the TOML schema for the watched and destination folders, the
// consolidation target, watcher timing, the arrival journal, and logging.
// Defaults are applied before the file is decoded so a partial file only
// overrides what it names. Path values are tilde-expanded and made absolute
// during normalization.
//
// Validate covers shape only. Whether the folders and the target workbook
// actually exist is checked by the preflight package right before a session
// starts, so a config can be prepared ahead of the folders it points at.
package config
