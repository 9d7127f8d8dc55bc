// Package journal keeps an SQLite history of every path the dispatcher
// handled during watch sessions and one-shot merges.
//
// The journal is operator history only. Duplicate detection reads the
// report sheet inside the consolidation workbook; nothing here feeds back
// into consolidation decisions. Schema changes bump the version in
// schema.go; operators delete the database to adopt the new schema.
package journal
