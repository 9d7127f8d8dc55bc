package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"xlmerge/internal/journal"
)

func openStore(t *testing.T) (*journal.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRecordAndRecent(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inputs := []journal.Entry{
		{SessionID: "s1", Path: "/in/Jan.xlsx", Kind: "applicable", Outcome: "consolidated", SheetsCopied: 2, Moved: true, CreatedAt: base},
		{SessionID: "s1", Path: "/in/notes.txt", Kind: "not_applicable", Outcome: "not_applicable", Moved: true, CreatedAt: base.Add(time.Minute)},
		{SessionID: "s1", Path: "/in/Jan.xlsx", Kind: "applicable", Outcome: "rejected_duplicate", Duplicate: true, Moved: true, Message: "Duplicate file", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, entry := range inputs {
		id, err := store.Record(ctx, entry)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if id == 0 {
			t.Fatal("expected row id")
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	newest := recent[0]
	if newest.Outcome != "rejected_duplicate" || !newest.Duplicate || newest.FileName != "Jan.xlsx" || newest.Message != "Duplicate file" {
		t.Fatalf("unexpected newest entry: %#v", newest)
	}
	if !newest.CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at = %v", newest.CreatedAt)
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) failed: %v", err)
	}
	if len(all) != 3 || all[2].SheetsCopied != 2 || !all[2].Moved {
		t.Fatalf("unexpected entries: %#v", all)
	}
}

func TestStatsCountsOutcomes(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	for _, outcome := range []string{"consolidated", "consolidated", "failed"} {
		if _, err := store.Record(ctx, journal.Entry{Path: "/in/a.xlsx", Kind: "applicable", Outcome: outcome}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["consolidated"] != 2 || stats["failed"] != 1 || len(stats) != 2 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	store, path := openStore(t)
	if _, err := store.Record(context.Background(), journal.Entry{Path: "/in/a.xlsx", Kind: "applicable", Outcome: "consolidated"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d", len(entries))
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	store, path := openStore(t)
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	_, err = journal.Open(path)
	if !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := journal.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
