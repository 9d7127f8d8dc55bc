package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one handled path.
type Entry struct {
	ID           int64
	SessionID    string
	Path         string
	FileName     string
	Kind         string
	Outcome      string
	SheetsCopied int
	Duplicate    bool
	Moved        bool
	Message      string
	CreatedAt    time.Time
}

// Store persists entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	timeLayout = time.RFC3339Nano
)

// Open creates or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns its row id. A zero CreatedAt is stamped
// with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	ctx = ensureContext(ctx)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.FileName == "" {
		entry.FileName = filepath.Base(entry.Path)
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO arrivals
			(session_id, path, file_name, kind, outcome, sheets_copied, duplicate, moved, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.SessionID,
			entry.Path,
			entry.FileName,
			entry.Kind,
			entry.Outcome,
			entry.SheetsCopied,
			boolToInt(entry.Duplicate),
			boolToInt(entry.Moved),
			entry.Message,
			entry.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record arrival: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, session_id, path, file_name, kind, outcome, sheets_copied, duplicate, moved, message, created_at
		FROM arrivals ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query arrivals: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arrivals: %w", err)
	}
	return entries, nil
}

// Stats counts entries per outcome.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM arrivals GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("query arrival stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan arrival stats: %w", err)
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry     Entry
		duplicate int
		moved     int
		createdAt string
	)
	if err := rows.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.Path,
		&entry.FileName,
		&entry.Kind,
		&entry.Outcome,
		&entry.SheetsCopied,
		&duplicate,
		&moved,
		&entry.Message,
		&createdAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan arrival: %w", err)
	}
	entry.Duplicate = duplicate != 0
	entry.Moved = moved != 0
	if ts, err := time.Parse(timeLayout, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
