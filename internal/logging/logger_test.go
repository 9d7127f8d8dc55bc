package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xlmerge/internal/config"
	"xlmerge/internal/failure"
	"xlmerge/internal/logging"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	var console bytes.Buffer
	logger, logPath, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(logPath), logging.RunLogPrefix) {
		t.Fatalf("unexpected log path %q", logPath)
	}
	logger.Info("file ready", logging.String("file", "q1.xlsx"))

	if !strings.Contains(console.String(), "file ready") {
		t.Fatalf("expected console output, got %q", console.String())
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "file ready" || record["file"] != "q1.xlsx" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")
	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "watcher").Info("file queued", logging.String("file", "my book.xlsx"), logging.Int("depth", 2))

	line := buf.String()
	for _, fragment := range []string{"INFO  [watcher] file queued", `file="my book.xlsx"`, "depth=2"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level filtering, got %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithFile(context.Background(), "/inbox/q1.xlsx")
	ctx = logging.WithCorrelationID(ctx, "req-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldFile] != "/inbox/q1.xlsx" {
		t.Fatalf("file field = %v", record[logging.FieldFile])
	}
	if record[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation field = %v", record[logging.FieldCorrelationID])
	}
}

func TestErrorWithContextDerivesKindAndHint(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	cause := failure.Wrap(failure.ErrPermission, "dispatcher", "move", "q1.csv", errors.New("EACCES"))
	logging.ErrorWithContext(logger, "move failed", "relocation_failed", cause)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "relocation_failed" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorKind] != "permission" {
		t.Fatalf("error_kind = %v", record[logging.FieldErrorKind])
	}
	if hint, _ := record[logging.FieldErrorHint].(string); hint == "" {
		t.Fatal("expected error_hint")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "settle timed out", "settle_timeout", logging.String(logging.FieldImpact, "file handled while still growing"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldImpact] != "file handled while still growing" {
		t.Fatalf("impact overridden: %v", record[logging.FieldImpact])
	}
	if record[logging.FieldErrorHint] == nil || record[logging.FieldEventType] != "settle_timeout" {
		t.Fatalf("expected defaults injected, got %v", record)
	}
}

func TestPruneRunLogsKeepsCurrentRun(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "xlmerge-20200101T000000Z.log")
	current := filepath.Join(dir, "xlmerge-20200102T000000Z.log")
	fresh := filepath.Join(dir, "xlmerge-20990101T000000Z.log")
	other := filepath.Join(dir, "journal.db")
	past := time.Now().AddDate(0, 0, -90)
	for _, path := range []string{old, current, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		if path == fresh {
			continue
		}
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.PruneRunLogs(logging.NewNop(), dir, 30, current); removed != 1 {
		t.Fatalf("expected one file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
	if removed := logging.PruneRunLogs(logging.NewNop(), dir, 0, ""); removed != 0 {
		t.Fatalf("zero retention removed %d files", removed)
	}
}
