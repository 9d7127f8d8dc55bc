package logs_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"xlmerge/internal/logs"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlmerge.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var out bytes.Buffer
	if err := logs.Tail(context.Background(), path, &out, logs.TailOptions{Lines: 2}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if out.String() != "b\nc\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := logs.Tail(context.Background(), path, &out, logs.TailOptions{Lines: 10}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if out.String() != "a\nb\nc\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestTailMissingFile(t *testing.T) {
	var out bytes.Buffer
	if err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), &out, logs.TailOptions{Lines: 5}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestTailFollowPrintsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlmerge.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, out, logs.TailOptions{Lines: 1, Follow: true, PollInterval: 10 * time.Millisecond})
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\npartial"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "later") {
		if time.Now().After(deadline) {
			t.Fatalf("follow did not print appended line: %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Tail returned %v", err)
	}
	if got := out.String(); got != "start\nlater\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
