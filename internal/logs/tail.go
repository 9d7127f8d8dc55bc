package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const defaultPollInterval = 250 * time.Millisecond

// TailOptions controls Tail.
type TailOptions struct {
	// Lines is how many trailing lines to print first. Zero prints none.
	Lines int
	// Follow keeps printing appended lines until ctx is done.
	Follow bool
	// PollInterval is how often a followed file is re-read.
	PollInterval time.Duration
}

// Tail writes the last lines of the file at path to w and, when following,
// every line appended afterwards. A missing file is not an error: nothing
// is printed until it appears. Following returns nil when ctx is cancelled.
func Tail(ctx context.Context, path string, w io.Writer, opts TailOptions) error {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	lines, offset, err := lastLines(path, opts.Lines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if !opts.Follow {
		return nil
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		offset, err = copyFrom(path, offset, w)
		if err != nil {
			return err
		}
	}
}

// lastLines returns up to limit trailing lines and the end offset.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count := 0
	var read int64
	scanner := newScanner(file)
	for scanner.Scan() {
		ring[count%limit] = scanner.Text()
		read += int64(len(scanner.Bytes())) + 1
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	n := min(count, limit)
	lines := make([]string, 0, n)
	for i := count - n; i < count; i++ {
		lines = append(lines, ring[i%limit])
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	return lines, end, nil
}

// copyFrom writes complete lines past offset and returns the offset after
// the last one. A truncated file restarts from the beginning.
func copyFrom(path string, offset int64, w io.Writer) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// A partial trailing line is re-read on the next poll.
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		if _, err := io.WriteString(w, line); err != nil {
			return offset, err
		}
		offset += int64(len(line))
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
