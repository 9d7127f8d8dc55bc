// Package fileutil holds the filesystem primitives used to relocate handled
// files: access probes, replace-aware moves with a cross-device fallback, and
// a wait for files that are still being written.
package fileutil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrDestinationNotWritable is returned by MoveInto when a same-named file
// already sits at the destination and may not be replaced.
var ErrDestinationNotWritable = errors.New("destination exists and is not writable")

// Overwrite selects how MoveInto treats an existing destination file.
type Overwrite int

const (
	// OverwriteAlways deletes an existing destination before moving.
	OverwriteAlways Overwrite = iota
	// OverwriteIfWritable replaces an existing destination only when the
	// current process may write it, and fails with ErrDestinationNotWritable
	// otherwise.
	OverwriteIfWritable
)

// Readable reports whether the process may read path.
func Readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

// Writable reports whether the process may write path.
func Writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

// MoveInto moves src into dir under its own base name and returns the new
// path.
func MoveInto(src, dir string, mode Overwrite) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))
	if SamePath(src, dst) {
		// Already in place; removing the "existing destination" would
		// delete the source.
		return dst, nil
	}
	if _, err := os.Lstat(dst); err == nil {
		if mode == OverwriteIfWritable && !Writable(dst) {
			return "", fmt.Errorf("%s: %w", dst, ErrDestinationNotWritable)
		}
		if err := os.Remove(dst); err != nil {
			return "", fmt.Errorf("remove existing destination: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat destination: %w", err)
	}
	if err := Move(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// SamePath reports whether a and b name the same file, either as the same
// cleaned absolute path or as two links to one inode.
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

// Move renames src to dst, falling back to a verified copy and delete when
// the two paths live on different filesystems.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	info, statErr := os.Stat(src)
	if statErr != nil {
		return fmt.Errorf("stat source: %w", statErr)
	}
	if err := CopyFileVerified(src, dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string, mode os.FileMode) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}

// WaitStable polls path every interval until two consecutive probes see the
// same size and modification time. It returns false without error when
// timeout elapses first. A zero interval returns immediately.
func WaitStable(ctx context.Context, path string, interval, timeout time.Duration) (bool, error) {
	if interval <= 0 {
		return true, nil
	}
	prev, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
			cur, err := os.Stat(path)
			if err != nil {
				return false, err
			}
			if cur.Size() == prev.Size() && cur.ModTime().Equal(prev.ModTime()) {
				return true, nil
			}
			prev = cur
		}
	}
}
