// Package watch drains a folder's backlog and then follows live file
// arrivals, serializing all work onto a single worker.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"xlmerge/internal/failure"
	"xlmerge/internal/fileutil"
	"xlmerge/internal/logging"
)

// State is the lifecycle position of a Watcher.
type State string

const (
	StateIdle     State = "idle"
	StateDraining State = "draining"
	StateWatching State = "watching"
	StateStopped  State = "stopped"
)

// Handler processes one file. It owns all per-file error handling; the
// watcher never sees a per-file failure.
type Handler interface {
	Handle(ctx context.Context, path string)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, path string)

func (f HandlerFunc) Handle(ctx context.Context, path string) { f(ctx, path) }

// Options tunes a Watcher. Zero values select defaults.
type Options struct {
	Observer       Observer
	Source         SourceFactory
	QueueDepth     int
	SettleInterval time.Duration
	SettleTimeout  time.Duration
	// Once stops after the backlog drain without subscribing.
	Once bool
}

const defaultQueueDepth = 256

// Watcher feeds the files of one folder to a Handler.
type Watcher struct {
	dir            string
	handler        Handler
	observer       Observer
	newSource      SourceFactory
	queueDepth     int
	settleInterval time.Duration
	settleTimeout  time.Duration
	once           bool
	logger         *slog.Logger

	state   atomic.Value
	handled atomic.Int64
}

// New constructs a Watcher for dir.
func New(dir string, handler Handler, logger *slog.Logger, opts Options) *Watcher {
	w := &Watcher{
		dir:            dir,
		handler:        handler,
		observer:       opts.Observer,
		newSource:      opts.Source,
		queueDepth:     opts.QueueDepth,
		settleInterval: opts.SettleInterval,
		settleTimeout:  opts.SettleTimeout,
		once:           opts.Once,
		logger:         logging.NewComponentLogger(logger, "watcher"),
	}
	if w.observer == nil {
		w.observer = nopObserver{}
	}
	if w.newSource == nil {
		w.newSource = NewFSNotifySource
	}
	if w.queueDepth <= 0 {
		w.queueDepth = defaultQueueDepth
	}
	w.state.Store(StateIdle)
	return w
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	return w.state.Load().(State)
}

// Handled returns how many paths were passed to the handler.
func (w *Watcher) Handled() int64 {
	return w.handled.Load()
}

// Run drains the existing files, then handles live arrivals until ctx is
// cancelled. Cancellation only stops new work: the file being handled and
// every notification already queued still complete. Run returns an error
// wrapping failure.ErrPermission when the folder cannot be read for the
// drain, and nil after a cooperative stop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	w.setState(StateDraining)
	seen, err := w.drain(ctx)
	if err != nil {
		logging.ErrorWithContext(w.logger, "backlog drain failed", "drain_failed", err,
			logging.String("watch_dir", w.dir))
		w.observer.Notify(ErrorMessage("%v", err))
		return err
	}
	if ctx.Err() != nil || w.once {
		return nil
	}

	src, err := w.newSource(w.dir)
	if err != nil {
		marker := failure.ErrConfiguration
		if errors.Is(err, fs.ErrPermission) {
			marker = failure.ErrPermission
		}
		err = failure.Wrap(marker, "watcher", "subscribe", w.dir, err)
		logging.ErrorWithContext(w.logger, "folder subscription failed", "subscribe_failed", err)
		w.observer.Notify(ErrorMessage("%v", err))
		return err
	}

	w.setState(StateWatching)
	w.logger.Info("watching folder",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String("watch_dir", w.dir),
		logging.Int("backlog", len(seen)),
	)
	w.observer.Notify(MessageWatching)

	queue := make(chan string, w.queueDepth)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.forward(ctx, src, queue, seen)
	}()

	for path := range queue {
		if w.handleLive(ctx, path) && ctx.Err() == nil {
			w.observer.Notify(MessageWatching)
		}
	}
	wg.Wait()
	return nil
}

// drain hands every regular file already in the folder to the handler, in
// name order, and returns the names it saw.
func (w *Watcher) drain(ctx context.Context) (map[string]struct{}, error) {
	if !fileutil.Readable(w.dir) {
		return nil, failure.Wrap(failure.ErrPermission, "watcher", "drain", fmt.Sprintf("folder %s is not readable", w.dir), nil)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, failure.Wrap(failure.ErrPermission, "watcher", "drain", w.dir, err)
	}
	w.observer.Notify(MessageProcessingExisting)

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			w.logger.Info("backlog drain interrupted by stop", logging.Int("handled", len(seen)))
			break
		}
		path := filepath.Join(w.dir, entry.Name())
		if !isRegular(path) {
			continue
		}
		seen[entry.Name()] = struct{}{}
		w.dispatch(ctx, path)
	}
	return seen, nil
}

// forward moves notifications from the source into the worker queue. After
// subscribing it rescans the folder once so files created during the drain
// are not missed. It closes the source and the queue when ctx is done.
func (w *Watcher) forward(ctx context.Context, src EventSource, queue chan<- string, seen map[string]struct{}) {
	defer close(queue)
	defer func() {
		if err := src.Close(); err != nil {
			w.logger.Debug("event source close failed", logging.Error(err))
		}
	}()

	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, entry := range entries {
			if _, ok := seen[entry.Name()]; ok {
				continue
			}
			queue <- filepath.Join(w.dir, entry.Name())
		}
	}

	events, errs := src.Events(), src.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			queue <- path
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logging.WarnWithContext(w.logger, "folder notification error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some arrivals may need a watcher restart to be picked up"),
			)
		}
	}
}

// handleLive reports whether the path was announced to the observer. Lock
// artifacts are passed on silently and vanished paths are dropped.
func (w *Watcher) handleLive(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Debug("notified path vanished", logging.String(logging.FieldFile, path))
		return false
	}
	if info.IsDir() {
		return false
	}
	if isLockArtifact(path) {
		w.dispatch(ctx, path)
		return false
	}
	w.observer.Notify(ProcessingNewFile(path))

	stable, err := fileutil.WaitStable(context.WithoutCancel(ctx), path, w.settleInterval, w.settleTimeout)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		w.logger.Debug("file vanished while settling", logging.String(logging.FieldFile, path))
		return true
	case err != nil:
		logging.WarnWithContext(w.logger, "settle check failed; handling now", "settle_failed",
			logging.String(logging.FieldFile, path), logging.Error(err))
	case !stable:
		logging.WarnWithContext(w.logger, "file still changing after settle timeout; handling now", "settle_timeout",
			logging.String(logging.FieldFile, path),
			logging.Duration("timeout", w.settleTimeout),
			logging.String(logging.FieldImpact, "a partially written file may fail to open"),
		)
	}
	w.dispatch(ctx, path)
	return true
}

// dispatch runs the handler detached from cancellation so a stop never
// interrupts a file halfway.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	w.handled.Add(1)
	w.handler.Handle(context.WithoutCancel(ctx), path)
}

func (w *Watcher) setState(state State) {
	w.state.Store(state)
	w.logger.Debug("watcher state", logging.String(logging.FieldStage, string(state)))
}

func (w *Watcher) stop() {
	w.setState(StateStopped)
	w.observer.Notify(MessageStopped)
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isLockArtifact(path string) bool {
	base := filepath.Base(path)
	return len(base) >= 2 && base[:2] == "~$"
}
