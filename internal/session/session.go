package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"xlmerge/internal/arrival"
	"xlmerge/internal/config"
	"xlmerge/internal/failure"
	"xlmerge/internal/journal"
	"xlmerge/internal/logging"
	"xlmerge/internal/preflight"
	"xlmerge/internal/watch"
)

// Status represents session runtime information.
type Status struct {
	Running      bool
	SessionID    string
	State        watch.State
	Handled      int64
	WatchDir     string
	LockFilePath string
	JournalPath  string
}

// Option customizes a Session.
type Option func(*Session)

// WithSourceFactory replaces the fsnotify event source.
func WithSourceFactory(factory watch.SourceFactory) Option {
	return func(s *Session) {
		s.newSource = factory
	}
}

// WithOnce drains the backlog and ends the session without watching.
func WithOnce(once bool) Option {
	return func(s *Session) {
		s.once = once
	}
}

// Session runs one watcher against one consolidation workbook.
type Session struct {
	cfg       *config.Config
	logger    *slog.Logger
	observer  watch.Observer
	newSource watch.SourceFactory
	once      bool

	res     *resources
	watcher *watch.Watcher
	id      string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New constructs a session. Nothing is touched on disk until Start.
func New(cfg *config.Config, logger *slog.Logger, observer watch.Observer, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session requires a configuration")
	}
	if observer == nil {
		observer = watch.LogObserver(logger)
	}
	s := &Session{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "session"),
		observer: observer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start validates preconditions, acquires the target lock, opens the
// journal, and launches the watcher. A precondition failure returns an
// error wrapping failure.ErrConfiguration and nothing is started.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return errors.New("session already running")
	}

	res, err := acquire(s.cfg, s.logger)
	if err != nil {
		s.observer.Notify(watch.ErrorMessage("%v", err))
		return err
	}

	s.id = uuid.NewString()
	logger := logging.WithSessionID(s.logger, s.id)
	dispatcher := arrival.FromConfig(s.cfg, logger, res.dispatcherOptions(s.id, s.observer)...)
	s.watcher = watch.New(s.cfg.Paths.WatchDir, dispatcher.Handler(), logger, watch.Options{
		Observer:       s.observer,
		Source:         s.newSource,
		QueueDepth:     s.cfg.Watch.QueueDepth,
		SettleInterval: s.cfg.Watch.SettleInterval(),
		SettleTimeout:  s.cfg.Watch.SettleTimeout(),
		Once:           s.once,
	})
	s.res = res
	s.err = nil
	s.done = make(chan struct{})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running.Store(true)
	logger.Info("session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String("watch_dir", s.cfg.Paths.WatchDir),
		logging.String("target_workbook", s.cfg.Paths.TargetWorkbook),
		logging.Bool("allow_duplicates", s.cfg.Consolidation.AllowDuplicates),
		logging.Bool("once", s.once),
	)

	go s.run(runCtx, logger)
	return nil
}

func (s *Session) run(ctx context.Context, logger *slog.Logger) {
	err := s.watcher.Run(ctx)
	if releaseErr := s.res.release(); releaseErr != nil {
		logging.WarnWithContext(logger, "session cleanup failed", "session_cleanup_failed",
			logging.Error(releaseErr),
			logging.String(logging.FieldImpact, "stale lock or journal handle until exit"),
		)
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.running.Store(false)
	logger.Info("session stopped",
		logging.String(logging.FieldEventType, "session_stopped"),
		logging.Int64("handled", s.watcher.Handled()),
	)
	close(s.done)
}

// Stop cancels the watcher and waits until queued files are handled.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil || done == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the session ends and returns the watcher's error.
func (s *Session) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Status reports the current session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:      s.running.Load(),
		SessionID:    s.id,
		State:        watch.StateIdle,
		WatchDir:     s.cfg.Paths.WatchDir,
		LockFilePath: s.cfg.LockPath(),
	}
	if s.cfg.Journal.Enabled {
		st.JournalPath = s.cfg.Journal.Path
	}
	if s.watcher != nil {
		st.State = s.watcher.State()
		st.Handled = s.watcher.Handled()
	}
	return st
}

// Close stops the session and releases everything it holds.
func (s *Session) Close() error {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return nil
	}
	return s.res.release()
}

// resources are held for the duration of a session or merge.
type resources struct {
	lock    *flock.Flock
	journal *journal.Store
	once    sync.Once
	err     error
}

func acquire(cfg *config.Config, logger *slog.Logger) (*resources, error) {
	if err := preflight.Validate(cfg); err != nil {
		logging.ErrorWithContext(logger, "session preconditions failed", "preflight_failed", err)
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, failure.Wrap(failure.ErrPermission, "session", "lock", cfg.LockPath(), err)
	}
	if !ok {
		return nil, failure.Wrap(failure.ErrConfiguration, "session", "lock",
			fmt.Sprintf("another xlmerge process is writing %s", cfg.Paths.TargetWorkbook), nil)
	}

	res := &resources{lock: lock}
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = lock.Unlock()
			return nil, failure.Wrap(failure.ErrConfiguration, "session", "open journal", cfg.Journal.Path, err)
		}
		res.journal = store
	}
	return res, nil
}

func (r *resources) dispatcherOptions(sessionID string, observer watch.Observer) []arrival.Option {
	opts := []arrival.Option{
		arrival.WithObserver(observer),
		arrival.WithSessionID(sessionID),
	}
	if r.journal != nil {
		opts = append(opts, arrival.WithRecorder(r.journal))
	}
	return opts
}

func (r *resources) release() error {
	r.once.Do(func() {
		var errs []error
		if r.journal != nil {
			errs = append(errs, r.journal.Close())
		}
		if r.lock != nil {
			errs = append(errs, r.lock.Unlock())
		}
		r.err = errors.Join(errs...)
	})
	return r.err
}
