package arrival

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"xlmerge/internal/config"
	"xlmerge/internal/consolidate"
	"xlmerge/internal/failure"
	"xlmerge/internal/fileutil"
	"xlmerge/internal/journal"
	"xlmerge/internal/logging"
	"xlmerge/internal/watch"
)

// Outcome is the terminal result of handling one path.
type Outcome string

const (
	OutcomeConsolidated      Outcome = "consolidated"
	OutcomeRejectedDuplicate Outcome = "rejected_duplicate"
	OutcomeNotApplicable     Outcome = "not_applicable"
	OutcomeSkippedLock       Outcome = "skipped_lock"
	OutcomeVanished          Outcome = "vanished"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeFailed            Outcome = "failed"
	OutcomeUnmoved           Outcome = "unmoved"
	OutcomePermissionDenied  Outcome = "permission_denied"
)

// Recorder persists the history of handled paths.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) (int64, error)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, journal.Entry) (int64, error) { return 0, nil }

// Folders are the relocation destinations.
type Folders struct {
	Processed     string
	NotApplicable string
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithObserver sets the status observer.
func WithObserver(observer watch.Observer) Option {
	return func(d *Dispatcher) {
		if observer != nil {
			d.observer = observer
		}
	}
}

// WithRecorder sets the journal. A nil recorder disables recording.
func WithRecorder(recorder Recorder) Option {
	return func(d *Dispatcher) {
		if recorder != nil {
			d.recorder = recorder
		}
	}
}

// WithSessionID stamps journal entries with the owning session.
func WithSessionID(id string) Option {
	return func(d *Dispatcher) {
		d.sessionID = id
	}
}

// Dispatcher routes arrived files to consolidation or relocation.
type Dispatcher struct {
	consolidator *consolidate.Consolidator
	folders      Folders
	observer     watch.Observer
	recorder     Recorder
	sessionID    string
	logger       *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(consolidator *consolidate.Consolidator, folders Folders, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		consolidator: consolidator,
		folders:      folders,
		observer:     watch.ObserverFunc(func(string) {}),
		recorder:     nopRecorder{},
		logger:       logging.NewComponentLogger(logger, "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromConfig wires a Dispatcher and its Consolidator from cfg.
func FromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	target := consolidate.Target{
		Path:            cfg.Paths.TargetWorkbook,
		ReportSheet:     cfg.Consolidation.ReportSheet,
		AllowDuplicates: cfg.Consolidation.AllowDuplicates,
	}
	folders := Folders{
		Processed:     cfg.Paths.ProcessedDir,
		NotApplicable: cfg.Paths.NotApplicableDir,
	}
	return NewDispatcher(consolidate.New(target, logger), folders, logger, opts...)
}

// Handler adapts the dispatcher to the watcher.
func (d *Dispatcher) Handler() watch.Handler {
	return watch.HandlerFunc(func(ctx context.Context, path string) {
		d.Handle(ctx, path)
	})
}

// Handle processes one path. Every failure is logged, reported to the
// observer, and folded into the returned Outcome; nothing propagates.
func (d *Dispatcher) Handle(ctx context.Context, path string) Outcome {
	kind := Classify(path)
	if kind == LockArtifact {
		d.logger.Debug("lock artifact skipped", logging.String(logging.FieldFile, path))
		return OutcomeSkippedLock
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.logger.Debug("path vanished before handling", logging.String(logging.FieldFile, path))
		return OutcomeVanished
	case err != nil:
		// Stat failing for any other reason means the folder itself is unreadable.
		d.observer.Notify(watch.ErrorMessage("permission denied for '%s'", path))
		logging.WarnWithContext(d.logger, "arrived file cannot be inspected", "stat_failed",
			logging.String(logging.FieldFile, path), logging.Error(err))
		return OutcomePermissionDenied
	case info.IsDir():
		return OutcomeIgnored
	}

	ctx = logging.WithCorrelationID(logging.WithFile(ctx, path), uuid.NewString())
	entry := journal.Entry{
		SessionID: d.sessionID,
		Path:      path,
		FileName:  filepath.Base(path),
		Kind:      string(kind),
	}
	switch {
	case fileutil.SamePath(path, d.consolidator.Target().Path):
		d.refuseTarget(ctx, &entry)
	case kind == NotApplicable:
		d.moveNotApplicable(ctx, path, &entry)
	default:
		d.consolidate(ctx, path, &entry)
	}
	d.record(ctx, entry)
	return Outcome(entry.Outcome)
}

// errTargetArrival is the cause recorded when the consolidation workbook
// itself is handed to the dispatcher.
var errTargetArrival = errors.New("path is the consolidation workbook")

// refuseTarget leaves the consolidation workbook untouched. Merging it into
// itself would duplicate its sheets and relocation would move it away.
func (d *Dispatcher) refuseTarget(ctx context.Context, entry *journal.Entry) {
	err := failure.Wrap(failure.ErrConfiguration, "dispatcher", "handle", entry.FileName, errTargetArrival)
	entry.Outcome = string(OutcomeFailed)
	entry.Message = err.Error()
	d.observer.Notify(watch.ErrorMessage("%v", err))
	logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "consolidation workbook refused as input", "target_as_input", err,
		logging.String(logging.FieldErrorHint, "pass source workbooks only; the target is updated in place"),
		logging.String(logging.FieldImpact, "nothing merged, target left in place"),
	)
}

func (d *Dispatcher) moveNotApplicable(ctx context.Context, path string, entry *journal.Entry) {
	logger := logging.WithContext(ctx, d.logger)
	d.observer.Notify(watch.MovingNotApplicable(path))

	if !fileutil.Readable(path) || !fileutil.Writable(d.folders.NotApplicable) {
		entry.Outcome = string(OutcomePermissionDenied)
		entry.Message = "permission denied"
		d.observer.Notify(watch.ErrorMessage("permission denied moving '%s'", path))
		logging.WarnWithContext(logger, "not applicable file left in place", "permission_denied",
			logging.String("destination", d.folders.NotApplicable),
			logging.String(logging.FieldErrorHint, "grant read on the file and write on the not-applicable folder"),
			logging.String(logging.FieldImpact, "file stays in the watched folder"),
		)
		return
	}

	dest, err := fileutil.MoveInto(path, d.folders.NotApplicable, fileutil.OverwriteAlways)
	if err != nil {
		marker := failure.ErrEngine
		entry.Outcome = string(OutcomeFailed)
		if errors.Is(err, fs.ErrPermission) {
			marker = failure.ErrPermission
			entry.Outcome = string(OutcomePermissionDenied)
		}
		err = failure.Wrap(marker, "dispatcher", "move not applicable", entry.FileName, err)
		entry.Message = err.Error()
		d.observer.Notify(watch.ErrorMessage("%v", err))
		logging.ErrorWithContext(logger, "not applicable move failed", "move_failed", err)
		return
	}
	entry.Outcome = string(OutcomeNotApplicable)
	entry.Moved = true
	logger.Info("not applicable file moved",
		logging.String(logging.FieldEventType, "not_applicable_moved"),
		logging.String("destination", dest),
	)
}

func (d *Dispatcher) consolidate(ctx context.Context, path string, entry *journal.Entry) {
	logger := logging.WithContext(ctx, d.logger)
	d.observer.Notify(watch.Consolidating(entry.FileName))

	result, err := d.consolidator.Consolidate(ctx, path)
	entry.SheetsCopied = len(result.Sheets)
	entry.Duplicate = result.Duplicate
	if err != nil {
		entry.Outcome = string(OutcomeFailed)
		entry.Message = err.Error()
		d.observer.Notify(watch.ErrorMessage("%v", err))
		logging.ErrorWithContext(logger, "consolidation failed", "consolidation_failed", err,
			logging.Int("sheets_copied", entry.SheetsCopied),
			logging.String(logging.FieldImpact, "file stays in the watched folder"),
		)
		return
	}

	entry.Outcome = string(OutcomeConsolidated)
	if result.Outcome == consolidate.OutcomeRejectedDuplicate {
		entry.Outcome = string(OutcomeRejectedDuplicate)
		entry.Message = "Duplicate file"
	}

	reloc, err := d.consolidator.Relocate(ctx, path, d.folders.Processed)
	if err != nil {
		entry.Outcome = string(OutcomeUnmoved)
		entry.Message = err.Error()
		d.observer.Notify(watch.ErrorMessage("sheets copied but failed to move '%s': %v", path, err))
		logging.ErrorWithContext(logger, "processed file not moved", "relocate_failed", err,
			logging.Int("flagged_row", reloc.FlaggedRow),
			logging.String(logging.FieldImpact, "file stays in the watched folder; its report row is flagged"),
		)
		return
	}
	entry.Moved = true
	logger.Info("file consolidated",
		logging.String(logging.FieldEventType, "file_"+entry.Outcome),
		logging.Int("sheets_copied", entry.SheetsCopied),
		logging.Bool("duplicate", entry.Duplicate),
		logging.String("destination", reloc.Path),
	)
}

func (d *Dispatcher) record(ctx context.Context, entry journal.Entry) {
	if _, err := d.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history command will miss this file"),
		)
	}
}
