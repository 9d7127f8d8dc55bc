// Package consolidate merges the sheets of a source workbook into the
// consolidation target and records every step in the report ledger.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"xlmerge/internal/failure"
	"xlmerge/internal/fileutil"
	"xlmerge/internal/ledger"
	"xlmerge/internal/logging"
	"xlmerge/internal/naming"
	"xlmerge/internal/workbook"
)

// Target describes the consolidation workbook and its merge policy.
type Target struct {
	Path            string
	ReportSheet     string
	AllowDuplicates bool
}

// State is a step of a single consolidation.
type State string

const (
	StateStart            State = "start"
	StateTargetOpened     State = "target_opened"
	StateReportEnsured    State = "report_ensured"
	StateDuplicateChecked State = "duplicate_checked"
	StateRejected         State = "rejected"
	StateSheetsCopying    State = "sheets_copying"
	StateSheetsCopied     State = "sheets_copied"
	StateSaved            State = "saved"
	StateClosed           State = "closed"
)

// Outcome summarizes what Consolidate did with a file.
type Outcome string

const (
	OutcomeConsolidated      Outcome = "consolidated"
	OutcomeRejectedDuplicate Outcome = "rejected_duplicate"
)

// SheetCopy names a copied source sheet and the name it received.
type SheetCopy struct {
	Source string
	Target string
	Row    int
}

// Result reports the effect of one Consolidate call.
type Result struct {
	FileName  string
	Outcome   Outcome
	Duplicate bool
	Sheets    []SheetCopy
}

// Opener opens a workbook. It is swapped in tests to inject engine failures.
type Opener func(path string) (*workbook.Book, error)

// Option customizes a Consolidator.
type Option func(*Consolidator)

// WithOpener replaces workbook.Open.
func WithOpener(open Opener) Option {
	return func(c *Consolidator) {
		if open != nil {
			c.open = open
		}
	}
}

// WithClock replaces time.Now for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Consolidator) {
		if now != nil {
			c.now = now
		}
	}
}

// Consolidator merges source workbooks into one Target. It is not safe for
// concurrent use; the watcher feeds it from a single worker.
type Consolidator struct {
	target Target
	open   Opener
	now    func() time.Time
	logger *slog.Logger
}

// New constructs a Consolidator for target.
func New(target Target, logger *slog.Logger, opts ...Option) *Consolidator {
	c := &Consolidator{
		target: target,
		open:   workbook.Open,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "consolidator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the configured target.
func (c *Consolidator) Target() Target {
	return c.target
}

// Consolidate copies every sheet of the workbook at sourcePath into the
// target. A file already named in the report is rejected unless duplicates
// are allowed; the rejection is itself recorded and saved.
//
// Open failures return an error wrapping failure.ErrEngineOpen before any row
// is written. A failed sheet copy records a Failed row, keeps the sheets
// copied so far, and returns an error wrapping failure.ErrEngine.
func (c *Consolidator) Consolidate(ctx context.Context, sourcePath string) (result Result, err error) {
	logger := logging.WithContext(ctx, c.logger)
	fileName := filepath.Base(sourcePath)
	result.FileName = fileName
	c.transition(logger, StateStart)
	defer c.transition(logger, StateClosed)

	target, err := c.open(c.target.Path)
	if err != nil {
		return result, err
	}
	defer closeBook(logger, target, &err)
	source, err := c.open(sourcePath)
	if err != nil {
		return result, err
	}
	defer closeBook(logger, source, &err)
	c.transition(logger, StateTargetOpened)

	sheet := c.target.ReportSheet
	if err := ledger.Ensure(target, sheet); err != nil {
		return result, err
	}
	c.transition(logger, StateReportEnsured)

	existing, err := ledger.ExistingFileNames(target, sheet)
	if err != nil {
		return result, err
	}
	_, result.Duplicate = existing[fileName]
	c.transition(logger, StateDuplicateChecked)

	if result.Duplicate && !c.target.AllowDuplicates {
		if _, err := ledger.AppendInfo(target, sheet, fileName, ledger.StatusFailed, true, ledger.MessageDuplicate, c.now()); err != nil {
			return result, err
		}
		c.transition(logger, StateRejected)
		if err := target.Save(); err != nil {
			return result, err
		}
		c.transition(logger, StateSaved)
		result.Outcome = OutcomeRejectedDuplicate
		logger.Info("duplicate file rejected",
			logging.String(logging.FieldEventType, "duplicate_rejected"),
			logging.String("file_name", fileName),
		)
		return result, nil
	}

	c.transition(logger, StateSheetsCopying)
	for _, name := range source.SheetNames() {
		if err := ctx.Err(); err != nil {
			return result, c.abortCopy(logger, target, fileName, result.Duplicate, name, err)
		}
		unique := naming.Resolve(target.SheetNames(), name)
		if err := target.CopySheet(source, name, unique); err != nil {
			return result, c.abortCopy(logger, target, fileName, result.Duplicate, name, err)
		}
		row, err := ledger.Append(target, sheet, ledger.Row{
			FileName:  fileName,
			SheetName: unique,
			Timestamp: c.now(),
			Status:    ledger.StatusSuccess,
			Duplicate: result.Duplicate,
		})
		if err != nil {
			return result, err
		}
		result.Sheets = append(result.Sheets, SheetCopy{Source: name, Target: unique, Row: row})
		logger.Debug("sheet copied",
			logging.String("source_sheet", name),
			logging.String("target_sheet", unique),
			logging.Int("report_row", row),
		)
	}
	c.transition(logger, StateSheetsCopied)

	if err := target.Save(); err != nil {
		return result, err
	}
	c.transition(logger, StateSaved)
	result.Outcome = OutcomeConsolidated
	logger.Info("file consolidated",
		logging.String(logging.FieldEventType, "file_consolidated"),
		logging.String("file_name", fileName),
		logging.Int("sheets", len(result.Sheets)),
		logging.Bool("duplicate", result.Duplicate),
	)
	return result, nil
}

// abortCopy records the failed sheet and saves what was copied before it.
func (c *Consolidator) abortCopy(logger *slog.Logger, target *workbook.Book, fileName string, duplicate bool, sheetName string, cause error) error {
	message := fmt.Sprintf("Copy of sheet %q failed: %v", sheetName, cause)
	if _, err := ledger.AppendInfo(target, c.target.ReportSheet, fileName, ledger.StatusFailed, duplicate, message, c.now()); err != nil {
		logging.ErrorWithContext(logger, "record copy failure failed", "report_write_failed", err)
	} else if err := target.Save(); err != nil {
		logging.ErrorWithContext(logger, "save after copy failure failed", "target_save_failed", err)
	}
	if errors.Is(cause, failure.ErrEngine) {
		return cause
	}
	return failure.Wrap(failure.ErrEngine, "consolidator", "copy sheet", sheetName, cause)
}

// Relocation reports where Relocate left a file.
type Relocation struct {
	Moved bool
	Path  string
	// FlaggedRow is the report row whose message now records the failed
	// move, or 0 when the file was moved.
	FlaggedRow int
}

// Relocate moves a consolidated or rejected file into processedDir. A
// writable same-named file there is replaced. When the move is impossible
// the file stays put, the latest report row is marked as not moved, and the
// returned error wraps failure.ErrPermission.
func (c *Consolidator) Relocate(ctx context.Context, sourcePath, processedDir string) (Relocation, error) {
	logger := logging.WithContext(ctx, c.logger)
	moved, moveErr := fileutil.MoveInto(sourcePath, processedDir, fileutil.OverwriteIfWritable)
	if moveErr == nil {
		logger.Debug("file relocated", logging.String("destination", moved))
		return Relocation{Moved: true, Path: moved}, nil
	}

	reloc := Relocation{Path: sourcePath}
	err := failure.Wrap(failure.ErrPermission, "consolidator", "relocate", filepath.Base(sourcePath), moveErr)
	row, flagErr := c.flagUnmoved()
	if flagErr != nil {
		logging.ErrorWithContext(logger, "mark unmoved file in report failed", "report_write_failed", flagErr)
		return reloc, errors.Join(err, flagErr)
	}
	reloc.FlaggedRow = row
	return reloc, err
}

func (c *Consolidator) flagUnmoved() (row int, err error) {
	target, err := c.open(c.target.Path)
	if err != nil {
		return 0, err
	}
	defer closeBook(c.logger, target, &err)
	row, err = ledger.MarkUnmoved(target, c.target.ReportSheet)
	if err != nil || row == 0 {
		return row, err
	}
	return row, target.Save()
}

func (c *Consolidator) transition(logger *slog.Logger, state State) {
	logger.Debug("consolidation state", logging.String(logging.FieldStage, string(state)))
}

func closeBook(logger *slog.Logger, book *workbook.Book, err *error) {
	if closeErr := book.Close(); closeErr != nil {
		if *err == nil {
			*err = closeErr
			return
		}
		logging.WarnWithContext(logger, "workbook close failed", "workbook_close_failed",
			logging.Error(closeErr),
			logging.String(logging.FieldImpact, "engine handle may stay open until exit"),
		)
	}
}
