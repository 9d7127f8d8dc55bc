package session

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"xlmerge/internal/arrival"
	"xlmerge/internal/config"
	"xlmerge/internal/logging"
	"xlmerge/internal/watch"
)

// MergeResult is the outcome for one path given to Merge.
type MergeResult struct {
	Path    string
	Outcome arrival.Outcome
}

// Merge runs paths through the dispatcher once, in order, under the same
// lock and preconditions as a watch session. Per-file failures become
// outcomes; only setup failures are returned as errors.
func Merge(ctx context.Context, cfg *config.Config, logger *slog.Logger, observer watch.Observer, paths []string) ([]MergeResult, error) {
	if observer == nil {
		observer = watch.LogObserver(logger)
	}
	logger = logging.NewComponentLogger(logger, "merge")
	res, err := acquire(cfg, logger)
	if err != nil {
		observer.Notify(watch.ErrorMessage("%v", err))
		return nil, err
	}
	defer func() {
		if releaseErr := res.release(); releaseErr != nil {
			logging.WarnWithContext(logger, "merge cleanup failed", "merge_cleanup_failed", logging.Error(releaseErr))
		}
	}()

	id := uuid.NewString()
	logger = logging.WithSessionID(logger, id)
	dispatcher := arrival.FromConfig(cfg, logger, res.dispatcherOptions(id, observer)...)

	results := make([]MergeResult, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		results = append(results, MergeResult{Path: abs, Outcome: dispatcher.Handle(ctx, abs)})
	}
	return results, ctx.Err()
}
