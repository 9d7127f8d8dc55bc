package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"xlmerge/internal/config"
	"xlmerge/internal/failure"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Messages used by Validate.
const (
	MessageWatchDirMissing         = "Observe folder does not exist"
	MessageProcessedDirMissing     = "Processed folder does not exist"
	MessageNotApplicableDirMissing = "Not applicable folder does not exist"
	MessageTargetMissing           = "Consolidation file does not exist"
	MessageTargetInsideWatchDir    = "Consolidation file must not be inside the observe folder"
	MessageFoldersNotDistinct      = "Observe, processed and not applicable folders must all differ"
)

// Validate checks the preconditions of a session. All violations are
// collected into one error wrapping failure.ErrConfiguration.
func Validate(cfg *config.Config) error {
	if cfg == nil {
		return failure.Wrap(failure.ErrConfiguration, "preflight", "validate", "configuration missing", nil)
	}
	var problems []string
	if !isDir(cfg.Paths.WatchDir) {
		problems = append(problems, MessageWatchDirMissing)
	}
	if !isDir(cfg.Paths.ProcessedDir) {
		problems = append(problems, MessageProcessedDirMissing)
	}
	if !isDir(cfg.Paths.NotApplicableDir) {
		problems = append(problems, MessageNotApplicableDirMissing)
	}
	if !isRegular(cfg.Paths.TargetWorkbook) {
		problems = append(problems, MessageTargetMissing)
	}
	if within(cfg.Paths.WatchDir, cfg.Paths.TargetWorkbook) {
		problems = append(problems, MessageTargetInsideWatchDir)
	}
	if !distinct(cfg.Paths.WatchDir, cfg.Paths.ProcessedDir, cfg.Paths.NotApplicableDir) {
		problems = append(problems, MessageFoldersNotDistinct)
	}
	if len(problems) == 0 {
		return nil
	}
	return failure.Wrap(failure.ErrConfiguration, "preflight", "validate", strings.Join(problems, "; "), nil)
}

// RunAll executes every readiness check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Observe folder", cfg.Paths.WatchDir, AccessRead),
		CheckDirectoryAccess("Processed folder", cfg.Paths.ProcessedDir, AccessWrite),
		CheckDirectoryAccess("Not applicable folder", cfg.Paths.NotApplicableDir, AccessWrite),
		CheckWorkbookAccess("Consolidation file", cfg.Paths.TargetWorkbook),
	}
	if isRegular(cfg.Paths.TargetWorkbook) {
		results = append(results, CheckLockFree("Consolidation lock", cfg.LockPath()))
	}
	if cfg.Journal.Enabled {
		results = append(results, CheckDirectoryAccess("Journal folder", filepath.Dir(cfg.Journal.Path), AccessReadWrite))
	}
	if err := Validate(cfg); err != nil {
		results = append(results, Result{Name: "Session preconditions", Detail: err.Error()})
	} else {
		results = append(results, Result{Name: "Session preconditions", Passed: true, Detail: "ok"})
	}
	return results
}

func isDir(path string) bool {
	info, err := statPath(path)
	return err == nil && info.IsDir()
}

func isRegular(path string) bool {
	info, err := statPath(path)
	return err == nil && info.Mode().IsRegular()
}

// within reports whether path lies inside dir, after cleaning both.
func within(dir, path string) bool {
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(path) == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func distinct(dirs ...string) bool {
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		key := filepath.Clean(dir)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func statPath(path string) (os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty path")
	}
	return os.Stat(path)
}
