package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the folders and files a session operates on.
type Paths struct {
	WatchDir         string `toml:"watch_dir"`
	ProcessedDir     string `toml:"processed_dir"`
	NotApplicableDir string `toml:"not_applicable_dir"`
	TargetWorkbook   string `toml:"target_workbook"`
	LogDir           string `toml:"log_dir"`
}

// Consolidation contains the merge policy for the target workbook.
type Consolidation struct {
	ReportSheet     string `toml:"report_sheet"`
	AllowDuplicates bool   `toml:"allow_duplicates"`
}

// Watch contains folder watcher timing and queue sizing.
type Watch struct {
	// SettleIntervalMS is the pause between two size probes of a newly
	// created file. Zero disables the settle wait.
	SettleIntervalMS int `toml:"settle_interval_ms"`
	// SettleTimeoutSeconds bounds how long a growing file is waited on
	// before it is handed over anyway.
	SettleTimeoutSeconds int `toml:"settle_timeout_seconds"`
	QueueDepth           int `toml:"queue_depth"`
}

// Journal contains configuration for the arrival history database.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <log_dir>/journal.db
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for xlmerge.
//
// Configuration sections by subsystem:
//   - Paths: watched folder, relocation folders, target workbook, logs
//   - Consolidation: report sheet name and duplicate policy
//   - Watch: settle timing and event queue depth
//   - Journal: SQLite arrival history
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Consolidation Consolidation `toml:"consolidation"`
	Watch         Watch         `toml:"watch"`
	Journal       Journal       `toml:"journal"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or from the default locations when
// path is empty, then normalizes and validates it. It also returns the file
// it resolved and whether that file existed; a missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile decodes TOML strictly: unknown keys are an error.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath picks the explicit path when given. Otherwise the user
// config wins over ./xlmerge.toml, and the user path is reported when
// neither exists.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	default:
		return !info.IsDir(), nil
	}
}

// EnsureDirectories creates the log and journal directories. The watched and
// destination folders are never created here; preflight reports them missing.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Journal.Path), 0o755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}
	return nil
}

// LogFilePath returns the primary log file inside the log directory.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, logFileName)
}

// LockPath returns the advisory lock file guarding the target workbook.
func (c *Config) LockPath() string {
	dir, base := filepath.Split(c.Paths.TargetWorkbook)
	return filepath.Join(dir, "."+base+".xlmerge.lock")
}

// expandPath resolves a leading "~" to the home directory and returns an
// absolute, cleaned path. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same expansion Load uses for path settings.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path, creating
// its directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
