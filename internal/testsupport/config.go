package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"xlmerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t             testing.TB
	baseDir       string
	cfg           *config.Config
	createTarget  bool
	createFolders bool
}

// NewConfig produces a config seeded with unique temp directories per test.
// The watched, processed, and not-applicable folders are created, and the
// target workbook is written holding only the report sheet.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "inbox")
	cfgVal.Paths.ProcessedDir = filepath.Join(base, "processed")
	cfgVal.Paths.NotApplicableDir = filepath.Join(base, "not_applicable")
	cfgVal.Paths.TargetWorkbook = filepath.Join(base, "target", "consolidated.xlsx")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Journal.Path = filepath.Join(base, "logs", "journal.db")
	cfgVal.Watch.SettleIntervalMS = 0
	cfgVal.Watch.QueueDepth = 16

	builder := &configBuilder{
		t:             t,
		baseDir:       base,
		cfg:           &cfgVal,
		createTarget:  true,
		createFolders: true,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if builder.createFolders {
		for _, dir := range []string{cfgVal.Paths.WatchDir, cfgVal.Paths.ProcessedDir, cfgVal.Paths.NotApplicableDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
	}
	if builder.createTarget {
		WriteWorkbook(t, cfgVal.Paths.TargetWorkbook, Sheet{Name: cfgVal.Consolidation.ReportSheet})
	}

	return builder.cfg
}

// WithAllowDuplicates sets the duplicate policy on the test config.
func WithAllowDuplicates(allow bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Consolidation.AllowDuplicates = allow
	}
}

// WithReportSheet overrides the report sheet name.
func WithReportSheet(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Consolidation.ReportSheet = name
	}
}

// WithoutTarget skips writing the target workbook.
func WithoutTarget() ConfigOption {
	return func(b *configBuilder) {
		b.createTarget = false
	}
}

// WithoutFolders skips creating the watched and destination folders.
func WithoutFolders() ConfigOption {
	return func(b *configBuilder) {
		b.createFolders = false
	}
}

// WithJournalDisabled turns the arrival journal off.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}
