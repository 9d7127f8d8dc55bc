package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConsolidation()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("XLMERGE_TARGET_WORKBOOK"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TargetWorkbook = strings.TrimSpace(value)
	}
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.watch_dir", &c.Paths.WatchDir},
		{"paths.processed_dir", &c.Paths.ProcessedDir},
		{"paths.not_applicable_dir", &c.Paths.NotApplicableDir},
		{"paths.target_workbook", &c.Paths.TargetWorkbook},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			*field.value = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeConsolidation() {
	c.Consolidation.ReportSheet = strings.TrimSpace(c.Consolidation.ReportSheet)
	if c.Consolidation.ReportSheet == "" {
		c.Consolidation.ReportSheet = defaultReportSheet
	}
}

func (c *Config) normalizeJournal() error {
	c.Journal.Path = strings.TrimSpace(c.Journal.Path)
	if c.Journal.Path == "" {
		if c.Paths.LogDir == "" {
			return nil
		}
		c.Journal.Path = filepath.Join(c.Paths.LogDir, journalFileName)
		return nil
	}
	expanded, err := expandPath(c.Journal.Path)
	if err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	c.Journal.Path = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
