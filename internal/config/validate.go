package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"xlmerge/internal/naming"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConsolidation(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	required := []struct {
		key   string
		value string
	}{
		{"paths.watch_dir", c.Paths.WatchDir},
		{"paths.processed_dir", c.Paths.ProcessedDir},
		{"paths.not_applicable_dir", c.Paths.NotApplicableDir},
		{"paths.target_workbook", c.Paths.TargetWorkbook},
		{"paths.log_dir", c.Paths.LogDir},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("%s must be set. Edit %s (create with 'xlmerge config init')", field.key, defaultPath)
		}
	}
	switch strings.ToLower(filepath.Ext(c.Paths.TargetWorkbook)) {
	case ".xlsx", ".xlsm":
	default:
		return fmt.Errorf("paths.target_workbook must be an .xlsx or .xlsm file, got %q", filepath.Base(c.Paths.TargetWorkbook))
	}
	return nil
}

func (c *Config) validateConsolidation() error {
	if err := naming.Validate(c.Consolidation.ReportSheet); err != nil {
		return fmt.Errorf("consolidation.report_sheet: %w", err)
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.SettleIntervalMS < 0 {
		return errors.New("watch.settle_interval_ms must not be negative")
	}
	if c.Watch.SettleIntervalMS > 0 && c.Watch.SettleTimeoutSeconds <= 0 {
		return errors.New("watch.settle_timeout_seconds must be positive when settle_interval_ms is set")
	}
	if c.Watch.QueueDepth <= 0 {
		return errors.New("watch.queue_depth must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
