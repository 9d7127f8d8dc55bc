package config

import "time"

const (
	defaultConfigPath           = "~/.config/xlmerge/config.toml"
	projectConfigName           = "xlmerge.toml"
	logFileName                 = "xlmerge.log"
	journalFileName             = "journal.db"
	defaultWatchDir             = "~/consolidation/inbox"
	defaultProcessedDir         = "~/consolidation/processed"
	defaultNotApplicableDir     = "~/consolidation/not_applicable"
	defaultTargetWorkbook       = "~/consolidation/consolidated.xlsx"
	defaultLogDir               = "~/.local/share/xlmerge/logs"
	defaultReportSheet          = "Report"
	defaultSettleIntervalMS     = 500
	defaultSettleTimeoutSeconds = 30
	defaultQueueDepth           = 256
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:         defaultWatchDir,
			ProcessedDir:     defaultProcessedDir,
			NotApplicableDir: defaultNotApplicableDir,
			TargetWorkbook:   defaultTargetWorkbook,
			LogDir:           defaultLogDir,
		},
		Consolidation: Consolidation{
			ReportSheet: defaultReportSheet,
		},
		Watch: Watch{
			SettleIntervalMS:     defaultSettleIntervalMS,
			SettleTimeoutSeconds: defaultSettleTimeoutSeconds,
			QueueDepth:           defaultQueueDepth,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// SettleInterval returns the configured settle probe interval.
func (w Watch) SettleInterval() time.Duration {
	return time.Duration(w.SettleIntervalMS) * time.Millisecond
}

// SettleTimeout returns the configured settle deadline.
func (w Watch) SettleTimeout() time.Duration {
	return time.Duration(w.SettleTimeoutSeconds) * time.Second
}
