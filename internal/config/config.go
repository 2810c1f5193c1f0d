package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Sync
		Journal
		Graph
		Export
		Settings
		Tasks
		Audit
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Sync struct {
		Enabled       bool
		Schedule      string        // Cron format: "0 */6 * * *" = every 6 hours
		SourceTimeout time.Duration // Upper bound for one source's fetch and merge
	}
	Journal struct {
		DateFormat string // Logseq journal title format, e.g. "MMM do, yyyy"
		Timezone   string // IANA zone used to pick the journal day
	}
	Graph struct {
		TitleMaxLength int
	}
	Export struct {
		Dir string
	}
	Settings struct {
		Secret string // Encrypts stored credentials when set
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format
	}
	Log struct {
		Level  string
		Pretty bool
	}
)

// Location resolves the journal timezone, falling back to the local zone.
func (j Journal) Location() *time.Location {
	if j.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(j.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func NewConfig() *Config {
	return newConfig(viper.New())
}

func newConfig(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("sync_enabled", false)
	v.SetDefault("sync_schedule", "0 */6 * * *") // Every 6 hours
	v.SetDefault("sync_source_timeout", "10m")

	v.SetDefault("journal_date_format", DefaultJournalDateFormat)
	v.SetDefault("journal_timezone", "")
	v.SetDefault("title_max_length", DefaultTitleMaxLength)
	v.SetDefault("export_dir", "./graph")
	v.SetDefault("settings_secret", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Sync: Sync{
			Enabled:       v.GetBool("SYNC_ENABLED"),
			Schedule:      v.GetString("SYNC_SCHEDULE"),
			SourceTimeout: v.GetDuration("SYNC_SOURCE_TIMEOUT"),
		},
		Journal: Journal{
			DateFormat: v.GetString("JOURNAL_DATE_FORMAT"),
			Timezone:   v.GetString("JOURNAL_TIMEZONE"),
		},
		Graph: Graph{
			TitleMaxLength: v.GetInt("TITLE_MAX_LENGTH"),
		},
		Export: Export{
			Dir: v.GetString("EXPORT_DIR"),
		},
		Settings: Settings{
			Secret: v.GetString("SETTINGS_SECRET"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
	}
}
