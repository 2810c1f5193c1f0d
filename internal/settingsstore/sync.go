package settingsstore

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

// DefaultSyncSchedule runs a sync every 6 hours.
const DefaultSyncSchedule = "0 */6 * * *"

// Sync run states.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncConfig represents the effective configuration for scheduled sync
type SyncConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// SyncStatus represents the outcome of the last sync run
type SyncStatus struct {
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	Status     string     `json:"status,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// SyncEnabled returns whether scheduled sync is enabled (database > env > default)
func (s *SettingsStore) SyncEnabled(ctx context.Context) bool {
	value, _ := s.lookup(ctx, entities.SettingKeySyncEnabled, formatBool(s.defaultEnabled))
	return value == "true" || value == "1"
}

func (s *SettingsStore) SetSyncEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, entities.SettingKeySyncEnabled, formatBool(enabled))
}

// SyncSchedule returns the cron schedule (database > env > default)
func (s *SettingsStore) SyncSchedule(ctx context.Context) string {
	value, _ := s.lookup(ctx, entities.SettingKeySyncSchedule, s.defaultSchedule)
	return value
}

// SetSyncSchedule validates and saves the schedule.
func (s *SettingsStore) SetSyncSchedule(ctx context.Context, schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return err
	}
	return s.set(ctx, entities.SettingKeySyncSchedule, schedule)
}

func (s *SettingsStore) SyncConfig(ctx context.Context) SyncConfig {
	return SyncConfig{
		Enabled:  s.SyncEnabled(ctx),
		Schedule: s.SyncSchedule(ctx),
	}
}

// SyncStatus returns the last recorded run.
func (s *SettingsStore) SyncStatus(ctx context.Context) SyncStatus {
	status := SyncStatus{}

	if value, ok := s.stored(ctx, entities.SettingKeySyncLastAt); ok {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			status.LastSyncAt = &ts
		}
	}
	status.Status, _ = s.stored(ctx, entities.SettingKeySyncLastStatus)
	status.Message, _ = s.stored(ctx, entities.SettingKeySyncLastMessage)
	return status
}

// SetSyncStatus records the outcome of a run.
func (s *SettingsStore) SetSyncStatus(ctx context.Context, status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.set(ctx, entities.SettingKeySyncLastAt, now); err != nil {
		return err
	}
	if err := s.set(ctx, entities.SettingKeySyncLastStatus, status); err != nil {
		return err
	}
	return s.set(ctx, entities.SettingKeySyncLastMessage, message)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a cron schedule string
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "*/30 * * * *":
		return "Every 30 minutes"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when the next sync will run based on the schedule
func GetNextRunTime(schedule string) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
