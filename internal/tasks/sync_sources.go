package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/syncer"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// SyncRunner runs one sync over every configured source.
type SyncRunner interface {
	Run(ctx context.Context) (syncer.Report, error)
}

// SyncSourcesTask asks a worker to run a full sync.
type SyncSourcesTask struct {
	Trigger string `json:"trigger"`
}

// Config returns the queue configuration for sync tasks. A failed sync is
// not retried; the next scheduled run picks up from the stored cursors.
func (t SyncSourcesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_sources",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Hour,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncSourcesProcessor creates a processor function for SyncSourcesTask.
func SyncSourcesProcessor(runner SyncRunner, log logger.Logger) backlite.QueueProcessor[SyncSourcesTask] {
	if log == nil {
		log = logger.Nop()
	}
	return func(ctx context.Context, task SyncSourcesTask) error {
		if runner == nil {
			return fmt.Errorf("sync runner not configured")
		}

		report, err := runner.Run(ctx)
		if errors.Is(err, syncer.ErrSyncInProgress) {
			log.Info("sync already running, task dropped", logger.String("trigger", task.Trigger))
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync sources: %w", err)
		}

		log.Info("sync task finished",
			logger.String("trigger", task.Trigger),
			logger.String("status", report.Status()),
			logger.String("summary", report.Summary()))
		return nil
	}
}

// NewSyncSourcesQueue creates a backlite queue for sync tasks.
func NewSyncSourcesQueue(runner SyncRunner, log logger.Logger) backlite.Queue {
	return backlite.NewQueue(SyncSourcesProcessor(runner, log))
}

// EnqueueSync adds a sync task and returns its id.
func (c *Client) EnqueueSync(ctx context.Context, trigger string) (string, error) {
	ids, err := c.client.Add(SyncSourcesTask{Trigger: trigger}).Ctx(ctx).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue sync: %w", err)
	}
	return ids[0], nil
}

// EnqueueAuditCleanup adds an audit cleanup task.
func (c *Client) EnqueueAuditCleanup(ctx context.Context, retentionDays int) (string, error) {
	ids, err := c.client.Add(CleanupAuditEventsTask{RetentionDays: retentionDays}).Ctx(ctx).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue audit cleanup: %w", err)
	}
	return ids[0], nil
}
