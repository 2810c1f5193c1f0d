// Package scheduler fires periodic syncs on the cron schedule stored in
// settings.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
)

// DefaultCleanupSchedule runs audit cleanup once a day.
const DefaultCleanupSchedule = "30 3 * * *"

// ConfigProvider returns the current sync configuration.
type ConfigProvider interface {
	SyncConfig(ctx context.Context) settingsstore.SyncConfig
}

// Job is what the scheduler fires, usually enqueueing a task.
type Job func(ctx context.Context) error

// SyncScheduler manages periodic sync runs and audit cleanup.
type SyncScheduler struct {
	config          ConfigProvider
	syncJob         Job
	cleanupJob      Job
	cleanupSchedule string
	log             logger.Logger

	mu          sync.RWMutex
	cron        *cron.Cron
	syncEntry   cron.EntryID
	syncEnabled bool
	isRunning   bool
	cancelFunc  context.CancelFunc
	done        chan struct{}
}

type Option func(*SyncScheduler)

// WithCleanup registers a job that runs on its own schedule regardless of
// whether sync is enabled.
func WithCleanup(schedule string, job Job) Option {
	return func(s *SyncScheduler) {
		s.cleanupSchedule = schedule
		s.cleanupJob = job
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *SyncScheduler) { s.log = l }
}

// New creates a scheduler that fires syncJob on the configured schedule.
func New(config ConfigProvider, syncJob Job, opts ...Option) *SyncScheduler {
	s := &SyncScheduler{
		config:          config,
		syncJob:         syncJob,
		cleanupSchedule: DefaultCleanupSchedule,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("scheduler")
	return s
}

// Start begins the scheduler. A disabled sync only skips the sync entry.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	cfg := s.config.SyncConfig(ctx)
	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.syncEnabled = false
	if cfg.Enabled {
		if err := settingsstore.ValidateCronSchedule(cfg.Schedule); err != nil {
			cancel()
			return fmt.Errorf("invalid cron schedule '%s': %w", cfg.Schedule, err)
		}
		entryID, err := c.AddFunc(cfg.Schedule, func() { s.run(runCtx, "sync", s.syncJob) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule sync job: %w", err)
		}
		s.syncEntry = entryID
		s.syncEnabled = true
	} else {
		s.log.Info("scheduled sync disabled")
	}

	if s.cleanupJob != nil {
		if _, err := c.AddFunc(s.cleanupSchedule, func() { s.run(runCtx, "audit cleanup", s.cleanupJob) }); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule cleanup job: %w", err)
		}
	}

	if len(c.Entries()) == 0 {
		cancel()
		return nil
	}

	c.Start()
	s.cron = c
	s.cancelFunc = cancel
	s.isRunning = true
	s.done = make(chan struct{})

	if s.syncEnabled {
		nextRun, _ := settingsstore.GetNextRunTime(cfg.Schedule)
		s.log.Info("scheduler started",
			logger.String("schedule", cfg.Schedule),
			logger.String("description", settingsstore.GetCronDescription(cfg.Schedule)),
			logger.String("next_run", nextRun.Format(time.RFC3339)))
	}

	done := s.done
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	return nil
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	<-s.cron.Stop().Done()

	close(s.done)
	s.isRunning = false
	s.syncEnabled = false
	s.cancelFunc = nil
	s.cron = nil

	s.log.Info("scheduler stopped")
}

// Reload re-reads the sync settings and reschedules.
func (s *SyncScheduler) Reload(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// RunNow fires the sync job immediately, outside the schedule.
func (s *SyncScheduler) RunNow(ctx context.Context) error {
	return s.syncJob(ctx)
}

func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next scheduled sync will fire, or nil when
// scheduled sync is off.
func (s *SyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || !s.syncEnabled {
		return nil
	}
	entry := s.cron.Entry(s.syncEntry)
	if !entry.Valid() || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

func (s *SyncScheduler) run(ctx context.Context, name string, job Job) {
	if err := job(ctx); err != nil {
		s.log.Error("scheduled job failed", logger.String("job", name), logger.Error(err))
	}
}
