package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/mrlokans/bookmarksync/internal/http"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/scheduler"
	"github.com/mrlokans/bookmarksync/internal/syncer"
	"github.com/mrlokans/bookmarksync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// directEnqueuer runs syncs in a goroutine when the task queue is disabled.
type directEnqueuer struct {
	syncer *syncer.Syncer
	log    logger.Logger
}

func (d directEnqueuer) EnqueueSync(ctx context.Context, trigger string) (string, error) {
	go func() {
		_, err := d.syncer.Run(context.WithoutCancel(ctx))
		if err != nil && !errors.Is(err, syncer.ErrSyncInProgress) {
			d.log.Error("sync failed", logger.String("trigger", trigger), logger.Error(err))
		}
	}()
	return "", nil
}

// Run starts the HTTP API, the task queue and the scheduler and blocks until
// SIGINT or SIGTERM.
func Run(app *App, version string) error {
	cfg := app.Config
	log := app.Log
	log.Info("starting bookmarksync", logger.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var enqueuer httpapi.SyncEnqueuer = directEnqueuer{syncer: app.Syncer, log: log}
	var taskStatus httpapi.TaskStatusReader
	cleanup := func(ctx context.Context) error {
		_, err := app.Audit.DeleteOldEvents(ctx, time.Duration(cfg.Audit.RetentionDays)*24*time.Hour)
		return err
	}

	var taskClient *tasks.Client
	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()

	if cfg.Tasks.Enabled {
		var err error
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error("error closing task client", logger.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewSyncSourcesQueue(app.Syncer, log),
			tasks.NewCleanupAuditEventsQueue(app.Audit, log),
		)
		go taskClient.Start(taskCtx)

		enqueuer = taskClient
		taskStatus = taskClient
		cleanup = func(ctx context.Context) error {
			_, err := taskClient.EnqueueAuditCleanup(ctx, cfg.Audit.RetentionDays)
			return err
		}
	}

	schedOpts := []scheduler.Option{scheduler.WithLogger(log)}
	if cfg.Audit.RetentionDays > 0 {
		schedOpts = append(schedOpts, scheduler.WithCleanup(cfg.Audit.CleanupSchedule, cleanup))
	}
	sched := scheduler.New(app.Settings, func(ctx context.Context) error {
		_, err := enqueuer.EnqueueSync(ctx, tasks.TriggerScheduled)
		return err
	}, schedOpts...)
	if err := sched.Start(ctx); err != nil {
		log.Error("scheduler not started", logger.Error(err))
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Version:   version,
		Database:  app.DB,
		Pages:     app.Pages,
		Audit:     app.Audit,
		Settings:  app.Settings,
		SyncState: app.Syncer,
		Enqueuer:  enqueuer,
		Scheduler: sched,
		Tasks:     taskStatus,
		Logger:    log,
	})

	onShutdown := func(ctx context.Context) {
		sched.Stop()
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCancel()
		}
	}

	return Serve(ctx, router, fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		time.Duration(cfg.Global.ShutdownTimeoutInSeconds)*time.Second, log, onShutdown)
}

// Serve runs the router until ctx is cancelled, then shuts down within timeout.
func Serve(ctx context.Context, router *gin.Engine, addr string, timeout time.Duration, log logger.Logger, onShutdown ShutdownFunc) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server", logger.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}
