package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
	"github.com/mrlokans/bookmarksync/internal/tasks"
)

// SyncState reports the live state of the syncer.
type SyncState interface {
	IsSyncing() bool
	Current() string
}

// SyncEnqueuer schedules a sync run in the background.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, trigger string) (string, error)
}

// SyncSettings is the settings store as seen by the sync endpoints.
type SyncSettings interface {
	SyncStatus(ctx context.Context) settingsstore.SyncStatus
	SyncConfig(ctx context.Context) settingsstore.SyncConfig
	SetSyncEnabled(ctx context.Context, enabled bool) error
	SetSyncSchedule(ctx context.Context, schedule string) error
}

// Rescheduler is the scheduler as seen by the sync endpoints.
type Rescheduler interface {
	Reload(ctx context.Context) error
	NextRunTime() *time.Time
}

// TaskStatusReader looks up a queued task.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

type SyncController struct {
	state     SyncState
	enqueuer  SyncEnqueuer
	settings  SyncSettings
	scheduler Rescheduler
	tasks     TaskStatusReader
	log       logger.Logger
}

func NewSyncController(state SyncState, enqueuer SyncEnqueuer, settings SyncSettings, scheduler Rescheduler, taskStatus TaskStatusReader, log logger.Logger) *SyncController {
	return &SyncController{
		state:     state,
		enqueuer:  enqueuer,
		settings:  settings,
		scheduler: scheduler,
		tasks:     taskStatus,
		log:       log,
	}
}

// SyncStatusResponse describes the last run, the running one and the schedule.
type SyncStatusResponse struct {
	Syncing             bool       `json:"syncing"`
	Current             string     `json:"current,omitempty"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	Status              string     `json:"status,omitempty"`
	Message             string     `json:"message,omitempty"`
	Enabled             bool       `json:"enabled"`
	Schedule            string     `json:"schedule"`
	ScheduleDescription string     `json:"schedule_description"`
	NextRun             *time.Time `json:"next_run,omitempty"`
}

// TriggerSync handles POST /api/sync
func (sc *SyncController) TriggerSync(c *gin.Context) {
	if sc.state.IsSyncing() {
		respondError(c, http.StatusConflict, "sync_in_progress", "a sync is already running")
		return
	}

	taskID, err := sc.enqueuer.EnqueueSync(c.Request.Context(), tasks.TriggerManual)
	if err != nil {
		respondInternalError(c, sc.log, err, "enqueue sync")
		return
	}

	respondAccepted(c, "sync enqueued", gin.H{"task_id": taskID})
}

// GetStatus handles GET /api/sync/status
func (sc *SyncController) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status := sc.settings.SyncStatus(ctx)
	cfg := sc.settings.SyncConfig(ctx)

	resp := SyncStatusResponse{
		Syncing:             sc.state.IsSyncing(),
		Current:             sc.state.Current(),
		LastSyncAt:          status.LastSyncAt,
		Status:              status.Status,
		Message:             status.Message,
		Enabled:             cfg.Enabled,
		Schedule:            cfg.Schedule,
		ScheduleDescription: settingsstore.GetCronDescription(cfg.Schedule),
	}
	if sc.scheduler != nil {
		resp.NextRun = sc.scheduler.NextRunTime()
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateScheduleRequest changes scheduled sync. Omitted fields keep their value.
type UpdateScheduleRequest struct {
	Enabled  *bool   `json:"enabled"`
	Schedule *string `json:"schedule"`
}

// UpdateSchedule handles PUT /api/sync/schedule
func (sc *SyncController) UpdateSchedule(c *gin.Context) {
	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if req.Schedule != nil {
		if err := settingsstore.ValidateCronSchedule(*req.Schedule); err != nil {
			respondBadRequest(c, "invalid cron schedule: "+err.Error())
			return
		}
		if err := sc.settings.SetSyncSchedule(ctx, *req.Schedule); err != nil {
			respondInternalError(c, sc.log, err, "save sync schedule")
			return
		}
	}
	if req.Enabled != nil {
		if err := sc.settings.SetSyncEnabled(ctx, *req.Enabled); err != nil {
			respondInternalError(c, sc.log, err, "save sync enabled")
			return
		}
	}

	if sc.scheduler != nil {
		if err := sc.scheduler.Reload(context.WithoutCancel(ctx)); err != nil {
			respondInternalError(c, sc.log, err, "reload scheduler")
			return
		}
	}

	sc.GetStatus(c)
}

// GetTaskStatus handles GET /api/tasks/:id
func (sc *SyncController) GetTaskStatus(c *gin.Context) {
	if sc.tasks == nil {
		respondNotFound(c, "task queue")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	taskID := c.Param("id")
	status, err := sc.tasks.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, sc.log, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
