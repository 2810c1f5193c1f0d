package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/bookmarksync/internal/logger"
)

// RouterConfig carries the dependencies of the HTTP API. Optional
// collaborators may be nil.
type RouterConfig struct {
	Version   string
	Database  Pinger
	Pages     PageReader
	Audit     AuditReader
	Settings  interface {
		SyncSettings
		SettingsEditor
	}
	SyncState SyncState
	Enqueuer  SyncEnqueuer
	Scheduler Rescheduler
	Tasks     TaskStatusReader
	Logger    logger.Logger
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("http")

	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	if cfg.Pages != nil {
		pages := NewPagesController(cfg.Pages, log)
		api.GET("/pages", pages.ListPages)
		api.GET("/pages/:id", pages.GetPage)
		api.GET("/pages/:id/markdown", pages.GetPageMarkdown)
	}

	if cfg.Audit != nil {
		audit := NewAuditController(cfg.Audit, log)
		api.GET("/audit", audit.GetAuditEvents)
	}

	if cfg.Settings != nil {
		settings := NewSettingsController(cfg.Settings, log)
		api.GET("/settings", settings.GetSettings)
		api.PUT("/settings/credentials/:key", settings.SetCredential)
		api.DELETE("/settings/:key", settings.ClearSetting)

		if cfg.SyncState != nil && cfg.Enqueuer != nil {
			sync := NewSyncController(cfg.SyncState, cfg.Enqueuer, cfg.Settings, cfg.Scheduler, cfg.Tasks, log)
			api.POST("/sync", sync.TriggerSync)
			api.GET("/sync/status", sync.GetStatus)
			api.PUT("/sync/schedule", sync.UpdateSchedule)
			api.GET("/tasks/:id", sync.GetTaskStatus)
		}
	}

	return router
}

// requestLogger logs each request through the structured logger.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
		}
		if status >= 500 {
			log.Error("request", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}
