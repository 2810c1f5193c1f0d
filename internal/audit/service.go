// Package audit records what sync and export runs did.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mrlokans/bookmarksync/internal/database/audit"
	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

const maxMessageLen = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  logger.Logger
}

// NewService creates a new audit service. Failures to write an event are
// logged and never returned to the caller.
func NewService(repo *audit.Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) {
	if err := s.repo.LogEvent(ctx, event); err != nil {
		s.log.Error("failed to log audit event",
			logger.String("action", event.Action),
			logger.Error(err))
	}
}

// LogSync records the outcome of syncing one source.
func (s *Service) LogSync(ctx context.Context, source string, status entities.AuditStatus, description string, metadata map[string]any, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSync,
		Action:      source + "_sync",
		Description: truncate(description, maxMessageLen),
		Source:      source,
		Metadata:    encodeMetadata(metadata),
		Status:      status,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxMessageLen)
	}
	s.Log(ctx, event)
}

// LogExport records an export event.
func (s *Service) LogExport(ctx context.Context, description string, pages int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventExport,
		Action:      "markdown_export",
		Description: truncate(description, maxMessageLen),
		Metadata:    encodeMetadata(map[string]any{"pages": pages}),
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxMessageLen)
	}
	s.Log(ctx, event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(ctx context.Context, filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func encodeMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
