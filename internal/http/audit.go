package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	auditRepo "github.com/mrlokans/bookmarksync/internal/database/audit"
	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(ctx context.Context, filter auditRepo.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	audit AuditReader
	log   logger.Logger
}

func NewAuditController(audit AuditReader, log logger.Logger) *AuditController {
	return &AuditController{audit: audit, log: log}
}

// GetAuditEvents handles GET /api/audit?type=sync&source=pocket
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c)
	filter := auditRepo.Filter{
		EventType: entities.AuditEventType(c.Query("type")),
		Source:    c.Query("source"),
	}

	events, total, err := ac.audit.GetEvents(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondInternalError(c, ac.log, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, paginated(events, total, limit, offset, len(events)))
}
