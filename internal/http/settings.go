package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
)

// SettingsEditor reads and edits stored settings.
type SettingsEditor interface {
	Info(ctx context.Context) []settingsstore.SettingInfo
	SetCredential(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

type SettingsController struct {
	settings SettingsEditor
	log      logger.Logger
}

func NewSettingsController(settings SettingsEditor, log logger.Logger) *SettingsController {
	return &SettingsController{settings: settings, log: log}
}

// GetSettings handles GET /api/settings
func (sc *SettingsController) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": sc.settings.Info(c.Request.Context())})
}

type SetCredentialRequest struct {
	Value string `json:"value" binding:"required"`
}

// SetCredential handles PUT /api/settings/credentials/:key
func (sc *SettingsController) SetCredential(c *gin.Context) {
	var req SetCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "value is required")
		return
	}

	err := sc.settings.SetCredential(c.Request.Context(), c.Param("key"), req.Value)
	if errors.Is(err, settingsstore.ErrUnknownKey) {
		respondBadRequest(c, err.Error())
		return
	}
	if err != nil {
		respondInternalError(c, sc.log, err, "save credential")
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearSetting handles DELETE /api/settings/:key
func (sc *SettingsController) ClearSetting(c *gin.Context) {
	err := sc.settings.Clear(c.Request.Context(), c.Param("key"))
	if errors.Is(err, settingsstore.ErrUnknownKey) {
		respondBadRequest(c, err.Error())
		return
	}
	if err != nil {
		respondInternalError(c, sc.log, err, "clear setting")
		return
	}

	c.Status(http.StatusNoContent)
}
