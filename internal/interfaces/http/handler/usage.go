package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appmetering "github.com/vicemeter/backend/internal/application/metering"
)

// UsageHandler serves read-only usage views.
type UsageHandler struct {
	BaseHandler
	snapshotService *appmetering.SnapshotService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(snapshotService *appmetering.SnapshotService) *UsageHandler {
	return &UsageHandler{snapshotService: snapshotService}
}

// Today handles GET /usage/today
func (h *UsageHandler) Today(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	snapshot, err := h.snapshotService.Today(c.Request.Context(), userID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshot)
}

// RegisterRoutes implements router.RouteRegistrar
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage/today", h.Today)
}
