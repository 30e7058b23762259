package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vicemeter/backend/internal/interfaces/http/dto"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	Ping() error
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	database  HealthChecker // nil when running on in-memory stores
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(database HealthChecker) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		database:  database,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Vicemeter API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// Healthz is the liveness/readiness probe. It fails only when a configured
// database is unreachable; the in-memory deployment is always healthy.
func (h *SystemHandler) Healthz(c *gin.Context) {
	response := HealthResponse{Status: "ok"}

	if h.database != nil {
		if err := h.database.Ping(); err != nil {
			response.Status = "degraded"
			response.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(dto.ErrCodeInternal, "database unreachable"))
			return
		}
		response.Database = "ok"
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/system/info", h.GetSystemInfo)
}
