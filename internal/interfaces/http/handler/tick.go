package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appmetering "github.com/vicemeter/backend/internal/application/metering"
)

// TickHandler ingests tick batches from extension clients.
type TickHandler struct {
	BaseHandler
	tickService *appmetering.TickService
}

// NewTickHandler creates a new TickHandler
func NewTickHandler(tickService *appmetering.TickService) *TickHandler {
	return &TickHandler{tickService: tickService}
}

// TickEventRequest is one observed interval in a batch. Event fields carry
// no binding tags: a bad event is rejected individually by the service so
// the rest of the batch still counts.
type TickEventRequest struct {
	EventID  string    `json:"event_id"`
	URL      string    `json:"url"`
	Category string    `json:"category"`
	Seconds  int       `json:"seconds"`
	At       time.Time `json:"at"`
}

// TickBatchRequest is the body of POST /ticks
type TickBatchRequest struct {
	SessionID string             `json:"session_id" binding:"required,uuid"`
	UserID    string             `json:"user_id" binding:"required"`
	Events    []TickEventRequest `json:"events" binding:"required,min=1,max=500"`
}

// IngestBatch handles POST /ticks
func (h *TickHandler) IngestBatch(c *gin.Context) {
	var req TickBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid tick batch: "+err.Error())
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.BadRequest(c, "Invalid session id")
		return
	}

	input := appmetering.TickBatchInput{
		SessionID: sessionID,
		UserID:    req.UserID,
		Events:    make([]appmetering.TickEventInput, 0, len(req.Events)),
	}
	for _, event := range req.Events {
		input.Events = append(input.Events, appmetering.TickEventInput{
			EventID:  event.EventID,
			URL:      event.URL,
			Category: event.Category,
			Seconds:  event.Seconds,
			At:       event.At,
		})
	}

	result, err := h.tickService.IngestBatch(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes implements router.RouteRegistrar
func (h *TickHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ticks", h.IngestBatch)
}
