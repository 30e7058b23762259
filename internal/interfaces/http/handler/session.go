package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vicemeter/backend/internal/domain/identity"
)

// SessionHandler manages metering sessions.
type SessionHandler struct {
	BaseHandler
	sessionRepo identity.SessionRepository
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionRepo identity.SessionRepository) *SessionHandler {
	return &SessionHandler{sessionRepo: sessionRepo}
}

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	DeviceName string `json:"device_name" binding:"max=200"`
}

// Create handles POST /sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid session payload: "+err.Error())
		return
	}

	session, err := identity.NewSession(req.UserID, req.DeviceName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.sessionRepo.Create(c.Request.Context(), session); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// Revoke handles DELETE /sessions/:id
func (h *SessionHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session id")
		return
	}

	session, err := h.sessionRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	session.Revoke()
	if err := h.sessionRepo.Update(c.Request.Context(), session); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// List handles GET /sessions
func (h *SessionHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	sessions, err := h.sessionRepo.FindByUserID(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sessions)
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.Create)
	rg.GET("/sessions", h.List)
	rg.DELETE("/sessions/:id", h.Revoke)
}
