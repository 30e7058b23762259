package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vicemeter/backend/internal/domain/shared"
)

// SessionStatus represents the lifecycle state of a metering session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusRevoked SessionStatus = "revoked"
)

// Session binds a browser-extension installation to a user account. Tick
// batches are accepted only when the submitting session is active and owned
// by the user the batch claims.
type Session struct {
	ID         uuid.UUID
	UserID     string
	DeviceName string
	Status     SessionStatus
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates an active session for the given user.
func NewSession(userID, deviceName string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}

	now := time.Now().UTC()
	return &Session{
		ID:         uuid.New(),
		UserID:     userID,
		DeviceName: strings.TrimSpace(deviceName),
		Status:     SessionStatusActive,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// Owns reports whether the session is active and belongs to userID.
func (s *Session) Owns(userID string) bool {
	return s.Status == SessionStatusActive && s.UserID == userID
}

// Touch records tick activity on the session.
func (s *Session) Touch(at time.Time) {
	if at.After(s.LastSeenAt) {
		s.LastSeenAt = at.UTC()
	}
}

// Revoke deactivates the session. Revoking an already revoked session is a
// no-op.
func (s *Session) Revoke() {
	s.Status = SessionStatusRevoked
}
