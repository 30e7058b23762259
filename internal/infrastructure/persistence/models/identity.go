package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vicemeter/backend/internal/domain/identity"
)

// SessionModel is the persistence model for a metering session
type SessionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:varchar(100);not null;index"`
	DeviceName string    `gorm:"type:varchar(200)"`
	Status     string    `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time `gorm:"not null"`
	LastSeenAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SessionModel) TableName() string {
	return "sessions"
}

// ToDomain converts the persistence model to a domain Session
func (m *SessionModel) ToDomain() *identity.Session {
	return &identity.Session{
		ID:         m.ID,
		UserID:     m.UserID,
		DeviceName: m.DeviceName,
		Status:     identity.SessionStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		LastSeenAt: m.LastSeenAt,
	}
}

// FromDomain populates the persistence model from a domain Session
func (m *SessionModel) FromDomain(session *identity.Session) {
	m.ID = session.ID
	m.UserID = session.UserID
	m.DeviceName = session.DeviceName
	m.Status = string(session.Status)
	m.CreatedAt = session.CreatedAt
	m.LastSeenAt = session.LastSeenAt
}
