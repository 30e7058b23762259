package identity

import (
	"context"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Update persists changes to an existing session.
	Update(ctx context.Context, session *Session) error

	// FindByID finds a session by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// FindByUserID returns all sessions belonging to a user.
	FindByUserID(ctx context.Context, userID string) ([]*Session, error)
}
