package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vicemeter/backend/internal/domain/identity"
	"github.com/vicemeter/backend/internal/domain/shared"
	"github.com/vicemeter/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements identity.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create stores a new session
func (r *GormSessionRepository) Create(ctx context.Context, session *identity.Session) error {
	var model models.SessionModel
	model.FromDomain(session)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update persists changes to an existing session
func (r *GormSessionRepository) Update(ctx context.Context, session *identity.Session) error {
	var model models.SessionModel
	model.FromDomain(session)
	result := r.db.WithContext(ctx).Save(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a session by ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Session, error) {
	var model models.SessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserID returns all sessions belonging to a user
func (r *GormSessionRepository) FindByUserID(ctx context.Context, userID string) ([]*identity.Session, error) {
	var rows []models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	sessions := make([]*identity.Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, rows[i].ToDomain())
	}
	return sessions, nil
}
