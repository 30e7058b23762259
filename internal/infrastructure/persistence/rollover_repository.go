package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vicemeter/backend/internal/domain/shared"
	"github.com/vicemeter/backend/internal/infrastructure/persistence/models"
)

// GormRolloverRepository implements metering.RolloverRepository using GORM
type GormRolloverRepository struct {
	db *gorm.DB
}

// NewGormRolloverRepository creates a new GormRolloverRepository
func NewGormRolloverRepository(db *gorm.DB) *GormRolloverRepository {
	return &GormRolloverRepository{db: db}
}

// Get returns the carried cents for a user, zero if none
func (r *GormRolloverRepository) Get(ctx context.Context, userID string) (int64, error) {
	var model models.RolloverModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.Cents, nil
}

// Set replaces the carried cents for a user
func (r *GormRolloverRepository) Set(ctx context.Context, userID string, cents int64) error {
	if userID == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}
	if cents < 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "rollover cents cannot be negative")
	}

	model := models.RolloverModel{
		UserID:    userID,
		Cents:     cents,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cents", "updated_at"}),
		}).
		Create(&model).Error
}
