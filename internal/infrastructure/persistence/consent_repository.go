package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
	"github.com/vicemeter/backend/internal/infrastructure/persistence/models"
)

// GormConsentRepository implements metering.ConsentRepository using GORM
type GormConsentRepository struct {
	db *gorm.DB
}

// NewGormConsentRepository creates a new GormConsentRepository
func NewGormConsentRepository(db *gorm.DB) *GormConsentRepository {
	return &GormConsentRepository{db: db}
}

// Save replaces the user's snapshot wholesale
func (r *GormConsentRepository) Save(ctx context.Context, snapshot *metering.ConsentSnapshot) error {
	if snapshot == nil || snapshot.UserID == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "consent snapshot requires a user id")
	}

	var model models.ConsentModel
	if err := model.FromDomain(snapshot); err != nil {
		return err
	}
	model.UpdatedAt = time.Now().UTC()

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// Find returns the user's snapshot or shared.ErrNotFound
func (r *GormConsentRepository) Find(ctx context.Context, userID string) (*metering.ConsentSnapshot, error) {
	var model models.ConsentModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// AttachProcessorCustomer sets the processor customer reference and default
// payment method without displacing the other snapshot fields
func (r *GormConsentRepository) AttachProcessorCustomer(ctx context.Context, userID, customerID, paymentMethodID string) error {
	if userID == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ConsentModel
		err := lockForUpdate(tx).
			Where("user_id = ?", userID).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model = models.ConsentModel{
				UserID:    userID,
				Timestamp: time.Now().UTC(),
			}
		} else if err != nil {
			return err
		}

		model.ProcessorCustomerID = customerID
		if paymentMethodID != "" {
			model.PaymentMethodID = paymentMethodID
		}
		model.UpdatedAt = time.Now().UTC()
		return tx.Save(&model).Error
	})
}
