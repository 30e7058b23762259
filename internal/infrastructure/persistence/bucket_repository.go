package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
	"github.com/vicemeter/backend/internal/infrastructure/persistence/models"
)

// GormBucketRepository implements metering.BucketRepository using GORM
type GormBucketRepository struct {
	db *gorm.DB
}

// NewGormBucketRepository creates a new GormBucketRepository
func NewGormBucketRepository(db *gorm.DB) *GormBucketRepository {
	return &GormBucketRepository{db: db}
}

// AddUsage accumulates seconds into the (user, UTC day) bucket. The row is
// locked for the duration of the read-modify-write so concurrent ticks for
// the same bucket serialize and the minute carry stays exact.
func (r *GormBucketRepository) AddUsage(ctx context.Context, userID, domain string, category metering.Category, seconds int, ts time.Time) error {
	if userID == "" || domain == "" || !category.IsValid() || seconds <= 0 {
		return nil
	}

	day := metering.DayKeyUTC(ts)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.UsageBucketModel
		err := lockForUpdate(tx).
			Where("user_id = ? AND day = ?", userID, day).
			First(&model).Error

		var bucket *metering.UsageBucket
		switch {
		case err == nil:
			bucket, err = model.ToDomain()
			if err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			bucket = metering.NewUsageBucket(userID, day)
		default:
			return err
		}

		if err := bucket.AddSeconds(domain, category, seconds, ts); err != nil {
			return err
		}
		if err := model.FromDomain(bucket); err != nil {
			return err
		}

		if model.ID == 0 {
			return tx.Create(&model).Error
		}
		return tx.Save(&model).Error
	})
}

// GetBucket returns the bucket for a (user, day) or shared.ErrNotFound
func (r *GormBucketRepository) GetBucket(ctx context.Context, userID, day string) (*metering.UsageBucket, error) {
	var model models.UsageBucketModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// ListBuckets returns all of a user's buckets ordered by day
func (r *GormBucketRepository) ListBuckets(ctx context.Context, userID string) ([]*metering.UsageBucket, error) {
	var rows []models.UsageBucketModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	buckets := make([]*metering.UsageBucket, 0, len(rows))
	for i := range rows {
		bucket, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}
