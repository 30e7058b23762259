package metering

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
)

// maxTopDomains caps the per-day domain breakdown returned to clients.
const maxTopDomains = 10

// CategoryUsageDTO is one category's accumulated time for a day.
type CategoryUsageDTO struct {
	Category        string `json:"category"`
	Minutes         int    `json:"minutes"`
	LeftoverSeconds int    `json:"leftover_seconds"`
}

// DomainUsageDTO is one domain's raw seconds for a day.
type DomainUsageDTO struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Seconds  int    `json:"seconds"`
}

// TodaySnapshotDTO is the current UTC day's usage for a user.
type TodaySnapshotDTO struct {
	UserID     string             `json:"user_id"`
	Day        string             `json:"day"`
	ByCategory []CategoryUsageDTO `json:"by_category"`
	TopDomains []DomainUsageDTO   `json:"top_domains"`
}

// SnapshotService serves read-only views over the usage counter store.
type SnapshotService struct {
	bucketRepo metering.BucketRepository
	logger     *zap.Logger
}

// NewSnapshotService creates a new SnapshotService
func NewSnapshotService(bucketRepo metering.BucketRepository, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{
		bucketRepo: bucketRepo,
		logger:     logger,
	}
}

// Today returns the user's usage for the current UTC day. A user with no
// bucket today gets an empty snapshot, not an error.
func (s *SnapshotService) Today(ctx context.Context, userID string, now time.Time) (*TodaySnapshotDTO, error) {
	if userID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}

	day := metering.DayKeyUTC(now)
	snapshot := &TodaySnapshotDTO{
		UserID:     userID,
		Day:        day,
		ByCategory: make([]CategoryUsageDTO, 0, len(metering.Categories)),
		TopDomains: make([]DomainUsageDTO, 0),
	}

	bucket, err := s.bucketRepo.GetBucket(ctx, userID, day)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return snapshot, nil
		}
		return nil, err
	}

	for _, category := range metering.Categories {
		usage, ok := bucket.ByCategory[category]
		if !ok {
			continue
		}
		snapshot.ByCategory = append(snapshot.ByCategory, CategoryUsageDTO{
			Category:        category.String(),
			Minutes:         usage.Minutes,
			LeftoverSeconds: usage.LeftoverSeconds,
		})
	}

	for domain, usage := range bucket.ByDomain {
		snapshot.TopDomains = append(snapshot.TopDomains, DomainUsageDTO{
			Domain:   domain,
			Category: usage.Category.String(),
			Seconds:  usage.Seconds,
		})
	}
	sort.Slice(snapshot.TopDomains, func(i, j int) bool {
		if snapshot.TopDomains[i].Seconds != snapshot.TopDomains[j].Seconds {
			return snapshot.TopDomains[i].Seconds > snapshot.TopDomains[j].Seconds
		}
		return snapshot.TopDomains[i].Domain < snapshot.TopDomains[j].Domain
	})
	if len(snapshot.TopDomains) > maxTopDomains {
		snapshot.TopDomains = snapshot.TopDomains[:maxTopDomains]
	}

	return snapshot, nil
}
