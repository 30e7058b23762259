package metering

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
)

// RecordConsentInput captures a user's billing terms acknowledgement. All
// policy fields are optional: absent ones fall back to defaults when rules
// are resolved, not when the snapshot is stored.
type RecordConsentInput struct {
	UserID          string
	Grace           metering.GraceSchedule
	Rates           map[metering.Category]decimal.Decimal
	CategoriesOn    map[metering.Category]bool
	TOSHash         string
	PaymentMethodID string
}

// ConsentService records consent snapshots and exposes the effective rules
// they resolve to.
type ConsentService struct {
	consentRepo metering.ConsentRepository
	logger      *zap.Logger
}

// NewConsentService creates a new ConsentService
func NewConsentService(consentRepo metering.ConsentRepository, logger *zap.Logger) *ConsentService {
	return &ConsentService{
		consentRepo: consentRepo,
		logger:      logger,
	}
}

// RecordConsent stores a new snapshot for the user, replacing any previous
// one wholesale. The processor customer reference survives replacement so a
// re-consent does not orphan an existing payment profile.
func (s *ConsentService) RecordConsent(ctx context.Context, input RecordConsentInput) (*metering.ConsentSnapshot, error) {
	if input.UserID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}
	for category := range input.Rates {
		if !category.IsValid() {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "unknown category in rates: "+category.String())
		}
	}

	snapshot := &metering.ConsentSnapshot{
		UserID:          input.UserID,
		Grace:           input.Grace,
		Rates:           input.Rates,
		CategoriesOn:    input.CategoriesOn,
		TOSHash:         input.TOSHash,
		Timestamp:       time.Now().UTC(),
		PaymentMethodID: input.PaymentMethodID,
	}

	previous, err := s.consentRepo.Find(ctx, input.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if previous != nil {
		snapshot.ProcessorCustomerID = previous.ProcessorCustomerID
		if snapshot.PaymentMethodID == "" {
			snapshot.PaymentMethodID = previous.PaymentMethodID
		}
	}

	if err := s.consentRepo.Save(ctx, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("consent recorded",
		zap.String("user_id", input.UserID),
		zap.String("tos_hash", input.TOSHash))
	return snapshot, nil
}

// EffectiveRules returns the fully-defaulted rules for a user. A user with
// no stored snapshot gets the pure defaults.
func (s *ConsentService) EffectiveRules(ctx context.Context, userID string) (metering.Rules, error) {
	if userID == "" {
		return metering.Rules{}, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}
	snapshot, err := s.consentRepo.Find(ctx, userID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return metering.Rules{}, err
	}
	return metering.ResolveRules(snapshot), nil
}
