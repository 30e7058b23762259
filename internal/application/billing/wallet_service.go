package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/billing"
	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
)

// WeekQuery selects the billing week a wallet operation acts on. WeekEnd is
// a YYYY-MM-DD local date; empty means the week containing now.
// PaymentMethodID optionally overrides the stored default method for a
// single settle.
type WeekQuery struct {
	UserID          string
	WeekEnd         string
	TZOffsetMinutes int
	PaymentMethodID string
}

// WalletPreview is the read-only result of a settlement dry run. Exactly
// one of WouldChargeCents and WouldCarryCents is non-zero for a non-empty
// week, mirroring the settle outcome split.
type WalletPreview struct {
	Statement        *billing.WeeklyStatement `json:"statement"`
	RolloverCents    int64                    `json:"rollover_cents"`
	GrandTotalCents  int64                    `json:"grand_total_cents"`
	WouldCharge      bool                     `json:"would_charge"`
	WouldChargeCents int64                    `json:"would_charge_cents"`
	WouldCarryCents  int64                    `json:"would_carry_cents"`
}

// DashboardView combines the current week's preview with streak history.
type DashboardView struct {
	Preview *WalletPreview        `json:"preview"`
	Streaks metering.StreakReport `json:"streaks"`
	Today   string                `json:"today"`
}

// WalletServiceConfig carries settlement tuning.
type WalletServiceConfig struct {
	Currency      string
	ChargeTimeout time.Duration
}

// DefaultWalletServiceConfig returns default settlement tuning.
func DefaultWalletServiceConfig() WalletServiceConfig {
	return WalletServiceConfig{
		Currency:      "usd",
		ChargeTimeout: 30 * time.Second,
	}
}

// WalletService turns accumulated usage into weekly monetary settlements.
// Preview is pure; SettleWeek is the only operation that mutates rollover
// state, and it does so only after the charge decision is final.
type WalletService struct {
	bucketRepo   metering.BucketRepository
	consentRepo  metering.ConsentRepository
	rolloverRepo metering.RolloverRepository
	processor    billing.PaymentProcessor
	provisioner  billing.CustomerProvisioner
	logger       *zap.Logger
	config       WalletServiceConfig
}

// NewWalletService creates a new WalletService. processor and provisioner
// may be nil; in that configuration previews work while settle attempts
// that would charge, and payment setup, fail with UNCONFIGURED_DEPENDENCY.
func NewWalletService(
	bucketRepo metering.BucketRepository,
	consentRepo metering.ConsentRepository,
	rolloverRepo metering.RolloverRepository,
	processor billing.PaymentProcessor,
	provisioner billing.CustomerProvisioner,
	logger *zap.Logger,
	config WalletServiceConfig,
) *WalletService {
	if config.Currency == "" {
		config.Currency = "usd"
	}
	if config.ChargeTimeout <= 0 {
		config.ChargeTimeout = 30 * time.Second
	}
	return &WalletService{
		bucketRepo:   bucketRepo,
		consentRepo:  consentRepo,
		rolloverRepo: rolloverRepo,
		processor:    processor,
		provisioner:  provisioner,
		logger:       logger,
		config:       config,
	}
}

// PreviewWeek computes the grace-adjusted statement for the selected week
// plus the pending rollover, without mutating anything.
func (s *WalletService) PreviewWeek(ctx context.Context, query WeekQuery) (*WalletPreview, error) {
	statement, _, err := s.buildStatement(ctx, query, time.Now())
	if err != nil {
		return nil, err
	}

	rollover, err := s.rolloverRepo.Get(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	grandTotal := statement.TotalCents + rollover
	preview := &WalletPreview{
		Statement:       statement,
		RolloverCents:   rollover,
		GrandTotalCents: grandTotal,
	}
	if grandTotal >= billing.MinChargeCents {
		preview.WouldCharge = true
		preview.WouldChargeCents = grandTotal
	} else {
		preview.WouldCarryCents = grandTotal
	}
	return preview, nil
}

// SettleWeek executes the weekly settlement decision. A grand total below
// the minimum replaces the rollover with that total and charges nothing. A
// chargeable total goes to the payment processor under a deterministic
// idempotency key; the rollover is zeroed only on success and left exactly
// as it was on failure, so a retry recomputes the same grand total and the
// same key.
func (s *WalletService) SettleWeek(ctx context.Context, query WeekQuery) (*billing.SettlementResult, error) {
	statement, snapshot, err := s.buildStatement(ctx, query, time.Now())
	if err != nil {
		return nil, err
	}

	rollover, err := s.rolloverRepo.Get(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	grandTotal := statement.TotalCents + rollover

	if grandTotal < billing.MinChargeCents {
		if err := s.rolloverRepo.Set(ctx, query.UserID, grandTotal); err != nil {
			return nil, err
		}
		s.logger.Info("settlement below minimum, carried forward",
			zap.String("user_id", query.UserID),
			zap.String("week_end", statement.Window.EndStr),
			zap.Int64("carried_cents", grandTotal))
		return &billing.SettlementResult{
			CarriedCents: grandTotal,
			Reason:       billing.ReasonBelowMinimum,
		}, nil
	}

	if s.processor == nil {
		return nil, shared.ErrUnconfiguredDependency
	}

	request := billing.ChargeRequest{
		AmountCents:    grandTotal,
		Currency:       s.config.Currency,
		IdempotencyKey: billing.SettlementKey(query.UserID, statement.Window.StartStr, statement.Window.EndStr, grandTotal),
		Description:    fmt.Sprintf("Usage settlement %s to %s", statement.Window.StartStr, statement.Window.EndStr),
		Metadata: map[string]string{
			"user_id":        query.UserID,
			"week_start":     statement.Window.StartStr,
			"week_end":       statement.Window.EndStr,
			"usage_cents":    fmt.Sprintf("%d", statement.TotalCents),
			"rollover_cents": fmt.Sprintf("%d", rollover),
		},
	}
	if snapshot != nil {
		request.CustomerID = snapshot.ProcessorCustomerID
		request.PaymentMethodID = snapshot.PaymentMethodID
	}
	if query.PaymentMethodID != "" {
		request.PaymentMethodID = query.PaymentMethodID
	}
	for category, line := range statement.PerCategory {
		request.Metadata["cents_"+category.String()] = fmt.Sprintf("%d", line.Cents)
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.config.ChargeTimeout)
	defer cancel()

	charge, err := s.processor.CreateCharge(chargeCtx, request)
	if err != nil {
		s.logger.Error("settlement charge failed",
			zap.String("user_id", query.UserID),
			zap.String("idempotency_key", request.IdempotencyKey),
			zap.Int64("amount_cents", grandTotal),
			zap.Error(err))
		return nil, err
	}

	if err := s.rolloverRepo.Set(ctx, query.UserID, 0); err != nil {
		// The charge went through; surface the rollover failure rather than
		// inventing a second source of truth.
		s.logger.Error("charge succeeded but rollover reset failed",
			zap.String("user_id", query.UserID),
			zap.String("external_charge_id", charge.ExternalID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("settlement charged",
		zap.String("user_id", query.UserID),
		zap.String("week_end", statement.Window.EndStr),
		zap.Int64("charged_cents", grandTotal),
		zap.String("external_charge_id", charge.ExternalID))
	return &billing.SettlementResult{
		ChargedCents:     grandTotal,
		Reason:           billing.ReasonCharged,
		ExternalChargeID: charge.ExternalID,
		Status:           charge.Status,
	}, nil
}

// PaymentSetupInput registers a user's payment method for off-session
// settlement charges.
type PaymentSetupInput struct {
	UserID          string
	Email           string
	Name            string
	PaymentMethodID string
}

// PaymentSetupResult reports the processor customer now attached to the
// user's consent snapshot.
type PaymentSetupResult struct {
	CustomerID      string `json:"customer_id"`
	PaymentMethodID string `json:"payment_method_id"`
}

// SetupPayment provisions a processor customer for the user (reusing an
// existing one) and stores the payment method as the settlement default.
// Consent snapshot fields other than the payment references are untouched.
func (s *WalletService) SetupPayment(ctx context.Context, input PaymentSetupInput) (*PaymentSetupResult, error) {
	if input.UserID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}
	if input.PaymentMethodID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "payment method id is required")
	}

	snapshot, err := s.consentRepo.Find(ctx, input.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var customerID string
	if snapshot != nil && snapshot.ProcessorCustomerID != "" {
		customerID = snapshot.ProcessorCustomerID
	} else {
		if s.provisioner == nil {
			return nil, shared.ErrUnconfiguredDependency
		}
		provisionCtx, cancel := context.WithTimeout(ctx, s.config.ChargeTimeout)
		defer cancel()

		provisioned, err := s.provisioner.ProvisionCustomer(provisionCtx, billing.ProvisionCustomerRequest{
			UserID:          input.UserID,
			Email:           input.Email,
			Name:            input.Name,
			PaymentMethodID: input.PaymentMethodID,
		})
		if err != nil {
			return nil, err
		}
		customerID = provisioned.CustomerID
	}

	if err := s.consentRepo.AttachProcessorCustomer(ctx, input.UserID, customerID, input.PaymentMethodID); err != nil {
		return nil, err
	}

	s.logger.Info("payment setup complete",
		zap.String("user_id", input.UserID),
		zap.String("customer_id", customerID))
	return &PaymentSetupResult{
		CustomerID:      customerID,
		PaymentMethodID: input.PaymentMethodID,
	}, nil
}

// Dashboard combines the current week's preview with streak history up to
// today.
func (s *WalletService) Dashboard(ctx context.Context, userID string, tzOffsetMinutes int) (*DashboardView, error) {
	query := WeekQuery{UserID: userID, TZOffsetMinutes: tzOffsetMinutes}
	preview, err := s.PreviewWeek(ctx, query)
	if err != nil {
		return nil, err
	}

	rules, err := s.effectiveRules(ctx, userID)
	if err != nil {
		return nil, err
	}
	buckets, err := s.bucketRepo.ListBuckets(ctx, userID)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]*metering.UsageBucket, len(buckets))
	for _, bucket := range buckets {
		byDay[bucket.Day] = bucket
	}

	today := metering.DayKeyUTC(time.Now())
	return &DashboardView{
		Preview: preview,
		Streaks: metering.ComputeStreaks(byDay, rules, today),
		Today:   today,
	}, nil
}

// buildStatement resolves rules and aggregates the user's buckets into the
// requested week. The returned snapshot may be nil for a user who never
// consented; rules still resolve to pure defaults.
func (s *WalletService) buildStatement(ctx context.Context, query WeekQuery, now time.Time) (*billing.WeeklyStatement, *metering.ConsentSnapshot, error) {
	if query.UserID == "" {
		return nil, nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}

	window, err := metering.WeekBounds(query.WeekEnd, query.TZOffsetMinutes, now)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := s.consentRepo.Find(ctx, query.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, nil, err
	}
	rules := metering.ResolveRules(snapshot)

	buckets, err := s.bucketRepo.ListBuckets(ctx, query.UserID)
	if err != nil {
		return nil, nil, err
	}

	return billing.BuildWeeklyStatement(query.UserID, buckets, rules, window, query.TZOffsetMinutes), snapshot, nil
}

func (s *WalletService) effectiveRules(ctx context.Context, userID string) (metering.Rules, error) {
	snapshot, err := s.consentRepo.Find(ctx, userID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return metering.Rules{}, err
	}
	return metering.ResolveRules(snapshot), nil
}
