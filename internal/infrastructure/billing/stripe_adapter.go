package billing

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/billing"
	"github.com/vicemeter/backend/internal/domain/shared"
)

// StripeAdapter charges weekly settlements through Stripe PaymentIntents
// and provisions customers for off-session billing.
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

var (
	_ billing.PaymentProcessor    = (*StripeAdapter)(nil)
	_ billing.CustomerProvisioner = (*StripeAdapter)(nil)
)

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Initialize Stripe client
	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreateCharge creates and confirms an off-session PaymentIntent for a
// settlement. The caller's idempotency key is passed through to Stripe, so
// a retried settlement with identical inputs returns the original intent
// instead of double charging.
func (a *StripeAdapter) CreateCharge(ctx context.Context, request billing.ChargeRequest) (*billing.ChargeResult, error) {
	if request.AmountCents <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "charge amount must be positive")
	}
	if request.IdempotencyKey == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "idempotency key is required")
	}

	currency := request.Currency
	if currency == "" {
		currency = a.config.DefaultCurrency
	}

	a.logger.Debug("Creating Stripe payment intent",
		zap.String("idempotency_key", request.IdempotencyKey),
		zap.Int64("amount_cents", request.AmountCents),
		zap.String("currency", currency))

	params := &stripe.PaymentIntentParams{
		Amount:     stripe.Int64(request.AmountCents),
		Currency:   stripe.String(currency),
		Confirm:    stripe.Bool(true),
		OffSession: stripe.Bool(true),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(request.IdempotencyKey)

	if request.CustomerID != "" {
		params.Customer = stripe.String(request.CustomerID)
	}
	if request.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(request.PaymentMethodID)
	}
	if request.Description != "" {
		params.Description = stripe.String(request.Description)
	}
	if a.config.StatementDescriptor != "" {
		params.StatementDescriptorSuffix = stripe.String(a.config.StatementDescriptor)
	}
	params.Metadata = make(map[string]string, len(request.Metadata))
	maps.Copy(params.Metadata, request.Metadata)

	intent, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			a.logger.Error("Stripe payment intent failed",
				zap.String("idempotency_key", request.IdempotencyKey),
				zap.String("stripe_code", string(stripeErr.Code)),
				zap.Error(err))
			return nil, shared.NewDomainError("PROCESSOR_ERROR",
				fmt.Sprintf("stripe: charge failed: %s", stripeErr.Code))
		}
		a.logger.Error("Stripe payment intent failed",
			zap.String("idempotency_key", request.IdempotencyKey),
			zap.Error(err))
		return nil, shared.NewDomainError("PROCESSOR_ERROR", "stripe: charge failed")
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded &&
		intent.Status != stripe.PaymentIntentStatusProcessing {
		a.logger.Error("Stripe payment intent not settled",
			zap.String("intent_id", intent.ID),
			zap.String("status", string(intent.Status)))
		return nil, shared.NewDomainError("PROCESSOR_ERROR",
			fmt.Sprintf("stripe: charge ended in status %s", intent.Status))
	}

	a.logger.Info("Stripe payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_cents", request.AmountCents),
		zap.String("status", string(intent.Status)))

	return &billing.ChargeResult{
		ExternalID: intent.ID,
		Status:     string(intent.Status),
	}, nil
}

// ProvisionCustomer creates a Stripe customer and optionally sets a default
// payment method, so later settlements can charge off-session. It implements
// billing.CustomerProvisioner.
func (a *StripeAdapter) ProvisionCustomer(ctx context.Context, req billing.ProvisionCustomerRequest) (*billing.ProvisionedCustomer, error) {
	if req.UserID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
		Name:  stripe.String(req.Name),
	}
	params.Context = ctx
	params.Metadata = map[string]string{"user_id": req.UserID}

	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
		params.InvoiceSettings = &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(req.PaymentMethodID),
		}
	}

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return nil, shared.NewDomainError("PROCESSOR_ERROR", "stripe: failed to create customer")
	}

	a.logger.Info("Created Stripe customer",
		zap.String("user_id", req.UserID),
		zap.String("customer_id", cust.ID))

	return &billing.ProvisionedCustomer{CustomerID: cust.ID}, nil
}
