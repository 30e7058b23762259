package billing

import "context"

// ChargeRequest is the single create-and-confirm charge operation the
// engine needs from a payment processor. Metadata carries the auditable
// per-category minute breakdown.
type ChargeRequest struct {
	AmountCents     int64
	Currency        string
	IdempotencyKey  string
	CustomerID      string
	PaymentMethodID string
	Description     string
	Metadata        map[string]string
}

// ChargeResult is the processor's view of an issued charge. The engine
// never inspects processor-specific fields beyond id and status.
type ChargeResult struct {
	ExternalID string
	Status     string
}

// PaymentProcessor creates and confirms a charge in one call. A failed or
// timed-out call must be treated as "unknown outcome" by callers: nothing
// on our side may be committed before the call returns successfully.
type PaymentProcessor interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ProvisionCustomerRequest registers a user with the processor so later
// settlements can charge off-session. PaymentMethodID becomes the
// customer's default method when set.
type ProvisionCustomerRequest struct {
	UserID          string
	Email           string
	Name            string
	PaymentMethodID string
}

// ProvisionedCustomer is the processor-side customer reference stored on
// the consent snapshot.
type ProvisionedCustomer struct {
	CustomerID string
}

// CustomerProvisioner creates processor customers. Separate from
// PaymentProcessor because provisioning happens once per user during
// payment setup, not on the weekly settle path.
type CustomerProvisioner interface {
	ProvisionCustomer(ctx context.Context, req ProvisionCustomerRequest) (*ProvisionedCustomer, error)
}
