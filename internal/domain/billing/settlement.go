package billing

import "fmt"

// MinChargeCents is the minimum amount worth sending to the payment
// processor. Totals below it are carried forward as rollover.
const MinChargeCents int64 = 50

// Settlement reasons
const (
	ReasonBelowMinimum = "below_minimum"
	ReasonCharged      = "charged"
)

// SettlementResult describes the outcome of a settle attempt. Exactly one
// of ChargedCents and CarriedCents is non-zero (both are zero only for an
// empty week with no rollover).
type SettlementResult struct {
	ChargedCents     int64  `json:"charged_cents"`
	CarriedCents     int64  `json:"carried_cents"`
	Reason           string `json:"reason"`
	ExternalChargeID string `json:"external_charge_id,omitempty"`
	Status           string `json:"status,omitempty"`
}

// SettlementKey builds the deterministic idempotency key for a settlement
// attempt. Retried settles with identical computed totals collapse into a
// single external charge. The grand total is part of the key on purpose: a
// different amount is a logically different settlement attempt, not a retry
// of the old one.
func SettlementKey(userID, weekStartStr, weekEndStr string, grandTotalCents int64) string {
	return fmt.Sprintf("settle-%s-%s-%s-%d", userID, weekStartStr, weekEndStr, grandTotalCents)
}
