// Package billing holds the money-side core of the settlement engine:
// weekly statement aggregation, the rollover/minimum-charge decision, the
// deterministic settlement idempotency key, and the payment processor
// contract. Statement building is pure; only the settlement issuer in the
// application layer mutates rollover state.
package billing
