// Package metering holds the usage-side core of the settlement engine:
// domain categorization, per-day usage buckets with exact seconds-to-minutes
// carry, consent rule resolution, timezone-offset week boundaries, and
// clean-day streak analytics.
//
// Everything here is deterministic and side-effect free except the
// repository interfaces, whose implementations live under
// internal/infrastructure/persistence.
package metering
