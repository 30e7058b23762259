package metering

import (
	"context"
	"time"
)

// BucketRepository is the usage counter store. AddUsage is the only
// mutation and must be atomic per (user, day): implementations guard each
// per-key read-modify-write (per-bucket lock or row lock) so the
// seconds-to-minutes carry never interleaves under concurrent ticks.
type BucketRepository interface {
	// AddUsage locates or lazily creates the bucket for (userID, UTC day of
	// ts) and accumulates seconds for the domain and category. Empty
	// userID/domain/category or non-positive seconds is a silent no-op.
	AddUsage(ctx context.Context, userID, domain string, category Category, seconds int, ts time.Time) error

	// GetBucket returns the bucket for a (user, day) or shared.ErrNotFound.
	// It never creates. The returned bucket is a snapshot the caller owns.
	GetBucket(ctx context.Context, userID, day string) (*UsageBucket, error)

	// ListBuckets returns snapshot copies of all of a user's buckets
	ListBuckets(ctx context.Context, userID string) ([]*UsageBucket, error)
}

// ConsentRepository stores consent snapshots keyed by user
type ConsentRepository interface {
	// Save replaces the user's snapshot wholesale
	Save(ctx context.Context, snapshot *ConsentSnapshot) error

	// Find returns the user's snapshot or shared.ErrNotFound
	Find(ctx context.Context, userID string) (*ConsentSnapshot, error)

	// AttachProcessorCustomer sets the processor customer reference and,
	// when paymentMethodID is non-empty, the default payment method, without
	// displacing the other snapshot fields. Creates an otherwise-empty
	// snapshot if none exists.
	AttachProcessorCustomer(ctx context.Context, userID, customerID, paymentMethodID string) error
}

// RolloverRepository stores the single non-negative cents value carried
// between settlement attempts. Set replaces; it never adds.
type RolloverRepository interface {
	// Get returns the carried cents for a user, zero if none
	Get(ctx context.Context, userID string) (int64, error)

	// Set replaces the carried cents for a user
	Set(ctx context.Context, userID string, cents int64) error
}
