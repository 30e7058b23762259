package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vicemeter/backend/internal/domain/identity"
	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
)

// MemoryBucketRepository is the in-memory metering.BucketRepository used by
// the default (database-less) deployment and by tests. A single lock guards
// the map; reads hand out deep copies so callers can never reach into live
// counters.
type MemoryBucketRepository struct {
	mu      sync.Mutex
	buckets map[string]map[string]*metering.UsageBucket // userID -> day -> bucket
}

// NewMemoryBucketRepository creates an empty in-memory bucket store
func NewMemoryBucketRepository() *MemoryBucketRepository {
	return &MemoryBucketRepository{
		buckets: make(map[string]map[string]*metering.UsageBucket),
	}
}

// AddUsage accumulates seconds into the (user, UTC day) bucket
func (r *MemoryBucketRepository) AddUsage(ctx context.Context, userID, domain string, category metering.Category, seconds int, ts time.Time) error {
	if userID == "" || domain == "" || !category.IsValid() || seconds <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	days, ok := r.buckets[userID]
	if !ok {
		days = make(map[string]*metering.UsageBucket)
		r.buckets[userID] = days
	}

	day := metering.DayKeyUTC(ts)
	bucket, ok := days[day]
	if !ok {
		bucket = metering.NewUsageBucket(userID, day)
		days[day] = bucket
	}
	return bucket.AddSeconds(domain, category, seconds, ts)
}

// GetBucket returns a snapshot of the bucket for a (user, day) or
// shared.ErrNotFound
func (r *MemoryBucketRepository) GetBucket(ctx context.Context, userID, day string) (*metering.UsageBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[userID][day]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return bucket.Clone(), nil
}

// ListBuckets returns snapshot copies of all of a user's buckets
func (r *MemoryBucketRepository) ListBuckets(ctx context.Context, userID string) ([]*metering.UsageBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	days := r.buckets[userID]
	buckets := make([]*metering.UsageBucket, 0, len(days))
	for _, bucket := range days {
		buckets = append(buckets, bucket.Clone())
	}
	return buckets, nil
}

// MemoryConsentRepository is the in-memory metering.ConsentRepository
type MemoryConsentRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*metering.ConsentSnapshot
}

// NewMemoryConsentRepository creates an empty in-memory consent store
func NewMemoryConsentRepository() *MemoryConsentRepository {
	return &MemoryConsentRepository{
		snapshots: make(map[string]*metering.ConsentSnapshot),
	}
}

// Save replaces the user's snapshot wholesale
func (r *MemoryConsentRepository) Save(ctx context.Context, snapshot *metering.ConsentSnapshot) error {
	if snapshot == nil || snapshot.UserID == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "consent snapshot requires a user id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *snapshot
	r.snapshots[snapshot.UserID] = &copied
	return nil
}

// Find returns the user's snapshot or shared.ErrNotFound
func (r *MemoryConsentRepository) Find(ctx context.Context, userID string) (*metering.ConsentSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *snapshot
	return &copied, nil
}

// AttachProcessorCustomer sets the processor customer reference and default
// payment method without displacing the other snapshot fields
func (r *MemoryConsentRepository) AttachProcessorCustomer(ctx context.Context, userID, customerID, paymentMethodID string) error {
	if userID == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.snapshots[userID]
	if !ok {
		snapshot = &metering.ConsentSnapshot{
			UserID:    userID,
			Timestamp: time.Now().UTC(),
		}
		r.snapshots[userID] = snapshot
	}
	snapshot.ProcessorCustomerID = customerID
	if paymentMethodID != "" {
		snapshot.PaymentMethodID = paymentMethodID
	}
	return nil
}

// MemoryRolloverRepository is the in-memory metering.RolloverRepository
type MemoryRolloverRepository struct {
	mu    sync.RWMutex
	cents map[string]int64
}

// NewMemoryRolloverRepository creates an empty in-memory rollover store
func NewMemoryRolloverRepository() *MemoryRolloverRepository {
	return &MemoryRolloverRepository{
		cents: make(map[string]int64),
	}
}

// Get returns the carried cents for a user, zero if none
func (r *MemoryRolloverRepository) Get(ctx context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cents[userID], nil
}

// Set replaces the carried cents for a user
func (r *MemoryRolloverRepository) Set(ctx context.Context, userID string, cents int64) error {
	if userID == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}
	if cents < 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "rollover cents cannot be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cents[userID] = cents
	return nil
}

// MemorySessionRepository is the in-memory identity.SessionRepository
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*identity.Session
}

// NewMemorySessionRepository creates an empty in-memory session store
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]*identity.Session),
	}
}

// Create stores a new session
func (r *MemorySessionRepository) Create(ctx context.Context, session *identity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

// Update persists changes to an existing session
func (r *MemorySessionRepository) Update(ctx context.Context, session *identity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

// FindByID finds a session by ID
func (r *MemorySessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

// FindByUserID returns all sessions belonging to a user
func (r *MemorySessionRepository) FindByUserID(ctx context.Context, userID string) ([]*identity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*identity.Session, 0)
	for _, session := range r.sessions {
		if session.UserID == userID {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}
