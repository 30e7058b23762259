// Package cache provides the tick-event dedupe stores. Replays inside the
// TTL window are dropped so a retried batch never double-counts usage.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vicemeter/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore dedupes tick-event IDs in process memory. Fine
// for single-instance deployments; replicas need the Redis store since this
// state is not shared.
type InMemoryIdempotencyStore struct {
	mu       sync.RWMutex
	expiry   map[string]time.Time
	done     chan struct{}
	stopOnce sync.Once
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// NewInMemoryIdempotencyStore creates the store and starts a sweeper that
// evicts expired event IDs.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiry: make(map[string]time.Time),
		done:   make(chan struct{}),
	}
	go s.sweep(5 * time.Minute)
	return s
}

// MarkProcessed records an event ID for the TTL. It reports false when the
// ID was already recorded and has not yet expired.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.expiry[eventID]; ok && now.Before(deadline) {
		return false, nil
	}
	s.expiry[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether an event ID is recorded and unexpired.
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deadline, ok := s.expiry[eventID]
	return ok && time.Now().Before(deadline), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// Len reports the number of tracked event IDs, expired ones included until
// the next sweep.
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiry)
}

func (s *InMemoryIdempotencyStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for eventID, deadline := range s.expiry {
				if now.After(deadline) {
					delete(s.expiry, eventID)
				}
			}
			s.mu.Unlock()
		}
	}
}
