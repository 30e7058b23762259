package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vicemeter/backend/internal/domain/shared"
)

// tickDedupePrefix namespaces dedupe keys so a shared Redis can also serve
// other tenants of the instance.
const tickDedupePrefix = "vicemeter:tick:"

// RedisIdempotencyStore dedupes tick-event IDs through Redis so every
// replica sees the same processed set.
type RedisIdempotencyStore struct {
	client *redis.Client
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

// NewRedisIdempotencyStore connects to Redis and verifies the connection
// before the store is handed out.
func NewRedisIdempotencyStore(addr, password string, db int) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisIdempotencyStore{client: client}, nil
}

// MarkProcessed records an event ID atomically via SET NX with the TTL as
// key expiry. False means another writer got there first.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, tickDedupePrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return fresh, nil
}

// IsProcessed reports whether the event ID is still within its dedupe window.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, tickDedupePrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
