package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/shared"
	"github.com/vicemeter/backend/internal/infrastructure/config"
)

// IdempotencyStoreFactory picks the dedupe store for a deployment: Redis
// when reachable, in-memory otherwise.
type IdempotencyStoreFactory struct {
	redisConfig   config.RedisConfig
	logger        *zap.Logger
	requireShared bool
}

// IdempotencyStoreFactoryOption configures the factory.
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the factory logger.
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithRequiredSharedStore makes an unreachable Redis a startup error
// instead of a fallback. Multi-replica deployments want this: in-memory
// dedupe is per process and would let replayed batches double-count.
func WithRequiredSharedStore() IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.requireShared = true
	}
}

// NewIdempotencyStoreFactory creates a factory for the given Redis config.
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore connects to Redis, falling back to the in-memory store unless
// a shared store is required.
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	addr := fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port)
	store, err := NewRedisIdempotencyStore(addr, f.redisConfig.Password, f.redisConfig.DB)
	if err == nil {
		f.logger.Info("tick dedupe backed by redis", zap.String("addr", addr))
		return store, nil
	}

	if f.requireShared {
		return nil, fmt.Errorf("redis required for shared tick dedupe: %w", err)
	}

	f.logger.Warn("redis unreachable, tick dedupe is per-process only", zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
