package cache

import (
	"fmt"
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ClosableProgressStore is a ProgressStore that owns resources
type ClosableProgressStore interface {
	bulk.ProgressStore
	Close() error
}

// ProgressStoreFactory creates progress stores based on configuration
type ProgressStoreFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ProgressStoreFactoryOption is a functional option for configuring the factory
type ProgressStoreFactoryOption func(*ProgressStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ProgressStoreFactoryOption {
	return func(f *ProgressStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) ProgressStoreFactoryOption {
	return func(f *ProgressStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewProgressStoreFactory creates a new factory
func NewProgressStoreFactory(cfg config.RedisConfig, ttl time.Duration, opts ...ProgressStoreFactoryOption) *ProgressStoreFactory {
	f := &ProgressStoreFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based progress store
func (f *ProgressStoreFactory) CreateRedisStore() (*RedisProgressStore, error) {
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis progress store: %w", err)
	}
	return NewRedisProgressStore(client, f.redisConfig.KeyPrefix, f.ttl), nil
}

// CreateInMemoryStore creates an in-memory progress store.
// Polls routed to another instance will not see its sessions.
func (f *ProgressStoreFactory) CreateInMemoryStore() *InMemoryProgressStore {
	return NewInMemoryProgressStore(f.ttl)
}

// CreateStore uses Redis when it is enabled and reachable, and otherwise
// the in-memory store when fallback is allowed.
func (f *ProgressStoreFactory) CreateStore() (ClosableProgressStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory progress store")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("Using Redis progress store",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for progress tracking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory progress store. "+
		"Progress polls may miss sessions handled by other instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
