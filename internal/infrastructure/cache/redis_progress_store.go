package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultProgressPrefix = "import:progress:"

// RedisProgressStore keeps progress snapshots in Redis with a TTL, so every
// instance behind the load balancer answers polls for any session.
type RedisProgressStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisProgressStore creates a store on an existing client
func NewRedisProgressStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisProgressStore {
	if keyPrefix == "" {
		keyPrefix = defaultProgressPrefix
	}
	return &RedisProgressStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisProgressStore) key(tenantID uuid.UUID, sessionID string) string {
	return s.keyPrefix + tenantID.String() + ":" + sessionID
}

// Save writes the snapshot and resets its TTL
func (s *RedisProgressStore) Save(ctx context.Context, tenantID uuid.UUID, progress bulk.ImportProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := s.client.Set(ctx, s.key(tenantID, progress.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Get reads a snapshot. Missing or expired sessions return shared.ErrNotFound.
func (s *RedisProgressStore) Get(ctx context.Context, tenantID uuid.UUID, sessionID string) (*bulk.ImportProgress, error) {
	data, err := s.client.Get(ctx, s.key(tenantID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}

	var progress bulk.ImportProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &progress, nil
}

// Close closes the Redis client
func (s *RedisProgressStore) Close() error {
	return s.client.Close()
}

var _ bulk.ProgressStore = (*RedisProgressStore)(nil)
