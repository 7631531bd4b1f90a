package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// keyPrefix namespaces model-list keys
const keyPrefix = "llm-bridge:models:"

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisModelCache stores model listings as JSON values with a TTL
type RedisModelCache struct {
	client redis.UniversalClient
}

// NewRedisModelCache connects to the configured Redis
func NewRedisModelCache(config RedisConfig) *RedisModelCache {
	return NewRedisModelCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	}))
}

// NewRedisModelCacheFromClient wraps an existing client
func NewRedisModelCacheFromClient(client redis.UniversalClient) *RedisModelCache {
	return &RedisModelCache{client: client}
}

// Key returns the Redis key of a provider's model list
func Key(provider string) string {
	return keyPrefix + provider
}

// Get implements ModelCache
func (c *RedisModelCache) Get(ctx context.Context, provider string) ([]types.ModelInfo, error) {
	raw, err := c.client.Get(ctx, Key(provider)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model cache: %w", err)
	}

	var models []types.ModelInfo
	if err := json.Unmarshal(raw, &models); err != nil {
		return nil, fmt.Errorf("failed to decode model cache: %w", err)
	}
	return models, nil
}

// Set implements ModelCache
func (c *RedisModelCache) Set(ctx context.Context, provider string, models []types.ModelInfo, ttl time.Duration) error {
	raw, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("failed to encode model cache: %w", err)
	}
	if err := c.client.Set(ctx, Key(provider), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write model cache: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (c *RedisModelCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (c *RedisModelCache) Close() error {
	return c.client.Close()
}
