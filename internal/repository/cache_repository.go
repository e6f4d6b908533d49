package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheRepository stores JSON-encoded values in Redis with a TTL. A nil
// client makes every operation a no-op so callers need not special-case a
// disabled cache.
type CacheRepository struct {
	client *redis.Client
}

// NewCacheRepository constructs the repository. client may be nil.
func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// Get unmarshals the cached value at key into dest. Returns false when the
// key is absent or the cache is disabled.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set marshals value as JSON and stores it at key with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete drops the keys from the cache.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
