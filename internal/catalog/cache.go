package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCacheKey stores the raw catalog snapshot. Only gross prices are cached;
// net prices depend on the caller's commission rate and are projected per read.
const ListCacheKey = "catalog:products:all"

// Cache stores JSON snapshots in Redis with a fixed TTL. A nil *Cache or nil
// client behaves as a permanent miss, so callers need no cache-enabled branch.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) disabled(key string) bool {
	return c == nil || c.client == nil || key == ""
}

// GetJSON loads key into dst and reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c.disabled(key) {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key for the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c.disabled(key) {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate drops the cached snapshot, forcing the next read to hit Postgres.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c.disabled(key) {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
