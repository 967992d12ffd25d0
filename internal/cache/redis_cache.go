package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docxpress/internal/highlight"
)

// RedisCache stores extraction results as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache on client. Keys are prefix+content key.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

// Get returns cached records for key. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]highlight.Record, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var records []highlight.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("decode cached records: %w", err)
	}
	return records, true, nil
}

// Set stores records under key for the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, records []highlight.Record) error {
	if records == nil {
		records = []highlight.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

var _ highlight.Cache = (*RedisCache)(nil)
