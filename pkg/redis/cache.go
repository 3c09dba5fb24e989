package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether reads and writes reach Redis
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value; a missing key returns (false, nil)
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// DeletePrefix removes every key starting with prefix and returns how many
// were deleted
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	var keys []string
	iter := c.client.Redis().Scan(ctx, 0, c.fullKey(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.client.Redis().Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache delete failed: %w", err)
	}
	return int(n), nil
}

// TTLDaily matches the cadence of end-of-day closes
const TTLDaily = 24 * time.Hour

// SeriesPrefix matches every cached range of a ticker
func SeriesPrefix(ticker string) string {
	return fmt.Sprintf("series:%s:", ticker)
}

// SeriesKey identifies a cached close-price series for a ticker and date range
func SeriesKey(ticker, from, to string) string {
	return SeriesPrefix(ticker) + from + ":" + to
}
