package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// RedisCache shares fetched metrics through Redis. Keys carry a per-process
// instance ID, so a restart starts from an empty namespace and stale entries
// age out through their TTL.
type RedisCache struct {
	client   *redis.Client
	instance string
}

// NewRedisCache creates a cache on an existing Redis client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:   client,
		instance: uuid.NewString(),
	}
}

func (c *RedisCache) key(symbol string) string {
	return "marketdata:" + c.instance + ":" + symbol
}

// Get returns the cached metrics for symbol
func (c *RedisCache) Get(ctx context.Context, symbol string) (*models.MarketMetrics, bool, error) {
	data, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached metrics: %w", err)
	}

	var m models.MarketMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached metrics: %w", err)
	}
	return &m, true, nil
}

// Set stores m under symbol with an expiry of ttl
func (c *RedisCache) Set(ctx context.Context, symbol string, m *models.MarketMetrics, ttl time.Duration) error {
	if m == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	if err := c.client.Set(ctx, c.key(symbol), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache metrics: %w", err)
	}
	return nil
}

// Delete drops the entry for symbol
func (c *RedisCache) Delete(ctx context.Context, symbol string) error {
	if err := c.client.Del(ctx, c.key(symbol)).Err(); err != nil {
		return fmt.Errorf("failed to evict cached metrics: %w", err)
	}
	return nil
}
