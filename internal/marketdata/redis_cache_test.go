package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisCache(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cache := NewRedisCache(client)

	metrics := &models.MarketMetrics{
		Symbol:       "AAPL",
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString("181.45")),
		PERatio:      decimal.NewNullDecimal(decimal.RequireFromString("28.5")),
		FetchedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("round trips metrics and keeps absent fields absent", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "AAPL", metrics, time.Minute))

		got, ok, err := cache.Get(ctx, "AAPL")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, metrics.CurrentPrice.Decimal.Equal(got.CurrentPrice.Decimal))
		assert.True(t, metrics.PERatio.Decimal.Equal(got.PERatio.Decimal))
		assert.False(t, got.ROE.Valid)
		assert.False(t, got.SentimentScore.Valid)
		assert.True(t, metrics.FetchedAt.Equal(got.FetchedAt))
	})

	t.Run("entries expire with ttl", func(t *testing.T) {
		ttl, err := client.TTL(ctx, cache.key("AAPL")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("delete evicts entry", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, "AAPL"))
		_, ok, err := cache.Get(ctx, "AAPL")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("separate instances do not share entries", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "MSFT", metrics, time.Minute))

		other := NewRedisCache(client)
		_, ok, err := other.Get(ctx, "MSFT")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
