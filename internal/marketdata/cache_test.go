package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }

	metrics := &models.MarketMetrics{
		Symbol:       "AAPL",
		CurrentPrice: decimal.NewNullDecimal(decimal.RequireFromString("181.45")),
	}

	t.Run("miss on empty cache", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, "AAPL")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("hit within ttl", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "AAPL", metrics, 5*time.Minute))

		now = now.Add(4 * time.Minute)
		got, ok, err := cache.Get(ctx, "AAPL")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "181.45", got.CurrentPrice.Decimal.String())
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		got, _, _ := cache.Get(ctx, "AAPL")
		got.Symbol = "MUTATED"

		again, ok, _ := cache.Get(ctx, "AAPL")
		require.True(t, ok)
		assert.Equal(t, "AAPL", again.Symbol)
	})

	t.Run("expired entry is evicted", func(t *testing.T) {
		now = now.Add(time.Minute)
		_, ok, err := cache.Get(ctx, "AAPL")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("delete removes entry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "MSFT", metrics, time.Minute))
		require.NoError(t, cache.Delete(ctx, "MSFT"))
		_, ok, _ := cache.Get(ctx, "MSFT")
		assert.False(t, ok)
	})

	t.Run("non-positive ttl is not stored", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "IBM", metrics, 0))
		_, ok, _ := cache.Get(ctx, "IBM")
		assert.False(t, ok)
	})
}
