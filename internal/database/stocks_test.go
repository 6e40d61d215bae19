package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestStocksRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("AddStock creates a never-analyzed placeholder", func(t *testing.T) {
		testDB.TruncateAll(t)

		rec, err := testDB.AddStock(ctx, " aapl ")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", rec.Symbol)
		assert.False(t, rec.AddedAt.IsZero())

		got, err := testDB.GetStock(ctx, "AAPL")
		require.NoError(t, err)
		assert.False(t, got.Analyzed())
		assert.False(t, got.CurrentPrice.Valid)
		assert.False(t, got.PERatio.Valid)
		assert.False(t, got.TotalScore.Valid)
		assert.Equal(t, models.RatingCounts{}, got.Ratings())
	})

	t.Run("AddStock rejects duplicates and leaves size unchanged", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.AddStock(ctx, "MSFT")
		require.NoError(t, err)

		_, err = testDB.AddStock(ctx, "msft")
		assert.ErrorIs(t, err, models.ErrDuplicateSymbol)

		stocks, err := testDB.ListStocks(ctx)
		require.NoError(t, err)
		assert.Len(t, stocks, 1)
	})

	t.Run("AddStock rejects malformed symbols", func(t *testing.T) {
		testDB.TruncateAll(t)

		for _, symbol := range []string{"", "  ", "TOOLONG", "BRK.B", "123"} {
			_, err := testDB.AddStock(ctx, symbol)
			assert.ErrorIs(t, err, models.ErrValidation, symbol)
		}
	})

	t.Run("RemoveStock deletes tracked symbol", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.AddStock(ctx, "TSLA")
		require.NoError(t, err)

		require.NoError(t, testDB.RemoveStock(ctx, "tsla"))

		_, err = testDB.GetStock(ctx, "TSLA")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("RemoveStock of untracked symbol fails and leaves size unchanged", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.AddStock(ctx, "AAPL")
		require.NoError(t, err)

		err = testDB.RemoveStock(ctx, "NVDA")
		assert.ErrorIs(t, err, models.ErrNotFound)

		symbols, err := testDB.ListSymbols(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL"}, symbols)
	})

	t.Run("ListStocks orders by symbol and includes placeholders", func(t *testing.T) {
		testDB.TruncateAll(t)

		for _, s := range []string{"MSFT", "AAPL", "GOOG"} {
			_, err := testDB.AddStock(ctx, s)
			require.NoError(t, err)
		}

		stocks, err := testDB.ListStocks(ctx)
		require.NoError(t, err)
		require.Len(t, stocks, 3)
		assert.Equal(t, "AAPL", stocks[0].Symbol)
		assert.Equal(t, "GOOG", stocks[1].Symbol)
		assert.Equal(t, "MSFT", stocks[2].Symbol)
	})

	t.Run("ListStocks on empty store returns empty slice", func(t *testing.T) {
		testDB.TruncateAll(t)

		stocks, err := testDB.ListStocks(ctx)
		require.NoError(t, err)
		assert.NotNil(t, stocks)
		assert.Empty(t, stocks)
	})

	t.Run("UpsertStock round trips metrics and keeps absent fields absent", func(t *testing.T) {
		testDB.TruncateAll(t)

		analyzedAt := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
		rec := &models.StockRecord{
			Symbol:                  "AAPL",
			CurrentPrice:            num("181.45"),
			PERatio:                 num("28.5"),
			ROE:                     num("154.27"),
			RSI:                     num("55.123456"),
			AnalystRatingsStrongBuy: 10,
			AnalystRatingsBuy:       15,
			AnalystRatingsSell:      2,
			TotalScore:              num("0.6429"),
			LastAnalyzedAt:          &analyzedAt,
		}
		require.NoError(t, testDB.UpsertStock(ctx, rec))

		got, err := testDB.GetStock(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, got.CurrentPrice.Decimal.Equal(rec.CurrentPrice.Decimal))
		assert.True(t, got.ROE.Decimal.Equal(rec.ROE.Decimal))
		assert.True(t, got.RSI.Decimal.Equal(rec.RSI.Decimal))
		assert.True(t, got.TotalScore.Decimal.Equal(rec.TotalScore.Decimal))
		assert.False(t, got.MACD.Valid)
		assert.False(t, got.Beta.Valid)
		assert.False(t, got.SentimentScore.Valid)
		assert.Equal(t, 10, got.AnalystRatingsStrongBuy)
		assert.Equal(t, 2, got.AnalystRatingsSell)
		require.NotNil(t, got.LastAnalyzedAt)
		assert.True(t, analyzedAt.Equal(*got.LastAnalyzedAt))
	})

	t.Run("UpsertStock overwrites existing row but keeps added_at", func(t *testing.T) {
		testDB.TruncateAll(t)

		added, err := testDB.AddStock(ctx, "IBM")
		require.NoError(t, err)

		rec := models.NewStockRecord("IBM")
		rec.CurrentPrice = num("190")
		require.NoError(t, testDB.UpsertStock(ctx, rec))

		got, err := testDB.GetStock(ctx, "IBM")
		require.NoError(t, err)
		assert.Equal(t, "190", got.CurrentPrice.Decimal.String())
		assert.True(t, added.AddedAt.Equal(got.AddedAt))
	})

	t.Run("concurrent adds of distinct symbols all persist", func(t *testing.T) {
		testDB.TruncateAll(t)

		symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA", "TSLA", "IBM"}
		var wg sync.WaitGroup
		for _, s := range symbols {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				_, err := testDB.AddStock(ctx, symbol)
				assert.NoError(t, err)
			}(s)
		}
		wg.Wait()

		stored, err := testDB.ListSymbols(ctx)
		require.NoError(t, err)
		assert.Len(t, stored, len(symbols))
	})

	t.Run("concurrent adds of the same symbol create one row", func(t *testing.T) {
		testDB.TruncateAll(t)

		var wg sync.WaitGroup
		var mu sync.Mutex
		created := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := testDB.AddStock(ctx, "AMD"); err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, models.ErrDuplicateSymbol)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
	})
}
