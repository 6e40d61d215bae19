package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestRSI(t *testing.T) {
	t.Run("too short is absent", func(t *testing.T) {
		assert.False(t, RSI(series(RSIPeriod, func(i int) float64 { return float64(100 + i) })).Valid)
	})

	t.Run("steady gains approach 100", func(t *testing.T) {
		rsi := RSI(series(60, func(i int) float64 { return float64(100 + i) }))
		require.True(t, rsi.Valid)
		assert.InDelta(t, 100.0, rsi.Decimal.InexactFloat64(), 1e-6)
	})

	t.Run("steady losses approach 0", func(t *testing.T) {
		rsi := RSI(series(60, func(i int) float64 { return float64(200 - i) }))
		require.True(t, rsi.Valid)
		assert.InDelta(t, 0.0, rsi.Decimal.InexactFloat64(), 1e-6)
	})

	t.Run("mixed series lies inside the range", func(t *testing.T) {
		rsi := RSI(series(60, func(i int) float64 {
			if i%2 == 0 {
				return 100 + float64(i)*0.5
			}
			return 99 + float64(i)*0.5
		}))
		require.True(t, rsi.Valid)
		assert.Greater(t, rsi.Decimal.InexactFloat64(), 0.0)
		assert.Less(t, rsi.Decimal.InexactFloat64(), 100.0)
	})
}

func TestMACD(t *testing.T) {
	t.Run("too short is absent", func(t *testing.T) {
		assert.False(t, MACD(series(30, func(i int) float64 { return float64(i) })).Valid)
	})

	t.Run("uptrend is positive", func(t *testing.T) {
		macd := MACD(series(100, func(i int) float64 { return 50 + float64(i) }))
		require.True(t, macd.Valid)
		assert.True(t, macd.Decimal.IsPositive())
	})

	t.Run("downtrend is negative", func(t *testing.T) {
		macd := MACD(series(100, func(i int) float64 { return 200 - float64(i) }))
		require.True(t, macd.Valid)
		assert.True(t, macd.Decimal.IsNegative())
	})
}

func TestVolatility(t *testing.T) {
	t.Run("too short is absent", func(t *testing.T) {
		assert.False(t, Volatility([]float64{100, 101}).Valid)
		assert.False(t, Volatility(nil).Valid)
	})

	t.Run("flat series has zero volatility", func(t *testing.T) {
		vol := Volatility(series(30, func(int) float64 { return 100 }))
		require.True(t, vol.Valid)
		assert.True(t, vol.Decimal.IsZero())
	})

	t.Run("choppier series is more volatile", func(t *testing.T) {
		calm := Volatility(series(60, func(i int) float64 { return 100 + float64(i%2) }))
		wild := Volatility(series(60, func(i int) float64 { return 100 + 10*float64(i%2) }))
		require.True(t, calm.Valid)
		require.True(t, wild.Valid)
		assert.True(t, wild.Decimal.GreaterThan(calm.Decimal))
	})

	t.Run("non-positive prices are skipped", func(t *testing.T) {
		vol := Volatility([]float64{0, 100, 101, 99, 102})
		assert.True(t, vol.Valid)
	})
}
