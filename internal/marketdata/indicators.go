package marketdata

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Indicator parameters
const (
	RSIPeriod          = 14
	MACDFastPeriod     = 12
	MACDSlowPeriod     = 26
	MACDSignalPeriod   = 9
	TradingDaysPerYear = 252

	indicatorPrecision = 6
)

// RSI returns the 14-period relative strength index of closes (oldest
// first), or an absent value when the series is too short.
func RSI(closes []float64) decimal.NullDecimal {
	if len(closes) < RSIPeriod+1 {
		return decimal.NullDecimal{}
	}
	return last(talib.Rsi(closes, RSIPeriod))
}

// MACD returns the current MACD line (fast EMA minus slow EMA)
func MACD(closes []float64) decimal.NullDecimal {
	if len(closes) < MACDSlowPeriod+MACDSignalPeriod-1 {
		return decimal.NullDecimal{}
	}
	macd, _, _ := talib.Macd(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	return last(macd)
}

// Volatility returns the annualized standard deviation of daily simple
// returns as a fraction, e.g. 0.25 for 25%.
func Volatility(closes []float64) decimal.NullDecimal {
	returns := dailyReturns(closes)
	if len(returns) < 2 {
		return decimal.NullDecimal{}
	}
	sd := stat.StdDev(returns, nil)
	return toNull(sd * math.Sqrt(TradingDaysPerYear))
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

func last(series []float64) decimal.NullDecimal {
	if len(series) == 0 {
		return decimal.NullDecimal{}
	}
	return toNull(series[len(series)-1])
}

func toNull(v float64) decimal.NullDecimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(v).Round(indicatorPrecision))
}
