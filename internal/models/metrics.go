package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketMetrics is the bundle returned by the market data client for one
// symbol. Any field may be invalid when the provider did not supply it.
type MarketMetrics struct {
	Symbol         string              `json:"symbol"`
	CurrentPrice   decimal.NullDecimal `json:"current_price"`
	PERatio        decimal.NullDecimal `json:"pe_ratio"`
	EPS            decimal.NullDecimal `json:"eps"`
	ROE            decimal.NullDecimal `json:"roe"`
	RSI            decimal.NullDecimal `json:"rsi"`
	MACD           decimal.NullDecimal `json:"macd"`
	Volatility     decimal.NullDecimal `json:"volatility"`
	Beta           decimal.NullDecimal `json:"beta"`
	SentimentScore decimal.NullDecimal `json:"sentiment_score"`
	FetchedAt      time.Time           `json:"fetched_at"`
}

// FillFrom sets every absent metric of m from other. Present values win.
func (m *MarketMetrics) FillFrom(other TechnicalFallback) {
	fill := func(dst *decimal.NullDecimal, src decimal.NullDecimal) {
		if !dst.Valid && src.Valid {
			*dst = src
		}
	}
	fill(&m.RSI, other.RSI)
	fill(&m.MACD, other.MACD)
	fill(&m.Volatility, other.Volatility)
	fill(&m.Beta, other.Beta)
	fill(&m.SentimentScore, other.SentimentScore)
}

// TechnicalFallback holds the optional technical columns of the analyst dataset
type TechnicalFallback struct {
	RSI            decimal.NullDecimal
	MACD           decimal.NullDecimal
	Volatility     decimal.NullDecimal
	Beta           decimal.NullDecimal
	SentimentScore decimal.NullDecimal
	AnalysisDate   *time.Time
}

// RatingCounts holds analyst rating counts for a symbol
type RatingCounts struct {
	StrongBuy  int `json:"strong_buy"`
	Buy        int `json:"buy"`
	Hold       int `json:"hold"`
	Sell       int `json:"sell"`
	StrongSell int `json:"strong_sell"`
}

// Total returns the number of ratings
func (r RatingCounts) Total() int {
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

// NetBullishness returns the weighted rating balance normalized to [-1, 1].
// ok is false when there are no ratings.
func (r RatingCounts) NetBullishness() (net float64, ok bool) {
	total := r.Total()
	if total <= 0 {
		return 0, false
	}
	weighted := 2*r.StrongBuy + r.Buy - r.Sell - 2*r.StrongSell
	return float64(weighted) / float64(2*total), true
}
