package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock event type constants
const (
	EventStockAdded     = "STOCK_ADDED"
	EventStockRemoved   = "STOCK_REMOVED"
	EventStockAnalyzed  = "STOCK_ANALYZED"
	EventBatchCompleted = "BATCH_COMPLETED"
)

// StockEvent represents a Kafka event for stock changes
type StockEvent struct {
	EventType string       `json:"event_type"`
	Stock     *StockRecord `json:"stock,omitempty"`
	Batch     *BatchResult `json:"batch,omitempty"`
	Symbol    string       `json:"symbol,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// StockRecord is a tracked symbol together with the metrics and score of its
// most recent successful analysis pass. Metric fields that were never fetched
// are invalid NullDecimals, never zero.
type StockRecord struct {
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

	AnalystRatingsStrongBuy  int        `json:"analyst_ratings_strong_buy"`
	AnalystRatingsBuy        int        `json:"analyst_ratings_buy"`
	AnalystRatingsHold       int        `json:"analyst_ratings_hold"`
	AnalystRatingsSell       int        `json:"analyst_ratings_sell"`
	AnalystRatingsStrongSell int        `json:"analyst_ratings_strong_sell"`
	AnalystDataDate          *time.Time `json:"analyst_data_date,omitempty"`

	TotalScore     decimal.NullDecimal `json:"total_score"`
	LastAnalyzedAt *time.Time          `json:"last_analyzed_at,omitempty"`
	AddedAt        time.Time           `json:"added_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NewStockRecord returns a never-analyzed placeholder for symbol
func NewStockRecord(symbol string) *StockRecord {
	return &StockRecord{Symbol: symbol}
}

// Analyzed reports whether the record has been through at least one successful pass
func (s *StockRecord) Analyzed() bool {
	return s.LastAnalyzedAt != nil
}

// Ratings returns the analyst rating counts stored on the record
func (s *StockRecord) Ratings() RatingCounts {
	return RatingCounts{
		StrongBuy:  s.AnalystRatingsStrongBuy,
		Buy:        s.AnalystRatingsBuy,
		Hold:       s.AnalystRatingsHold,
		Sell:       s.AnalystRatingsSell,
		StrongSell: s.AnalystRatingsStrongSell,
	}
}

// ApplyAnalysis copies a successful pass onto the record. Metrics the
// provider did not return become absent; they are not carried over from an
// older pass, so the record always reflects a single fetch.
func (s *StockRecord) ApplyAnalysis(m *MarketMetrics, r RatingCounts, total decimal.Decimal, at time.Time) {
	s.CurrentPrice = m.CurrentPrice
	s.PERatio = m.PERatio
	s.EPS = m.EPS
	s.ROE = m.ROE
	s.RSI = m.RSI
	s.MACD = m.MACD
	s.Volatility = m.Volatility
	s.Beta = m.Beta
	s.SentimentScore = m.SentimentScore

	s.AnalystRatingsStrongBuy = r.StrongBuy
	s.AnalystRatingsBuy = r.Buy
	s.AnalystRatingsHold = r.Hold
	s.AnalystRatingsSell = r.Sell
	s.AnalystRatingsStrongSell = r.StrongSell

	s.TotalScore = decimal.NewNullDecimal(total)
	analyzedAt := at
	s.LastAnalyzedAt = &analyzedAt
}
