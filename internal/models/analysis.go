package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome status constants
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// SymbolOutcome is the result of one symbol within a batch pass
type SymbolOutcome struct {
	Symbol     string           `json:"symbol"`
	Status     string           `json:"status"`
	TotalScore *decimal.Decimal `json:"total_score,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Err        error            `json:"-"`
}

// Succeeded reports whether the symbol was analyzed and persisted
func (o SymbolOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// BatchResult enumerates every symbol's outcome for one batch pass
type BatchResult struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outcomes   []SymbolOutcome `json:"outcomes"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
}

// Add appends an outcome and updates the counters
func (b *BatchResult) Add(o SymbolOutcome) {
	b.Outcomes = append(b.Outcomes, o)
	switch o.Status {
	case OutcomeSuccess:
		b.Succeeded++
	case OutcomeFailure:
		b.Failed++
	default:
		b.Skipped++
	}
}

// Outcome returns the outcome recorded for symbol
func (b *BatchResult) Outcome(symbol string) (SymbolOutcome, bool) {
	for _, o := range b.Outcomes {
		if o.Symbol == symbol {
			return o, true
		}
	}
	return SymbolOutcome{}, false
}

// Score component names used in breakdowns and history
const (
	ComponentPE         = "pe_ratio"
	ComponentROE        = "roe"
	ComponentAnalyst    = "analyst"
	ComponentRSI        = "rsi"
	ComponentMACD       = "macd"
	ComponentVolatility = "volatility"
	ComponentBeta       = "beta"
	ComponentSentiment  = "sentiment"
)

// ScoreBreakdown lists the sub-score of every component that took part in
// the composite. Absent components are missing from the map.
type ScoreBreakdown struct {
	Components map[string]float64 `json:"components"`
	Coverage   float64            `json:"coverage"`
}

// ScoreSnapshot is one row of a symbol's score history
type ScoreSnapshot struct {
	ID           int                 `json:"id"`
	Symbol       string              `json:"symbol"`
	TotalScore   decimal.Decimal     `json:"total_score"`
	Breakdown    ScoreBreakdown      `json:"breakdown"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	AnalyzedAt   time.Time           `json:"analyzed_at"`
}

// AnalysisRequest is the Kafka event asking for an on-demand reanalysis.
// An empty Symbol requests the whole portfolio.
type AnalysisRequest struct {
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventAnalysisRequested is the only request event type acted upon
const EventAnalysisRequested = "ANALYSIS_REQUESTED"
