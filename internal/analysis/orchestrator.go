// Package analysis drives market data, analyst ratings and scoring for the
// tracked portfolio and persists each successful pass.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-analysis-service/internal/models"
	"github.com/trogers1052/stock-analysis-service/internal/scoring"
)

// Store is the part of the Portfolio Store a pass reads and writes
type Store interface {
	ListSymbols(ctx context.Context) ([]string, error)
	GetStock(ctx context.Context, symbol string) (*models.StockRecord, error)
	SaveAnalysis(ctx context.Context, rec *models.StockRecord, snap *models.ScoreSnapshot) error
}

// Fetcher returns current market metrics for a symbol
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*models.MarketMetrics, error)
}

// RatingSource is the analyst rating dataset
type RatingSource interface {
	Lookup(symbol string) models.RatingCounts
	Indicators(symbol string) (models.TechnicalFallback, bool)
}

// Publisher announces stock lifecycle and analysis events
type Publisher interface {
	PublishStockAdded(ctx context.Context, stock *models.StockRecord) error
	PublishStockRemoved(ctx context.Context, symbol string) error
	PublishStockAnalyzed(ctx context.Context, stock *models.StockRecord) error
	PublishBatchCompleted(ctx context.Context, batch *models.BatchResult) error
}

// Orchestrator runs analysis passes. Symbols are processed one at a time;
// the market data client's rate gate does the throttling.
type Orchestrator struct {
	store     Store
	fetcher   Fetcher
	ratings   RatingSource
	engine    *scoring.Engine
	publisher Publisher
	log       zerolog.Logger
	now       func() time.Time

	running atomic.Bool
}

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithEngine replaces the default scoring engine
func WithEngine(engine *scoring.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = engine
	}
}

// WithPublisher enables event publishing
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithLogger sets a logger
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an orchestrator. ratings may be nil, in which
// case every symbol scores on market metrics alone.
func NewOrchestrator(store Store, fetcher Fetcher, ratings RatingSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		fetcher: fetcher,
		ratings: ratings,
		engine:  scoring.NewEngine(),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running reports whether a batch is in progress
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// ReanalyzeAll analyses every symbol tracked when the batch starts and
// returns one outcome per symbol. A symbol's failure never stops the batch.
// Cancelling ctx stops the batch between symbols and records the rest as
// skipped; a symbol already in progress runs to completion. The only
// batch-level errors are ErrBatchInProgress and failing to read the
// symbol list.
func (o *Orchestrator) ReanalyzeAll(ctx context.Context) (*models.BatchResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, models.ErrBatchInProgress
	}
	defer o.running.Store(false)

	symbols, err := o.store.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot tracked symbols: %w", err)
	}

	result := &models.BatchResult{
		StartedAt: o.now().UTC(),
		Outcomes:  make([]models.SymbolOutcome, 0, len(symbols)),
	}
	o.log.Info().Int("symbols", len(symbols)).Msg("Starting reanalysis batch")

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			for _, rest := range symbols[i:] {
				result.Add(skipped(rest, "batch cancelled"))
			}
			o.log.Warn().Int("skipped", len(symbols)-i).Msg("Reanalysis batch cancelled")
			break
		}
		_, outcome := o.analyze(context.WithoutCancel(ctx), symbol)
		result.Add(outcome)
	}

	result.FinishedAt = o.now().UTC()
	o.log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Reanalysis batch finished")

	if o.publisher != nil {
		if err := o.publisher.PublishBatchCompleted(context.WithoutCancel(ctx), result); err != nil {
			o.log.Warn().Err(err).Msg("Failed to publish batch completed event")
		}
	}
	return result, nil
}

// AnalyzeSymbol runs one pass for a single tracked symbol and returns the
// updated record
func (o *Orchestrator) AnalyzeSymbol(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	rec, outcome := o.analyze(ctx, symbol)
	if !outcome.Succeeded() {
		return nil, outcome.Err
	}
	return rec, nil
}

// analyze is one fold step: fetch, merge ratings, score, persist. Every
// failure becomes an outcome instead of escaping the batch.
func (o *Orchestrator) analyze(ctx context.Context, symbol string) (*models.StockRecord, models.SymbolOutcome) {
	log := o.log.With().Str("symbol", symbol).Logger()

	current, err := o.store.GetStock(ctx, symbol)
	if errors.Is(err, models.ErrNotFound) {
		log.Info().Msg("Symbol no longer tracked, skipping")
		return nil, skippedErr(symbol, "no longer tracked", err)
	}
	if err != nil {
		return nil, o.failed(log, symbol, err)
	}

	fetched, err := o.fetcher.Fetch(ctx, symbol)
	if err != nil {
		return nil, o.failed(log, symbol, err)
	}
	metrics := *fetched

	var ratings models.RatingCounts
	rec := *current
	rec.AnalystDataDate = nil
	if o.ratings != nil {
		ratings = o.ratings.Lookup(symbol)
		if tech, ok := o.ratings.Indicators(symbol); ok {
			metrics.FillFrom(tech)
			rec.AnalystDataDate = tech.AnalysisDate
		}
	}

	scored := o.engine.Score(&metrics, ratings)
	at := o.now().UTC()
	rec.ApplyAnalysis(&metrics, ratings, scored.Total, at)

	snap := &models.ScoreSnapshot{
		Symbol:       symbol,
		TotalScore:   scored.Total,
		Breakdown:    scored.Breakdown,
		CurrentPrice: metrics.CurrentPrice,
		AnalyzedAt:   at,
	}
	err = o.store.SaveAnalysis(ctx, &rec, snap)
	if errors.Is(err, models.ErrNotFound) {
		log.Info().Msg("Symbol removed during analysis, discarding result")
		return nil, skippedErr(symbol, "removed during analysis", err)
	}
	if err != nil {
		return nil, o.failed(log, symbol, err)
	}

	log.Info().
		Str("total_score", scored.Total.String()).
		Float64("coverage", scored.Breakdown.Coverage).
		Msg("Symbol analyzed")

	if o.publisher != nil {
		if err := o.publisher.PublishStockAnalyzed(ctx, &rec); err != nil {
			log.Warn().Err(err).Msg("Failed to publish stock analyzed event")
		}
	}

	total := scored.Total
	return &rec, models.SymbolOutcome{
		Symbol:     symbol,
		Status:     models.OutcomeSuccess,
		TotalScore: &total,
	}
}

func (o *Orchestrator) failed(log zerolog.Logger, symbol string, err error) models.SymbolOutcome {
	log.Warn().Err(err).Msg("Symbol analysis failed, keeping previous record")
	return models.SymbolOutcome{
		Symbol: symbol,
		Status: models.OutcomeFailure,
		Reason: err.Error(),
		Err:    err,
	}
}

func skipped(symbol, reason string) models.SymbolOutcome {
	return models.SymbolOutcome{
		Symbol: symbol,
		Status: models.OutcomeSkipped,
		Reason: reason,
		Err:    fmt.Errorf("%s: %s", symbol, reason),
	}
}

func skippedErr(symbol, reason string, err error) models.SymbolOutcome {
	outcome := skipped(symbol, reason)
	outcome.Err = err
	return outcome
}
