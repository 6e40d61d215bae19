package analysis

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// PortfolioStore is the full Portfolio Store used by the service
type PortfolioStore interface {
	Store
	AddStock(ctx context.Context, symbol string) (*models.StockRecord, error)
	RemoveStock(ctx context.Context, symbol string) error
	ListStocks(ctx context.Context) ([]*models.StockRecord, error)
	GetScoreHistory(ctx context.Context, symbol string, limit int) ([]*models.ScoreSnapshot, error)
}

// CacheInvalidator drops cached market data for a symbol
type CacheInvalidator interface {
	Invalidate(ctx context.Context, symbol string) error
}

// Service is the entry point for the HTTP, Kafka and scheduler layers
type Service struct {
	store        PortfolioStore
	orchestrator *Orchestrator
	cache        CacheInvalidator
	publisher    Publisher
	log          zerolog.Logger
}

// NewService creates a service. cache and publisher may be nil.
func NewService(store PortfolioStore, orchestrator *Orchestrator, cache CacheInvalidator, publisher Publisher, log zerolog.Logger) *Service {
	return &Service{
		store:        store,
		orchestrator: orchestrator,
		cache:        cache,
		publisher:    publisher,
		log:          log,
	}
}

// ListStocks returns every tracked stock
func (s *Service) ListStocks(ctx context.Context) ([]*models.StockRecord, error) {
	return s.store.ListStocks(ctx)
}

// GetStock returns one tracked stock
func (s *Service) GetStock(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.store.GetStock(ctx, symbol)
}

// AddStock starts tracking symbol
func (s *Service) AddStock(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.AddStock(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("symbol", symbol).Msg("Stock added")

	if s.publisher != nil {
		if err := s.publisher.PublishStockAdded(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to publish stock added event")
		}
	}
	return rec, nil
}

// RemoveStock stops tracking symbol and forgets its cached market data
func (s *Service) RemoveStock(ctx context.Context, symbol string) error {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	if err := s.store.RemoveStock(ctx, symbol); err != nil {
		return err
	}
	s.log.Info().Str("symbol", symbol).Msg("Stock removed")

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, symbol); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to invalidate cached metrics")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStockRemoved(ctx, symbol); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to publish stock removed event")
		}
	}
	return nil
}

// TriggerReanalysis runs a batch over the whole portfolio
func (s *Service) TriggerReanalysis(ctx context.Context) (*models.BatchResult, error) {
	result, err := s.orchestrator.ReanalyzeAll(ctx)
	if errors.Is(err, models.ErrBatchInProgress) {
		s.log.Info().Msg("Reanalysis requested while a batch is running")
	}
	return result, err
}

// AnalyzeStock runs a pass for a single tracked symbol
func (s *Service) AnalyzeStock(ctx context.Context, symbol string) (*models.StockRecord, error) {
	return s.orchestrator.AnalyzeSymbol(ctx, symbol)
}

// ScoreHistory returns recent score snapshots for symbol, newest first
func (s *Service) ScoreHistory(ctx context.Context, symbol string, limit int) ([]*models.ScoreSnapshot, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetStock(ctx, symbol); err != nil {
		return nil, err
	}
	return s.store.GetScoreHistory(ctx, symbol, limit)
}

// ReanalysisRunning reports whether a batch is in progress
func (s *Service) ReanalysisRunning() bool {
	return s.orchestrator.Running()
}

// Ready reports whether the store is reachable
func (s *Service) Ready(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
