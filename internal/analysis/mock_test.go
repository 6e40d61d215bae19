package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// MockStore is an in-memory PortfolioStore
type MockStore struct {
	mu      sync.Mutex
	stocks  map[string]*models.StockRecord
	history map[string][]*models.ScoreSnapshot

	listErr error
	saveErr map[string]error
	// beforeSave runs before a save is applied, outside the lock
	beforeSave func(symbol string)

	SaveCalls int
}

func NewMockStore(symbols ...string) *MockStore {
	s := &MockStore{
		stocks:  make(map[string]*models.StockRecord),
		history: make(map[string][]*models.ScoreSnapshot),
		saveErr: make(map[string]error),
	}
	for _, sym := range symbols {
		s.stocks[sym] = models.NewStockRecord(sym)
	}
	return s
}

func (m *MockStore) ListSymbols(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	symbols := make([]string, 0, len(m.stocks))
	for s := range m.stocks {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (m *MockStore) GetStock(_ context.Context, symbol string) (*models.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stocks[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: stock %s", models.ErrNotFound, symbol)
	}
	cp := *rec
	return &cp, nil
}

func (m *MockStore) SaveAnalysis(_ context.Context, rec *models.StockRecord, snap *models.ScoreSnapshot) error {
	if m.beforeSave != nil {
		m.beforeSave(rec.Symbol)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if err := m.saveErr[rec.Symbol]; err != nil {
		return err
	}
	if _, ok := m.stocks[rec.Symbol]; !ok {
		return fmt.Errorf("%w: stock %s", models.ErrNotFound, rec.Symbol)
	}
	cp := *rec
	m.stocks[rec.Symbol] = &cp
	m.history[rec.Symbol] = append([]*models.ScoreSnapshot{snap}, m.history[rec.Symbol]...)
	return nil
}

func (m *MockStore) AddStock(_ context.Context, symbol string) (*models.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stocks[symbol]; ok {
		return nil, fmt.Errorf("%w: %s", models.ErrDuplicateSymbol, symbol)
	}
	rec := models.NewStockRecord(symbol)
	m.stocks[symbol] = rec
	cp := *rec
	return &cp, nil
}

func (m *MockStore) RemoveStock(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stocks[symbol]; !ok {
		return fmt.Errorf("%w: stock %s", models.ErrNotFound, symbol)
	}
	delete(m.stocks, symbol)
	delete(m.history, symbol)
	return nil
}

func (m *MockStore) ListStocks(ctx context.Context) ([]*models.StockRecord, error) {
	symbols, err := m.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.StockRecord, 0, len(symbols))
	for _, s := range symbols {
		rec, _ := m.GetStock(ctx, s)
		out = append(out, rec)
	}
	return out, nil
}

func (m *MockStore) GetScoreHistory(_ context.Context, symbol string, limit int) ([]*models.ScoreSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[symbol]
	if limit > 0 && len(h) > limit {
		h = h[:limit]
	}
	return h, nil
}

func (m *MockStore) put(rec *models.StockRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.stocks[rec.Symbol] = &cp
}

func (m *MockStore) get(symbol string) *models.StockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stocks[symbol]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// MockFetcher returns scripted metrics or errors per symbol
type MockFetcher struct {
	mu      sync.Mutex
	metrics map[string]*models.MarketMetrics
	errs    map[string]error
	calls   []string
	onFetch func(symbol string)
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		metrics: make(map[string]*models.MarketMetrics),
		errs:    make(map[string]error),
	}
}

func (f *MockFetcher) Fetch(_ context.Context, symbol string) (*models.MarketMetrics, error) {
	if f.onFetch != nil {
		f.onFetch(symbol)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	if m, ok := f.metrics[symbol]; ok {
		cp := *m
		return &cp, nil
	}
	return &models.MarketMetrics{Symbol: symbol}, nil
}

func (f *MockFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// MockRatings is a fixed analyst dataset
type MockRatings struct {
	counts     map[string]models.RatingCounts
	technicals map[string]models.TechnicalFallback
}

func (r *MockRatings) Lookup(symbol string) models.RatingCounts {
	return r.counts[symbol]
}

func (r *MockRatings) Indicators(symbol string) (models.TechnicalFallback, bool) {
	t, ok := r.technicals[symbol]
	return t, ok
}

// MockPublisher records published events
type MockPublisher struct {
	mu       sync.Mutex
	events   []string
	analyzed []string
	batches  []*models.BatchResult
	err      error
}

func (p *MockPublisher) PublishStockAdded(_ context.Context, stock *models.StockRecord) error {
	return p.record(models.EventStockAdded + ":" + stock.Symbol)
}

func (p *MockPublisher) PublishStockRemoved(_ context.Context, symbol string) error {
	return p.record(models.EventStockRemoved + ":" + symbol)
}

func (p *MockPublisher) PublishStockAnalyzed(_ context.Context, stock *models.StockRecord) error {
	p.mu.Lock()
	p.analyzed = append(p.analyzed, stock.Symbol)
	p.mu.Unlock()
	return p.record(models.EventStockAnalyzed + ":" + stock.Symbol)
}

func (p *MockPublisher) PublishBatchCompleted(_ context.Context, batch *models.BatchResult) error {
	p.mu.Lock()
	p.batches = append(p.batches, batch)
	p.mu.Unlock()
	return p.record(models.EventBatchCompleted)
}

func (p *MockPublisher) record(event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// MockCache records invalidations
type MockCache struct {
	invalidated []string
}

func (c *MockCache) Invalidate(_ context.Context, symbol string) error {
	c.invalidated = append(c.invalidated, symbol)
	return nil
}

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
