package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// Cache holds successful fetches per symbol for a time-to-live
type Cache interface {
	Get(ctx context.Context, symbol string) (*models.MarketMetrics, bool, error)
	Set(ctx context.Context, symbol string, m *models.MarketMetrics, ttl time.Duration) error
	Delete(ctx context.Context, symbol string) error
}

type memoryEntry struct {
	metrics   models.MarketMetrics
	expiresAt time.Time
}

// MemoryCache is the default in-process cache. Its contents die with the process.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached metrics if present and not expired
func (c *MemoryCache) Get(_ context.Context, symbol string) (*models.MarketMetrics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[symbol]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, symbol)
		return nil, false, nil
	}
	m := entry.metrics
	return &m, true, nil
}

// Set stores a copy of m until ttl elapses
func (c *MemoryCache) Set(_ context.Context, symbol string, m *models.MarketMetrics, ttl time.Duration) error {
	if m == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = memoryEntry{metrics: *m, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete drops the entry for symbol
func (c *MemoryCache) Delete(_ context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, symbol)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
