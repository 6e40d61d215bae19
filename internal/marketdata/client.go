package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// Client defaults
const (
	DefaultCacheTTL       = 5 * time.Minute
	DefaultRetryAttempts  = 3
	DefaultRetryBase      = time.Second
	DefaultRetryFactor    = 2.0
	DefaultRetryMaxWait   = 30 * time.Second
	sentimentAttemptLimit = 1
)

// Client assembles MarketMetrics for a symbol from a Provider. Every
// provider call passes through the shared RateGate first; transient
// failures are retried with exponential backoff and successful results
// are cached per symbol.
type Client struct {
	provider  Provider
	gate      *RateGate
	cache     Cache
	ttl       time.Duration
	attempts  int
	base      time.Duration
	sentiment bool
	log       zerolog.Logger
	now       func() time.Time
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithCache replaces the default in-process cache
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithCacheTTL sets how long a successful fetch is reused
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithRetry sets the total attempts per provider call and the first backoff wait
func WithRetry(attempts int, base time.Duration) ClientOption {
	return func(c *Client) {
		if attempts >= 1 {
			c.attempts = attempts
		}
		if base > 0 {
			c.base = base
		}
	}
}

// WithSentiment toggles the secondary sentiment request
func WithSentiment(enabled bool) ClientOption {
	return func(c *Client) {
		c.sentiment = enabled
	}
}

// WithLogger sets a logger
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client over provider. gate must be the process-wide
// instance; a nil gate gets a private one at the default provider ceiling.
func NewClient(provider Provider, gate *RateGate, opts ...ClientOption) *Client {
	if gate == nil {
		gate = NewRateGate(DefaultRateLimit, DefaultRateWindow)
	}
	c := &Client{
		provider:  provider,
		gate:      gate,
		cache:     NewMemoryCache(),
		ttl:       DefaultCacheTTL,
		attempts:  DefaultRetryAttempts,
		base:      DefaultRetryBase,
		sentiment: true,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns current metrics for symbol. Errors are *models.FetchError
// classified as ErrSymbolNotFound (terminal) or ErrTransientFetch (retries
// exhausted), or ErrValidation for a malformed symbol.
func (c *Client) Fetch(ctx context.Context, symbol string) (*models.MarketMetrics, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if m, ok := c.cached(ctx, symbol); ok {
		return m, nil
	}

	quote, err := withRetry(ctx, c, symbol, "quote", c.attempts, func(ctx context.Context) (*Quote, error) {
		return c.provider.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}

	overview, err := withRetry(ctx, c, symbol, "overview", c.attempts, func(ctx context.Context) (*Overview, error) {
		return c.provider.FetchOverview(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}

	m := &models.MarketMetrics{
		Symbol:       symbol,
		CurrentPrice: quote.Price,
		RSI:          RSI(quote.Closes),
		MACD:         MACD(quote.Closes),
		Volatility:   Volatility(quote.Closes),
		FetchedAt:    c.now().UTC(),
	}
	if overview != nil {
		m.PERatio = overview.PERatio
		m.EPS = overview.EPS
		m.ROE = overview.ROE
		m.Beta = overview.Beta
	}

	if c.sentiment {
		score, err := withRetry(ctx, c, symbol, "sentiment", sentimentAttemptLimit, func(ctx context.Context) (decimal.NullDecimal, error) {
			return c.provider.FetchSentiment(ctx, symbol)
		})
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Sentiment unavailable, leaving it absent")
		} else {
			m.SentimentScore = score
		}
	}

	if err := c.cache.Set(ctx, symbol, m, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache metrics")
	}
	return m, nil
}

// Invalidate drops any cached metrics for symbol
func (c *Client) Invalidate(ctx context.Context, symbol string) error {
	return c.cache.Delete(ctx, symbol)
}

func (c *Client) cached(ctx context.Context, symbol string) (*models.MarketMetrics, bool) {
	m, ok, err := c.cache.Get(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed, fetching from provider")
		return nil, false
	}
	if ok {
		c.log.Debug().Str("symbol", symbol).Msg("Market data cache hit")
	}
	return m, ok
}

func (c *Client) newBackOff(attempts int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.base
	exp.Multiplier = DefaultRetryFactor
	exp.RandomizationFactor = 0
	exp.MaxInterval = DefaultRetryMaxWait
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(attempts-1))
}

// withRetry runs fn behind the rate gate, retrying transient failures.
// ErrSymbolNotFound stops immediately.
func withRetry[T any](ctx context.Context, c *Client, symbol, op string, attempts int, fn func(context.Context) (T, error)) (T, error) {
	var result T
	operation := func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return backoff.Permanent(models.NewTransientFetch(symbol, err))
		}
		v, err := fn(ctx)
		if err != nil {
			if errors.Is(err, models.ErrSymbolNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Str("symbol", symbol).Str("call", op).Dur("retry_in", wait).Msg("Provider call failed, retrying")
	}

	b := backoff.WithContext(c.newBackOff(attempts), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		var zero T
		return zero, classify(symbol, err)
	}
	return result, nil
}

func classify(symbol string, err error) error {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return models.NewTransientFetch(symbol, err)
}
