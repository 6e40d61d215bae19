// Package marketdata fetches per-symbol market metrics from an external
// provider behind a process-wide rate gate, with retry and a TTL cache.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the provider's free-tier ceiling per window
	DefaultRateLimit = 5

	// DefaultRateWindow is the rolling window the ceiling applies to
	DefaultRateWindow = time.Minute

	// gateMargin is added to the call spacing to absorb clock jitter
	// between us and the provider
	gateMargin = time.Millisecond
)

// RateGate bounds provider calls to limit per rolling window. Calls are
// spaced at least window/limit apart with a burst of one, so no window of
// that length ever holds more than limit calls. One gate is shared by every
// caller in the process.
type RateGate struct {
	limiter  *rate.Limiter
	limit    int
	window   time.Duration
	interval time.Duration
}

// NewRateGate creates a gate admitting at most limit calls per window
func NewRateGate(limit int, window time.Duration) *RateGate {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	interval := spacing(limit, window)
	return &RateGate{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		limit:    limit,
		window:   window,
		interval: interval,
	}
}

// spacing divides window by limit rounding up, so limit+1 calls never fit
// inside one window even when the division is inexact
func spacing(limit int, window time.Duration) time.Duration {
	n := time.Duration(limit)
	return (window+n-1)/n + gateMargin
}

// Wait blocks until a call slot is free or ctx is done
func (g *RateGate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}
	return nil
}

// Interval is the minimum spacing between two admitted calls
func (g *RateGate) Interval() time.Duration {
	return g.interval
}

func (g *RateGate) String() string {
	return fmt.Sprintf("%d calls per %s", g.limit, g.window)
}

func (g *RateGate) allowAt(t time.Time) bool {
	return g.limiter.AllowN(t, 1)
}
