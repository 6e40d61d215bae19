package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest price of a symbol along with its recent daily closes
type Quote struct {
	Price  decimal.NullDecimal
	AsOf   time.Time
	Closes []float64 // oldest first
}

// Overview holds the fundamental metrics of a symbol. ROE is a percentage.
type Overview struct {
	PERatio decimal.NullDecimal
	EPS     decimal.NullDecimal
	ROE     decimal.NullDecimal
	Beta    decimal.NullDecimal
}

// Provider is an external market data source. Implementations return
// *models.FetchError so callers can tell a terminal ErrSymbolNotFound from
// a retryable ErrTransientFetch.
type Provider interface {
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	FetchOverview(ctx context.Context, symbol string) (*Overview, error)
	FetchSentiment(ctx context.Context, symbol string) (decimal.NullDecimal, error)
}
