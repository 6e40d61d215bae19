package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

const (
	// DefaultAlphaVantageURL is the Alpha Vantage query endpoint
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

	// DefaultHTTPTimeout bounds a single provider request
	DefaultHTTPTimeout = 30 * time.Second

	sentimentArticleLimit = "50"
	maxErrorBody          = 512
)

// APIError is a non-200 response from the provider
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpha vantage %s: status %d: %s", e.Function, e.StatusCode, e.Message)
}

// RateLimitError is the provider's soft rejection, reported with HTTP 200
// and a "Note" or "Information" field instead of data.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return "alpha vantage rate limited: " + e.Message
}

// AlphaVantage implements Provider on the Alpha Vantage REST API
type AlphaVantage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// AlphaVantageOption configures the AlphaVantage provider
type AlphaVantageOption func(*AlphaVantage)

// WithBaseURL sets a custom endpoint
func WithBaseURL(baseURL string) AlphaVantageOption {
	return func(a *AlphaVantage) {
		a.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) AlphaVantageOption {
	return func(a *AlphaVantage) {
		a.httpClient = httpClient
	}
}

// WithProviderLogger sets a logger
func WithProviderLogger(log zerolog.Logger) AlphaVantageOption {
	return func(a *AlphaVantage) {
		a.log = log
	}
}

// NewAlphaVantage creates a provider for the given API key
func NewAlphaVantage(apiKey string, opts ...AlphaVantageOption) *AlphaVantage {
	a := &AlphaVantage{
		baseURL:    DefaultAlphaVantageURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type dailySeriesResponse struct {
	Series map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

// FetchQuote reads the compact daily series: the latest close is the
// current price and the closes feed the technical indicators.
func (a *AlphaVantage) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var resp dailySeriesResponse
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	if err := a.query(ctx, symbol, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Series) == 0 {
		return nil, models.NewTransientFetch(symbol, errors.New("daily series missing from response"))
	}

	dates := make([]string, 0, len(resp.Series))
	for d := range resp.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	quote := &Quote{Closes: make([]float64, 0, len(dates))}
	for _, d := range dates {
		price, err := decimal.NewFromString(strings.TrimSpace(resp.Series[d].Close))
		if err != nil {
			a.log.Debug().Str("symbol", symbol).Str("date", d).Msg("Skipping unparseable close")
			continue
		}
		quote.Closes = append(quote.Closes, price.InexactFloat64())
		quote.Price = decimal.NewNullDecimal(price)
		if t, err := time.Parse("2006-01-02", d); err == nil {
			quote.AsOf = t
		}
	}
	if !quote.Price.Valid {
		return nil, models.NewTransientFetch(symbol, errors.New("no parseable close in daily series"))
	}
	return quote, nil
}

// FetchOverview reads company fundamentals. The provider answers an empty
// object for symbols it prices but does not cover, which yields an
// Overview with every field absent.
func (a *AlphaVantage) FetchOverview(ctx context.Context, symbol string) (*Overview, error) {
	var resp map[string]json.RawMessage
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	if err := a.query(ctx, symbol, params, &resp); err != nil {
		return nil, err
	}

	overview := &Overview{
		PERatio: parseField(rawString(resp["PERatio"])),
		EPS:     parseField(rawString(resp["EPS"])),
		Beta:    parseField(rawString(resp["Beta"])),
	}
	if roe := parseField(rawString(resp["ReturnOnEquityTTM"])); roe.Valid {
		overview.ROE = decimal.NewNullDecimal(roe.Decimal.Mul(decimal.NewFromInt(100)))
	}
	return overview, nil
}

type newsSentimentResponse struct {
	Feed []struct {
		TickerSentiment []struct {
			Ticker string `json:"ticker"`
			Score  string `json:"ticker_sentiment_score"`
		} `json:"ticker_sentiment"`
	} `json:"feed"`
}

// FetchSentiment averages the per-ticker sentiment of recent headlines.
// No matching articles yields an absent score.
func (a *AlphaVantage) FetchSentiment(ctx context.Context, symbol string) (decimal.NullDecimal, error) {
	var resp newsSentimentResponse
	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("tickers", symbol)
	params.Set("limit", sentimentArticleLimit)
	if err := a.query(ctx, symbol, params, &resp); err != nil {
		return decimal.NullDecimal{}, err
	}

	sum := decimal.Zero
	n := 0
	for _, article := range resp.Feed {
		for _, ts := range article.TickerSentiment {
			if !strings.EqualFold(ts.Ticker, symbol) {
				continue
			}
			if score := parseField(ts.Score); score.Valid {
				sum = sum.Add(score.Decimal)
				n++
			}
		}
	}
	if n == 0 {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(n))).Round(4)), nil
}

// query performs one GET and decodes the body into result after checking
// the provider's in-band error fields.
func (a *AlphaVantage) query(ctx context.Context, symbol string, params url.Values, result interface{}) error {
	function := params.Get("function")
	params.Set("apikey", a.apiKey)
	reqURL := a.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.NewTransientFetch(symbol, fmt.Errorf("failed to create request: %w", err))
	}

	a.log.Debug().Str("function", function).Str("symbol", symbol).Msg("Alpha Vantage request")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.NewTransientFetch(symbol, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewTransientFetch(symbol, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return models.NewTransientFetch(symbol, &APIError{StatusCode: resp.StatusCode, Message: msg, Function: function})
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.NewTransientFetch(symbol, fmt.Errorf("failed to decode response: %w", err))
	}
	if raw, ok := envelope["Error Message"]; ok {
		return models.NewSymbolNotFound(symbol, errors.New(rawString(raw)))
	}
	for _, key := range []string{"Note", "Information"} {
		if raw, ok := envelope[key]; ok {
			return models.NewTransientFetch(symbol, &RateLimitError{Message: rawString(raw)})
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return models.NewTransientFetch(symbol, fmt.Errorf("failed to decode %s: %w", function, err))
	}
	return nil
}

// parseField converts a provider string to a decimal. The provider uses
// "None", "-" and empty strings for unknown values.
func parseField(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "none", "-", "n/a", "nan":
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
