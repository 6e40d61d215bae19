// Package analyst loads the static analyst-rating dataset and serves lookups
// from memory for the lifetime of the process.
package analyst

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// Column names of the analyst CSV
const (
	ColSymbol         = "symbol"
	ColAnalysisDate   = "analysis_date"
	ColStrongBuy      = "analyst_ratings_strong_buy"
	ColBuy            = "analyst_ratings_buy"
	ColHold           = "analyst_ratings_hold"
	ColSell           = "analyst_ratings_sell"
	ColStrongSell     = "analyst_ratings_strong_sell"
	ColRSI            = "rsi"
	ColMACD           = "macd"
	ColVolatility     = "volatility"
	ColSentimentScore = "sentiment_score"
	ColBeta           = "beta"
)

var requiredColumns = []string{ColSymbol, ColStrongBuy, ColBuy, ColHold, ColSell, ColStrongSell}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

// Row is one symbol's entry in the dataset
type Row struct {
	Ratings    models.RatingCounts
	Technicals models.TechnicalFallback
}

// Dataset is an immutable symbol -> row lookup
type Dataset struct {
	rows    map[string]Row
	skipped int
}

// Lookup returns the rating counts for symbol, all zero when the symbol is not in the dataset
func (d *Dataset) Lookup(symbol string) models.RatingCounts {
	if d == nil {
		return models.RatingCounts{}
	}
	return d.rows[strings.ToUpper(symbol)].Ratings
}

// Indicators returns the optional technical columns for symbol
func (d *Dataset) Indicators(symbol string) (models.TechnicalFallback, bool) {
	if d == nil {
		return models.TechnicalFallback{}, false
	}
	row, ok := d.rows[strings.ToUpper(symbol)]
	return row.Technicals, ok
}

// Len returns the number of symbols loaded
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Skipped returns the number of malformed rows dropped during load
func (d *Dataset) Skipped() int {
	if d == nil {
		return 0
	}
	return d.skipped
}

// Load reads the dataset from a CSV file. A missing file yields an empty
// dataset so the service can still score on market metrics alone.
func Load(path string, log zerolog.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Analyst data file not found, continuing with empty dataset")
		return &Dataset{rows: map[string]Row{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open analyst data: %w", err)
	}
	defer f.Close()

	d, err := Parse(f, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("symbols", d.Len()).Int("skipped", d.Skipped()).Msg("Loaded analyst data")
	return d, nil
}

// Parse reads the dataset from CSV content with a header row. Malformed
// rows are logged and skipped; only an unusable header is an error.
func Parse(r io.Reader, log zerolog.Logger) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Dataset{rows: map[string]Row{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analyst data header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("analyst data missing required column %q", col)
		}
	}

	d := &Dataset{rows: make(map[string]Row)}
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			d.skipped++
			log.Warn().Err(err).Int("line", line).Msg("Skipping unreadable analyst row")
			continue
		}

		symbol, row, err := parseRow(record, index)
		if err != nil {
			d.skipped++
			log.Warn().Err(err).Int("line", line).Msg("Skipping malformed analyst row")
			continue
		}
		if _, dup := d.rows[symbol]; dup {
			log.Warn().Str("symbol", symbol).Int("line", line).Msg("Duplicate analyst row, keeping the later one")
		}
		d.rows[symbol] = row
	}

	return d, nil
}

func parseRow(record []string, index map[string]int) (string, Row, error) {
	field := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	symbol, err := models.NormalizeSymbol(field(ColSymbol))
	if err != nil {
		return "", Row{}, err
	}

	var row Row
	counts := []struct {
		col string
		dst *int
	}{
		{ColStrongBuy, &row.Ratings.StrongBuy},
		{ColBuy, &row.Ratings.Buy},
		{ColHold, &row.Ratings.Hold},
		{ColSell, &row.Ratings.Sell},
		{ColStrongSell, &row.Ratings.StrongSell},
	}
	for _, c := range counts {
		n, err := parseCount(field(c.col))
		if err != nil {
			return "", Row{}, fmt.Errorf("%s: %w", c.col, err)
		}
		*c.dst = n
	}

	optionals := []struct {
		col string
		dst *decimal.NullDecimal
	}{
		{ColRSI, &row.Technicals.RSI},
		{ColMACD, &row.Technicals.MACD},
		{ColVolatility, &row.Technicals.Volatility},
		{ColSentimentScore, &row.Technicals.SentimentScore},
		{ColBeta, &row.Technicals.Beta},
	}
	for _, o := range optionals {
		v, err := parseOptional(field(o.col))
		if err != nil {
			return "", Row{}, fmt.Errorf("%s: %w", o.col, err)
		}
		*o.dst = v
	}

	if raw := field(ColAnalysisDate); raw != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				row.Technicals.AnalysisDate = &t
				break
			}
		}
	}

	return symbol, row, nil
}

// parseCount accepts non-negative integers; an empty cell counts as 0.
// Whole-number floats such as "12.0" are accepted as exported by pandas.
func parseCount(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %q", raw)
	}
	return int(f), nil
}

func parseOptional(raw string) (decimal.NullDecimal, error) {
	switch strings.ToLower(raw) {
	case "", "nan", "none", "null", "-":
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid number %q", raw)
	}
	return decimal.NewNullDecimal(d), nil
}
