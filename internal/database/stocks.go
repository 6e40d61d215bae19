package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// ErrPersistence is re-exported so callers of this package need not import models
var ErrPersistence = models.ErrPersistence

const stockColumns = `
	symbol, current_price, pe_ratio, eps, roe, rsi, macd, volatility, beta, sentiment_score,
	analyst_ratings_strong_buy, analyst_ratings_buy, analyst_ratings_hold,
	analyst_ratings_sell, analyst_ratings_strong_sell, analyst_data_date,
	total_score, last_analyzed_at, added_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (*models.StockRecord, error) {
	var s models.StockRecord
	var analystDate, lastAnalyzed sql.NullTime

	err := row.Scan(
		&s.Symbol, &s.CurrentPrice, &s.PERatio, &s.EPS, &s.ROE, &s.RSI, &s.MACD,
		&s.Volatility, &s.Beta, &s.SentimentScore,
		&s.AnalystRatingsStrongBuy, &s.AnalystRatingsBuy, &s.AnalystRatingsHold,
		&s.AnalystRatingsSell, &s.AnalystRatingsStrongSell, &analystDate,
		&s.TotalScore, &lastAnalyzed, &s.AddedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if analystDate.Valid {
		s.AnalystDataDate = &analystDate.Time
	}
	if lastAnalyzed.Valid {
		s.LastAnalyzedAt = &lastAnalyzed.Time
	}
	return &s, nil
}

// AddStock starts tracking symbol with an empty, never-analyzed record
func (db *DB) AddStock(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO stocks (symbol, added_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (symbol) DO NOTHING
		RETURNING added_at, updated_at
	`
	rec := models.NewStockRecord(symbol)
	err = db.conn.QueryRowContext(ctx, query, symbol, time.Now().UTC()).Scan(&rec.AddedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrDuplicateSymbol, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to add stock: %w", ErrPersistence, err)
	}
	return rec, nil
}

// RemoveStock stops tracking symbol. Its score history goes with it.
func (db *DB) RemoveStock(ctx context.Context, symbol string) error {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM stocks WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("%w: failed to remove stock: %w", ErrPersistence, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to remove stock: %w", ErrPersistence, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: stock %s", models.ErrNotFound, symbol)
	}
	return nil
}

// GetStock retrieves one tracked stock by symbol
func (db *DB) GetStock(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + stockColumns + ` FROM stocks WHERE symbol = $1`
	rec, err := scanStock(db.conn.QueryRowContext(ctx, query, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: stock %s", models.ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get stock: %w", ErrPersistence, err)
	}
	return rec, nil
}

// ListStocks returns every tracked stock ordered by symbol, analyzed or not
func (db *DB) ListStocks(ctx context.Context) ([]*models.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stocks ORDER BY symbol ASC`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list stocks: %w", ErrPersistence, err)
	}
	defer rows.Close()

	stocks := []*models.StockRecord{}
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan stock: %w", ErrPersistence, err)
		}
		stocks = append(stocks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list stocks: %w", ErrPersistence, err)
	}
	return stocks, nil
}

// ListSymbols returns the tracked symbols ordered alphabetically
func (db *DB) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT symbol FROM stocks ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list symbols: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("%w: failed to scan symbol: %w", ErrPersistence, err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list symbols: %w", ErrPersistence, err)
	}
	return symbols, nil
}

// UpsertStock inserts rec or overwrites every mutable column of the existing row
func (db *DB) UpsertStock(ctx context.Context, rec *models.StockRecord) error {
	symbol, err := models.NormalizeSymbol(rec.Symbol)
	if err != nil {
		return err
	}
	rec.Symbol = symbol

	query := `
		INSERT INTO stocks (
			symbol, current_price, pe_ratio, eps, roe, rsi, macd, volatility, beta, sentiment_score,
			analyst_ratings_strong_buy, analyst_ratings_buy, analyst_ratings_hold,
			analyst_ratings_sell, analyst_ratings_strong_sell, analyst_data_date,
			total_score, last_analyzed_at, added_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		ON CONFLICT (symbol) DO UPDATE SET
			current_price = EXCLUDED.current_price,
			pe_ratio = EXCLUDED.pe_ratio,
			eps = EXCLUDED.eps,
			roe = EXCLUDED.roe,
			rsi = EXCLUDED.rsi,
			macd = EXCLUDED.macd,
			volatility = EXCLUDED.volatility,
			beta = EXCLUDED.beta,
			sentiment_score = EXCLUDED.sentiment_score,
			analyst_ratings_strong_buy = EXCLUDED.analyst_ratings_strong_buy,
			analyst_ratings_buy = EXCLUDED.analyst_ratings_buy,
			analyst_ratings_hold = EXCLUDED.analyst_ratings_hold,
			analyst_ratings_sell = EXCLUDED.analyst_ratings_sell,
			analyst_ratings_strong_sell = EXCLUDED.analyst_ratings_strong_sell,
			analyst_data_date = EXCLUDED.analyst_data_date,
			total_score = EXCLUDED.total_score,
			last_analyzed_at = EXCLUDED.last_analyzed_at,
			updated_at = EXCLUDED.updated_at
		RETURNING added_at, updated_at
	`
	now := time.Now().UTC()
	err = db.conn.QueryRowContext(ctx, query, stockArgs(rec, now)...).Scan(&rec.AddedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert stock: %w", ErrPersistence, err)
	}
	return nil
}

func stockArgs(rec *models.StockRecord, now time.Time) []interface{} {
	return []interface{}{
		rec.Symbol, rec.CurrentPrice, rec.PERatio, rec.EPS, rec.ROE, rec.RSI, rec.MACD,
		rec.Volatility, rec.Beta, rec.SentimentScore,
		rec.AnalystRatingsStrongBuy, rec.AnalystRatingsBuy, rec.AnalystRatingsHold,
		rec.AnalystRatingsSell, rec.AnalystRatingsStrongSell, nullTime(rec.AnalystDataDate),
		rec.TotalScore, nullTime(rec.LastAnalyzedAt), now,
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
