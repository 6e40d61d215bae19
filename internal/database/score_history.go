package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// DefaultHistoryLimit caps GetScoreHistory when no limit is given
const DefaultHistoryLimit = 30

// SaveAnalysis records a successful analysis pass: the stock row is
// updated and a history row appended in one transaction. The row must
// already exist; a symbol removed since the pass started yields ErrNotFound
// and nothing is written.
func (db *DB) SaveAnalysis(ctx context.Context, rec *models.StockRecord, snap *models.ScoreSnapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrPersistence, err)
	}
	defer tx.Rollback()

	update := `
		UPDATE stocks SET
			current_price = $2, pe_ratio = $3, eps = $4, roe = $5, rsi = $6, macd = $7,
			volatility = $8, beta = $9, sentiment_score = $10,
			analyst_ratings_strong_buy = $11, analyst_ratings_buy = $12, analyst_ratings_hold = $13,
			analyst_ratings_sell = $14, analyst_ratings_strong_sell = $15, analyst_data_date = $16,
			total_score = $17, last_analyzed_at = $18, updated_at = $19
		WHERE symbol = $1
		RETURNING added_at, updated_at
	`
	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, update, stockArgs(rec, now)...).Scan(&rec.AddedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: stock %s", models.ErrNotFound, rec.Symbol)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to save analysis: %w", ErrPersistence, err)
	}

	if snap != nil {
		breakdown, err := json.Marshal(snap.Breakdown)
		if err != nil {
			return fmt.Errorf("%w: failed to encode breakdown: %w", ErrPersistence, err)
		}
		insert := `
			INSERT INTO score_history (symbol, total_score, breakdown, current_price, analyzed_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, insert,
			rec.Symbol, snap.TotalScore, string(breakdown), snap.CurrentPrice, snap.AnalyzedAt,
		).Scan(&snap.ID)
		if err != nil {
			return fmt.Errorf("%w: failed to record score history: %w", ErrPersistence, err)
		}
		snap.Symbol = rec.Symbol
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit analysis: %w", ErrPersistence, err)
	}
	return nil
}

// GetScoreHistory returns the most recent snapshots for symbol, newest first
func (db *DB) GetScoreHistory(ctx context.Context, symbol string, limit int) ([]*models.ScoreSnapshot, error) {
	symbol, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, symbol, total_score, breakdown, current_price, analyzed_at
		FROM score_history
		WHERE symbol = $1
		ORDER BY analyzed_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get score history: %w", ErrPersistence, err)
	}
	defer rows.Close()

	history := []*models.ScoreSnapshot{}
	for rows.Next() {
		var s models.ScoreSnapshot
		var breakdown []byte
		if err := rows.Scan(&s.ID, &s.Symbol, &s.TotalScore, &breakdown, &s.CurrentPrice, &s.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan score history: %w", ErrPersistence, err)
		}
		if err := json.Unmarshal(breakdown, &s.Breakdown); err != nil {
			return nil, fmt.Errorf("%w: failed to decode breakdown: %w", ErrPersistence, err)
		}
		history = append(history, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to get score history: %w", ErrPersistence, err)
	}
	return history, nil
}
