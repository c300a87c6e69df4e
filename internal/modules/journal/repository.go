package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
)

// Repository persists journal rows. It only ever inserts.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a journal repository over an already-migrated database
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "journal").Logger(),
	}
}

// InsertTrade records a trade. Replays of the same trade id are ignored;
// the returned bool reports whether a row was written.
func (r *Repository) InsertTrade(ctx context.Context, strategyID string, trade domain.Trade) (bool, error) {
	if trade.ID == "" {
		return false, fmt.Errorf("trade has no id")
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO journal_trades
		(id, strategy_id, side, ticker, name, shares, price, amount, profit, profit_rate, reason, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trade.ID,
		strategyID,
		string(trade.Type),
		trade.Ticker,
		trade.Name,
		trade.Shares,
		trade.Price,
		trade.Amount,
		nullFloat(trade.Profit),
		nullFloat(trade.ProfitRate),
		trade.Reason,
		trade.Date.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert journal trade %s: %w", trade.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// InsertDaily records an end-of-day entry
func (r *Repository) InsertDaily(ctx context.Context, entry DailyEntry) error {
	payload, err := json.Marshal(entry.Strategies)
	if err != nil {
		return fmt.Errorf("failed to encode daily strategies: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO journal_daily
		(date, total_seed, total_assets, overall_return_pct, leader, summary_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Date.Format("2006-01-02"),
		entry.TotalSeed,
		entry.TotalAssets,
		entry.OverallReturnPct,
		entry.Leader(),
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert daily entry: %w", err)
	}
	return nil
}

// InsertEvent records a non-trade ledger event such as a reset
func (r *Repository) InsertEvent(ctx context.Context, strategyID, kind, detail string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_events (strategy_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, strategyID, kind, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert journal event: %w", err)
	}
	return nil
}

// ListTrades returns a strategy's journaled trades, oldest first.
// A limit <= 0 returns all rows.
func (r *Repository) ListTrades(ctx context.Context, strategyID string, limit int) ([]TradeRecord, error) {
	query := `SELECT id, strategy_id, side, ticker, name, shares, price, amount, profit, profit_rate, reason, executed_at
		FROM journal_trades WHERE strategy_id = ? ORDER BY executed_at ASC, rowid ASC`
	args := []interface{}{strategyID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal trades: %w", err)
	}
	defer rows.Close()

	var records []TradeRecord
	for rows.Next() {
		var (
			rec        TradeRecord
			profit     sql.NullFloat64
			profitRate sql.NullFloat64
			executedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.StrategyID, &rec.Side, &rec.Ticker, &rec.Name,
			&rec.Shares, &rec.Price, &rec.Amount, &profit, &profitRate, &rec.Reason, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal trade: %w", err)
		}
		if profit.Valid {
			rec.Profit = &profit.Float64
		}
		if profitRate.Valid {
			rec.ProfitRate = &profitRate.Float64
		}
		if ts, err := domain.ParseTimestamp(executedAt); err == nil {
			rec.ExecutedAt = ts.Time
		} else {
			r.log.Warn().Str("id", rec.ID).Str("executed_at", executedAt).Msg("Unparseable journal timestamp")
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal trades: %w", err)
	}
	return records, nil
}

// CountDaily returns how many daily entries exist for a date (YYYY-MM-DD)
func (r *Repository) CountDaily(ctx context.Context, date string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_daily WHERE date = ?`, date).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count daily entries: %w", err)
	}
	return n, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
