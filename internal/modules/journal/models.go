// Package journal keeps an append-only record of trades and daily results,
// both in SQLite and in a human-readable Markdown file.
package journal

import "time"

// StrategyResult is one strategy's line in a daily entry
type StrategyResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Seed        int64   `json:"seed"`
	TotalAssets int64   `json:"total_assets"`
	Profit      int64   `json:"profit"`
	ReturnPct   float64 `json:"return_pct"`
	Holdings    int     `json:"holdings"`
}

// DailyEntry is the end-of-day comparison across strategies
type DailyEntry struct {
	Date             time.Time        `json:"date"`
	TotalSeed        int64            `json:"total_seed"`
	TotalAssets      int64            `json:"total_assets"`
	OverallProfit    int64            `json:"overall_profit"`
	OverallReturnPct float64          `json:"overall_return_pct"`
	Strategies       []StrategyResult `json:"strategies"`
}

// Leader returns the id of the first-ranked strategy, or "" when empty
func (e DailyEntry) Leader() string {
	if len(e.Strategies) == 0 {
		return ""
	}
	return e.Strategies[0].ID
}

// TradeRecord is a journaled trade row
type TradeRecord struct {
	ID         string
	StrategyID string
	Side       string
	Ticker     string
	Name       string
	Shares     int64
	Price      int64
	Amount     int64
	Profit     *float64
	ProfitRate *float64
	Reason     string
	ExecutedAt time.Time
}
