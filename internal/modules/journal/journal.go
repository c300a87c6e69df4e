package journal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// Journal records committed ledger changes and daily results. All methods
// are best-effort: failures are logged, never returned to the caller.
type Journal struct {
	repo  *Repository
	md    *MarkdownWriter
	clock domain.Clock
	log   zerolog.Logger
}

// New creates a journal. Either sink may be nil.
func New(repo *Repository, md *MarkdownWriter, clock domain.Clock, log zerolog.Logger) *Journal {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Journal{
		repo:  repo,
		md:    md,
		clock: clock,
		log:   log.With().Str("service", "journal").Logger(),
	}
}

// OnTrade implements ledger.Listener
func (j *Journal) OnTrade(ctx context.Context, strategyID string, trade domain.Trade, l *ledger.Ledger) {
	if j.repo != nil {
		if _, err := j.repo.InsertTrade(ctx, strategyID, trade); err != nil {
			j.log.Error().Err(err).Str("strategy", strategyID).Str("trade_id", trade.ID).Msg("Failed to journal trade")
		}
	}

	if j.md != nil {
		var holdDays *int
		if trade.Type == domain.TradeTypeSell {
			holdDays = HoldDays(l, trade)
		}
		if err := j.md.WriteTrade(strategyID, trade, holdDays); err != nil {
			j.log.Error().Err(err).Str("strategy", strategyID).Msg("Failed to write trade to markdown journal")
		}
	}
}

// OnReset implements ledger.Listener
func (j *Journal) OnReset(ctx context.Context, strategyID string, l *ledger.Ledger) {
	now := j.clock.Now()
	if j.repo != nil {
		detail := fmt.Sprintf("seed=%d", l.Seed)
		if err := j.repo.InsertEvent(ctx, strategyID, "reset", detail); err != nil {
			j.log.Error().Err(err).Str("strategy", strategyID).Msg("Failed to journal reset")
		}
	}
	if j.md != nil {
		if err := j.md.WriteReset(strategyID, l.Seed, now); err != nil {
			j.log.Error().Err(err).Str("strategy", strategyID).Msg("Failed to write reset to markdown journal")
		}
	}
}

// RecordDaily journals an end-of-day comparison
func (j *Journal) RecordDaily(ctx context.Context, entry DailyEntry) {
	if entry.Date.IsZero() {
		entry.Date = j.clock.Now()
	}
	if j.repo != nil {
		if err := j.repo.InsertDaily(ctx, entry); err != nil {
			j.log.Error().Err(err).Msg("Failed to journal daily entry")
		}
	}
	if j.md != nil {
		if err := j.md.WriteDaily(entry); err != nil {
			j.log.Error().Err(err).Msg("Failed to write daily entry to markdown journal")
		}
	}
}

// HoldDays returns whole days between the position's buy date and the sell,
// or nil when the buy date is unknown.
func HoldDays(l *ledger.Ledger, trade domain.Trade) *int {
	if l == nil {
		return nil
	}
	h, ok := l.Holdings[trade.Ticker]
	if !ok || h.BuyDate.IsZero() {
		return nil
	}
	days := int(trade.Date.Sub(h.BuyDate.Time).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}
