package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// ManualBuy buys shares of a ticker for one strategy at the live quote.
// The order is refused, not clamped, when cash does not cover it.
func (c *Coordinator) ManualBuy(ctx context.Context, strategyID, ticker string, shares int64) (domain.Trade, error) {
	e, ok := c.Find(strategyID)
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	if ticker == "" || shares <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: buy %d %q", domain.ErrInvalidOrder, shares, ticker)
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	if _, err := c.deps.Ledgers.Ensure(e.Meta); err != nil {
		return domain.Trade{}, fmt.Errorf("failed to load ledger %s: %w", strategyID, err)
	}
	price, err := c.quote(ctx, ticker)
	if err != nil {
		return domain.Trade{}, err
	}

	trade, err := c.deps.Ledgers.Buy(ctx, strategyID, ledger.BuyOrder{
		Ticker: ticker,
		Name:   c.instrumentName(ticker),
		Shares: shares,
		Price:  price,
		Reason: domain.ReasonManual,
	})
	if err != nil {
		return domain.Trade{}, err
	}

	c.log.Info().Str("strategy", strategyID).Str("ticker", ticker).Int64("shares", shares).Msg("Manual buy")
	c.deps.Alerts.Notify(ctx, "buy", fmt.Sprintf("%s manual buy: %s", e.Meta.Name, trade.Name),
		domain.AlertField{Key: "Ticker", Value: trade.Ticker},
		domain.AlertField{Key: "Shares", Value: fmt.Sprintf("%d x %d", trade.Shares, trade.Price)},
		domain.AlertField{Key: "Amount", Value: fmt.Sprintf("%d", trade.Amount)},
	)
	return trade, nil
}

// ManualSell sells shares of a held ticker at the live quote
func (c *Coordinator) ManualSell(ctx context.Context, strategyID, ticker string, shares int64) (domain.Trade, error) {
	e, ok := c.Find(strategyID)
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	if ticker == "" || shares <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: sell %d %q", domain.ErrInvalidOrder, shares, ticker)
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	l, err := c.deps.Ledgers.Get(strategyID)
	if err != nil {
		return domain.Trade{}, err
	}
	if h := l.Holdings[ticker]; h.Shares < shares {
		return domain.Trade{}, fmt.Errorf("%w: want %d %s, hold %d", domain.ErrInsufficientShares, shares, ticker, h.Shares)
	}

	price, err := c.quote(ctx, ticker)
	if err != nil {
		return domain.Trade{}, err
	}

	trade, err := c.deps.Ledgers.Sell(ctx, strategyID, ledger.SellOrder{
		Ticker: ticker,
		Shares: shares,
		Price:  price,
		Reason: domain.ReasonManual,
	})
	if err != nil {
		return domain.Trade{}, err
	}

	c.log.Info().Str("strategy", strategyID).Str("ticker", ticker).Int64("shares", shares).Msg("Manual sell")
	c.deps.Alerts.Notify(ctx, "sell", fmt.Sprintf("%s manual sell: %s", e.Meta.Name, trade.Name),
		domain.AlertField{Key: "Ticker", Value: trade.Ticker},
		domain.AlertField{Key: "Shares", Value: fmt.Sprintf("%d x %d", trade.Shares, trade.Price)},
		domain.AlertField{Key: "Profit", Value: fmt.Sprintf("%+.0f (%+.2f%%)", *trade.Profit, *trade.ProfitRate)},
	)
	return trade, nil
}

// History returns a strategy's trades newest first. A positive limit keeps
// only that many.
func (c *Coordinator) History(strategyID string, limit int) ([]domain.Trade, error) {
	if _, ok := c.Find(strategyID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}

	l, err := c.deps.Ledgers.Get(strategyID)
	if errors.Is(err, domain.ErrLedgerNotFound) {
		return []domain.Trade{}, nil
	}
	if err != nil {
		return nil, err
	}

	n := len(l.Trades)
	if limit > 0 && limit < n {
		n = limit
	}
	trades := make([]domain.Trade, 0, n)
	for i := len(l.Trades) - 1; i >= 0 && len(trades) < n; i-- {
		trades = append(trades, l.Trades[i])
	}
	return trades, nil
}

func (c *Coordinator) quote(ctx context.Context, ticker string) (int64, error) {
	if c.deps.Prices == nil {
		return 0, fmt.Errorf("%w: no price gateway", domain.ErrDataUnavailable)
	}
	price, err := c.deps.Prices.GetCurrentPrice(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", ticker, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: no price for %s", domain.ErrDataUnavailable, ticker)
	}
	return price, nil
}

// instrumentName looks the ticker up in the latest snapshot
func (c *Coordinator) instrumentName(ticker string) string {
	md, err := c.deps.MarketData.Latest()
	if err != nil {
		return ticker
	}
	if inst, ok := md.Find(ticker); ok && inst.Name != "" {
		return inst.Name
	}
	return ticker
}
