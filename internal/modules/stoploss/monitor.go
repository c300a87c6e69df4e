// Package stoploss liquidates positions whose loss against average cost
// reaches the strategy's threshold.
package stoploss

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// LedgerService is the subset of ledger.Service the monitor needs
type LedgerService interface {
	Get(strategyID string) (*ledger.Ledger, error)
	Sell(ctx context.Context, strategyID string, order ledger.SellOrder) (domain.Trade, error)
}

// PriceFetcher returns the current price of an instrument
type PriceFetcher interface {
	GetCurrentPrice(ctx context.Context, ticker string) (int64, error)
}

// Liquidation describes one stop-loss sale
type Liquidation struct {
	StrategyID string       `json:"strategy_id"`
	Ticker     string       `json:"ticker"`
	Name       string       `json:"name"`
	Shares     int64        `json:"shares"`
	AvgPrice   float64      `json:"avg_price"`
	Price      int64        `json:"price"`
	ChangePct  float64      `json:"change_pct"`
	Trade      domain.Trade `json:"trade"`
}

// Monitor checks open positions against per-strategy thresholds
type Monitor struct {
	ledgers LedgerService
	prices  PriceFetcher
	alerts  domain.AlertSink
	log     zerolog.Logger
}

// NewMonitor creates a stop-loss monitor
func NewMonitor(ledgers LedgerService, prices PriceFetcher, alerts domain.AlertSink, log zerolog.Logger) *Monitor {
	if alerts == nil {
		alerts = domain.NopAlertSink{}
	}
	return &Monitor{
		ledgers: ledgers,
		prices:  prices,
		alerts:  alerts,
		log:     log.With().Str("service", "stop_loss").Logger(),
	}
}

// SweepAll runs Sweep for every strategy, fetching each ticker's price at most
// once. A failing strategy is logged and does not stop the others.
func (m *Monitor) SweepAll(ctx context.Context, metas []domain.StrategyMeta) []Liquidation {
	cache := &priceCache{fetcher: m.prices, prices: map[string]cachedPrice{}}

	var all []Liquidation
	for _, meta := range metas {
		liquidations, err := m.sweep(ctx, meta, cache)
		if err != nil {
			m.log.Error().Err(err).Str("strategy", meta.ID).Msg("Stop-loss sweep failed")
		}
		all = append(all, liquidations...)
	}
	return all
}

// Sweep sells, in full, every holding of the strategy whose change against
// average cost is at or below the strategy's threshold. Holdings whose price
// is unavailable are skipped for this sweep.
func (m *Monitor) Sweep(ctx context.Context, meta domain.StrategyMeta) ([]Liquidation, error) {
	return m.sweep(ctx, meta, &priceCache{fetcher: m.prices, prices: map[string]cachedPrice{}})
}

func (m *Monitor) sweep(ctx context.Context, meta domain.StrategyMeta, cache *priceCache) ([]Liquidation, error) {
	l, err := m.ledgers.Get(meta.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	var liquidations []Liquidation
	for _, ticker := range l.OpenTickers() {
		if err := ctx.Err(); err != nil {
			return liquidations, err
		}

		h := l.Holdings[ticker]
		if h.AvgPrice <= 0 {
			continue
		}

		price, err := cache.get(ctx, ticker)
		if err != nil {
			m.log.Warn().Err(err).Str("strategy", meta.ID).Str("ticker", ticker).Msg("Price unavailable, skipping stop-loss check")
			continue
		}

		changePct := (float64(price) - h.AvgPrice) / h.AvgPrice * 100
		if changePct > meta.StopLossPct {
			continue
		}

		trade, err := m.ledgers.Sell(ctx, meta.ID, ledger.SellOrder{
			Ticker: ticker,
			Shares: h.Shares,
			Price:  price,
			Reason: domain.ReasonStopLoss,
		})
		if err != nil {
			m.log.Error().Err(err).Str("strategy", meta.ID).Str("ticker", ticker).Msg("Stop-loss sell failed")
			continue
		}

		liq := Liquidation{
			StrategyID: meta.ID,
			Ticker:     ticker,
			Name:       h.Name,
			Shares:     h.Shares,
			AvgPrice:   h.AvgPrice,
			Price:      price,
			ChangePct:  changePct,
			Trade:      trade,
		}
		liquidations = append(liquidations, liq)

		m.log.Warn().
			Str("strategy", meta.ID).
			Str("ticker", ticker).
			Float64("change_pct", changePct).
			Float64("threshold", meta.StopLossPct).
			Msg("Stop-loss triggered")
		m.alert(ctx, meta, liq)
	}

	return liquidations, nil
}

func (m *Monitor) alert(ctx context.Context, meta domain.StrategyMeta, liq Liquidation) {
	profit := 0.0
	if liq.Trade.Profit != nil {
		profit = *liq.Trade.Profit
	}
	m.alerts.Notify(ctx, "stop_loss", fmt.Sprintf("Stop-loss: %s", liq.Name),
		domain.AlertField{Key: "Strategy", Value: meta.Name},
		domain.AlertField{Key: "Ticker", Value: liq.Ticker},
		domain.AlertField{Key: "Shares", Value: fmt.Sprintf("%d", liq.Shares)},
		domain.AlertField{Key: "Average cost", Value: fmt.Sprintf("%.0f", liq.AvgPrice)},
		domain.AlertField{Key: "Price", Value: fmt.Sprintf("%d", liq.Price)},
		domain.AlertField{Key: "Change", Value: fmt.Sprintf("%+.2f%% (threshold %.1f%%)", liq.ChangePct, meta.StopLossPct)},
		domain.AlertField{Key: "Realized", Value: fmt.Sprintf("%+.0f", profit)},
	)
}

type cachedPrice struct {
	price int64
	err   error
}

type priceCache struct {
	fetcher PriceFetcher
	prices  map[string]cachedPrice
}

func (c *priceCache) get(ctx context.Context, ticker string) (int64, error) {
	if cached, ok := c.prices[ticker]; ok {
		return cached.price, cached.err
	}

	price, err := c.fetcher.GetCurrentPrice(ctx, ticker)
	if err == nil && price <= 0 {
		err = fmt.Errorf("%w: non-positive price for %s", domain.ErrDataUnavailable, ticker)
	}
	// cancelled lookups are not cached
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.prices[ticker] = cachedPrice{price: price, err: err}
	}
	return price, err
}
