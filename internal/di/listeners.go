package di

import (
	"context"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/metrics"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// eventListener publishes ledger changes on the event bus
type eventListener struct {
	events *events.Manager
}

func (l eventListener) OnTrade(_ context.Context, strategyID string, trade domain.Trade, led *ledger.Ledger) {
	data := &events.TradeExecutedData{
		StrategyID: strategyID,
		TradeID:    trade.ID,
		Side:       string(trade.Type),
		Ticker:     trade.Ticker,
		Shares:     trade.Shares,
		Price:      trade.Price,
		Reason:     trade.Reason,
		CashAfter:  led.Cash,
	}
	if trade.Profit != nil {
		data.Profit = *trade.Profit
	}
	l.events.Emit("ledger", data)
}

func (l eventListener) OnReset(_ context.Context, strategyID string, led *ledger.Ledger) {
	l.events.Emit("ledger", &events.LedgerResetData{StrategyID: strategyID, Seed: led.Seed})
}

// metricsListener keeps ledger collectors current
type metricsListener struct {
	metrics *metrics.Registry
}

func (l metricsListener) OnTrade(_ context.Context, strategyID string, trade domain.Trade, led *ledger.Ledger) {
	l.metrics.Trades.WithLabelValues(strategyID, string(trade.Type)).Inc()
	if trade.Reason == domain.ReasonStopLoss {
		l.metrics.StopLosses.WithLabelValues(strategyID).Inc()
	}
	l.metrics.LedgerCash.WithLabelValues(strategyID).Set(float64(led.Cash))
}

func (l metricsListener) OnReset(_ context.Context, strategyID string, led *ledger.Ledger) {
	l.metrics.LedgerCash.WithLabelValues(strategyID).Set(float64(led.Cash))
}
