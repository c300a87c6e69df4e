// Package metrics holds the Prometheus collectors of the engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics
type Registry struct {
	registry *prometheus.Registry

	// Ledger activity
	Trades      *prometheus.CounterVec
	StopLosses  *prometheus.CounterVec
	LedgerCash  *prometheus.GaugeVec
	ReturnPct   *prometheus.GaugeVec
	TotalAssets prometheus.Gauge

	// Gateway
	GatewayCalls   *prometheus.CounterVec
	GatewayLatency *prometheus.HistogramVec

	// Scheduling
	ActionDuration *prometheus.HistogramVec
	ActionErrors   *prometheus.CounterVec
}

// NewRegistry creates a registry with all collectors registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrader_trades_total",
				Help: "Ledger trades recorded by strategy and side",
			},
			[]string{"strategy", "side"},
		),

		StopLosses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrader_stop_loss_total",
				Help: "Positions liquidated by the stop-loss monitor",
			},
			[]string{"strategy"},
		),

		LedgerCash: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "papertrader_ledger_cash",
				Help: "Cash held by each strategy ledger",
			},
			[]string{"strategy"},
		),

		ReturnPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "papertrader_strategy_return_pct",
				Help: "Return against seed from the latest comparison report",
			},
			[]string{"strategy"},
		),

		TotalAssets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "papertrader_total_assets",
				Help: "Total assets across all strategies from the latest report",
			},
		),

		GatewayCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrader_gateway_calls_total",
				Help: "Market data gateway calls by operation and result",
			},
			[]string{"operation", "result"},
		),

		GatewayLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papertrader_gateway_latency_seconds",
				Help:    "Market data gateway call latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papertrader_action_duration_seconds",
				Help:    "Duration of scheduled trading-day actions",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"action"},
		),

		ActionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrader_action_errors_total",
				Help: "Scheduled trading-day actions that returned an error",
			},
			[]string{"action"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Trades,
		r.StopLosses,
		r.LedgerCash,
		r.ReturnPct,
		r.TotalAssets,
		r.GatewayCalls,
		r.GatewayLatency,
		r.ActionDuration,
		r.ActionErrors,
	)
	return r
}

// Handler returns the /metrics handler for this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveGatewayCall records one gateway call
func (r *Registry) ObserveGatewayCall(operation string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.GatewayCalls.WithLabelValues(operation, result).Inc()
	r.GatewayLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveAction records one scheduled action
func (r *Registry) ObserveAction(action string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.ActionDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
	if err != nil {
		r.ActionErrors.WithLabelValues(action).Inc()
	}
}
