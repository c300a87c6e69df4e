package stoploss

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

type stubPrices struct {
	prices map[string]int64
	calls  map[string]int
}

func (s *stubPrices) GetCurrentPrice(_ context.Context, ticker string) (int64, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[ticker]++
	price, ok := s.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrDataUnavailable, ticker)
	}
	return price, nil
}

type recordingAlerts struct {
	events []string
}

func (r *recordingAlerts) Notify(_ context.Context, event string, _ string, _ ...domain.AlertField) {
	r.events = append(r.events, event)
}

func newLedgers(t *testing.T, metas ...domain.StrategyMeta) *ledger.Service {
	t.Helper()
	store, err := ledger.NewFileStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	svc := ledger.NewService(store, nil, zerolog.Nop())
	for _, meta := range metas {
		_, err := svc.Ensure(meta)
		require.NoError(t, err)
	}
	return svc
}

func TestSweep_LiquidatesAtThreshold(t *testing.T) {
	meta := domain.StrategyMeta{ID: "dual_momentum", Name: "Dual Momentum", Seed: 25_000_000, StopLossPct: -7}
	ledgers := newLedgers(t, meta)
	ctx := context.Background()

	_, err := ledgers.Buy(ctx, meta.ID, ledger.BuyOrder{Ticker: "A", Name: "Alpha", Shares: 10, Price: 1000})
	require.NoError(t, err)
	before, err := ledgers.Get(meta.ID)
	require.NoError(t, err)

	prices := &stubPrices{prices: map[string]int64{"A": 920}}
	alerts := &recordingAlerts{}
	monitor := NewMonitor(ledgers, prices, alerts, zerolog.Nop())

	liquidations, err := monitor.Sweep(ctx, meta)
	require.NoError(t, err)
	require.Len(t, liquidations, 1)
	assert.InDelta(t, -8.0, liquidations[0].ChangePct, 1e-9)

	after, err := ledgers.Get(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Cash+9_200, after.Cash)
	assert.Equal(t, int64(0), after.Holdings["A"].Shares)
	require.Len(t, after.Trades, 2)

	sell := after.Trades[1]
	assert.Equal(t, domain.TradeTypeSell, sell.Type)
	assert.Equal(t, domain.ReasonStopLoss, sell.Reason)
	assert.Equal(t, int64(10), sell.Shares)
	require.NotNil(t, sell.Profit)
	assert.InDelta(t, -800.0, *sell.Profit, 1e-9)

	assert.Equal(t, []string{"stop_loss"}, alerts.events)
}

func TestSweep_ThresholdIsInclusiveAndPerStrategy(t *testing.T) {
	testCases := []struct {
		name      string
		threshold float64
		price     int64
		sold      bool
	}{
		{"exactly at threshold", -5, 950, true},
		{"just above threshold", -5, 951, false},
		{"gain", -5, 1100, false},
		{"tight scalping threshold", -3, 969, true},
		{"loose news threshold", -8, 930, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			meta := domain.StrategyMeta{ID: "s", Seed: 100_000, StopLossPct: tc.threshold}
			ledgers := newLedgers(t, meta)
			ctx := context.Background()
			_, err := ledgers.Buy(ctx, "s", ledger.BuyOrder{Ticker: "A", Shares: 10, Price: 1000})
			require.NoError(t, err)

			monitor := NewMonitor(ledgers, &stubPrices{prices: map[string]int64{"A": tc.price}}, nil, zerolog.Nop())
			liquidations, err := monitor.Sweep(ctx, meta)
			require.NoError(t, err)
			assert.Equal(t, tc.sold, len(liquidations) == 1)
		})
	}
}

func TestSweep_UnavailablePriceIsSkipped(t *testing.T) {
	meta := domain.StrategyMeta{ID: "s", Seed: 100_000, StopLossPct: -5}
	ledgers := newLedgers(t, meta)
	ctx := context.Background()
	_, err := ledgers.Buy(ctx, "s", ledger.BuyOrder{Ticker: "A", Shares: 10, Price: 1000})
	require.NoError(t, err)
	_, err = ledgers.Buy(ctx, "s", ledger.BuyOrder{Ticker: "B", Shares: 10, Price: 1000})
	require.NoError(t, err)

	monitor := NewMonitor(ledgers, &stubPrices{prices: map[string]int64{"B": 500}}, nil, zerolog.Nop())
	liquidations, err := monitor.Sweep(ctx, meta)
	require.NoError(t, err)
	require.Len(t, liquidations, 1)
	assert.Equal(t, "B", liquidations[0].Ticker)

	l, err := ledgers.Get("s")
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.Holdings["A"].Shares)
}

func TestSweepAll_FetchesEachTickerOnce(t *testing.T) {
	metas := []domain.StrategyMeta{
		{ID: "one", Seed: 100_000, StopLossPct: -7},
		{ID: "two", Seed: 100_000, StopLossPct: -5},
		{ID: "missing", Seed: 100_000, StopLossPct: -5},
	}
	ledgers := newLedgers(t, metas[0], metas[1])
	ctx := context.Background()
	for _, id := range []string{"one", "two"} {
		_, err := ledgers.Buy(ctx, id, ledger.BuyOrder{Ticker: "A", Shares: 10, Price: 1000})
		require.NoError(t, err)
	}

	prices := &stubPrices{prices: map[string]int64{"A": 940}}
	monitor := NewMonitor(ledgers, prices, nil, zerolog.Nop())

	liquidations := monitor.SweepAll(ctx, metas)
	require.Len(t, liquidations, 1, "-6% breaches -5 but not -7")
	assert.Equal(t, "two", liquidations[0].StrategyID)
	assert.Equal(t, 1, prices.calls["A"])
}
