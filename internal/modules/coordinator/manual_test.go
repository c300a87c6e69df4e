package coordinator

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
)

func TestCoordinator_ManualBuyAndSell(t *testing.T) {
	f := newFixture(t, []Entry{{Meta: meta("s", 100000, -7), Strategy: &fixedStrategy{}}})
	ctx := context.Background()

	bought, err := f.coord.ManualBuy(ctx, "s", "AAA", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeTypeBuy, bought.Type)
	assert.Equal(t, int64(1000), bought.Price)
	assert.Equal(t, domain.ReasonManual, bought.Reason)
	assert.Equal(t, "AAA", bought.Name)

	f.prices.prices["AAA"] = 1200
	sold, err := f.coord.ManualSell(ctx, "s", "AAA", 4)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeTypeSell, sold.Type)
	assert.Equal(t, domain.ReasonManual, sold.Reason)
	require.NotNil(t, sold.Profit)
	assert.InDelta(t, 800.0, *sold.Profit, 1e-9)

	l, err := f.ledgers.Get("s")
	require.NoError(t, err)
	assert.Equal(t, int64(100000-10000+4800), l.Cash)
	assert.Equal(t, int64(6), l.Holdings["AAA"].Shares)
	assert.Equal(t, 1000.0, l.Holdings["AAA"].AvgPrice)

	assert.Contains(t, f.alerts.events, "buy")
	assert.Contains(t, f.alerts.events, "sell")
}

func TestCoordinator_ManualOrdersRefused(t *testing.T) {
	f := newFixture(t, []Entry{{Meta: meta("s", 5000, -7), Strategy: &fixedStrategy{}}})
	ctx := context.Background()

	_, err := f.coord.ManualBuy(ctx, "nope", "AAA", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)

	_, err = f.coord.ManualBuy(ctx, "s", "AAA", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = f.coord.ManualBuy(ctx, "s", "AAA", 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientCash)

	_, err = f.coord.ManualBuy(ctx, "s", "ZZZ", 1)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = f.coord.ManualSell(ctx, "s", "AAA", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	l, err := f.ledgers.Get("s")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), l.Cash)
	assert.Empty(t, l.Trades)
}

func TestCoordinator_HistoryNewestFirst(t *testing.T) {
	f := newFixture(t, []Entry{{Meta: meta("s", 100000, -7), Strategy: &fixedStrategy{}}})
	ctx := context.Background()

	_, err := f.coord.ManualBuy(ctx, "s", "AAA", 1)
	require.NoError(t, err)
	_, err = f.coord.ManualBuy(ctx, "s", "BBB", 1)
	require.NoError(t, err)
	_, err = f.coord.ManualSell(ctx, "s", "AAA", 1)
	require.NoError(t, err)

	trades, err := f.coord.History("s", 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, domain.TradeTypeSell, trades[0].Type)
	assert.Equal(t, "BBB", trades[1].Ticker)

	trades, err = f.coord.History("s", 1)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	_, err = f.coord.History("nope", 0)
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestCoordinator_StatusValuesOneStrategy(t *testing.T) {
	f := newFixture(t, []Entry{{Meta: meta("s", 100000, -7), Strategy: &fixedStrategy{}}})
	ctx := context.Background()

	_, err := f.coord.ManualBuy(ctx, "s", "BBB", 5)
	require.NoError(t, err)

	status, err := f.coord.Status(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(90000), status.Cash)
	assert.Equal(t, int64(100000), status.TotalAssets)
	require.Len(t, status.Holdings, 1)
	assert.Equal(t, "BBB", status.Holdings[0].Ticker)

	_, err = f.coord.Status(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestCoordinator_CompareDoesNotCreateLedgers(t *testing.T) {
	f := newFixture(t, []Entry{{Meta: meta("s", 100000, -7), Strategy: &fixedStrategy{}}})
	f.coord.entries = append(f.coord.entries, Entry{Meta: meta("late", 50000, -3), Strategy: &fixedStrategy{}})

	summary, err := f.coord.Compare(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Strategies, 2)
	assert.Equal(t, int64(150000), summary.TotalSeed)
	assert.Equal(t, int64(150000), summary.TotalAssets)

	_, err = os.Stat(f.ledgers.Path("late"))
	assert.True(t, os.IsNotExist(err), "comparison must not persist a ledger")

	_, err = f.coord.Status(context.Background(), "late")
	require.NoError(t, err)
	_, err = os.Stat(f.ledgers.Path("late"))
	assert.True(t, os.IsNotExist(err))
}
