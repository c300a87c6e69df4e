package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aristath/papertrader/internal/database"
	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

func setupJournalDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.ApplySchema(db, "journal"))
	return db
}

func fptr(v float64) *float64 { return &v }

var day = time.Date(2025, 3, 10, 9, 2, 0, 0, time.UTC)

func buyTrade() domain.Trade {
	return domain.Trade{
		ID:     "t-1",
		Type:   domain.TradeTypeBuy,
		Ticker: "005930",
		Name:   "Samsung Electronics",
		Shares: 10,
		Price:  70000,
		Amount: 700000,
		Date:   domain.NewTimestamp(day),
		Reason: "Strong 1M momentum",
	}
}

func sellTrade() domain.Trade {
	return domain.Trade{
		ID:         "t-2",
		Type:       domain.TradeTypeSell,
		Ticker:     "005930",
		Name:       "Samsung Electronics",
		Shares:     10,
		Price:      65000,
		Amount:     650000,
		Date:       domain.NewTimestamp(day.Add(72 * time.Hour)),
		Profit:     fptr(-50000),
		ProfitRate: fptr(-7.14),
		Reason:     domain.ReasonStopLoss,
	}
}

func TestRepository_InsertTradeIsIdempotent(t *testing.T) {
	repo := NewRepository(setupJournalDB(t), zerolog.Nop())
	ctx := context.Background()

	inserted, err := repo.InsertTrade(ctx, "dual_momentum", buyTrade())
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertTrade(ctx, "dual_momentum", buyTrade())
	require.NoError(t, err)
	assert.False(t, inserted, "replayed trade id must not create a second row")

	_, err = repo.InsertTrade(ctx, "dual_momentum", sellTrade())
	require.NoError(t, err)

	records, err := repo.ListTrades(ctx, "dual_momentum", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "BUY", records[0].Side)
	assert.Nil(t, records[0].Profit)
	assert.True(t, day.Equal(records[0].ExecutedAt))

	assert.Equal(t, "SELL", records[1].Side)
	require.NotNil(t, records[1].Profit)
	assert.InDelta(t, -50000.0, *records[1].Profit, 1e-9)
	assert.InDelta(t, -7.14, *records[1].ProfitRate, 1e-9)

	limited, err := repo.ListTrades(ctx, "dual_momentum", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	other, err := repo.ListTrades(ctx, "value_investing", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepository_InsertTradeRequiresID(t *testing.T) {
	repo := NewRepository(setupJournalDB(t), zerolog.Nop())
	trade := buyTrade()
	trade.ID = ""

	_, err := repo.InsertTrade(context.Background(), "dual_momentum", trade)
	assert.Error(t, err)
}

func TestRepository_InsertDaily(t *testing.T) {
	repo := NewRepository(setupJournalDB(t), zerolog.Nop())
	ctx := context.Background()

	entry := DailyEntry{
		Date:        day,
		TotalSeed:   50000000,
		TotalAssets: 51000000,
		Strategies: []StrategyResult{
			{ID: "value_investing", Name: "Value", ReturnPct: 3.0},
			{ID: "dual_momentum", Name: "Momentum", ReturnPct: 1.0},
		},
	}
	require.NoError(t, repo.InsertDaily(ctx, entry))

	n, err := repo.CountDaily(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var leader string
	require.NoError(t, repo.db.QueryRow(`SELECT leader FROM journal_daily`).Scan(&leader))
	assert.Equal(t, "value_investing", leader)
}

func TestRenderTrade(t *testing.T) {
	buy := RenderTrade("dual_momentum", buyTrade(), nil)
	assert.Contains(t, buy, "## BUY | 2025-03-10 09:02 | dual_momentum | Samsung Electronics (005930)")
	assert.Contains(t, buy, "| Price | 70,000 KRW |")
	assert.Contains(t, buy, "| Amount | 700,000 KRW |")
	assert.Contains(t, buy, "Strong 1M momentum")

	days := 3
	sell := RenderTrade("dual_momentum", sellTrade(), &days)
	assert.Contains(t, sell, "## SELL")
	assert.Contains(t, sell, "| Realized | -50,000 KRW (-7.14%) |")
	assert.Contains(t, sell, "| Held | 3 days |")
	assert.Contains(t, sell, "Stop-loss triggered")
}

func TestSellReason(t *testing.T) {
	assert.Equal(t, "Stop-loss triggered", SellReason(domain.ReasonStopLoss))
	assert.Equal(t, "Rebalance", SellReason(domain.ReasonRebalance))
	assert.Equal(t, "Manual sell", SellReason(""))
	assert.Equal(t, "Manual sell", SellReason(domain.ReasonManual))
	assert.Equal(t, "Take profit", SellReason("Take profit"))
}

func TestJournal_WritesBothSinks(t *testing.T) {
	db := setupJournalDB(t)
	repo := NewRepository(db, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "TRADING_JOURNAL.md")
	clock := domain.ClockFunc(func() time.Time { return day })
	j := New(repo, NewMarkdownWriter(path), clock, zerolog.Nop())
	ctx := context.Background()

	l := ledger.New(25000000, day)
	l.Holdings["005930"] = domain.Holding{Shares: 0, AvgPrice: 70000, Name: "Samsung Electronics", BuyDate: domain.NewTimestamp(day)}

	j.OnTrade(ctx, "dual_momentum", buyTrade(), l)
	j.OnTrade(ctx, "dual_momentum", sellTrade(), l)
	j.OnReset(ctx, "dual_momentum", l)
	j.RecordDaily(ctx, DailyEntry{TotalSeed: 25000000, TotalAssets: 24950000, OverallProfit: -50000, OverallReturnPct: -0.2})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# Paper Trading Journal")
	assert.Contains(t, text, "## BUY")
	assert.Contains(t, text, "| Held | 3 days |")
	assert.Contains(t, text, "## RESET | 2025-03-10 09:02 | dual_momentum")
	assert.Contains(t, text, "## DAILY | 2025-03-10")
	assert.Contains(t, text, "| Profit | -50,000 KRW (-0.20%) |")

	records, err := repo.ListTrades(ctx, "dual_momentum", 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	var events int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM journal_events WHERE kind = 'reset'`).Scan(&events))
	assert.Equal(t, 1, events)
}

func TestJournal_NilSinks(t *testing.T) {
	j := New(nil, nil, nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		j.OnTrade(context.Background(), "x", buyTrade(), nil)
		j.OnReset(context.Background(), "x", ledger.New(1, day))
		j.RecordDaily(context.Background(), DailyEntry{})
	})
}

func TestHoldDays(t *testing.T) {
	assert.Nil(t, HoldDays(nil, sellTrade()))

	l := ledger.New(1000, day)
	assert.Nil(t, HoldDays(l, sellTrade()))

	l.Holdings["005930"] = domain.Holding{BuyDate: domain.NewTimestamp(day)}
	got := HoldDays(l, sellTrade())
	require.NotNil(t, got)
	assert.Equal(t, 3, *got)
}
