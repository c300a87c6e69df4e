package marketdata

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
)

type fakeGateway struct {
	mu    sync.Mutex
	bars  map[string]domain.PriceSeries
	calls int
}

func (g *fakeGateway) GetCurrentPrice(_ context.Context, ticker string) (int64, error) {
	return 0, domain.ErrDataUnavailable
}

func (g *fakeGateway) GetDailyBars(_ context.Context, ticker string, days int) (domain.PriceSeries, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	bars, ok := g.bars[ticker]
	if !ok {
		return nil, domain.ErrDataUnavailable
	}
	return bars, nil
}

var start = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

// newestFirst mirrors how the broker API returns daily rows
func newestFirst(closes ...float64) domain.PriceSeries {
	series := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		series[len(closes)-1-i] = domain.Bar{Date: start.AddDate(0, 0, i), Close: c}
	}
	return series
}

func TestService_RefreshNormalizesAndSkips(t *testing.T) {
	gw := &fakeGateway{bars: map[string]domain.PriceSeries{
		"005930": newestFirst(100, 0, 102, 103),
		"000660": newestFirst(0, 0),
	}}
	now := time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
	cache := NewSnapshotCache(filepath.Join(t.TempDir(), "market_data.msgpack"))
	em := events.NewManager(zerolog.Nop())
	sub, cancel := em.Subscribe()
	defer cancel()

	svc := NewService(gw, cache,
		[]domain.Instrument{{Ticker: "005930", Name: "Samsung"}, {Ticker: "000660", Name: "Hynix"}, {Ticker: "035420", Name: "Naver"}},
		0, domain.ClockFunc(func() time.Time { return now }), em, zerolog.Nop())

	md, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, md.Instruments, 1)
	assert.Equal(t, []float64{100, 102, 103}, md.Instruments[0].Bars.Closes())
	assert.Equal(t, "Samsung", md.Instruments[0].Name)
	assert.Equal(t, now, md.FetchedAt)

	ev := <-sub
	assert.Equal(t, events.MarketDataRefreshed, ev.Type)
	data := ev.Data.(*events.MarketDataRefreshedData)
	assert.Equal(t, 1, data.Instruments)
	assert.Equal(t, 2, data.Skipped)

	cached, err := cache.Load()
	require.NoError(t, err)
	last, ok := cached.LatestClose("005930")
	require.True(t, ok)
	assert.Equal(t, int64(103), last)
}

func TestService_RefreshFailsWhenNothingFetched(t *testing.T) {
	svc := NewService(&fakeGateway{}, nil, []domain.Instrument{{Ticker: "005930"}}, 30, nil, nil, zerolog.Nop())

	_, err := svc.Refresh(context.Background())
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}

func TestService_LatestFallsBackToCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market_data.msgpack")
	cache := NewSnapshotCache(path)

	svc := NewService(&fakeGateway{}, cache, nil, 30, nil, nil, zerolog.Nop())
	_, err := svc.Latest()
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	require.NoError(t, cache.Save(&domain.MarketData{
		FetchedAt:   start,
		Instruments: []domain.InstrumentData{{Instrument: domain.Instrument{Ticker: "069500"}, Bars: newestFirst(10).Normalized()}},
	}))

	md, err := svc.Latest()
	require.NoError(t, err)
	_, ok := md.Find("069500")
	assert.True(t, ok)
}

func TestService_TodayReusesSameDaySnapshot(t *testing.T) {
	gw := &fakeGateway{bars: map[string]domain.PriceSeries{"005930": newestFirst(1, 2, 3)}}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	svc := NewService(gw, nil, []domain.Instrument{{Ticker: "005930"}}, 30, clock, nil, zerolog.Nop())

	_, err := svc.Today(context.Background())
	require.NoError(t, err)
	_, err = svc.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)

	now = now.AddDate(0, 0, 1)
	_, err = svc.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.calls)
}
