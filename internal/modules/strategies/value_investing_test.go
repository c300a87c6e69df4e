package strategies

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
)

func TestValueInvesting_FiltersAndScores(t *testing.T) {
	s := NewValueInvesting(DefaultValueInvestingConfig())
	md := &domain.MarketData{Instruments: []domain.InstrumentData{
		instrument("111111", "Growth ETF", series(steadyCompounder(70))),
		instrument("222222", "Falling ETF", series(declining(70))),
		instrument("333333", "New listing", series(steadyCompounder(10))),
	}}

	candidates := s.Analyze(md)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "111111", c.Ticker)
	// m3 score 3 + rsi score 0 + vol score ~0.50 + sharpe score 2 + m1 score 1
	assert.InDelta(t, 6.50, c.Score, 0.02)
	assert.Contains(t, c.Reason, "3M return")
	assert.Contains(t, c.Reason, "; ")
	assert.NotContains(t, c.Reason, "dividend")

	rsi := c.Indicators.Get(domain.IndicatorRSI)
	require.NotNil(t, rsi)
	assert.InDelta(t, 77.88, *rsi, 0.01)
}

func TestValueInvesting_StableBonus(t *testing.T) {
	s := NewValueInvesting(DefaultValueInvestingConfig())
	bars := series(steadyCompounder(70))
	md := &domain.MarketData{Instruments: []domain.InstrumentData{
		instrument("111111", "Growth ETF", bars),
		instrument("069500", "KODEX 200", bars),
		instrument("222222", "TIGER 고배당", bars),
		instrument("333333", "Global Dividend Fund", bars),
	}}

	candidates := s.Analyze(md)
	require.Len(t, candidates, 4)

	byTicker := map[string]domain.Candidate{}
	for _, c := range candidates {
		byTicker[c.Ticker] = c
	}
	base := byTicker["111111"].Score
	for _, ticker := range []string{"069500", "222222", "333333"} {
		assert.InDelta(t, base+1.0, byTicker[ticker].Score, 1e-9, ticker)
		assert.True(t, strings.HasSuffix(byTicker[ticker].Reason, "dividend/stable ETF preference"))
	}
	assert.Equal(t, "111111", candidates[3].Ticker, "no bonus ranks last")
}

func TestValueInvesting_AllocateCapsWithoutRenormalizing(t *testing.T) {
	s := NewValueInvesting(DefaultValueInvestingConfig())
	candidates := []domain.Candidate{
		{Ticker: "A", Price: 1000, Score: 6},
		{Ticker: "B", Price: 1000, Score: 3},
		{Ticker: "C", Price: 1000, Score: 1},
		{Ticker: "D", Price: 1000, Score: 0.5},
	}

	allocations := s.Allocate(candidates, 25_000_000)
	require.Len(t, allocations, 3, "top three only")

	var allocated int64
	for _, a := range allocations {
		assert.LessOrEqual(t, a.Weight, 0.40)
		allocated += a.AllocCash
	}
	assert.Equal(t, int64(20_000_000), allocated)

	assert.Nil(t, s.Allocate(candidates, 0))
	assert.Nil(t, s.Allocate(nil, 25_000_000))
}

func TestValueInvesting_AllocateReportsDeployedWeight(t *testing.T) {
	s := NewValueInvesting(DefaultValueInvestingConfig())
	candidates := []domain.Candidate{
		{Ticker: "A", Price: 30_000, Score: 6},
		{Ticker: "B", Price: 30_000, Score: 3},
		{Ticker: "C", Price: 30_000, Score: 1},
	}

	allocations := s.Allocate(candidates, 1_000_000)
	require.Len(t, allocations, 3)

	// 400,000 buys 13 shares = 390,000
	assert.Equal(t, int64(13), allocations[0].Shares)
	assert.InDelta(t, 0.40, allocations[0].Weight, 1e-9)
	assert.Equal(t, 39.0, allocations[0].WeightPct)
	assert.Equal(t, 30.0, allocations[1].WeightPct)
	assert.Equal(t, 9.0, allocations[2].WeightPct)
}
