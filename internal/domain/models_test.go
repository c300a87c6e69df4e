package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceSeries_NormalizedOrdersOldestFirst(t *testing.T) {
	newestFirst := PriceSeries{
		{Date: day(5), Close: 105},
		{Date: day(4), Close: 0},
		{Date: day(3), Close: 103},
		{Date: day(2), Close: 102},
	}

	got := newestFirst.Normalized()

	assert.Equal(t, []float64{102, 103, 105}, got.Closes())
	assert.Equal(t, 105.0, newestFirst[0].Close, "input must not be mutated")

	last, ok := got.Last()
	require.True(t, ok)
	assert.Equal(t, day(5), last.Date)
}

func TestMarketData_LatestClose(t *testing.T) {
	md := &MarketData{Instruments: []InstrumentData{
		{Instrument: Instrument{Ticker: "005930", Name: "Samsung"}, Bars: PriceSeries{{Date: day(1), Close: 70000}, {Date: day(2), Close: 71500}}},
		{Instrument: Instrument{Ticker: "000660", Name: "Hynix"}},
	}}

	price, ok := md.LatestClose("005930")
	assert.True(t, ok)
	assert.Equal(t, int64(71500), price)

	_, ok = md.LatestClose("000660")
	assert.False(t, ok)

	_, ok = md.LatestClose("missing")
	assert.False(t, ok)

	var nilData *MarketData
	_, ok = nilData.LatestClose("005930")
	assert.False(t, ok)
}

func TestTimestamp_AcceptsLegacyLayouts(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"rfc3339", `"2026-02-25T09:01:00+09:00"`},
		{"iso without zone", `"2026-02-25T09:01:00.123456"`},
		{"space separated", `"2026-02-25 09:01:00"`},
		{"date only", `"2026-02-25"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &ts))
			assert.Equal(t, 2026, ts.Year())
			assert.Equal(t, time.February, ts.Month())
			assert.Equal(t, 25, ts.Day())
		})
	}

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestTimestamp_MarshalsRFC3339(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	ts := NewTimestamp(time.Date(2026, 2, 25, 9, 1, 0, 0, loc))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-02-25T09:01:00+09:00"`, string(data))

	empty, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(empty))
}

func TestAllocation_JSONFlattensCandidate(t *testing.T) {
	a := Allocation{
		Candidate: Candidate{Ticker: "005930", Price: 1000, Indicators: Indicators{IndicatorRSI: nil}},
		Weight:    0.5,
		Shares:    3,
	}
	assert.Equal(t, int64(3000), a.Cost())

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "005930", raw["ticker"])
	assert.Contains(t, raw["indicators"], IndicatorRSI)
	assert.Nil(t, raw["indicators"].(map[string]interface{})[IndicatorRSI])
}

func TestTrade_PreservesUnknownFields(t *testing.T) {
	raw := `{"type": "SELL", "ticker": "069500", "name": "KODEX 200", "shares": 3, "price": 900,
		"amount": 2700, "date": "2026-02-25 10:00:00", "profit": -300, "reason": "STOP_LOSS",
		"strategy": "dual_momentum", "note": {"by": "desk"}}`

	var trade Trade
	require.NoError(t, json.Unmarshal([]byte(raw), &trade))
	assert.Equal(t, TradeTypeSell, trade.Type)
	assert.Equal(t, int64(2700), trade.Amount)
	require.Len(t, trade.Extra, 2)
	assert.JSONEq(t, `"dual_momentum"`, string(trade.Extra["strategy"]))

	out, err := json.Marshal(trade)
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "dual_momentum", back["strategy"])
	assert.Equal(t, map[string]interface{}{"by": "desk"}, back["note"])
	assert.Equal(t, "STOP_LOSS", back["reason"])
}

func TestHolding_WithoutExtrasHasNilExtra(t *testing.T) {
	var h Holding
	require.NoError(t, json.Unmarshal([]byte(`{"shares": 1, "avg_price": 10, "name": "x", "buy_date": "2026-02-25"}`), &h))
	assert.Nil(t, h.Extra)

	out, err := json.Marshal(h)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Extra")
}

func TestMergeExtra_DeclaredFieldsWin(t *testing.T) {
	out, err := MergeExtra([]byte(`{"shares":2}`), Extra{"shares": json.RawMessage(`9`), "sector": json.RawMessage(`"tech"`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"shares":2,"sector":"tech"}`, string(out))
}
