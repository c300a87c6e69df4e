// Package domain provides the core types shared by the strategy models,
// the portfolio ledger and the coordinator.
package domain

import (
	"sort"
	"time"
)

// Bar is one daily OHLCV record
type Bar struct {
	Date   time.Time `json:"date" msgpack:"date"`
	Open   float64   `json:"open" msgpack:"open"`
	High   float64   `json:"high" msgpack:"high"`
	Low    float64   `json:"low" msgpack:"low"`
	Close  float64   `json:"close" msgpack:"close"`
	Volume int64     `json:"volume" msgpack:"volume"`
}

// PriceSeries is a daily bar series. Gateways may deliver it in either
// orientation; Normalized always yields oldest to newest.
type PriceSeries []Bar

// Normalized returns a copy ordered oldest to newest with non-positive
// closes removed. Bars sharing a date keep their relative order.
func (s PriceSeries) Normalized() PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, b := range s {
		if b.Close > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Closes returns the closing prices in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar of a normalized series
func (s PriceSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Instrument is a watchlist entry
type Instrument struct {
	Ticker string `json:"ticker" yaml:"ticker" msgpack:"ticker"`
	Name   string `json:"name" yaml:"name" msgpack:"name"`
}

// InstrumentData pairs an instrument with its normalized bars
type InstrumentData struct {
	Instrument
	Bars PriceSeries `json:"bars" msgpack:"bars"`
}

// MarketData is the shared snapshot every strategy analyzes in one cycle.
// Instruments keep watchlist order so ranking ties are deterministic.
type MarketData struct {
	FetchedAt   time.Time        `json:"fetched_at" msgpack:"fetched_at"`
	Instruments []InstrumentData `json:"instruments" msgpack:"instruments"`
}

// Find returns the data for a ticker
func (m *MarketData) Find(ticker string) (InstrumentData, bool) {
	if m == nil {
		return InstrumentData{}, false
	}
	for _, inst := range m.Instruments {
		if inst.Ticker == ticker {
			return inst, true
		}
	}
	return InstrumentData{}, false
}

// LatestClose returns the most recent close for a ticker, if present
func (m *MarketData) LatestClose(ticker string) (int64, bool) {
	inst, ok := m.Find(ticker)
	if !ok {
		return 0, false
	}
	bar, ok := inst.Bars.Last()
	if !ok {
		return 0, false
	}
	return int64(bar.Close), true
}

// Indicator names used in Candidate.Indicators
const (
	IndicatorMA5         = "ma5"
	IndicatorMA20        = "ma20"
	IndicatorMomentum1M  = "momentum_1m"
	IndicatorMomentum3M  = "momentum_3m"
	IndicatorRSI         = "rsi"
	IndicatorVolatility  = "volatility"
	IndicatorSharpe      = "sharpe"
	IndicatorMaxDrawdown = "max_drawdown"
	IndicatorMAGap       = "ma_gap"
)

// Indicators maps indicator names to values; nil marks an unavailable value
type Indicators map[string]*float64

// Get returns the indicator value, or nil when missing or unavailable
func (i Indicators) Get(name string) *float64 {
	if i == nil {
		return nil
	}
	return i[name]
}

// Candidate is one scored instrument produced by a strategy's analysis
type Candidate struct {
	Ticker     string     `json:"ticker"`
	Name       string     `json:"name"`
	Price      int64      `json:"price"`
	Score      float64    `json:"score"`
	TrendOK    bool       `json:"trend_ok"`
	Reason     string     `json:"reason"`
	Indicators Indicators `json:"indicators"`
}

// Allocation is a candidate with its target weight and whole-share quantity
type Allocation struct {
	Candidate
	Weight    float64 `json:"weight"`
	WeightPct float64 `json:"weight_pct"`
	AllocCash int64   `json:"alloc_cash"`
	Shares    int64   `json:"shares"`
}

// Cost returns the cash needed to fill the allocation
func (a Allocation) Cost() int64 {
	return a.Shares * a.Price
}

// TradeType is the side of a ledger trade
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// Sell reasons recorded on SELL trades
const (
	ReasonStopLoss  = "STOP_LOSS"
	ReasonRebalance = "REBALANCE"
	ReasonManual    = "MANUAL"
)

// Trade is one append-only ledger entry
type Trade struct {
	ID         string    `json:"id,omitempty"`
	Type       TradeType `json:"type"`
	Ticker     string    `json:"ticker"`
	Name       string    `json:"name"`
	Shares     int64     `json:"shares"`
	Price      int64     `json:"price"`
	Amount     int64     `json:"amount"`
	Date       Timestamp `json:"date"`
	Profit     *float64  `json:"profit,omitempty"`
	ProfitRate *float64  `json:"profit_rate,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	StrategyID string    `json:"strategy_id,omitempty"`
	Extra      Extra     `json:"-"`
}

// Holding is an open position in a ledger. AvgPrice is the cash-weighted
// average cost of the shares still held.
type Holding struct {
	Shares   int64     `json:"shares"`
	AvgPrice float64   `json:"avg_price"`
	Name     string    `json:"name"`
	BuyDate  Timestamp `json:"buy_date"`
	Extra    Extra     `json:"-"`
}

// CostBasis returns AvgPrice × Shares
func (h Holding) CostBasis() float64 {
	return h.AvgPrice * float64(h.Shares)
}

// StrategyMeta is the static description of one configured strategy
type StrategyMeta struct {
	ID          string  `json:"id"`
	Model       string  `json:"model"`
	Name        string  `json:"name"`
	Seed        int64   `json:"seed"`
	StopLossPct float64 `json:"stop_loss_pct"`
}
