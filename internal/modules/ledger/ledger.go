// Package ledger implements the per-strategy paper portfolio: a JSON document
// holding cash, open positions and an append-only trade history.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/pkg/formulas"
)

// Ledger is the persisted portfolio document of one strategy.
// Fields it does not know about are carried through unchanged on rewrite.
type Ledger struct {
	Cash     int64                     `json:"cash"`
	Holdings map[string]domain.Holding `json:"holdings"`
	Trades   []domain.Trade            `json:"trades"`
	Seed     int64                     `json:"seed"`
	Created  domain.Timestamp          `json:"created"`

	extra domain.Extra
}

var knownKeys = []string{"cash", "holdings", "trades", "seed", "created"}

// New creates a ledger funded with seed cash
func New(seed int64, created time.Time) *Ledger {
	return &Ledger{
		Cash:     seed,
		Holdings: map[string]domain.Holding{},
		Trades:   []domain.Trade{},
		Seed:     seed,
		Created:  domain.NewTimestamp(created),
	}
}

// MarshalJSON writes the known fields merged with any preserved unknown ones
func (l Ledger) MarshalJSON() ([]byte, error) {
	type document Ledger
	doc := document(l)
	if doc.Holdings == nil {
		doc.Holdings = map[string]domain.Holding{}
	}
	if doc.Trades == nil {
		doc.Trades = []domain.Trade{}
	}

	base, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return domain.MergeExtra(base, l.extra)
}

// UnmarshalJSON reads the known fields and keeps the rest aside
func (l *Ledger) UnmarshalJSON(data []byte) error {
	type document Ledger
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	extra, err := domain.SplitExtra(data, knownKeys...)
	if err != nil {
		return err
	}

	*l = Ledger(doc)
	l.extra = extra
	if l.Holdings == nil {
		l.Holdings = map[string]domain.Holding{}
	}
	return nil
}

// Extra returns a preserved unknown field
func (l *Ledger) Extra(key string) (json.RawMessage, bool) {
	v, ok := l.extra[key]
	return v, ok
}

// HasOpenPositions reports whether any holding has shares
func (l *Ledger) HasOpenPositions() bool {
	for _, h := range l.Holdings {
		if h.Shares > 0 {
			return true
		}
	}
	return false
}

// OpenTickers returns the tickers with shares, sorted
func (l *Ledger) OpenTickers() []string {
	tickers := make([]string, 0, len(l.Holdings))
	for ticker, h := range l.Holdings {
		if h.Shares > 0 {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}

// CostBasis sums AvgPrice × Shares over all holdings
func (l *Ledger) CostBasis() float64 {
	total := 0.0
	for _, h := range l.Holdings {
		total += h.CostBasis()
	}
	return total
}

// RealizedProfit sums the profit of every recorded sell
func (l *Ledger) RealizedProfit() float64 {
	total := 0.0
	for _, t := range l.Trades {
		if t.Profit != nil {
			total += *t.Profit
		}
	}
	return total
}

// BuyOrder is a request to add shares at a price
type BuyOrder struct {
	Ticker string
	Name   string
	Shares int64
	Price  int64
	Reason string
}

// SellOrder is a request to remove shares at a price
type SellOrder struct {
	Ticker string
	Shares int64
	Price  int64
	Reason string
}

// stamp carries the identity assigned to a new trade
type stamp struct {
	ID         string
	At         time.Time
	StrategyID string
}

// applyBuy debits cash, averages the cost into the holding and appends a BUY
func (l *Ledger) applyBuy(order BuyOrder, st stamp) (domain.Trade, error) {
	if order.Ticker == "" || order.Shares <= 0 || order.Price <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: buy %d %s @ %d", domain.ErrInvalidOrder, order.Shares, order.Ticker, order.Price)
	}

	cost := order.Shares * order.Price
	if cost > l.Cash {
		return domain.Trade{}, fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientCash, cost, l.Cash)
	}

	l.Cash -= cost
	h, exists := l.Holdings[order.Ticker]
	if exists && h.Shares > 0 {
		total := h.Shares + order.Shares
		h.AvgPrice = (h.AvgPrice*float64(h.Shares) + float64(cost)) / float64(total)
		h.Shares = total
		if order.Name != "" {
			h.Name = order.Name
		}
	} else {
		h = domain.Holding{
			Shares:   order.Shares,
			AvgPrice: float64(order.Price),
			Name:     order.Name,
			BuyDate:  domain.NewTimestamp(st.At),
			Extra:    h.Extra,
		}
	}
	if l.Holdings == nil {
		l.Holdings = map[string]domain.Holding{}
	}
	l.Holdings[order.Ticker] = h

	trade := domain.Trade{
		ID:         st.ID,
		Type:       domain.TradeTypeBuy,
		Ticker:     order.Ticker,
		Name:       h.Name,
		Shares:     order.Shares,
		Price:      order.Price,
		Amount:     cost,
		Date:       domain.NewTimestamp(st.At),
		Reason:     order.Reason,
		StrategyID: st.StrategyID,
	}
	l.Trades = append(l.Trades, trade)
	return trade, nil
}

// applySell credits cash, books profit against the average cost and appends a SELL.
// The average cost of the remaining shares is unchanged.
func (l *Ledger) applySell(order SellOrder, st stamp) (domain.Trade, error) {
	if order.Ticker == "" || order.Shares <= 0 || order.Price <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: sell %d %s @ %d", domain.ErrInvalidOrder, order.Shares, order.Ticker, order.Price)
	}

	h, exists := l.Holdings[order.Ticker]
	if !exists || h.Shares < order.Shares {
		return domain.Trade{}, fmt.Errorf("%w: want %d %s, hold %d", domain.ErrInsufficientShares, order.Shares, order.Ticker, h.Shares)
	}

	proceeds := order.Shares * order.Price
	profit := (float64(order.Price) - h.AvgPrice) * float64(order.Shares)
	profitRate := 0.0
	if h.AvgPrice > 0 {
		profitRate = formulas.Round((float64(order.Price)-h.AvgPrice)/h.AvgPrice*100, 2)
	}

	l.Cash += proceeds
	h.Shares -= order.Shares
	l.Holdings[order.Ticker] = h

	trade := domain.Trade{
		ID:         st.ID,
		Type:       domain.TradeTypeSell,
		Ticker:     order.Ticker,
		Name:       h.Name,
		Shares:     order.Shares,
		Price:      order.Price,
		Amount:     proceeds,
		Date:       domain.NewTimestamp(st.At),
		Profit:     &profit,
		ProfitRate: &profitRate,
		Reason:     order.Reason,
		StrategyID: st.StrategyID,
	}
	l.Trades = append(l.Trades, trade)
	return trade, nil
}

// reset restores seed cash and clears positions and history
func (l *Ledger) reset(at time.Time) {
	l.Cash = l.Seed
	l.Holdings = map[string]domain.Holding{}
	l.Trades = []domain.Trade{}
	l.Created = domain.NewTimestamp(at)
}
