package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/modules/journal"
	"github.com/aristath/papertrader/internal/modules/ledger"
	"github.com/aristath/papertrader/pkg/formulas"
)

// HoldingValue is one open position valued for the report
type HoldingValue struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Shares    int64   `json:"shares"`
	AvgPrice  float64 `json:"avg_price"`
	Price     int64   `json:"price"`
	Value     int64   `json:"value"`
	ChangePct float64 `json:"change_pct"`
}

// StrategySummary is one strategy's line in the comparison
type StrategySummary struct {
	Rank             int            `json:"rank"`
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Model            string         `json:"model"`
	Seed             int64          `json:"seed"`
	Cash             int64          `json:"cash"`
	EvalValue        int64          `json:"eval_value"`
	CostBasis        float64        `json:"cost_basis"`
	UnrealizedProfit int64          `json:"unrealized_profit"`
	RealizedProfit   float64        `json:"realized_profit"`
	TotalAssets      int64          `json:"total_assets"`
	TotalProfit      int64          `json:"total_profit"`
	ReturnPct        float64        `json:"return_pct"`
	Holdings         []HoldingValue `json:"holdings"`
}

// Summary is the cross-strategy comparison persisted as summary.json
type Summary struct {
	TotalSeed        int64             `json:"total_seed"`
	TotalAssets      int64             `json:"total_assets"`
	OverallProfit    int64             `json:"overall_profit"`
	OverallReturnPct float64           `json:"overall_return_pct"`
	Strategies       []StrategySummary `json:"strategies"`
	LastUpdated      time.Time         `json:"last_updated"`
}

// Leader returns the best-ranked strategy, if any
func (s *Summary) Leader() (StrategySummary, bool) {
	if len(s.Strategies) == 0 {
		return StrategySummary{}, false
	}
	return s.Strategies[0], true
}

// Compare values every ledger and ranks strategies by return against seed.
// Ties keep declaration order.
func (c *Coordinator) Compare(ctx context.Context) (*Summary, error) {
	md, err := c.deps.MarketData.Latest()
	if err != nil && !errors.Is(err, domain.ErrDataUnavailable) {
		c.log.Warn().Err(err).Msg("Valuing holdings without market data snapshot")
	}

	prices := map[string]int64{}
	summary := &Summary{LastUpdated: c.deps.Clock.Now()}

	for _, e := range c.entries {
		l, err := c.readLedger(e.Meta)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger %s: %w", e.Meta.ID, err)
		}

		st := c.summarize(ctx, e.Meta, l, md, prices)
		summary.TotalSeed += st.Seed
		summary.TotalAssets += st.TotalAssets
		summary.Strategies = append(summary.Strategies, st)
	}

	sort.SliceStable(summary.Strategies, func(i, j int) bool {
		return summary.Strategies[i].ReturnPct > summary.Strategies[j].ReturnPct
	})
	for i := range summary.Strategies {
		summary.Strategies[i].Rank = i + 1
	}

	summary.OverallProfit = summary.TotalAssets - summary.TotalSeed
	if summary.TotalSeed > 0 {
		summary.OverallReturnPct = formulas.Round(float64(summary.OverallProfit)/float64(summary.TotalSeed)*100, 2)
	}
	return summary, nil
}

// Status values a single strategy's ledger the same way Compare does.
// Rank is left at zero.
func (c *Coordinator) Status(ctx context.Context, strategyID string) (StrategySummary, error) {
	e, ok := c.Find(strategyID)
	if !ok {
		return StrategySummary{}, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	l, err := c.readLedger(e.Meta)
	if err != nil {
		return StrategySummary{}, fmt.Errorf("failed to load ledger %s: %w", strategyID, err)
	}
	md, _ := c.deps.MarketData.Latest()
	return c.summarize(ctx, e.Meta, l, md, map[string]int64{}), nil
}

// readLedger loads a ledger without creating one. A strategy that has never
// been persisted reads as a fresh seeded ledger.
func (c *Coordinator) readLedger(meta domain.StrategyMeta) (*ledger.Ledger, error) {
	l, err := c.deps.Ledgers.Get(meta.ID)
	if errors.Is(err, domain.ErrLedgerNotFound) {
		return ledger.New(meta.Seed, c.deps.Clock.Now()), nil
	}
	return l, err
}

func (c *Coordinator) summarize(ctx context.Context, meta domain.StrategyMeta, l *ledger.Ledger, md *domain.MarketData, prices map[string]int64) StrategySummary {
	s := StrategySummary{
		ID:             meta.ID,
		Name:           meta.Name,
		Model:          meta.Model,
		Seed:           l.Seed,
		Cash:           l.Cash,
		CostBasis:      l.CostBasis(),
		RealizedProfit: l.RealizedProfit(),
		Holdings:       []HoldingValue{},
	}

	for _, ticker := range l.OpenTickers() {
		h := l.Holdings[ticker]
		price := c.valuationPrice(ctx, ticker, h, md, prices)
		hv := HoldingValue{
			Ticker:   ticker,
			Name:     h.Name,
			Shares:   h.Shares,
			AvgPrice: h.AvgPrice,
			Price:    price,
			Value:    price * h.Shares,
		}
		if h.AvgPrice > 0 {
			hv.ChangePct = formulas.Round((float64(price)-h.AvgPrice)/h.AvgPrice*100, 2)
		}
		s.EvalValue += hv.Value
		s.Holdings = append(s.Holdings, hv)
	}

	s.UnrealizedProfit = s.EvalValue - int64(s.CostBasis)
	s.TotalAssets = s.EvalValue + s.Cash
	s.TotalProfit = s.TotalAssets - s.Seed
	if s.Seed > 0 {
		s.ReturnPct = formulas.Round(float64(s.TotalProfit)/float64(s.Seed)*100, 2)
	}
	return s
}

// valuationPrice uses the snapshot close, then a live quote, then the
// average cost.
func (c *Coordinator) valuationPrice(ctx context.Context, ticker string, h domain.Holding, md *domain.MarketData, cache map[string]int64) int64 {
	if price, ok := cache[ticker]; ok {
		return price
	}

	price, ok := md.LatestClose(ticker)
	if !ok || price <= 0 {
		price = 0
		if c.deps.Prices != nil {
			if quote, err := c.deps.Prices.GetCurrentPrice(ctx, ticker); err == nil && quote > 0 {
				price = quote
			}
		}
	}
	if price <= 0 {
		price = int64(h.AvgPrice)
	}

	cache[ticker] = price
	return price
}

// Report builds the comparison, persists summary.json and fans it out to
// the alert sink, the journal and the commit sink.
func (c *Coordinator) Report(ctx context.Context) (*Summary, string, error) {
	summary, err := c.Compare(ctx)
	if err != nil {
		return nil, "", err
	}

	if err := c.SaveSummary(summary); err != nil {
		return summary, "", err
	}

	text := RenderReport(summary)
	c.log.Info().
		Int64("total_assets", summary.TotalAssets).
		Float64("overall_return_pct", summary.OverallReturnPct).
		Msg("Comparison report generated")

	c.recordMetrics(summary)
	c.notifyReport(ctx, summary)

	if c.deps.Journal != nil {
		c.deps.Journal.RecordDaily(ctx, dailyEntry(summary))
	}

	files := []string{c.deps.SummaryPath}
	for _, e := range c.entries {
		files = append(files, c.deps.Ledgers.Path(e.Meta.ID))
	}
	c.deps.Commit.Commit(ctx, fmt.Sprintf("[REPORT] %s overall %+.2f%%",
		summary.LastUpdated.Format("2006-01-02"), summary.OverallReturnPct), files)

	leader, _ := summary.Leader()
	c.deps.Events.Emit("coordinator", &events.ReportGeneratedData{
		TotalAssets:      summary.TotalAssets,
		OverallReturnPct: summary.OverallReturnPct,
		Leader:           leader.ID,
	})
	return summary, text, nil
}

// SaveSummary writes summary.json atomically
func (c *Coordinator) SaveSummary(s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := ledger.WriteFileAtomic(c.deps.SummaryPath, data); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// LoadSummary reads the last persisted summary
func (c *Coordinator) LoadSummary() (*Summary, error) {
	data, err := os.ReadFile(c.deps.SummaryPath)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &s, nil
}

func (c *Coordinator) recordMetrics(s *Summary) {
	if c.deps.Metrics == nil {
		return
	}
	c.deps.Metrics.TotalAssets.Set(float64(s.TotalAssets))
	for _, st := range s.Strategies {
		c.deps.Metrics.ReturnPct.WithLabelValues(st.ID).Set(st.ReturnPct)
		c.deps.Metrics.LedgerCash.WithLabelValues(st.ID).Set(float64(st.Cash))
	}
}

func (c *Coordinator) notifyReport(ctx context.Context, s *Summary) {
	fields := []domain.AlertField{
		{Key: "Overall", Value: fmt.Sprintf("%s KRW (%+.2f%%)", signedWon(s.OverallProfit), s.OverallReturnPct)},
	}
	for _, st := range s.Strategies {
		fields = append(fields, domain.AlertField{
			Key:   fmt.Sprintf("#%d %s", st.Rank, st.Name),
			Value: fmt.Sprintf("%+.2f%%", st.ReturnPct),
		})
	}
	c.deps.Alerts.Notify(ctx, "daily_report",
		fmt.Sprintf("Daily comparison %s", s.LastUpdated.Format("2006-01-02")), fields...)
}

func dailyEntry(s *Summary) journal.DailyEntry {
	entry := journal.DailyEntry{
		Date:             s.LastUpdated,
		TotalSeed:        s.TotalSeed,
		TotalAssets:      s.TotalAssets,
		OverallProfit:    s.OverallProfit,
		OverallReturnPct: s.OverallReturnPct,
	}
	for _, st := range s.Strategies {
		entry.Strategies = append(entry.Strategies, journal.StrategyResult{
			ID:          st.ID,
			Name:        st.Name,
			Seed:        st.Seed,
			TotalAssets: st.TotalAssets,
			Profit:      st.TotalProfit,
			ReturnPct:   st.ReturnPct,
			Holdings:    len(st.Holdings),
		})
	}
	return entry
}

// RenderReport formats the comparison as plain text
func RenderReport(s *Summary) string {
	var b strings.Builder
	rule := strings.Repeat("=", 52)

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "  Strategy comparison  %s\n", s.LastUpdated.Format("2006-01-02 15:04"))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "  Total assets: %16s KRW\n", humanize.Comma(s.TotalAssets))
	fmt.Fprintf(&b, "  Overall:      %16s KRW (%+.2f%%)\n", signedWon(s.OverallProfit), s.OverallReturnPct)
	b.WriteString(rule + "\n")

	for _, st := range s.Strategies {
		fmt.Fprintf(&b, "  %s\n", st.Name)
		fmt.Fprintf(&b, "    Return: %+.2f%%  |  P/L: %s KRW\n", st.ReturnPct, signedWon(st.TotalProfit))
		fmt.Fprintf(&b, "    Assets: %s KRW (cash %s KRW)\n", humanize.Comma(st.TotalAssets), humanize.Comma(st.Cash))
		for _, h := range st.Holdings {
			fmt.Fprintf(&b, "      %-14s %+.2f%%\n", truncate(h.Name, 14), h.ChangePct)
		}
		b.WriteString("\n")
	}

	b.WriteString("  Ranking\n")
	for _, st := range s.Strategies {
		fmt.Fprintf(&b, "    %d. %-16s %+.2f%%\n", st.Rank, st.Name, st.ReturnPct)
	}
	b.WriteString(rule + "\n")
	return b.String()
}

func signedWon(v int64) string {
	if v >= 0 {
		return "+" + humanize.Comma(v)
	}
	return humanize.Comma(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
