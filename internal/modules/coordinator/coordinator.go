// Package coordinator drives every configured strategy through the daily
// cycle: refresh market data, analyze, buy, sweep stop-losses and compare.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/metrics"
	"github.com/aristath/papertrader/internal/modules/journal"
	"github.com/aristath/papertrader/internal/modules/ledger"
	"github.com/aristath/papertrader/internal/modules/stoploss"
	"github.com/aristath/papertrader/internal/modules/strategies"
)

// Entry pairs a configured strategy with its model
type Entry struct {
	Meta     domain.StrategyMeta
	Strategy strategies.Strategy
}

// LedgerService is the subset of ledger.Service the coordinator needs
type LedgerService interface {
	Ensure(meta domain.StrategyMeta) (*ledger.Ledger, error)
	Get(strategyID string) (*ledger.Ledger, error)
	Buy(ctx context.Context, strategyID string, order ledger.BuyOrder) (domain.Trade, error)
	Sell(ctx context.Context, strategyID string, order ledger.SellOrder) (domain.Trade, error)
	Path(strategyID string) string
}

// MarketDataService supplies the shared snapshot
type MarketDataService interface {
	Refresh(ctx context.Context) (*domain.MarketData, error)
	Today(ctx context.Context) (*domain.MarketData, error)
	Latest() (*domain.MarketData, error)
}

// StopLossMonitor sweeps all strategies' holdings
type StopLossMonitor interface {
	SweepAll(ctx context.Context, metas []domain.StrategyMeta) []stoploss.Liquidation
}

// DailyJournal records the end-of-day comparison
type DailyJournal interface {
	RecordDaily(ctx context.Context, entry journal.DailyEntry)
}

// Deps are the coordinator's collaborators. Alerts, Commit, Journal, Events
// and Metrics are optional.
type Deps struct {
	Ledgers     LedgerService
	MarketData  MarketDataService
	Prices      domain.MarketDataGateway
	StopLoss    StopLossMonitor
	Plans       *PlanStore
	SummaryPath string
	Alerts      domain.AlertSink
	Commit      domain.CommitSink
	Journal     DailyJournal
	Events      *events.Manager
	Metrics     *metrics.Registry
	Clock       domain.Clock
}

// Coordinator runs the daily cycle over independent strategy ledgers
type Coordinator struct {
	entries []Entry
	deps    Deps
	runMu   sync.Mutex
	log     zerolog.Logger
}

// New creates a coordinator. Entries keep their declaration order, which
// breaks ranking ties.
func New(entries []Entry, deps Deps, log zerolog.Logger) *Coordinator {
	if deps.Alerts == nil {
		deps.Alerts = domain.NopAlertSink{}
	}
	if deps.Commit == nil {
		deps.Commit = domain.NopCommitSink{}
	}
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	return &Coordinator{
		entries: entries,
		deps:    deps,
		log:     log.With().Str("service", "coordinator").Logger(),
	}
}

// Entries returns the configured strategies in declaration order
func (c *Coordinator) Entries() []Entry {
	return c.entries
}

// Metas returns the static description of every strategy
func (c *Coordinator) Metas() []domain.StrategyMeta {
	metas := make([]domain.StrategyMeta, len(c.entries))
	for i, e := range c.entries {
		metas[i] = e.Meta
	}
	return metas
}

// Find returns the entry for a strategy id
func (c *Coordinator) Find(strategyID string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Meta.ID == strategyID {
			return e, true
		}
	}
	return Entry{}, false
}

// LoadPlan returns the latest persisted plan for a strategy
func (c *Coordinator) LoadPlan(strategyID string) (*Plan, error) {
	if _, ok := c.Find(strategyID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyID)
	}
	return c.deps.Plans.Load(strategyID)
}

// Initialize creates a seeded ledger for every strategy that has none
func (c *Coordinator) Initialize() error {
	for _, e := range c.entries {
		if _, err := c.deps.Ledgers.Ensure(e.Meta); err != nil {
			return fmt.Errorf("failed to initialize ledger %s: %w", e.Meta.ID, err)
		}
	}
	return nil
}

// RunCycle executes the full daily cycle in order. Stop-loss and the report
// still run when the buy phase fails.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	cycleID := uuid.New().String()
	log := c.log.With().Str("cycle_id", cycleID).Logger()
	log.Info().Int("strategies", len(c.entries)).Msg("Starting trading cycle")

	c.deps.Alerts.Notify(ctx, "cycle_start", "Trading cycle started",
		domain.AlertField{Key: "Strategies", Value: fmt.Sprintf("%d", len(c.entries))},
		domain.AlertField{Key: "Time", Value: c.deps.Clock.Now().Format("2006-01-02 15:04")},
	)

	var errs []error
	if _, err := c.Analyze(ctx); err != nil {
		errs = append(errs, fmt.Errorf("analyze: %w", err))
	} else if _, err := c.ExecuteBuys(ctx); err != nil {
		errs = append(errs, fmt.Errorf("buy: %w", err))
	}

	c.RunStopLoss(ctx)

	if _, _, err := c.Report(ctx); err != nil {
		errs = append(errs, fmt.Errorf("report: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Error().Err(err).Msg("Trading cycle finished with errors")
		c.deps.Events.EmitError("coordinator", err)
		c.deps.Alerts.Notify(ctx, "error", "Trading cycle error",
			domain.AlertField{Key: "Error", Value: err.Error()})
		return err
	}
	log.Info().Msg("Trading cycle completed")
	return nil
}

// Analyze refreshes market data and persists a plan for every strategy
func (c *Coordinator) Analyze(ctx context.Context) ([]*Plan, error) {
	md, err := c.deps.MarketData.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("market data refresh failed: %w", err)
	}

	plans := make([]*Plan, 0, len(c.entries))
	for _, e := range c.entries {
		l, err := c.deps.Ledgers.Ensure(e.Meta)
		if err != nil {
			return plans, fmt.Errorf("failed to load ledger %s: %w", e.Meta.ID, err)
		}

		plan := c.plan(e, md, l.Cash)
		if err := c.deps.Plans.Save(plan); err != nil {
			c.log.Error().Err(err).Str("strategy", e.Meta.ID).Msg("Failed to persist plan")
		}
		plans = append(plans, plan)

		c.log.Info().
			Str("strategy", e.Meta.ID).
			Int("candidates", len(plan.Candidates)).
			Int("allocations", len(plan.Allocations)).
			Int64("planned_cost", plan.PlannedCost()).
			Msg("Plan generated")
		c.deps.Events.Emit("coordinator", &events.PlanGeneratedData{
			StrategyID:  e.Meta.ID,
			Candidates:  len(plan.Candidates),
			Allocations: len(plan.Allocations),
		})
	}
	return plans, nil
}

func (c *Coordinator) plan(e Entry, md *domain.MarketData, cash int64) *Plan {
	candidates := e.Strategy.Analyze(md)
	return &Plan{
		Generated:   c.deps.Clock.Now(),
		StrategyID:  e.Meta.ID,
		Cash:        cash,
		Candidates:  candidates,
		Allocations: e.Strategy.Allocate(candidates, cash),
		StopLossPct: e.Meta.StopLossPct,
	}
}

// BuyResult lists the trades one strategy executed in the buy phase
type BuyResult struct {
	StrategyID string         `json:"strategy_id"`
	Skipped    string         `json:"skipped,omitempty"`
	Trades     []domain.Trade `json:"trades"`
}

// ExecuteBuys buys the planned allocations for every strategy without open
// positions. Strategies already holding anything are skipped entirely.
// A persistence failure aborts the phase.
func (c *Coordinator) ExecuteBuys(ctx context.Context) ([]BuyResult, error) {
	md, err := c.deps.MarketData.Today(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("No market data for buy phase, using plans only")
	}

	results := make([]BuyResult, 0, len(c.entries))
	for _, e := range c.entries {
		result, err := c.buyStrategy(ctx, e, md)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (c *Coordinator) buyStrategy(ctx context.Context, e Entry, md *domain.MarketData) (BuyResult, error) {
	result := BuyResult{StrategyID: e.Meta.ID}
	log := c.log.With().Str("strategy", e.Meta.ID).Logger()

	l, err := c.deps.Ledgers.Ensure(e.Meta)
	if err != nil {
		return result, fmt.Errorf("failed to load ledger %s: %w", e.Meta.ID, err)
	}
	if l.HasOpenPositions() {
		result.Skipped = "holding positions"
		log.Info().Strs("tickers", l.OpenTickers()).Msg("Strategy already invested, skipping buys")
		return result, nil
	}

	plan := c.todaysPlan(e, log)
	if plan == nil {
		if md == nil {
			result.Skipped = "no plan and no market data"
			log.Warn().Msg("No plan available, skipping buys")
			return result, nil
		}
		plan = c.plan(e, md, l.Cash)
		if err := c.deps.Plans.Save(plan); err != nil {
			log.Error().Err(err).Msg("Failed to persist plan")
		}
	}

	cash := l.Cash
	for _, a := range plan.Allocations {
		if a.Shares <= 0 {
			continue
		}

		price := c.buyPrice(ctx, a, md)
		if price <= 0 {
			log.Warn().Str("ticker", a.Ticker).Msg("No usable price, skipping allocation")
			continue
		}

		shares := a.Shares
		if shares*price > cash {
			shares = cash / price
		}
		if shares <= 0 {
			continue
		}

		trade, err := c.deps.Ledgers.Buy(ctx, e.Meta.ID, ledger.BuyOrder{
			Ticker: a.Ticker,
			Name:   a.Name,
			Shares: shares,
			Price:  price,
			Reason: a.Reason,
		})
		if err != nil {
			if errors.Is(err, domain.ErrPersistence) {
				return result, fmt.Errorf("buy %s for %s: %w", a.Ticker, e.Meta.ID, err)
			}
			log.Error().Err(err).Str("ticker", a.Ticker).Msg("Buy refused")
			continue
		}

		cash -= trade.Amount
		result.Trades = append(result.Trades, trade)
		c.alertBuy(ctx, e.Meta, a, trade, cash)
	}

	log.Info().Int("trades", len(result.Trades)).Int64("cash_left", cash).Msg("Buy phase completed")
	return result, nil
}

// todaysPlan returns the persisted plan if it was generated today
func (c *Coordinator) todaysPlan(e Entry, log zerolog.Logger) *Plan {
	plan, err := c.deps.Plans.Load(e.Meta.ID)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable plan")
		return nil
	}
	if plan == nil || !sameDay(plan.Generated, c.deps.Clock.Now()) {
		return nil
	}
	return plan
}

// buyPrice prefers the planned price, then the snapshot's close, then a
// live quote.
func (c *Coordinator) buyPrice(ctx context.Context, a domain.Allocation, md *domain.MarketData) int64 {
	if a.Price > 0 {
		return a.Price
	}
	if price, ok := md.LatestClose(a.Ticker); ok && price > 0 {
		return price
	}
	if c.deps.Prices == nil {
		return 0
	}
	price, err := c.deps.Prices.GetCurrentPrice(ctx, a.Ticker)
	if err != nil {
		return 0
	}
	return price
}

func (c *Coordinator) alertBuy(ctx context.Context, meta domain.StrategyMeta, a domain.Allocation, trade domain.Trade, cashLeft int64) {
	c.deps.Alerts.Notify(ctx, "buy", fmt.Sprintf("%s buy: %s", meta.Name, trade.Name),
		domain.AlertField{Key: "Ticker", Value: trade.Ticker},
		domain.AlertField{Key: "Shares", Value: fmt.Sprintf("%d x %d", trade.Shares, trade.Price)},
		domain.AlertField{Key: "Amount", Value: fmt.Sprintf("%d", trade.Amount)},
		domain.AlertField{Key: "Cash left", Value: fmt.Sprintf("%d", cashLeft)},
		domain.AlertField{Key: "Score", Value: fmt.Sprintf("%.2f (weight %.1f%%)", a.Score, a.WeightPct)},
		domain.AlertField{Key: "Reason", Value: a.Reason},
	)
}

// RunStopLoss sweeps every strategy's holdings once
func (c *Coordinator) RunStopLoss(ctx context.Context) []stoploss.Liquidation {
	liquidations := c.deps.StopLoss.SweepAll(ctx, c.Metas())
	if len(liquidations) > 0 {
		c.log.Warn().Int("liquidations", len(liquidations)).Msg("Stop-loss sweep liquidated positions")
	}
	return liquidations
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
