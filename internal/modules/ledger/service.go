package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
)

// Listener observes committed ledger changes. Implementations must not fail
// the operation; they log their own errors.
type Listener interface {
	OnTrade(ctx context.Context, strategyID string, trade domain.Trade, l *Ledger)
	OnReset(ctx context.Context, strategyID string, l *Ledger)
}

// Service applies buys, sells and resets. Every operation loads the ledger
// fresh, mutates it in memory and persists it before returning, so a refused
// operation leaves the stored document untouched.
type Service struct {
	store     Store
	clock     domain.Clock
	commit    domain.CommitSink
	listeners []Listener
	mu        sync.Mutex
	log       zerolog.Logger
}

// NewService creates a ledger service
func NewService(store Store, clock domain.Clock, log zerolog.Logger) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Service{
		store:  store,
		clock:  clock,
		commit: domain.NopCommitSink{},
		log:    log.With().Str("service", "ledger").Logger(),
	}
}

// SetCommitSink sets where ledger files are pushed after each change
func (s *Service) SetCommitSink(sink domain.CommitSink) {
	if sink == nil {
		sink = domain.NopCommitSink{}
	}
	s.commit = sink
}

// AddListener registers an observer of committed changes
func (s *Service) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Path returns the file backing a strategy's ledger
func (s *Service) Path(strategyID string) string {
	return s.store.Path(strategyID)
}

// Ensure creates a seeded ledger for the strategy if none exists yet
func (s *Service) Ensure(meta domain.StrategyMeta) (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(meta.ID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		return nil, err
	}

	l = New(meta.Seed, s.clock.Now())
	if err := s.store.Save(meta.ID, l); err != nil {
		return nil, err
	}
	s.log.Info().Str("strategy", meta.ID).Int64("seed", meta.Seed).Msg("Ledger created")
	return l, nil
}

// Get loads the current ledger
func (s *Service) Get(strategyID string) (*Ledger, error) {
	return s.store.Load(strategyID)
}

// Buy debits cash and adds shares
func (s *Service) Buy(ctx context.Context, strategyID string, order BuyOrder) (domain.Trade, error) {
	trade, l, err := s.mutate(strategyID, func(l *Ledger, st stamp) (domain.Trade, error) {
		return l.applyBuy(order, st)
	})
	if err != nil {
		return domain.Trade{}, err
	}

	s.log.Info().
		Str("strategy", strategyID).
		Str("ticker", trade.Ticker).
		Int64("shares", trade.Shares).
		Int64("price", trade.Price).
		Int64("cash", l.Cash).
		Msg("Buy recorded")

	s.afterTrade(ctx, strategyID, trade, l)
	return trade, nil
}

// Sell credits cash, removes shares and books realized profit
func (s *Service) Sell(ctx context.Context, strategyID string, order SellOrder) (domain.Trade, error) {
	trade, l, err := s.mutate(strategyID, func(l *Ledger, st stamp) (domain.Trade, error) {
		return l.applySell(order, st)
	})
	if err != nil {
		return domain.Trade{}, err
	}

	s.log.Info().
		Str("strategy", strategyID).
		Str("ticker", trade.Ticker).
		Int64("shares", trade.Shares).
		Int64("price", trade.Price).
		Float64("profit", *trade.Profit).
		Str("reason", trade.Reason).
		Msg("Sell recorded")

	s.afterTrade(ctx, strategyID, trade, l)
	return trade, nil
}

// Reset restores the seed cash and clears holdings and trades.
// It refuses to run unless confirmed is true.
func (s *Service) Reset(ctx context.Context, strategyID string, confirmed bool) (*Ledger, error) {
	if !confirmed {
		return nil, domain.ErrResetNotConfirmed
	}

	s.mu.Lock()
	l, err := s.store.Load(strategyID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	l.reset(s.clock.Now())
	if err := s.store.Save(strategyID, l); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.log.Warn().Str("strategy", strategyID).Int64("seed", l.Seed).Msg("Ledger reset")

	s.commit.Commit(ctx, fmt.Sprintf("[RESET] %s %s", s.clock.Now().Format("2006-01-02"), strategyID), []string{s.store.Path(strategyID)})
	for _, listener := range s.listeners {
		listener.OnReset(ctx, strategyID, l)
	}
	return l, nil
}

func (s *Service) mutate(strategyID string, apply func(*Ledger, stamp) (domain.Trade, error)) (domain.Trade, *Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(strategyID)
	if err != nil {
		return domain.Trade{}, nil, err
	}

	trade, err := apply(l, stamp{ID: uuid.NewString(), At: s.clock.Now(), StrategyID: strategyID})
	if err != nil {
		return domain.Trade{}, nil, err
	}

	if err := s.store.Save(strategyID, l); err != nil {
		return domain.Trade{}, nil, err
	}
	return trade, l, nil
}

func (s *Service) afterTrade(ctx context.Context, strategyID string, trade domain.Trade, l *Ledger) {
	msg := fmt.Sprintf("[%s] %s %s %s x%d @ %d",
		trade.Type, trade.Date.Format("2006-01-02 15:04"), strategyID, trade.Ticker, trade.Shares, trade.Price)
	s.commit.Commit(ctx, msg, []string{s.store.Path(strategyID)})

	for _, listener := range s.listeners {
		listener.OnTrade(ctx, strategyID, trade, l)
	}
}
