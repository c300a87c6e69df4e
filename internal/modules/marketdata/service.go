// Package marketdata builds the shared market data snapshot every strategy
// analyzes in a cycle.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
)

// DefaultDays is the history requested per instrument
const DefaultDays = 30

// Service refreshes and serves the market data snapshot
type Service struct {
	gateway   domain.MarketDataGateway
	cache     *SnapshotCache
	watchlist []domain.Instrument
	days      int
	clock     domain.Clock
	events    *events.Manager
	log       zerolog.Logger

	mu      sync.RWMutex
	current *domain.MarketData
}

// NewService creates a market data service. cache and eventManager may be nil.
func NewService(
	gateway domain.MarketDataGateway,
	cache *SnapshotCache,
	watchlist []domain.Instrument,
	days int,
	clock domain.Clock,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	if days <= 0 {
		days = DefaultDays
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Service{
		gateway:   gateway,
		cache:     cache,
		watchlist: watchlist,
		days:      days,
		clock:     clock,
		events:    eventManager,
		log:       log.With().Str("service", "marketdata").Logger(),
	}
}

// Watchlist returns the configured instruments
func (s *Service) Watchlist() []domain.Instrument {
	return s.watchlist
}

// Refresh fetches daily bars for the whole watchlist. Instruments whose data
// cannot be fetched are skipped; the refresh fails only when none succeed.
func (s *Service) Refresh(ctx context.Context) (*domain.MarketData, error) {
	md := &domain.MarketData{FetchedAt: s.clock.Now()}
	skipped := 0

	for _, inst := range s.watchlist {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := s.gateway.GetDailyBars(ctx, inst.Ticker, s.days)
		if err != nil {
			skipped++
			s.log.Warn().Err(err).Str("ticker", inst.Ticker).Msg("Skipping instrument without daily bars")
			continue
		}

		bars = bars.Normalized()
		if len(bars) == 0 {
			skipped++
			s.log.Warn().Str("ticker", inst.Ticker).Msg("Skipping instrument with no valid closes")
			continue
		}

		md.Instruments = append(md.Instruments, domain.InstrumentData{Instrument: inst, Bars: bars})
	}

	if len(md.Instruments) == 0 {
		return nil, fmt.Errorf("%w: no instrument in the watchlist returned data", domain.ErrDataUnavailable)
	}

	s.mu.Lock()
	s.current = md
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Save(md); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache market data snapshot")
		}
	}

	s.log.Info().
		Int("instruments", len(md.Instruments)).
		Int("skipped", skipped).
		Msg("Market data refreshed")

	s.events.Emit("marketdata", &events.MarketDataRefreshedData{
		Instruments: len(md.Instruments),
		Skipped:     skipped,
	})

	return md, nil
}

// Latest returns the most recent snapshot from memory or the cache without
// contacting the gateway.
func (s *Service) Latest() (*domain.MarketData, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		return current, nil
	}

	if s.cache == nil {
		return nil, fmt.Errorf("%w: no market data snapshot", domain.ErrDataUnavailable)
	}

	md, err := s.cache.Load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current == nil {
		s.current = md
	}
	s.mu.Unlock()
	return md, nil
}

// Today returns a snapshot fetched on the current calendar day, refreshing
// when the latest one is older or missing.
func (s *Service) Today(ctx context.Context) (*domain.MarketData, error) {
	md, err := s.Latest()
	if err == nil && sameDay(md.FetchedAt, s.clock.Now()) {
		return md, nil
	}
	if err != nil && !errors.Is(err, domain.ErrDataUnavailable) {
		s.log.Warn().Err(err).Msg("Ignoring unreadable market data cache")
	}
	return s.Refresh(ctx)
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
