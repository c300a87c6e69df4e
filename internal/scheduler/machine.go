package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// Phase is the coarse position of the clock within a trading day
type Phase string

const (
	PhaseClosed     Phase = "closed"
	PhasePreMarket  Phase = "pre_market"
	PhaseBuyWindow  Phase = "buy_window"
	PhaseMarketOpen Phase = "market_open"
	PhaseClosing    Phase = "closing"
	PhaseDone       Phase = "done"
)

// Action names understood by the executor
const (
	ActionAnalyze  = "analyze"
	ActionBuy      = "buy"
	ActionStopLoss = "stoploss"
	ActionReport   = "report"
)

// Window is a half-open [Start, End) span of wall-clock time
type Window struct {
	Start time.Duration
	End   time.Duration
}

// At builds a time-of-day offset
func At(hour, minute int) time.Duration {
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
}

// Contains reports whether the time-of-day offset falls in the window
func (w Window) Contains(offset time.Duration) bool {
	return offset >= w.Start && offset < w.End
}

// Schedule holds the trading-day windows
type Schedule struct {
	PreMarket        Window
	BuyWindow        Window
	Market           Window
	Closing          Window
	StopLossInterval time.Duration
	RetryDelay       time.Duration
}

// DefaultSchedule is the KRX regular session layout
func DefaultSchedule() Schedule {
	return Schedule{
		PreMarket:        Window{Start: At(8, 55), End: At(8, 58)},
		BuyWindow:        Window{Start: At(9, 1), End: At(9, 5)},
		Market:           Window{Start: At(9, 0), End: At(15, 30)},
		Closing:          Window{Start: At(15, 20), End: At(15, 25)},
		StopLossInterval: 10 * time.Minute,
		RetryDelay:       time.Minute,
	}
}

// Validate checks window ordering
func (s Schedule) Validate() error {
	for name, w := range map[string]Window{
		"pre_market": s.PreMarket,
		"buy":        s.BuyWindow,
		"market":     s.Market,
		"closing":    s.Closing,
	} {
		if w.End <= w.Start {
			return fmt.Errorf("%s window ends before it starts", name)
		}
	}
	if s.StopLossInterval <= 0 {
		return fmt.Errorf("stop-loss interval must be positive")
	}
	return nil
}

// DayState is what the machine has done on the current trading day
type DayState struct {
	Date         string    `json:"date"`
	Phase        Phase     `json:"phase"`
	Analyzed     bool      `json:"analyzed"`
	Bought       bool      `json:"bought"`
	Reported     bool      `json:"reported"`
	LastStopLoss time.Time `json:"last_stop_loss,omitempty"`
}

// Machine decides which action is due at a given instant. It performs no
// I/O; callers report outcomes through Complete and Fail.
type Machine struct {
	mu         sync.Mutex
	schedule   Schedule
	loc        *time.Location
	state      DayState
	retryAfter map[string]time.Time
}

// NewMachine creates a machine evaluating times in loc
func NewMachine(schedule Schedule, loc *time.Location) *Machine {
	if loc == nil {
		loc = time.Local
	}
	return &Machine{
		schedule:   schedule,
		loc:        loc,
		retryAfter: make(map[string]time.Time),
	}
}

// Location returns the machine's time zone
func (m *Machine) Location() *time.Location {
	return m.loc
}

// PhaseAt classifies now without touching state
func (m *Machine) PhaseAt(now time.Time) Phase {
	local := now.In(m.loc)
	if !isTradingDay(local) {
		return PhaseClosed
	}
	offset := timeOfDay(local)
	s := m.schedule
	switch {
	case s.PreMarket.Contains(offset):
		return PhasePreMarket
	case s.BuyWindow.Contains(offset):
		return PhaseBuyWindow
	case s.Closing.Contains(offset):
		return PhaseClosing
	case s.Market.Contains(offset):
		return PhaseMarketOpen
	case offset >= s.Market.End:
		return PhaseDone
	default:
		return PhaseClosed
	}
}

// Observe rolls state over to now's date and records its phase. It returns
// the previous phase and whether it changed.
func (m *Machine) Observe(now time.Time) (Phase, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover(now)
	prev := m.state.Phase
	next := m.PhaseAt(now)
	m.state.Phase = next
	return prev, prev != next
}

// Next returns the action due at now, if any. Reporting outranks buying,
// buying outranks the stop-loss sweep, and a buy window reached without
// an analysis first yields a catch-up analysis.
func (m *Machine) Next(now time.Time) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover(now)
	local := now.In(m.loc)
	if !isTradingDay(local) {
		return "", false
	}
	offset := timeOfDay(local)
	s := m.schedule

	if s.Closing.Contains(offset) && !m.state.Reported && m.ready(ActionReport, now) {
		return ActionReport, true
	}
	if s.BuyWindow.Contains(offset) {
		if !m.state.Analyzed && m.ready(ActionAnalyze, now) {
			return ActionAnalyze, true
		}
		if m.state.Analyzed && !m.state.Bought && m.ready(ActionBuy, now) {
			return ActionBuy, true
		}
	}
	if s.PreMarket.Contains(offset) && !m.state.Analyzed && m.ready(ActionAnalyze, now) {
		return ActionAnalyze, true
	}
	if s.Market.Contains(offset) && m.ready(ActionStopLoss, now) {
		last := m.state.LastStopLoss
		if last.IsZero() || now.Sub(last) >= s.StopLossInterval {
			return ActionStopLoss, true
		}
	}
	return "", false
}

// Complete records a successful action
func (m *Machine) Complete(action string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover(now)
	delete(m.retryAfter, action)
	switch action {
	case ActionAnalyze:
		m.state.Analyzed = true
	case ActionBuy:
		m.state.Bought = true
	case ActionStopLoss:
		m.state.LastStopLoss = now
	case ActionReport:
		m.state.Reported = true
	}
}

// Fail postpones an action by the schedule's retry delay
func (m *Machine) Fail(action string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover(now)
	m.retryAfter[action] = now.Add(m.schedule.RetryDelay)
}

// State returns a copy of the current day state
func (m *Machine) State() DayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) ready(action string, now time.Time) bool {
	until, ok := m.retryAfter[action]
	return !ok || !now.Before(until)
}

// rollover clears per-day flags when the local date changes. Caller holds mu.
func (m *Machine) rollover(now time.Time) {
	date := now.In(m.loc).Format("2006-01-02")
	if m.state.Date == date {
		return
	}
	m.state = DayState{Date: date, Phase: m.state.Phase}
	m.retryAfter = make(map[string]time.Time)
}

func isTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
