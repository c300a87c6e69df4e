// Package events provides the in-process event bus used for logging and
// live streaming of engine activity.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	MarketDataRefreshed EventType = "MARKET_DATA_REFRESHED"
	PlanGenerated       EventType = "PLAN_GENERATED"
	TradeExecuted       EventType = "TRADE_EXECUTED"
	StopLossTriggered   EventType = "STOP_LOSS_TRIGGERED"
	LedgerReset         EventType = "LEDGER_RESET"
	ReportGenerated     EventType = "REPORT_GENERATED"
	PhaseChanged        EventType = "PHASE_CHANGED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	EventType() EventType
}

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarketDataRefreshedData contains data for MarketDataRefreshed events
type MarketDataRefreshedData struct {
	Instruments int `json:"instruments"`
	Skipped     int `json:"skipped"`
}

// EventType returns the event type for MarketDataRefreshedData
func (d *MarketDataRefreshedData) EventType() EventType { return MarketDataRefreshed }

// PlanGeneratedData contains data for PlanGenerated events
type PlanGeneratedData struct {
	StrategyID  string `json:"strategy_id"`
	Candidates  int    `json:"candidates"`
	Allocations int    `json:"allocations"`
}

// EventType returns the event type for PlanGeneratedData
func (d *PlanGeneratedData) EventType() EventType { return PlanGenerated }

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	StrategyID string  `json:"strategy_id"`
	TradeID    string  `json:"trade_id"`
	Side       string  `json:"side"`
	Ticker     string  `json:"ticker"`
	Shares     int64   `json:"shares"`
	Price      int64   `json:"price"`
	Reason     string  `json:"reason,omitempty"`
	CashAfter  int64   `json:"cash_after"`
	Profit     float64 `json:"profit,omitempty"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	if d.Reason == "STOP_LOSS" {
		return StopLossTriggered
	}
	return TradeExecuted
}

// LedgerResetData contains data for LedgerReset events
type LedgerResetData struct {
	StrategyID string `json:"strategy_id"`
	Seed       int64  `json:"seed"`
}

// EventType returns the event type for LedgerResetData
func (d *LedgerResetData) EventType() EventType { return LedgerReset }

// ReportGeneratedData contains data for ReportGenerated events
type ReportGeneratedData struct {
	TotalAssets      int64   `json:"total_assets"`
	OverallReturnPct float64 `json:"overall_return_pct"`
	Leader           string  `json:"leader"`
}

// EventType returns the event type for ReportGeneratedData
func (d *ReportGeneratedData) EventType() EventType { return ReportGenerated }

// PhaseChangedData contains data for PhaseChanged events
type PhaseChangedData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EventType returns the event type for PhaseChangedData
func (d *PhaseChangedData) EventType() EventType { return PhaseChanged }

// ErrorData contains data for ErrorOccurred events
type ErrorData struct {
	Module string `json:"module"`
	Error  string `json:"error"`
}

// EventType returns the event type for ErrorData
func (d *ErrorData) EventType() EventType { return ErrorOccurred }
