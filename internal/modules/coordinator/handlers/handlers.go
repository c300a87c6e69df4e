// Package handlers provides HTTP handlers for strategies, plans, the
// comparison summary and manual cycle triggers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/coordinator"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// Coordinator is the subset of coordinator.Coordinator the handlers use
type Coordinator interface {
	Entries() []coordinator.Entry
	LoadPlan(strategyID string) (*coordinator.Plan, error)
	LoadSummary() (*coordinator.Summary, error)
	Compare(ctx context.Context) (*coordinator.Summary, error)
	RunAction(ctx context.Context, action string) (interface{}, error)
	Status(ctx context.Context, strategyID string) (coordinator.StrategySummary, error)
	History(strategyID string, limit int) ([]domain.Trade, error)
	ManualBuy(ctx context.Context, strategyID, ticker string, shares int64) (domain.Trade, error)
	ManualSell(ctx context.Context, strategyID, ticker string, shares int64) (domain.Trade, error)
}

// LedgerReader loads ledgers for the strategy listing
type LedgerReader interface {
	Get(strategyID string) (*ledger.Ledger, error)
}

// Handler handles coordinator HTTP requests
type Handler struct {
	coord   Coordinator
	ledgers LedgerReader
	log     zerolog.Logger
}

// NewHandler creates a new coordinator handler
func NewHandler(coord Coordinator, ledgers LedgerReader, log zerolog.Logger) *Handler {
	return &Handler{
		coord:   coord,
		ledgers: ledgers,
		log:     log.With().Str("handler", "coordinator").Logger(),
	}
}

type strategyView struct {
	domain.StrategyMeta
	Cash          int64    `json:"cash"`
	OpenTickers   []string `json:"open_tickers"`
	Trades        int      `json:"trades"`
	LedgerMissing bool     `json:"ledger_missing,omitempty"`
}

// HandleListStrategies handles GET /api/strategies
func (h *Handler) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	entries := h.coord.Entries()
	views := make([]strategyView, 0, len(entries))

	for _, e := range entries {
		view := strategyView{StrategyMeta: e.Meta, OpenTickers: []string{}}
		l, err := h.ledgers.Get(e.Meta.ID)
		switch {
		case err == nil:
			view.Cash = l.Cash
			view.OpenTickers = l.OpenTickers()
			view.Trades = len(l.Trades)
		case errors.Is(err, domain.ErrLedgerNotFound):
			view.LedgerMissing = true
		default:
			h.log.Error().Err(err).Str("strategy", e.Meta.ID).Msg("Failed to load ledger")
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views = append(views, view)
	}

	h.writeData(w, http.StatusOK, views)
}

// HandleGetPlan handles GET /api/strategies/{id}/plan
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	plan, err := h.coord.LoadPlan(id)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStrategy) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if plan == nil {
		h.writeError(w, http.StatusNotFound, "no plan generated yet")
		return
	}

	h.writeData(w, http.StatusOK, plan)
}

// HandleGetSummary handles GET /api/summary. The persisted summary is
// served when present; ?live=true recomputes it.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	live := r.URL.Query().Get("live") == "true"

	if !live {
		summary, err := h.coord.LoadSummary()
		if err == nil {
			h.writeData(w, http.StatusOK, summary)
			return
		}
		if !errors.Is(err, os.ErrNotExist) {
			h.log.Warn().Err(err).Msg("Unreadable summary, recomputing")
		}
	}

	summary, err := h.coord.Compare(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeData(w, http.StatusOK, summary)
}

// HandleRunAction handles POST /api/cycle/{action}
func (h *Handler) HandleRunAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	h.log.Info().Str("action", action).Msg("Manual action triggered")
	// A client hanging up must not abort a phase halfway
	result, err := h.coord.RunAction(context.WithoutCancel(r.Context()), action)
	if err != nil {
		if errors.Is(err, coordinator.ErrUnknownAction) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"action": action,
		"result": result,
	})
}

// HandleGetStatus handles GET /api/strategies/{id}/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.coord.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, status)
}

// HandleGetHistory handles GET /api/strategies/{id}/history?limit=N
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	trades, err := h.coord.History(chi.URLParam(r, "id"), limit)
	if err != nil {
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, trades)
}

type orderRequest struct {
	Ticker string `json:"ticker"`
	Shares int64  `json:"shares"`
}

// HandleManualBuy handles POST /api/strategies/{id}/buy
func (h *Handler) HandleManualBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.coord.ManualBuy)
}

// HandleManualSell handles POST /api/strategies/{id}/sell
func (h *Handler) HandleManualSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.coord.ManualSell)
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request, place func(context.Context, string, string, int64) (domain.Trade, error)) {
	id := chi.URLParam(r, "id")

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := place(context.WithoutCancel(r.Context()), id, req.Ticker, req.Shares)
	if err != nil {
		h.log.Warn().Err(err).Str("strategy", id).Str("ticker", req.Ticker).Msg("Manual order refused")
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	h.writeData(w, http.StatusOK, trade)
}

// errorStatus maps the domain error taxonomy onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownStrategy), errors.Is(err, domain.ErrLedgerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientCash), errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
