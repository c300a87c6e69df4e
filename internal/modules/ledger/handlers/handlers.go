// Package handlers provides HTTP handlers for ledger inspection and reset.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

// LedgerService is the subset of ledger.Service the handlers use
type LedgerService interface {
	Get(strategyID string) (*ledger.Ledger, error)
	Reset(ctx context.Context, strategyID string, confirmed bool) (*ledger.Ledger, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	service LedgerService
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service LedgerService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetLedger handles GET /api/strategies/{id}/ledger
func (h *Handler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"strategy_id":     id,
			"ledger":          l,
			"open_tickers":    l.OpenTickers(),
			"cost_basis":      l.CostBasis(),
			"realized_profit": l.RealizedProfit(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleReset handles POST /api/strategies/{id}/reset?confirm=yes
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := r.URL.Query().Get("confirm") == "yes"

	l, err := h.service.Reset(r.Context(), id, confirmed)
	if err != nil {
		h.writeError(w, id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"strategy_id": id,
			"ledger":      l,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, domain.ErrLedgerNotFound):
		http.Error(w, "Ledger not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrResetNotConfirmed):
		http.Error(w, "Reset requires confirm=yes", http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Str("strategy", id).Msg("Ledger request failed")
		http.Error(w, "Ledger unavailable", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
