package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/strategies/{id}/ledger", h.HandleGetLedger)
	r.Post("/strategies/{id}/reset", h.HandleReset)
}
