package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the coordinator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/strategies", h.HandleListStrategies)
	r.Get("/strategies/{id}/plan", h.HandleGetPlan)
	r.Get("/strategies/{id}/status", h.HandleGetStatus)
	r.Get("/strategies/{id}/history", h.HandleGetHistory)
	r.Post("/strategies/{id}/buy", h.HandleManualBuy)
	r.Post("/strategies/{id}/sell", h.HandleManualSell)
	r.Get("/summary", h.HandleGetSummary)
	r.Post("/cycle/{action}", h.HandleRunAction)
}
