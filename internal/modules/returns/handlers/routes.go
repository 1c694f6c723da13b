package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all returns routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/returns", func(r chi.Router) {
		r.Post("/daily", h.HandleDailyReturns)
		r.Post("/portfolio", h.HandlePortfolioReturns)
	})
}
