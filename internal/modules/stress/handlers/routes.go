package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stress testing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stress", func(r chi.Router) {
		r.Post("/scenarios", h.HandleScenarios)
		r.Post("/var-light", h.HandleVarLight)
	})
}
