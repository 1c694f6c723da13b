// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/modules/rebalancing"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *rebalancing.Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *rebalancing.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

type computeRequest struct {
	Positions  []rebalancing.Position  `json:"positions"`
	Profile    rebalancing.RiskProfile `json:"profile"`
	TotalValue *float64                `json:"total_value,omitempty"`
}

// HandleCompute handles POST /api/rebalance/compute
func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.ComputeRebalance(req.Positions, req.Profile, req.TotalValue)
	if err != nil {
		var infeasibleErr *rebalancing.ConstraintsInfeasibleError
		switch {
		case errors.As(err, &infeasibleErr):
			h.writeError(w, http.StatusUnprocessableEntity, infeasibleErr.Error())
		case errors.Is(err, rebalancing.ErrEmptyPortfolio):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Warn().Err(err).Msg("Rebalance computation failed")
			h.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
