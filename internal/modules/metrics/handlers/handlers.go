// Package handlers provides HTTP handlers for portfolio metrics operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/metrics"
)

// Handler handles portfolio metrics HTTP requests
type Handler struct {
	service *metrics.Service
	log     zerolog.Logger
}

// NewHandler creates a new metrics handler
func NewHandler(service *metrics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "metrics").Logger(),
	}
}

type basicMetricsRequest struct {
	Returns []domain.DailyReturn `json:"returns"`
}

type concentrationRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// HandleBasicMetrics handles POST /api/metrics/basic
func (h *Handler) HandleBasicMetrics(w http.ResponseWriter, r *http.Request) {
	var req basicMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.service.BasicPortfolioMetrics(req.Returns)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"observations": len(req.Returns),
			"timestamp":    time.Now().Format(time.RFC3339),
		},
	})
}

// HandleConcentration handles POST /api/metrics/concentration
func (h *Handler) HandleConcentration(w http.ResponseWriter, r *http.Request) {
	var req concentrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.service.ConcentrationMetrics(req.Weights)
	if result == nil {
		h.writeError(w, http.StatusBadRequest, "weights must be non-empty with a positive sum")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"positions": len(req.Weights),
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
