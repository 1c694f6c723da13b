// Package handlers provides HTTP handlers for returns operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/returns"
)

// Handler handles returns HTTP requests
type Handler struct {
	service *returns.Service
	log     zerolog.Logger
}

// NewHandler creates a new returns handler
func NewHandler(service *returns.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "returns").Logger(),
	}
}

type dailyReturnsRequest struct {
	Bars map[string][]domain.Bar `json:"bars"`
}

type portfolioReturnsRequest struct {
	Bars            map[string][]domain.Bar `json:"bars"`
	Weights         map[string]float64      `json:"weights"`
	RebalancePolicy string                  `json:"rebalance_policy,omitempty"`
}

// HandleDailyReturns handles POST /api/returns/daily
func (h *Handler) HandleDailyReturns(w http.ResponseWriter, r *http.Request) {
	var req dailyReturnsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Bars) == 0 {
		h.writeError(w, http.StatusBadRequest, "bars are required")
		return
	}

	byTicker := h.service.BuildReturnsByTicker(req.Bars)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"returns": byTicker,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePortfolioReturns handles POST /api/returns/portfolio
func (h *Handler) HandlePortfolioReturns(w http.ResponseWriter, r *http.Request) {
	var req portfolioReturnsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Bars) == 0 {
		h.writeError(w, http.StatusBadRequest, "bars are required")
		return
	}

	policy := returns.RebalancePolicy(req.RebalancePolicy)
	if policy == "" {
		policy = returns.PolicyBuyAndHold
	}

	// Bar keys are ticker-normalized during return building, so weight keys
	// must be normalized the same way to line up.
	weights := make(map[string]float64, len(req.Weights))
	for ticker, w := range req.Weights {
		weights[domain.NormalizeTicker(ticker)] = w
	}

	byTicker := h.service.BuildReturnsByTicker(req.Bars)
	series, err := h.service.AggregatePortfolioReturns(byTicker, weights, policy)
	if err != nil {
		h.log.Warn().Err(err).Msg("Portfolio aggregation failed")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"returns":          series,
			"rebalance_policy": string(policy),
		},
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
