// Package handlers provides HTTP handlers for stress and VaR operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/modules/stress"
)

// Handler handles stress testing HTTP requests
type Handler struct {
	service     *stress.Service
	varDefaults stress.VarConfig
	log         zerolog.Logger
}

// NewHandler creates a new stress handler. varDefaults fills VaR config fields
// the request leaves unset.
func NewHandler(service *stress.Service, varDefaults stress.VarConfig, log zerolog.Logger) *Handler {
	return &Handler{
		service:     service,
		varDefaults: varDefaults,
		log:         log.With().Str("handler", "stress").Logger(),
	}
}

type scenariosRequest struct {
	Portfolio   stress.PortfolioAggregates `json:"portfolio"`
	ScenarioIDs []string                   `json:"scenario_ids,omitempty"`
}

type varLightRequest struct {
	PortfolioVolatilityPct *float64         `json:"portfolio_volatility_pct,omitempty"`
	Config                 stress.VarConfig `json:"config"`
}

// HandleScenarios handles POST /api/stress/scenarios
func (h *Handler) HandleScenarios(w http.ResponseWriter, r *http.Request) {
	var req scenariosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results := h.service.RunStressScenarios(req.Portfolio, req.ScenarioIDs)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"scenarios": results,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleVarLight handles POST /api/stress/var-light
func (h *Handler) HandleVarLight(w http.ResponseWriter, r *http.Request) {
	var req varLightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := req.Config
	if cfg.Confidence == 0 {
		cfg.Confidence = h.varDefaults.Confidence
	}
	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = h.varDefaults.HorizonDays
	}
	if cfg.FallbackVolatilityPct == 0 {
		cfg.FallbackVolatilityPct = h.varDefaults.FallbackVolatilityPct
	}

	result := h.service.ComputeVarLight(req.PortfolioVolatilityPct, cfg)

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
