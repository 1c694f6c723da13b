// Package handlers provides HTTP handlers for correlation operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/correlation"
	"github.com/trustmycode/moex-agent-mcp/internal/modules/returns"
)

// Handler handles correlation HTTP requests
type Handler struct {
	service        *correlation.Service
	returnsService *returns.Service
	log            zerolog.Logger
}

// NewHandler creates a new correlation handler
func NewHandler(service *correlation.Service, returnsService *returns.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service:        service,
		returnsService: returnsService,
		log:            log.With().Str("handler", "correlation").Logger(),
	}
}

type matrixRequest struct {
	Tickers []string                `json:"tickers"`
	Bars    map[string][]domain.Bar `json:"bars"`
}

// HandleMatrix handles POST /api/correlation/matrix
func (h *Handler) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	var req matrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	byTicker := h.returnsService.BuildReturnsByTicker(req.Bars)

	result, err := h.service.ComputeCorrelationMatrix(req.Tickers, byTicker)
	if err != nil {
		var insufficientErr *correlation.InsufficientDataError
		if errors.As(err, &insufficientErr) {
			h.writeError(w, http.StatusUnprocessableEntity, insufficientErr.Error())
			return
		}
		h.log.Error().Err(err).Msg("Correlation matrix computation failed")
		h.writeError(w, http.StatusInternalServerError, "failed to compute correlation matrix")
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
