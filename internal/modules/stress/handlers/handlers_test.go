package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustmycode/moex-agent-mcp/internal/modules/stress"
)

func newTestRouter(varDefaults stress.VarConfig) *chi.Mux {
	service := stress.NewService(zerolog.Nop())
	handler := NewHandler(service, varDefaults, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func postJSON(t *testing.T, router *chi.Mux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeVarResult(t *testing.T, rec *httptest.ResponseRecorder) stress.VarLightResult {
	t.Helper()

	var response struct {
		Data stress.VarLightResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response.Data
}

func TestHandleVarLightUsesConfiguredDefaults(t *testing.T) {
	router := newTestRouter(stress.VarConfig{
		Confidence:            0.99,
		HorizonDays:           10,
		FallbackVolatilityPct: 15.0,
	})

	rec := postJSON(t, router, "/api/stress/var-light", map[string]interface{}{
		"config": map[string]interface{}{},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeVarResult(t, rec)

	assert.Equal(t, 0.99, result.Confidence)
	assert.Equal(t, 10, result.HorizonDays)
	assert.Equal(t, 15.0, result.VolatilityPct)
}

func TestHandleVarLightRequestOverridesDefaults(t *testing.T) {
	router := newTestRouter(stress.VarConfig{
		Confidence:            0.99,
		HorizonDays:           10,
		FallbackVolatilityPct: 15.0,
	})

	rec := postJSON(t, router, "/api/stress/var-light", map[string]interface{}{
		"portfolio_volatility_pct": 30.0,
		"config": map[string]interface{}{
			"confidence":   0.95,
			"horizon_days": 1,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeVarResult(t, rec)

	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, 1, result.HorizonDays)
	assert.Equal(t, 30.0, result.VolatilityPct)
	assert.Greater(t, result.VarPct, 0.0)
}

func TestHandleScenarios(t *testing.T) {
	router := newTestRouter(stress.VarConfig{})

	rec := postJSON(t, router, "/api/stress/scenarios", map[string]interface{}{
		"portfolio": map[string]interface{}{
			"base_currency": "RUB",
			"asset_class_weights": map[string]float64{
				"equity": 1.0,
			},
		},
		"scenario_ids": []string{stress.ScenarioEquityDownFXUp},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Scenarios []stress.ScenarioResult `json:"scenarios"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	require.Len(t, response.Data.Scenarios, 1)
	assert.True(t, math.Abs(response.Data.Scenarios[0].PnLPct-(-10.0)) < 1e-9)
}

func TestHandleVarLightInvalidBody(t *testing.T) {
	router := newTestRouter(stress.VarConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/stress/var-light", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
