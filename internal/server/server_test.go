package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustmycode/moex-agent-mcp/internal/config"
)

func newTestServer() *Server {
	return New(Config{
		Log: zerolog.Nop(),
		Config: &config.Config{
			Port:                  8010,
			LogLevel:              "error",
			TradingDaysPerYear:    252,
			FallbackVolatilityPct: 15.0,
			VarConfidence:         0.99,
			VarHorizonDays:        10,
		},
		Port:    8010,
		DevMode: true,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIRoutesAreWired(t *testing.T) {
	srv := newTestServer()

	payload, err := json.Marshal(map[string]interface{}{
		"bars": map[string]interface{}{
			"SBER": []map[string]interface{}{
				{"date": "2024-01-10", "close": 100.0},
				{"date": "2024-01-11", "close": 105.0},
			},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/returns/daily", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVarLightUsesConfigDefaults(t *testing.T) {
	srv := newTestServer()

	payload, err := json.Marshal(map[string]interface{}{
		"config": map[string]interface{}{},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/stress/var-light", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Confidence    float64 `json:"confidence"`
			HorizonDays   int     `json:"horizon_days"`
			VolatilityPct float64 `json:"volatility_pct"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, 0.99, response.Data.Confidence)
	assert.Equal(t, 10, response.Data.HorizonDays)
	assert.Equal(t, 15.0, response.Data.VolatilityPct)
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
