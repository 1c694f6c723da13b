package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 252, cfg.TradingDaysPerYear)
	assert.Equal(t, 20.0, cfg.FallbackVolatilityPct)
	assert.Equal(t, 0.95, cfg.VarConfidence)
	assert.Equal(t, 1, cfg.VarHorizonDays)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("VAR_CONFIDENCE", "0.99")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 0.99, cfg.VarConfidence)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "invalid trading days",
			mutate:  func(c *Config) { c.TradingDaysPerYear = -1 },
			wantErr: "trading days",
		},
		{
			name:    "confidence too high",
			mutate:  func(c *Config) { c.VarConfidence = 1.0 },
			wantErr: "confidence",
		},
		{
			name:    "invalid horizon",
			mutate:  func(c *Config) { c.VarHorizonDays = 0 },
			wantErr: "horizon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:               8010,
				LogLevel:           "info",
				TradingDaysPerYear: 252,
				VarConfidence:      0.95,
				VarHorizonDays:     1,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
