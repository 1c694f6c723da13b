// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	DevMode  bool

	// Engine defaults, passed explicitly into engine calls (no process-wide state)
	TradingDaysPerYear    int     // Annualization convention, default 252
	FallbackVolatilityPct float64 // Reference volatility when callers supply none
	VarConfidence         float64 // Default VaR confidence level
	VarHorizonDays        int     // Default VaR horizon in trading days
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnvAsInt("PORT", 8010),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		TradingDaysPerYear:    getEnvAsInt("TRADING_DAYS_PER_YEAR", 252),
		FallbackVolatilityPct: getEnvAsFloat("FALLBACK_VOLATILITY_PCT", 20.0),
		VarConfidence:         getEnvAsFloat("VAR_CONFIDENCE", 0.95),
		VarHorizonDays:        getEnvAsInt("VAR_HORIZON_DAYS", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.TradingDaysPerYear <= 0 {
		return fmt.Errorf("invalid trading days per year: %d", c.TradingDaysPerYear)
	}
	if c.VarConfidence <= 0 || c.VarConfidence >= 1 {
		return fmt.Errorf("VaR confidence must be in (0, 1), got %f", c.VarConfidence)
	}
	if c.VarHorizonDays <= 0 {
		return fmt.Errorf("invalid VaR horizon: %d", c.VarHorizonDays)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
