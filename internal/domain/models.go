// Package domain holds the pure data types shared by the calculation modules.
// Nothing in this package performs I/O or keeps state between calls.
package domain

import (
	"fmt"
	"strings"
)

// WeightSumTolerance is the tolerance applied when checking that a normalized
// weight map sums to 1.0.
const WeightSumTolerance = 1e-6

// Bar is a single already-parsed OHLCV observation. Dates use the "2006-01-02"
// format and bars are expected ordered ascending by date.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// DailyReturn is a simple (not log) return for one calendar date.
type DailyReturn struct {
	Date   string  `json:"date"`
	Return float64 `json:"return"`
}

// ReturnsByTicker maps an upper-cased ticker symbol to its ordered daily return
// series. Built once per request and treated as immutable afterwards.
type ReturnsByTicker map[string][]DailyReturn

// NormalizeTicker canonicalizes a ticker symbol for map keys.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NormalizeWeights scales a weight map so the weights sum to 1.0. The input map
// is never modified. Negative weights and a zero (or negative) total are
// rejected as caller bugs.
func NormalizeWeights(weights map[string]float64) (map[string]float64, error) {
	total := 0.0
	for ticker, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %f for ticker %s", w, ticker)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("weights sum to %f, cannot normalize", total)
	}

	normalized := make(map[string]float64, len(weights))
	for ticker, w := range weights {
		normalized[ticker] = w / total
	}
	return normalized, nil
}
