// Package formulas provides shared statistics primitives used by the risk and
// metrics modules. All estimators are sample estimators (n-1 denominators).
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization convention for daily return series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// Formula: sample std dev of daily returns x sqrt(tradingDays).
func AnnualizedVolatility(dailyReturns []float64, tradingDays int) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	if tradingDays <= 0 {
		tradingDays = TradingDaysPerYear
	}
	return StdDev(dailyReturns) * math.Sqrt(float64(tradingDays))
}

// Correlation calculates the sample Pearson correlation coefficient between two
// equal-length series. Returns 0 for degenerate input.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Clamp restricts a value to the [min, max] range.
func Clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}
