package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Mean([]float64{}))
	assert.Equal(t, 0.0, Mean(nil))
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 1.0, StdDev([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 1.0, Variance([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Variance([]float64{7, 7, 7}))
	assert.Equal(t, 0.0, Variance([]float64{1}))
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, 0.0}

	expected := StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, AnnualizedVolatility(returns, 252), 1e-12)

	// Non-positive trading days fall back to the default convention.
	assert.InDelta(t, expected, AnnualizedVolatility(returns, 0), 1e-12)

	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01}, 252))
}

func TestCorrelation(t *testing.T) {
	assert.InDelta(t, 1.0, Correlation([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Correlation([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)

	// Degenerate inputs
	assert.Equal(t, 0.0, Correlation([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Correlation([]float64{1}, []float64{2}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(1.0000000002, -1, 1))
	assert.Equal(t, -1.0, Clamp(-5, -1, 1))
	assert.Equal(t, 0.5, Clamp(0.5, -1, 1))
}
