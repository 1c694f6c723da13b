package rebalancing

import (
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(zerolog.Nop())
}

func floatPtr(v float64) *float64 {
	return &v
}

func concentratedBook() []Position {
	return []Position{
		{Ticker: "SBER", Weight: 0.45, AssetClass: "equity"},
		{Ticker: "GAZP", Weight: 0.20, AssetClass: "equity"},
		{Ticker: "LKOH", Weight: 0.15, AssetClass: "equity"},
		{Ticker: "ROSN", Weight: 0.10, AssetClass: "equity"},
		{Ticker: "GMKN", Weight: 0.10, AssetClass: "equity"},
	}
}

func assertWeightsConsistent(t *testing.T, result *Result) {
	t.Helper()

	sum := 0.0
	for ticker, w := range result.TargetWeights {
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s must be non-negative", ticker)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-3)

	deltaSum := 0.0
	for _, trade := range result.Trades {
		deltaSum += trade.WeightDelta
	}
	assert.InDelta(t, 0.0, deltaSum, 1e-3)
}

func TestComputeRebalanceEmptyPortfolio(t *testing.T) {
	svc := newTestService()

	_, err := svc.ComputeRebalance(nil, RiskProfile{MaxTurnover: 0.3}, nil)
	require.ErrorIs(t, err, ErrEmptyPortfolio)
}

func TestComputeRebalanceInvalidProfile(t *testing.T) {
	svc := newTestService()

	_, err := svc.ComputeRebalance(concentratedBook(), RiskProfile{MaxTurnover: 1.5}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max turnover")
}

func TestComputeRebalancePositionCap(t *testing.T) {
	svc := newTestService()

	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.30}
	result, err := svc.ComputeRebalance(concentratedBook(), profile, nil)
	require.NoError(t, err)

	assertWeightsConsistent(t, result)
	assert.LessOrEqual(t, result.TargetWeights["SBER"], 0.25+1e-6)
	assert.GreaterOrEqual(t, result.Summary.IssuesResolved, 1)
	assert.InDelta(t, 0.20, result.Summary.Turnover, 1e-9)
	assert.True(t, result.Summary.TurnoverWithinLimit)

	// One sell for the clipped position, buys absorbing the freed weight.
	var sberTrade *Trade
	for i := range result.Trades {
		if result.Trades[i].Ticker == "SBER" {
			sberTrade = &result.Trades[i]
		}
	}
	require.NotNil(t, sberTrade)
	assert.Equal(t, SideSell, sberTrade.Side)
	assert.InDelta(t, -0.20, sberTrade.WeightDelta, 1e-9)
}

func TestComputeRebalanceIdempotentOnCompliantBook(t *testing.T) {
	svc := newTestService()

	positions := []Position{
		{Ticker: "SBER", Weight: 0.25, AssetClass: "equity"},
		{Ticker: "GAZP", Weight: 0.25, AssetClass: "equity"},
		{Ticker: "LKOH", Weight: 0.25, AssetClass: "equity"},
		{Ticker: "ROSN", Weight: 0.25, AssetClass: "equity"},
	}
	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.30}

	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.Summary.PositionsChanged)
	assert.InDelta(t, 0.0, result.Summary.Turnover, 1e-9)
}

func TestComputeRebalanceSinglePositionOverCap(t *testing.T) {
	svc := newTestService()

	positions := []Position{{Ticker: "SBER", Weight: 1.0, AssetClass: "equity"}}
	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.30}

	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	// Nothing to redistribute into, so the weight stays put and the residual
	// violation surfaces as a warning instead of an error.
	assert.InDelta(t, 1.0, result.TargetWeights["SBER"], 1e-9)
	assert.NotEmpty(t, result.Summary.Warnings)
	assert.Empty(t, result.Trades)
}

func TestComputeRebalanceSingleLockedPositionInfeasible(t *testing.T) {
	svc := newTestService()

	positions := []Position{{Ticker: "SBER", Weight: 1.0, AssetClass: "equity", Locked: true}}
	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.30}

	_, err := svc.ComputeRebalance(positions, profile, nil)

	var infeasibleErr *ConstraintsInfeasibleError
	require.ErrorAs(t, err, &infeasibleErr)
	assert.NotEmpty(t, infeasibleErr.Issues)
}

func TestComputeRebalanceIssuerCap(t *testing.T) {
	svc := newTestService()

	positions := []Position{
		{Ticker: "ALFA-P", Weight: 0.30, AssetClass: "equity", Issuer: "ALPHA"},
		{Ticker: "ALFA-O", Weight: 0.30, AssetClass: "equity", Issuer: "ALPHA"},
		{Ticker: "BETA-O", Weight: 0.40, AssetClass: "equity", Issuer: "BETA"},
	}
	profile := RiskProfile{MaxIssuerWeight: 0.50, MaxTurnover: 0.50}

	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	assertWeightsConsistent(t, result)
	alphaTotal := result.TargetWeights["ALFA-P"] + result.TargetWeights["ALFA-O"]
	assert.LessOrEqual(t, alphaTotal, 0.50+1e-6)
	assert.GreaterOrEqual(t, result.Summary.IssuesResolved, 1)
}

func TestComputeRebalanceAssetClassCap(t *testing.T) {
	svc := newTestService()

	positions := []Position{
		{Ticker: "SBER", Weight: 0.40, AssetClass: "equity"},
		{Ticker: "GAZP", Weight: 0.30, AssetClass: "equity"},
		{Ticker: "OFZ26240", Weight: 0.30, AssetClass: "fixed_income"},
	}
	profile := RiskProfile{
		MaxAssetClassWeights: map[string]float64{"equity": 0.50},
		MaxTurnover:          0.50,
	}

	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	assertWeightsConsistent(t, result)
	equityTotal := result.TargetWeights["SBER"] + result.TargetWeights["GAZP"]
	assert.InDelta(t, 0.50, equityTotal, 1e-6)
	assert.InDelta(t, 0.50, result.TargetWeights["OFZ26240"], 1e-6)
}

func TestComputeRebalanceClassTargets(t *testing.T) {
	svc := newTestService()

	positions := []Position{
		{Ticker: "SBER", Weight: 0.80, AssetClass: "equity"},
		{Ticker: "OFZ26240", Weight: 0.20, AssetClass: "fixed_income"},
	}
	profile := RiskProfile{
		TargetAssetClassWeights: map[string]float64{"equity": 0.60, "fixed_income": 0.40},
		MaxTurnover:             0.50,
	}

	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	assertWeightsConsistent(t, result)
	assert.InDelta(t, 0.60, result.TargetWeights["SBER"], 1e-6)
	assert.InDelta(t, 0.40, result.TargetWeights["OFZ26240"], 1e-6)
}

func TestComputeRebalanceTurnoverBudgetScalesTrades(t *testing.T) {
	svc := newTestService()

	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.10}
	result, err := svc.ComputeRebalance(concentratedBook(), profile, nil)
	require.NoError(t, err)

	assertWeightsConsistent(t, result)
	assert.InDelta(t, 0.10, result.Summary.Turnover, 1e-9)
	assert.True(t, result.Summary.TurnoverWithinLimit)

	// Scaling stopped short of the cap, which must show up as a warning.
	assert.Greater(t, result.TargetWeights["SBER"], 0.25)
	require.NotEmpty(t, result.Summary.Warnings)

	foundTurnoverWarning := false
	for _, w := range result.Summary.Warnings {
		if strings.HasPrefix(w, "turnover") {
			foundTurnoverWarning = true
			assert.Contains(t, w, "scaled down by factor")
		}
	}
	assert.True(t, foundTurnoverWarning)
}

func TestComputeRebalanceLockedPositionUntouched(t *testing.T) {
	svc := newTestService()

	positions := concentratedBook()
	positions[0].Locked = true

	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.30}
	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	// Locked weight stays where it is; the violation becomes a warning.
	assert.InDelta(t, 0.45, result.TargetWeights["SBER"], 1e-9)
	assert.NotEmpty(t, result.Summary.Warnings)
	for _, trade := range result.Trades {
		assert.NotEqual(t, "SBER", trade.Ticker)
	}
}

func TestComputeRebalanceTradeValues(t *testing.T) {
	svc := newTestService()

	profile := RiskProfile{MaxPositionWeight: 0.25, MaxTurnover: 0.30}
	result, err := svc.ComputeRebalance(concentratedBook(), profile, floatPtr(1_000_000))
	require.NoError(t, err)

	for _, trade := range result.Trades {
		require.NotNil(t, trade.EstimatedValue)
		assert.InDelta(t, math.Abs(trade.WeightDelta)*1_000_000, *trade.EstimatedValue, 1e-6)
	}
}

func TestComputeRebalanceNormalizesRawWeights(t *testing.T) {
	svc := newTestService()

	// Market values instead of fractions.
	positions := []Position{
		{Ticker: "SBER", Weight: 450, AssetClass: "equity"},
		{Ticker: "GAZP", Weight: 550, AssetClass: "equity"},
	}
	profile := RiskProfile{MaxTurnover: 0.30}

	result, err := svc.ComputeRebalance(positions, profile, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.45, result.TargetWeights["SBER"], 1e-9)
	assert.InDelta(t, 0.55, result.TargetWeights["GAZP"], 1e-9)
	assert.Empty(t, result.Trades)
}

func TestComputeRebalanceRejectsNegativeWeight(t *testing.T) {
	svc := newTestService()

	positions := []Position{
		{Ticker: "SBER", Weight: -0.1, AssetClass: "equity"},
		{Ticker: "GAZP", Weight: 1.1, AssetClass: "equity"},
	}

	_, err := svc.ComputeRebalance(positions, RiskProfile{MaxTurnover: 0.3}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative weight")
}
