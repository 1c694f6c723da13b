package stress

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/trustmycode/moex-agent-mcp/pkg/formulas"
)

// VaR defaults applied when the config leaves a field unset.
const (
	MethodParametricNormal = "parametric_normal"

	DefaultVarConfidence         = 0.95
	DefaultVarHorizonDays        = 1
	DefaultFallbackVolatilityPct = 20.0
)

// ComputeVarLight computes a single-factor parametric VaR from annualized
// volatility. The volatility used is, in priority order: the caller-supplied
// value, the config reference volatility, then the fixed fallback. An
// effective volatility <= 0 yields a zero VaR rather than an error.
func (s *Service) ComputeVarLight(portfolioVolatilityPct *float64, cfg VarConfig) VarLightResult {
	confidence := cfg.Confidence
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultVarConfidence
	}
	horizonDays := cfg.HorizonDays
	if horizonDays <= 0 {
		horizonDays = DefaultVarHorizonDays
	}
	fallback := cfg.FallbackVolatilityPct
	if fallback <= 0 {
		fallback = DefaultFallbackVolatilityPct
	}

	volatilityPct := fallback
	switch {
	case portfolioVolatilityPct != nil:
		volatilityPct = *portfolioVolatilityPct
	case cfg.ReferenceVolatilityPct != nil:
		volatilityPct = *cfg.ReferenceVolatilityPct
	}

	result := VarLightResult{
		Method:        MethodParametricNormal,
		Confidence:    confidence,
		HorizonDays:   horizonDays,
		VolatilityPct: volatilityPct,
	}

	if volatilityPct <= 0 {
		s.log.Debug().
			Float64("volatility_pct", volatilityPct).
			Msg("Non-positive volatility, VaR is zero")
		return result
	}

	// Annual -> daily -> horizon scaling, then the normal quantile at the
	// requested confidence level.
	dailyVolPct := volatilityPct / math.Sqrt(float64(formulas.TradingDaysPerYear))
	horizonVolPct := dailyVolPct * math.Sqrt(float64(horizonDays))
	zScore := distuv.UnitNormal.Quantile(confidence)

	result.VarPct = math.Max(0, horizonVolPct*zScore)

	s.log.Debug().
		Float64("volatility_pct", volatilityPct).
		Float64("confidence", confidence).
		Int("horizon_days", horizonDays).
		Float64("var_pct", result.VarPct).
		Msg("Computed parametric VaR")

	return result
}
