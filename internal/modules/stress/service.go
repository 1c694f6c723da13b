// Package stress runs fixed shock scenarios against portfolio exposure
// aggregates and computes a parametric VaR from annualized volatility.
package stress

import (
	"strings"

	"github.com/rs/zerolog"
)

// Fixed scenario identifiers. Callers may request a superset; unknown ids are
// silently skipped.
const (
	ScenarioEquityDownFXUp = "equity_-10_fx_+20"
	ScenarioRatesUp300     = "rates_+300bp"
	ScenarioSpreadsUp150   = "credit_spreads_+150bp"
)

// Shock magnitudes, in percent of portfolio value per unit of exposure.
const (
	equityShockPct   = -10.0
	fxShockPct       = 20.0
	rateShockPct     = 3.0 // +300bp
	spreadShockPct   = 1.5 // +150bp
	assetClassEquity = "equity"
	assetClassFixed  = "fixed_income"
)

// Service runs stress scenarios.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new stress service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "stress").Logger(),
	}
}

// DefaultScenarioIDs returns the full fixed scenario list in its canonical
// order. A fresh slice is returned on every call.
func DefaultScenarioIDs() []string {
	return []string{ScenarioEquityDownFXUp, ScenarioRatesUp300, ScenarioSpreadsUp150}
}

// RunStressScenarios applies the requested fixed shock scenarios to the
// portfolio aggregates. A nil or empty id list runs every scenario; unknown
// ids are skipped so callers can request a superset.
func (s *Service) RunStressScenarios(agg PortfolioAggregates, scenarioIDs []string) []ScenarioResult {
	if len(scenarioIDs) == 0 {
		scenarioIDs = DefaultScenarioIDs()
	}

	classWeights := normalizedClassWeights(agg.AssetClassWeights)

	results := make([]ScenarioResult, 0, len(scenarioIDs))
	for _, id := range scenarioIDs {
		switch id {
		case ScenarioEquityDownFXUp:
			results = append(results, s.runEquityFXScenario(agg, classWeights))
		case ScenarioRatesUp300:
			results = append(results, s.runRatesScenario(classWeights, agg.FixedIncomeDurationYears))
		case ScenarioSpreadsUp150:
			results = append(results, s.runSpreadsScenario(agg, classWeights))
		default:
			s.log.Debug().Str("scenario_id", id).Msg("Unknown stress scenario, skipping")
		}
	}

	s.log.Debug().
		Int("requested", len(scenarioIDs)).
		Int("executed", len(results)).
		Msg("Ran stress scenarios")

	return results
}

// runEquityFXScenario shocks equities down 10% while non-base currencies
// appreciate 20%.
func (s *Service) runEquityFXScenario(agg PortfolioAggregates, classWeights map[string]float64) ScenarioResult {
	equityWeight := classWeights[assetClassEquity]
	fxWeight := fxExposedWeight(agg)

	pnl := equityWeight*equityShockPct + fxWeight*fxShockPct

	return ScenarioResult{
		ScenarioID:  ScenarioEquityDownFXUp,
		Description: "Equity -10%, foreign currencies +20% vs base",
		PnLPct:      pnl,
		Drivers: map[string]float64{
			"equity_weight":     equityWeight,
			"fx_exposed_weight": fxWeight,
			"equity_shock_pct":  equityShockPct,
			"fx_shock_pct":      fxShockPct,
		},
	}
}

// runRatesScenario shocks rates up 300bp against fixed-income duration. A
// missing duration zeroes the scenario.
func (s *Service) runRatesScenario(classWeights map[string]float64, duration *float64) ScenarioResult {
	fixedWeight := classWeights[assetClassFixed]
	durationYears := 0.0
	if duration != nil {
		durationYears = *duration
	}

	pnl := -fixedWeight * durationYears * rateShockPct

	return ScenarioResult{
		ScenarioID:  ScenarioRatesUp300,
		Description: "Interest rates +300bp across the curve",
		PnLPct:      pnl,
		Drivers: map[string]float64{
			"fixed_income_weight": fixedWeight,
			"duration_years":      durationYears,
			"rate_shock_pct":      rateShockPct,
		},
	}
}

// runSpreadsScenario shocks credit spreads up 150bp. The credit weight falls
// back to the fixed-income weight when no explicit credit bucket exists, and
// spread duration falls back to fixed-income duration.
func (s *Service) runSpreadsScenario(agg PortfolioAggregates, classWeights map[string]float64) ScenarioResult {
	creditWeight, ok := classWeights["credit"]
	if !ok {
		creditWeight, ok = classWeights["corp_bonds"]
	}
	if !ok {
		creditWeight = classWeights[assetClassFixed]
	}

	spreadDuration := 0.0
	if agg.CreditSpreadDurationYears != nil {
		spreadDuration = *agg.CreditSpreadDurationYears
	} else if agg.FixedIncomeDurationYears != nil {
		spreadDuration = *agg.FixedIncomeDurationYears
	}

	pnl := -creditWeight * spreadDuration * spreadShockPct

	return ScenarioResult{
		ScenarioID:  ScenarioSpreadsUp150,
		Description: "Credit spreads +150bp",
		PnLPct:      pnl,
		Drivers: map[string]float64{
			"credit_weight":         creditWeight,
			"spread_duration_years": spreadDuration,
			"spread_shock_pct":      spreadShockPct,
		},
	}
}

// normalizedClassWeights scales the asset-class weights to sum to 1, defaulting
// to a pure equity book when none are supplied.
func normalizedClassWeights(weights map[string]float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return map[string]float64{assetClassEquity: 1.0}
	}

	normalized := make(map[string]float64, len(weights))
	for class, w := range weights {
		normalized[class] = w / total
	}
	return normalized
}

// fxExposedWeight sums the currency exposure weights whose currency differs
// from the base currency.
func fxExposedWeight(agg PortfolioAggregates) float64 {
	base := strings.ToUpper(strings.TrimSpace(agg.BaseCurrency))
	sum := 0.0
	for currency, w := range agg.CurrencyExposure {
		if strings.ToUpper(strings.TrimSpace(currency)) != base {
			sum += w
		}
	}
	return sum
}
