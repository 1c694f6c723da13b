package stress

// PortfolioAggregates holds the portfolio-level exposure aggregates the stress
// scenarios shock. Asset-class weights sum to at most 1 and default to a pure
// equity book when empty; durations are optional and zero a scenario when
// unset.
type PortfolioAggregates struct {
	BaseCurrency              string             `json:"base_currency"`
	AssetClassWeights         map[string]float64 `json:"asset_class_weights,omitempty"`
	CurrencyExposure          map[string]float64 `json:"currency_exposure,omitempty"`
	FixedIncomeDurationYears  *float64           `json:"fixed_income_duration_years,omitempty"`
	CreditSpreadDurationYears *float64           `json:"credit_spread_duration_years,omitempty"`
}

// ScenarioResult is the outcome of one fixed shock scenario. Drivers record
// the named numeric inputs that produced the P&L, for auditability.
type ScenarioResult struct {
	ScenarioID  string             `json:"scenario_id"`
	Description string             `json:"description"`
	PnLPct      float64            `json:"pnl_pct"`
	Drivers     map[string]float64 `json:"drivers"`
}

// VarConfig parameterizes the parametric VaR estimate. Zero values fall back
// to the package defaults; nothing is read from process-wide state.
type VarConfig struct {
	Confidence             float64  `json:"confidence"`
	HorizonDays            int      `json:"horizon_days"`
	ReferenceVolatilityPct *float64 `json:"reference_volatility_pct,omitempty"`
	FallbackVolatilityPct  float64  `json:"fallback_volatility_pct,omitempty"`
}

// VarLightResult is a single-factor parametric VaR estimate. VarPct is a loss
// magnitude expressed as a positive percentage of portfolio value at the
// stated horizon.
type VarLightResult struct {
	Method        string  `json:"method"`
	Confidence    float64 `json:"confidence"`
	HorizonDays   int     `json:"horizon_days"`
	VolatilityPct float64 `json:"volatility_pct"`
	VarPct        float64 `json:"var_pct"`
}
