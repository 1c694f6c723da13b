// Package metrics computes aggregate portfolio metrics from return series and
// concentration measures from weight maps.
package metrics

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
	"github.com/trustmycode/moex-agent-mcp/pkg/formulas"
)

// BasicMetrics bundles the portfolio-level return and risk figures. Fields are
// nil when the input series carried too little data to compute them.
type BasicMetrics struct {
	TotalReturnPct          *float64 `json:"total_return_pct,omitempty"`
	AnnualizedVolatilityPct *float64 `json:"annualized_volatility_pct,omitempty"`
	MaxDrawdownPct          *float64 `json:"max_drawdown_pct,omitempty"`
}

// Concentration holds top-N weight sums and the Herfindahl-Hirschman Index.
type Concentration struct {
	Top1WeightPct float64 `json:"top1_weight_pct"`
	Top3WeightPct float64 `json:"top3_weight_pct"`
	Top5WeightPct float64 `json:"top5_weight_pct"`
	HHI           float64 `json:"hhi"`
}

// Service computes portfolio metrics.
type Service struct {
	tradingDays int
	log         zerolog.Logger
}

// NewService creates a new metrics service. tradingDays is the annualization
// convention; values <= 0 fall back to 252.
func NewService(tradingDays int, log zerolog.Logger) *Service {
	if tradingDays <= 0 {
		tradingDays = formulas.TradingDaysPerYear
	}
	return &Service{
		tradingDays: tradingDays,
		log:         log.With().Str("component", "metrics").Logger(),
	}
}

// TotalReturnPct compounds a return series into a total return percentage.
// Returns nil for an empty series.
func (s *Service) TotalReturnPct(returns []domain.DailyReturn) *float64 {
	if len(returns) == 0 {
		return nil
	}
	equity := 1.0
	for _, r := range returns {
		equity *= 1 + r.Return
	}
	total := (equity - 1) * 100
	return &total
}

// AnnualizedVolatilityPct computes annualized volatility in percent from a
// daily return series. Requires at least 2 observations; returns nil otherwise.
func (s *Service) AnnualizedVolatilityPct(returns []domain.DailyReturn) *float64 {
	if len(returns) < 2 {
		return nil
	}
	values := make([]float64, len(returns))
	for i, r := range returns {
		values[i] = r.Return
	}
	vol := formulas.AnnualizedVolatility(values, s.tradingDays) * 100
	return &vol
}

// MaxDrawdownPct computes the maximum peak-to-trough drawdown of the equity
// curve implied by a return series, as a positive percentage. Returns nil for
// an empty series and 0 for an all-nonnegative one.
func (s *Service) MaxDrawdownPct(returns []domain.DailyReturn) *float64 {
	if len(returns) == 0 {
		return nil
	}

	equity := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	for _, r := range returns {
		equity *= 1 + r.Return
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			drawdown := equity/peak - 1
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	result := -maxDrawdown * 100
	return &result
}

// BasicPortfolioMetrics computes total return, annualized volatility and max
// drawdown for a return series.
func (s *Service) BasicPortfolioMetrics(returns []domain.DailyReturn) BasicMetrics {
	m := BasicMetrics{
		TotalReturnPct:          s.TotalReturnPct(returns),
		AnnualizedVolatilityPct: s.AnnualizedVolatilityPct(returns),
		MaxDrawdownPct:          s.MaxDrawdownPct(returns),
	}

	s.log.Debug().
		Int("observations", len(returns)).
		Msg("Computed basic portfolio metrics")

	return m
}

// ConcentrationMetrics computes top-1/3/5 weight sums (in percent of the total)
// and the HHI over normalized weights. Returns nil for an empty weight map or a
// zero-sum weight map.
func (s *Service) ConcentrationMetrics(weights map[string]float64) *Concentration {
	if len(weights) == 0 {
		return nil
	}

	normalized, err := domain.NormalizeWeights(weights)
	if err != nil {
		s.log.Warn().Err(err).Msg("Cannot normalize weights for concentration metrics")
		return nil
	}

	sorted := make([]float64, 0, len(normalized))
	hhi := 0.0
	for _, w := range normalized {
		sorted = append(sorted, w)
		hhi += w * w
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	return &Concentration{
		Top1WeightPct: topNSum(sorted, 1) * 100,
		Top3WeightPct: topNSum(sorted, 3) * 100,
		Top5WeightPct: topNSum(sorted, 5) * 100,
		HHI:           hhi,
	}
}

// topNSum sums the first n entries of a descending-sorted slice, or all of
// them when fewer than n exist.
func topNSum(sorted []float64, n int) float64 {
	if n > len(sorted) {
		n = len(sorted)
	}
	sum := 0.0
	for _, w := range sorted[:n] {
		sum += w
	}
	return sum
}
