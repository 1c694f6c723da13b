// Package rebalancing derives a constraint-respecting target allocation and an
// implied trade list from current portfolio weights. The solver is a bounded
// multi-pass heuristic, not an optimizer: residual violations are surfaced as
// warnings rather than errors, except for the narrow structurally-infeasible
// case.
package rebalancing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
)

const (
	// maxConcentrationIterations bounds the concentration pass so the solver
	// always terminates.
	maxConcentrationIterations = 10

	// classTargetThreshold is the deviation above which a class is pulled
	// toward its explicit target allocation.
	classTargetThreshold = 0.01

	// minTradeWeight is the smallest |target - current| that emits a trade.
	minTradeWeight = 0.001

	adjustEpsilon = 1e-9
)

// Service is the rebalancing solver.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new rebalancing service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "rebalancing").Logger(),
	}
}

// solveState carries the working copy of one solve. Caller-owned inputs are
// never mutated; each pass transforms target into a fresh vector.
type solveState struct {
	positions []Position // defaults applied, order preserved
	current   []float64  // normalized current weights
	target    []float64
	resolved  int
	warnings  []string
}

// ComputeRebalance runs the full pass pipeline: normalize, asset-class caps,
// concentration loop, turnover budget, feasibility check, trade derivation.
// totalValue, when supplied, prices each trade in portfolio currency.
func (s *Service) ComputeRebalance(
	positions []Position,
	profile RiskProfile,
	totalValue *float64,
) (*Result, error) {
	if len(positions) == 0 {
		return nil, ErrEmptyPortfolio
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk profile: %w", err)
	}

	state, err := newSolveState(positions)
	if err != nil {
		return nil, err
	}

	state.applyAssetClassPass(profile)
	state.applyConcentrationPass(profile)
	turnoverScaled := state.applyTurnoverPass(profile)

	if err := state.checkFeasibility(profile); err != nil {
		return nil, err
	}

	turnover := state.turnover()
	trades := state.deriveTrades(totalValue)

	result := &Result{
		TargetWeights: state.targetWeights(),
		Trades:        trades,
		Summary: Summary{
			Turnover:            turnover,
			TurnoverWithinLimit: turnover <= profile.MaxTurnover+adjustEpsilon,
			PositionsChanged:    len(trades),
			IssuesResolved:      state.resolved,
			Warnings:            state.warnings,
		},
	}

	s.log.Debug().
		Int("positions", len(positions)).
		Int("trades", len(trades)).
		Int("issues_resolved", state.resolved).
		Int("warnings", len(state.warnings)).
		Float64("turnover", turnover).
		Bool("turnover_scaled", turnoverScaled).
		Msg("Computed rebalance")

	return result, nil
}

// newSolveState copies the input positions, applies issuer defaults and
// normalizes current weights so they sum to 1.
func newSolveState(positions []Position) (*solveState, error) {
	working := make([]Position, len(positions))
	weights := make(map[string]float64, len(positions))
	for i, p := range positions {
		p.Ticker = domain.NormalizeTicker(p.Ticker)
		if p.Issuer == "" {
			p.Issuer = p.Ticker
		}
		if p.Weight < 0 {
			return nil, fmt.Errorf("negative weight %f for position %s", p.Weight, p.Ticker)
		}
		working[i] = p
		weights[p.Ticker] = p.Weight
	}

	normalized, err := domain.NormalizeWeights(weights)
	if err != nil {
		return nil, fmt.Errorf("invalid position weights: %w", err)
	}

	current := make([]float64, len(working))
	target := make([]float64, len(working))
	for i, p := range working {
		current[i] = normalized[p.Ticker]
		target[i] = normalized[p.Ticker]
	}

	return &solveState{positions: working, current: current, target: target}, nil
}

// applyAssetClassPass scales down classes exceeding their caps, redistributing
// freed weight to unlocked positions outside the class, then pulls classes
// toward their explicit targets when the deviation exceeds the threshold.
func (st *solveState) applyAssetClassPass(profile RiskProfile) {
	next := append([]float64(nil), st.target...)

	for _, class := range sortedKeys(profile.MaxAssetClassWeights) {
		cap := profile.MaxAssetClassWeights[class]
		if cap <= 0 {
			continue
		}

		members, lockedTotal, freeTotal := st.classMembers(next, class)
		total := lockedTotal + freeTotal
		if total <= cap+adjustEpsilon {
			continue
		}
		if freeTotal <= 0 {
			st.warnings = append(st.warnings,
				fmt.Sprintf("asset class %s exceeds cap %.1f%% but every member is locked", class, cap*100))
			continue
		}

		desiredFree := math.Max(0, cap-lockedTotal)
		factor := desiredFree / freeTotal
		freed := freeTotal - desiredFree

		for _, i := range members {
			if !st.positions[i].Locked {
				next[i] *= factor
			}
		}
		st.redistribute(next, freed, func(i int) bool {
			return st.positions[i].AssetClass != class
		})
		st.resolved++
	}

	if len(profile.TargetAssetClassWeights) > 0 {
		for _, class := range sortedKeys(profile.TargetAssetClassWeights) {
			classTarget := profile.TargetAssetClassWeights[class]
			members, lockedTotal, freeTotal := st.classMembers(next, class)
			total := lockedTotal + freeTotal
			if len(members) == 0 || freeTotal <= 0 {
				continue
			}
			if math.Abs(total-classTarget) <= classTargetThreshold {
				continue
			}
			desiredFree := math.Max(0, classTarget-lockedTotal)
			factor := desiredFree / freeTotal
			for _, i := range members {
				if !st.positions[i].Locked {
					next[i] *= factor
				}
			}
		}
	}

	st.target = st.renormalize(next)
}

// applyConcentrationPass clips positions above the single-position cap and
// scales down issuers above the issuer cap, redistributing excess weight. It
// repeats until an iteration makes no adjustment, bounded by a fixed maximum.
func (st *solveState) applyConcentrationPass(profile RiskProfile) {
	for iter := 0; iter < maxConcentrationIterations; iter++ {
		next := append([]float64(nil), st.target...)
		changed := false

		if cap := profile.MaxPositionWeight; cap > 0 {
			for i := range st.positions {
				if st.positions[i].Locked || next[i] <= cap+adjustEpsilon {
					continue
				}
				excess := next[i] - cap
				next[i] = cap
				st.redistributeWithHeadroom(next, excess, i, cap)
				st.resolved++
				changed = true
			}
		}

		if cap := profile.MaxIssuerWeight; cap > 0 {
			for _, issuer := range st.issuerOrder() {
				members, lockedTotal, freeTotal := st.issuerMembers(next, issuer)
				total := lockedTotal + freeTotal
				if total <= cap+adjustEpsilon || freeTotal <= 0 {
					continue
				}
				desiredFree := math.Max(0, cap-lockedTotal)
				factor := desiredFree / freeTotal
				excess := freeTotal - desiredFree

				for _, i := range members {
					if !st.positions[i].Locked {
						next[i] *= factor
					}
				}
				// Excess goes to other issuers, proportional to their
				// current target weight.
				st.redistribute(next, excess, func(i int) bool {
					return st.positions[i].Issuer != issuer
				})
				st.resolved++
				changed = true
			}
		}

		st.target = st.renormalize(next)
		if !changed {
			break
		}
	}
}

// applyTurnoverPass scales every delta from current uniformly when turnover
// exceeds the budget. This is the single place imprecise results are accepted
// rather than re-iterated, which guarantees termination. Reports whether
// scaling happened.
func (st *solveState) applyTurnoverPass(profile RiskProfile) bool {
	turnover := st.turnover()
	if turnover <= profile.MaxTurnover+adjustEpsilon {
		return false
	}

	scale := profile.MaxTurnover / turnover
	next := make([]float64, len(st.target))
	for i := range st.target {
		next[i] = st.current[i] + (st.target[i]-st.current[i])*scale
	}
	st.target = next

	st.warnings = append(st.warnings, fmt.Sprintf(
		"turnover %.2f%% exceeds budget %.2f%%; all trades scaled down by factor %.2f",
		turnover*100, profile.MaxTurnover*100, scale))
	return true
}

// checkFeasibility recomputes remaining cap violations after all passes.
// Violations downgrade to warnings whenever the portfolio has more than one
// position or any issue was resolved along the way; the hard error is
// reserved for the degenerate case where no improvement could occur at all.
func (st *solveState) checkFeasibility(profile RiskProfile) error {
	var issues []string

	if cap := profile.MaxPositionWeight; cap > 0 {
		for i, p := range st.positions {
			if st.target[i] > cap+minTradeWeight {
				issues = append(issues, fmt.Sprintf(
					"position %s at %.2f%% exceeds cap %.2f%%", p.Ticker, st.target[i]*100, cap*100))
			}
		}
	}
	if cap := profile.MaxIssuerWeight; cap > 0 {
		for _, issuer := range st.issuerOrder() {
			_, lockedTotal, freeTotal := st.issuerMembers(st.target, issuer)
			if total := lockedTotal + freeTotal; total > cap+minTradeWeight {
				issues = append(issues, fmt.Sprintf(
					"issuer %s at %.2f%% exceeds cap %.2f%%", issuer, total*100, cap*100))
			}
		}
	}

	if len(issues) == 0 {
		return nil
	}
	if len(st.positions) > 1 || st.resolved > 0 {
		st.warnings = append(st.warnings, "not fully resolved: "+strings.Join(issues, "; "))
		return nil
	}
	// A single position that nothing could adjust cannot be split below 100%
	// by construction.
	return &ConstraintsInfeasibleError{Issues: issues}
}

// deriveTrades emits a trade for every position whose weight moved by at least
// the minimum trade size.
func (st *solveState) deriveTrades(totalValue *float64) []Trade {
	trades := make([]Trade, 0, len(st.positions))
	for i, p := range st.positions {
		delta := st.target[i] - st.current[i]
		if math.Abs(delta) < minTradeWeight {
			continue
		}

		side := SideBuy
		reason := "absorb weight freed by risk limits"
		if delta < 0 {
			side = SideSell
			reason = "reduce weight to satisfy risk limits"
		}

		trade := Trade{
			Ticker:       p.Ticker,
			Side:         side,
			WeightDelta:  delta,
			TargetWeight: st.target[i],
			Reason:       reason,
		}
		if totalValue != nil {
			value := math.Abs(delta) * *totalValue
			trade.EstimatedValue = &value
		}
		trades = append(trades, trade)
	}
	return trades
}

// turnover is half the L1 distance between target and current weights.
func (st *solveState) turnover() float64 {
	sum := 0.0
	for i := range st.target {
		sum += math.Abs(st.target[i] - st.current[i])
	}
	return sum / 2
}

// targetWeights renders the target vector as a ticker-keyed map.
func (st *solveState) targetWeights() map[string]float64 {
	weights := make(map[string]float64, len(st.positions))
	for i, p := range st.positions {
		weights[p.Ticker] = st.target[i]
	}
	return weights
}

// renormalize scales unlocked positions so the full vector sums to 1, leaving
// locked positions untouched. Negative weights are clamped to zero first; the
// solver never produces a negative target.
func (st *solveState) renormalize(target []float64) []float64 {
	next := make([]float64, len(target))
	lockedSum := 0.0
	freeSum := 0.0
	for i, w := range target {
		if w < 0 {
			w = 0
		}
		next[i] = w
		if st.positions[i].Locked {
			lockedSum += w
		} else {
			freeSum += w
		}
	}
	if freeSum <= 0 {
		return next
	}

	factor := (1 - lockedSum) / freeSum
	if factor < 0 {
		factor = 0
	}
	for i := range next {
		if !st.positions[i].Locked {
			next[i] *= factor
		}
	}
	return next
}

// redistribute spreads freed weight across unlocked positions matching the
// eligible predicate, proportional to their current target weight.
func (st *solveState) redistribute(target []float64, amount float64, eligible func(int) bool) {
	if amount <= 0 {
		return
	}
	receiverTotal := 0.0
	for i := range st.positions {
		if !st.positions[i].Locked && eligible(i) {
			receiverTotal += target[i]
		}
	}
	if receiverTotal <= 0 {
		return
	}
	for i := range st.positions {
		if !st.positions[i].Locked && eligible(i) {
			target[i] += amount * target[i] / receiverTotal
		}
	}
}

// redistributeWithHeadroom spreads clipped excess across unlocked positions
// with headroom below the cap, proportional to that headroom. When no
// position has headroom it falls back to weight-proportional redistribution,
// accepting minor overshoot above the cap.
func (st *solveState) redistributeWithHeadroom(target []float64, excess float64, clipped int, cap float64) {
	totalHeadroom := 0.0
	for i := range st.positions {
		if i == clipped || st.positions[i].Locked {
			continue
		}
		if headroom := cap - target[i]; headroom > 0 {
			totalHeadroom += headroom
		}
	}

	if totalHeadroom > 0 {
		for i := range st.positions {
			if i == clipped || st.positions[i].Locked {
				continue
			}
			if headroom := cap - target[i]; headroom > 0 {
				target[i] += excess * headroom / totalHeadroom
			}
		}
		return
	}

	st.redistribute(target, excess, func(i int) bool { return i != clipped })
}

// classMembers returns the indices of a class's positions along with the
// locked and unlocked weight totals.
func (st *solveState) classMembers(target []float64, class string) ([]int, float64, float64) {
	var members []int
	lockedTotal := 0.0
	freeTotal := 0.0
	for i, p := range st.positions {
		if p.AssetClass != class {
			continue
		}
		members = append(members, i)
		if p.Locked {
			lockedTotal += target[i]
		} else {
			freeTotal += target[i]
		}
	}
	return members, lockedTotal, freeTotal
}

// issuerMembers returns the indices of an issuer's positions along with the
// locked and unlocked weight totals.
func (st *solveState) issuerMembers(target []float64, issuer string) ([]int, float64, float64) {
	var members []int
	lockedTotal := 0.0
	freeTotal := 0.0
	for i, p := range st.positions {
		if p.Issuer != issuer {
			continue
		}
		members = append(members, i)
		if p.Locked {
			lockedTotal += target[i]
		} else {
			freeTotal += target[i]
		}
	}
	return members, lockedTotal, freeTotal
}

// issuerOrder returns the distinct issuers in deterministic order.
func (st *solveState) issuerOrder() []string {
	seen := make(map[string]bool, len(st.positions))
	var issuers []string
	for _, p := range st.positions {
		if !seen[p.Issuer] {
			seen[p.Issuer] = true
			issuers = append(issuers, p.Issuer)
		}
	}
	sort.Strings(issuers)
	return issuers
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
