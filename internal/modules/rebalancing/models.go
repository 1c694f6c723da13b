package rebalancing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPortfolio is returned when the caller supplies no positions.
var ErrEmptyPortfolio = errors.New("rebalance requires at least one position")

// ConstraintsInfeasibleError is the narrow hard failure for structurally
// unsolvable constraint sets. Everything else the solver cannot fully fix is
// reported as warnings on an otherwise valid result.
type ConstraintsInfeasibleError struct {
	Issues []string
}

func (e *ConstraintsInfeasibleError) Error() string {
	return fmt.Sprintf("constraints infeasible: %s", strings.Join(e.Issues, "; "))
}

// TradeSide is the direction of a rebalance trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Position is one portfolio holding as the solver sees it. Issuer defaults to
// the ticker when absent; a locked position is never adjusted and never
// receives redistributed weight.
type Position struct {
	Ticker     string  `json:"ticker"`
	Weight     float64 `json:"weight"`
	AssetClass string  `json:"asset_class"`
	Issuer     string  `json:"issuer,omitempty"`
	Locked     bool    `json:"locked,omitempty"`
}

// RiskProfile carries the constraint set for a rebalance. A cap of zero
// disables that constraint.
type RiskProfile struct {
	MaxPositionWeight       float64            `json:"max_position_weight"`
	MaxIssuerWeight         float64            `json:"max_issuer_weight"`
	MaxAssetClassWeights    map[string]float64 `json:"max_asset_class_weights,omitempty"`
	TargetAssetClassWeights map[string]float64 `json:"target_asset_class_weights,omitempty"`
	MaxTurnover             float64            `json:"max_turnover"`
}

// Validate rejects malformed profiles before they reach the solver passes.
func (p RiskProfile) Validate() error {
	if p.MaxTurnover < 0 || p.MaxTurnover > 1 {
		return fmt.Errorf("max turnover must be in [0, 1], got %f", p.MaxTurnover)
	}
	if p.MaxPositionWeight < 0 {
		return fmt.Errorf("max position weight must be non-negative, got %f", p.MaxPositionWeight)
	}
	if p.MaxIssuerWeight < 0 {
		return fmt.Errorf("max issuer weight must be non-negative, got %f", p.MaxIssuerWeight)
	}
	for class, cap := range p.MaxAssetClassWeights {
		if cap < 0 {
			return fmt.Errorf("max weight for asset class %s must be non-negative, got %f", class, cap)
		}
	}
	return nil
}

// Trade is one implied rebalance trade.
type Trade struct {
	Ticker         string    `json:"ticker"`
	Side           TradeSide `json:"side"`
	WeightDelta    float64   `json:"weight_delta"`
	TargetWeight   float64   `json:"target_weight"`
	EstimatedValue *float64  `json:"estimated_value,omitempty"`
	Reason         string    `json:"reason"`
}

// Summary reports how the solve went. Residual violations surface here as
// warnings, never as errors.
type Summary struct {
	Turnover            float64  `json:"turnover"`
	TurnoverWithinLimit bool     `json:"turnover_within_limit"`
	PositionsChanged    int      `json:"positions_changed"`
	IssuesResolved      int      `json:"issues_resolved"`
	Warnings            []string `json:"warnings"`
}

// Result is a constraint-respecting target allocation with its implied trades.
type Result struct {
	TargetWeights map[string]float64 `json:"target_weights"`
	Trades        []Trade            `json:"trades"`
	Summary       Summary            `json:"summary"`
}
