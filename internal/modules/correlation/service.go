// Package correlation computes date-aligned Pearson correlation matrices
// across ticker return series.
package correlation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
	"github.com/trustmycode/moex-agent-mcp/pkg/formulas"
)

// MethodPearson is the only correlation method currently implemented.
const MethodPearson = "pearson"

// minObservations is the smallest aligned sample a correlation can be
// estimated from.
const minObservations = 2

// InsufficientDataError reports that the requested tickers do not carry enough
// aligned data to estimate correlations.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for correlation: %s", e.Reason)
}

// Result is a symmetric correlation matrix with its audit metadata. Row and
// column order equals the requested ticker order; the diagonal is exactly 1.0
// and every entry lies in [-1, 1].
type Result struct {
	Tickers      []string    `json:"tickers"`
	Matrix       [][]float64 `json:"matrix"`
	Method       string      `json:"method"`
	Observations int         `json:"observations"`
	AlignedDates []string    `json:"aligned_dates"`
}

// Service computes correlation matrices.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new correlation service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "correlation").Logger(),
	}
}

// ComputeCorrelationMatrix builds an NxN sample Pearson correlation matrix for
// the requested tickers over the dates common to all of them. The full (not
// pairwise) date intersection is used so every ticker contributes the same
// aligned sample. Entries are clamped into [-1, 1] to guard against
// floating-point overshoot and the diagonal is forced to exactly 1.0.
func (s *Service) ComputeCorrelationMatrix(
	tickers []string,
	returnsByTicker domain.ReturnsByTicker,
) (*Result, error) {
	if len(tickers) == 0 {
		return nil, &InsufficientDataError{Reason: "no tickers requested"}
	}

	normalized := make([]string, len(tickers))
	byDate := make(map[string]map[string]float64, len(tickers))
	for i, ticker := range tickers {
		t := domain.NormalizeTicker(ticker)
		normalized[i] = t

		series := returnsByTicker[t]
		if len(series) < minObservations {
			return nil, &InsufficientDataError{
				Reason: fmt.Sprintf("ticker %s has %d return observations, need at least %d", t, len(series), minObservations),
			}
		}

		index := make(map[string]float64, len(series))
		for _, r := range series {
			index[r.Date] = r.Return
		}
		byDate[t] = index
	}

	dates := alignedDates(normalized, byDate)
	if len(dates) < minObservations {
		return nil, &InsufficientDataError{
			Reason: fmt.Sprintf("only %d dates common to all tickers, need at least %d", len(dates), minObservations),
		}
	}

	// Extract the aligned sub-series in ticker order.
	aligned := make([][]float64, len(normalized))
	for i, ticker := range normalized {
		series := make([]float64, len(dates))
		for j, date := range dates {
			series[j] = byDate[ticker][date]
		}
		if formulas.Variance(series) == 0 {
			return nil, &InsufficientDataError{
				Reason: fmt.Sprintf("ticker %s has zero variance over the aligned sample", ticker),
			}
		}
		aligned[i] = series
	}

	n := len(normalized)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			corr := formulas.Clamp(formulas.Correlation(aligned[i], aligned[j]), -1, 1)
			matrix[i][j] = corr
			matrix[j][i] = corr
		}
	}

	s.log.Debug().
		Int("num_tickers", n).
		Int("aligned_observations", len(dates)).
		Msg("Computed correlation matrix")

	return &Result{
		Tickers:      normalized,
		Matrix:       matrix,
		Method:       MethodPearson,
		Observations: len(dates),
		AlignedDates: dates,
	}, nil
}

// alignedDates returns the sorted set of dates present in every ticker's
// return index.
func alignedDates(tickers []string, byDate map[string]map[string]float64) []string {
	common := make(map[string]bool, len(byDate[tickers[0]]))
	for date := range byDate[tickers[0]] {
		common[date] = true
	}
	for _, ticker := range tickers[1:] {
		index := byDate[ticker]
		for date := range common {
			if _, ok := index[date]; !ok {
				delete(common, date)
			}
		}
	}

	dates := make([]string, 0, len(common))
	for date := range common {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
