// Package returns builds per-ticker daily return series from OHLCV bars and
// aggregates them into portfolio-level return series.
package returns

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/trustmycode/moex-agent-mcp/internal/domain"
)

// RebalancePolicy controls how portfolio weights evolve between observations.
type RebalancePolicy string

const (
	// PolicyBuyAndHold lets weights drift with returns between observations.
	PolicyBuyAndHold RebalancePolicy = "buy_and_hold"
	// PolicyMonthly resets weights to target at each calendar-month boundary.
	PolicyMonthly RebalancePolicy = "monthly"
)

// Service computes daily and portfolio return series.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new returns service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "returns").Logger(),
	}
}

// ComputeDailyReturns converts an ordered OHLCV bar sequence into simple daily
// returns. Fewer than 2 bars yields an empty series; this is a deliberate
// "not enough data" signal, not an error. Days whose previous close is zero or
// missing are skipped rather than zero-filled so they cannot poison later
// statistics with infinities.
func (s *Service) ComputeDailyReturns(bars []domain.Bar) []domain.DailyReturn {
	if len(bars) < 2 {
		return []domain.DailyReturn{}
	}

	result := make([]domain.DailyReturn, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1]
		cur := bars[i]
		if cur.Date == prev.Date {
			// One entry per date per ticker
			continue
		}
		if prev.Close <= 0 {
			continue
		}
		result = append(result, domain.DailyReturn{
			Date:   cur.Date,
			Return: (cur.Close - prev.Close) / prev.Close,
		})
	}
	return result
}

// BuildReturnsByTicker computes daily return series for every ticker in the
// supplied bar map. Ticker symbols are case-normalized.
func (s *Service) BuildReturnsByTicker(barsByTicker map[string][]domain.Bar) domain.ReturnsByTicker {
	result := make(domain.ReturnsByTicker, len(barsByTicker))
	for ticker, bars := range barsByTicker {
		result[domain.NormalizeTicker(ticker)] = s.ComputeDailyReturns(bars)
	}

	s.log.Debug().
		Int("num_tickers", len(result)).
		Msg("Built returns by ticker")

	return result
}

// AggregatePortfolioReturns combines per-ticker return series into a single
// portfolio return series under the given rebalance policy.
//
// Every ticker present in returnsByTicker must carry an explicit weight;
// silently dropping one would change portfolio composition, so a missing
// weight is a hard error. Weights are normalized over exactly the supplied
// ticker set. Only dates present in all tickers' series are used; an empty
// intersection yields an empty series.
func (s *Service) AggregatePortfolioReturns(
	returnsByTicker domain.ReturnsByTicker,
	weights map[string]float64,
	policy RebalancePolicy,
) ([]domain.DailyReturn, error) {
	if policy != PolicyBuyAndHold && policy != PolicyMonthly {
		return nil, fmt.Errorf("unsupported rebalance policy: %q", policy)
	}
	if len(returnsByTicker) == 0 {
		return []domain.DailyReturn{}, nil
	}

	// Every ticker needs an explicit weight.
	subset := make(map[string]float64, len(returnsByTicker))
	for ticker := range returnsByTicker {
		w, ok := weights[ticker]
		if !ok {
			return nil, fmt.Errorf("missing weight for ticker %s", ticker)
		}
		subset[ticker] = w
	}

	baseWeights, err := domain.NormalizeWeights(subset)
	if err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}

	// Index returns by date per ticker and intersect the date sets.
	byDate := make(map[string]map[string]float64, len(returnsByTicker))
	for ticker, series := range returnsByTicker {
		index := make(map[string]float64, len(series))
		for _, r := range series {
			index[r.Date] = r.Return
		}
		byDate[ticker] = index
	}

	dates := intersectDates(byDate)
	if len(dates) == 0 {
		return []domain.DailyReturn{}, nil
	}

	// Track a wealth value per ticker; each day's portfolio return is the
	// wealth-share-weighted sum of that day's ticker returns.
	wealth := make(map[string]float64, len(baseWeights))
	for ticker, w := range baseWeights {
		wealth[ticker] = w
	}

	result := make([]domain.DailyReturn, 0, len(dates))
	prevDate := ""

	for _, date := range dates {
		if policy == PolicyMonthly && prevDate != "" && calendarMonth(date) != calendarMonth(prevDate) {
			// Month-end rebalance: reset every ticker back to its target share
			// of current total wealth.
			total := 0.0
			for _, w := range wealth {
				total += w
			}
			for ticker, base := range baseWeights {
				wealth[ticker] = total * base
			}
		}

		totalWealth := 0.0
		for _, w := range wealth {
			totalWealth += w
		}
		if totalWealth <= 0 {
			break
		}

		dayReturn := 0.0
		for ticker, index := range byDate {
			r, ok := index[date]
			if !ok {
				// Sparse data: skip the contribution and leave wealth
				// untouched to preserve continuity.
				continue
			}
			dayReturn += (wealth[ticker] / totalWealth) * r
			wealth[ticker] *= 1 + r
		}

		result = append(result, domain.DailyReturn{Date: date, Return: dayReturn})
		prevDate = date
	}

	s.log.Debug().
		Int("num_tickers", len(returnsByTicker)).
		Int("aligned_dates", len(dates)).
		Str("policy", string(policy)).
		Msg("Aggregated portfolio returns")

	return result, nil
}

// intersectDates returns the sorted set of dates present in every ticker's
// return index.
func intersectDates(byDate map[string]map[string]float64) []string {
	var common map[string]bool
	for _, index := range byDate {
		if common == nil {
			common = make(map[string]bool, len(index))
			for date := range index {
				common[date] = true
			}
			continue
		}
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

// calendarMonth extracts the "2006-01" prefix of a date string.
func calendarMonth(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
