package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	// SmoothingAlpha is the single-exponential-smoothing factor.
	SmoothingAlpha = 0.3
	// HistoryWindowDays is the sales history window the calculator consumes.
	HistoryWindowDays = 90
	// RecentWindowPoints caps how many of the newest data points feed the
	// smoothed daily rate.
	RecentWindowPoints = 30
	// MinDataPointsForTrend is the minimum history size before a trend rate
	// is attempted at all.
	MinDataPointsForTrend = 60
	// mapeWindow is the trailing simple-moving-average window used as the
	// prediction when scoring accuracy.
	mapeWindow = 7
)

// Result is the output of one calculator pass over a pair's history.
type Result struct {
	DailyRate           float64
	SeasonalMultipliers []float64
	TrendRate           float64
	AccuracyMAPE        *float64
	Confidence          domain.ForecastConfidence
	DataPoints          int
}

// Calculator derives a sales forecast from a window of daily history.
// It is pure: same history in, same result out.
type Calculator struct {
	alpha        float64
	recentPoints int
}

// NewCalculator creates a calculator with the standard smoothing parameters.
func NewCalculator() *Calculator {
	return &Calculator{
		alpha:        SmoothingAlpha,
		recentPoints: RecentWindowPoints,
	}
}

// Calculate runs the full forecast computation for one (product, location)
// pair. History is expected to cover at most the trailing 90 days; entries
// may arrive unsorted. An empty history returns ok=false and the pair should
// be skipped, not zeroed.
func (c *Calculator) Calculate(history []domain.SalesHistoryEntry) (Result, bool) {
	if len(history) == 0 {
		return Result{}, false
	}

	entries := make([]domain.SalesHistoryEntry, len(history))
	copy(entries, history)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	// 1. Smoothed daily rate over the most recent window
	recent := entries
	if len(recent) > c.recentPoints {
		recent = recent[len(recent)-c.recentPoints:]
	}
	dailyRate := roundFloat(c.smooth(recent), 2)

	// 2. Seasonal multipliers against the full-window mean
	multipliers := seasonalMultipliers(entries)

	// 3. Month-over-month trend
	trend := roundFloat(trendRate(entries), 3)

	// 4. Accuracy of a trailing SMA prediction against actuals
	mape := accuracyMAPE(entries)

	// 5. Confidence tier
	confidence := confidenceTier(len(entries), mape, coefficientOfVariation(recent))

	return Result{
		DailyRate:           dailyRate,
		SeasonalMultipliers: multipliers,
		TrendRate:           trend,
		AccuracyMAPE:        mape,
		Confidence:          confidence,
		DataPoints:          len(entries),
	}, true
}

// smooth applies single exponential smoothing: S_1 = x_1,
// S_t = alpha*x_t + (1-alpha)*S_{t-1}. The final smoothed value is the rate.
func (c *Calculator) smooth(entries []domain.SalesHistoryEntry) float64 {
	s := float64(entries[0].UnitsSold)
	for _, e := range entries[1:] {
		s = c.alpha*float64(e.UnitsSold) + (1-c.alpha)*s
	}
	return s
}

// seasonalMultipliers computes the 12 per-calendar-month demand multipliers:
// month average divided by the overall mean, 1.0 for months without data or
// when the overall mean is zero.
func seasonalMultipliers(entries []domain.SalesHistoryEntry) []float64 {
	var total float64
	monthSums := make([]float64, 12)
	monthCounts := make([]int, 12)
	for _, e := range entries {
		units := float64(e.UnitsSold)
		total += units
		idx := int(e.Date.Month()) - 1
		monthSums[idx] += units
		monthCounts[idx]++
	}
	overallMean := total / float64(len(entries))

	multipliers := make([]float64, 12)
	for i := range multipliers {
		if monthCounts[i] == 0 || overallMean == 0 {
			multipliers[i] = 1.0
			continue
		}
		monthMean := monthSums[i] / float64(monthCounts[i])
		multipliers[i] = roundFloat(monthMean/overallMean, 2)
	}

	return multipliers
}

// trendRate averages the month-over-month fractional growth across all
// consecutive month pairs with a non-zero prior month. Histories shorter
// than MinDataPointsForTrend report no trend.
func trendRate(entries []domain.SalesHistoryEntry) float64 {
	if len(entries) < MinDataPointsForTrend {
		return 0
	}

	type monthTotal struct {
		key   string
		units float64
	}
	totals := make(map[string]float64)
	for _, e := range entries {
		totals[e.Date.Format("2006-01")] += float64(e.UnitsSold)
	}

	months := make([]monthTotal, 0, len(totals))
	for key, units := range totals {
		months = append(months, monthTotal{key: key, units: units})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].key < months[j].key })

	var sum float64
	var pairs int
	for i := 1; i < len(months); i++ {
		prior := months[i-1].units
		if prior == 0 {
			continue
		}
		sum += (months[i].units - prior) / prior
		pairs++
	}
	if pairs == 0 {
		return 0
	}

	return sum / float64(pairs)
}

// accuracyMAPE scores a trailing 7-day simple moving average as the
// prediction for each subsequent day, against actuals, over days where the
// actual is positive. Returns nil when no day qualifies.
func accuracyMAPE(entries []domain.SalesHistoryEntry) *float64 {
	if len(entries) <= mapeWindow {
		return nil
	}

	var sum float64
	var scored int
	for i := mapeWindow; i < len(entries); i++ {
		actual := float64(entries[i].UnitsSold)
		if actual <= 0 {
			continue
		}
		var windowSum float64
		for j := i - mapeWindow; j < i; j++ {
			windowSum += float64(entries[j].UnitsSold)
		}
		predicted := windowSum / float64(mapeWindow)
		sum += math.Abs(actual-predicted) / actual
		scored++
	}
	if scored == 0 {
		return nil
	}

	mape := roundFloat(sum/float64(scored)*100, 2)

	return &mape
}

// coefficientOfVariation measures recent-window volatility. A zero mean
// reports +Inf so it can never pass a variation ceiling.
func coefficientOfVariation(entries []domain.SalesHistoryEntry) float64 {
	if len(entries) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for _, e := range entries {
		sum += float64(e.UnitsSold)
	}
	mean := sum / float64(len(entries))
	if mean == 0 {
		return math.Inf(1)
	}

	var sq float64
	for _, e := range entries {
		d := float64(e.UnitsSold) - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(entries)))

	return stddev / mean
}

// confidenceTier combines history size, accuracy, and recent volatility.
func confidenceTier(dataPoints int, mape *float64, variation float64) domain.ForecastConfidence {
	if dataPoints >= 90 && mape != nil && *mape < 20 && variation < 0.5 {
		return domain.ConfidenceHigh
	}
	if dataPoints >= 30 && mape != nil && *mape < 40 {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// HistoryWindowStart returns the inclusive start of the calculator's history
// window relative to now, as a local calendar day.
func HistoryWindowStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-HistoryWindowDays, 0, 0, 0, 0, now.Location())
}
