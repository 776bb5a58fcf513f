package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
)

func dailyEntries(start time.Time, units ...int) []domain.SalesHistoryEntry {
	entries := make([]domain.SalesHistoryEntry, len(units))
	for i, u := range units {
		entries[i] = domain.SalesHistoryEntry{
			ProductID:  "p1",
			LocationID: "l1",
			Date:       start.AddDate(0, 0, i),
			UnitsSold:  u,
			Source:     domain.SourceImported,
		}
	}
	return entries
}

func constantEntries(start time.Time, days, units int) []domain.SalesHistoryEntry {
	values := make([]int, days)
	for i := range values {
		values[i] = units
	}
	return dailyEntries(start, values...)
}

func TestCalculateEmptyHistoryIsSkipped(t *testing.T) {
	_, ok := NewCalculator().Calculate(nil)
	assert.False(t, ok)
}

func TestCalculateConstantHistory(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, ok := NewCalculator().Calculate(constantEntries(start, 90, 10))
	require.True(t, ok)

	assert.Equal(t, 10.0, result.DailyRate)
	assert.Equal(t, 90, result.DataPoints)

	// Constant daily sales still show a tiny negative trend because the
	// trend works on month totals and the months differ in length
	// (31x10 -> 30x10 -> 29x10).
	assert.InDelta(t, -0.033, result.TrendRate, 0.0005)

	require.NotNil(t, result.AccuracyMAPE)
	assert.Equal(t, 0.0, *result.AccuracyMAPE)

	// 90 points, perfect accuracy, zero variation
	assert.Equal(t, domain.ConfidenceHigh, result.Confidence)

	require.Len(t, result.SeasonalMultipliers, 12)
	for _, m := range result.SeasonalMultipliers {
		assert.Equal(t, 1.0, m)
	}
}

func TestCalculateExponentialSmoothing(t *testing.T) {
	// S1=1; S2=0.3*2+0.7*1=1.3; S3=0.3*3+0.7*1.3=1.81
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result, ok := NewCalculator().Calculate(dailyEntries(start, 1, 2, 3))
	require.True(t, ok)

	assert.Equal(t, 1.81, result.DailyRate)
}

func TestCalculateSortsUnorderedHistory(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := dailyEntries(start, 1, 2, 3)
	entries[0], entries[2] = entries[2], entries[0]

	result, ok := NewCalculator().Calculate(entries)
	require.True(t, ok)
	assert.Equal(t, 1.81, result.DailyRate)
}

func TestCalculateTrendRate(t *testing.T) {
	// March 10/day (300), April 12/day (360, +20%), May 15/day (450, +25%)
	var entries []domain.SalesHistoryEntry
	entries = append(entries, constantEntries(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 30, 10)...)
	entries = append(entries, constantEntries(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 30, 12)...)
	entries = append(entries, constantEntries(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 30, 15)...)

	result, ok := NewCalculator().Calculate(entries)
	require.True(t, ok)
	assert.InDelta(t, 0.225, result.TrendRate, 0.0001)
}

func TestCalculateTrendNeedsEnoughHistory(t *testing.T) {
	var entries []domain.SalesHistoryEntry
	entries = append(entries, constantEntries(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 25, 10)...)
	entries = append(entries, constantEntries(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 25, 20)...)

	result, ok := NewCalculator().Calculate(entries)
	require.True(t, ok)
	assert.Equal(t, 0.0, result.TrendRate)
}

func TestCalculateMAPE(t *testing.T) {
	// Seven days at 10 then a step to 20: SMA lags the step and the error
	// shrinks as 20s enter the window.
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result, ok := NewCalculator().Calculate(dailyEntries(start, 10, 10, 10, 10, 10, 10, 10, 20, 20, 20))
	require.True(t, ok)

	require.NotNil(t, result.AccuracyMAPE)
	assert.InDelta(t, 42.86, *result.AccuracyMAPE, 0.01)
}

func TestCalculateMAPEIgnoresZeroDays(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result, ok := NewCalculator().Calculate(dailyEntries(start, 10, 10, 10, 10, 10, 10, 10, 0, 0, 0))
	require.True(t, ok)

	// Every post-window day has actual 0, so no day qualifies.
	assert.Nil(t, result.AccuracyMAPE)
}

func TestCalculateConfidenceTiers(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	medium, ok := NewCalculator().Calculate(constantEntries(start, 30, 10))
	require.True(t, ok)
	assert.Equal(t, domain.ConfidenceMedium, medium.Confidence)

	low, ok := NewCalculator().Calculate(constantEntries(start, 10, 10))
	require.True(t, ok)
	assert.Equal(t, domain.ConfidenceLow, low.Confidence)
}

func TestSeasonalMultipliersReproduceOverallMean(t *testing.T) {
	// Weighted by each month's share of history, the multipliers must
	// reconstruct the overall mean within rounding tolerance.
	var entries []domain.SalesHistoryEntry
	entries = append(entries, constantEntries(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 30, 8)...)
	entries = append(entries, constantEntries(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 30, 14)...)
	entries = append(entries, constantEntries(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 30, 11)...)

	result, ok := NewCalculator().Calculate(entries)
	require.True(t, ok)

	var total float64
	for _, e := range entries {
		total += float64(e.UnitsSold)
	}
	overallMean := total / float64(len(entries))

	counts := make([]int, 12)
	for _, e := range entries {
		counts[int(e.Date.Month())-1]++
	}

	var reconstructed float64
	var n int
	for i, m := range result.SeasonalMultipliers {
		if counts[i] == 0 {
			continue
		}
		reconstructed += m * overallMean * float64(counts[i])
		n += counts[i]
	}

	assert.InDelta(t, overallMean, reconstructed/float64(n), 0.05)
}
