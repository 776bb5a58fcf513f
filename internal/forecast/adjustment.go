package forecast

import (
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// EffectiveRate overlays account and product demand adjustments on a base
// forecast for one target date:
//
//  1. account adjustments whose window covers the date apply, unless the
//     product carries an opt-out for that adjustment covering the same date
//  2. product-level adjustments covering the date apply independently
//  3. exclude zeroes the rate for the date; multiply scales it; when several
//     adjustments apply their effects compose multiplicatively, order has no
//     effect on the result
//
// The base is the manual override when set, otherwise the daily rate scaled
// by the month's seasonal multiplier.
func EffectiveRate(
	f *domain.SalesForecast,
	account []domain.AccountAdjustment,
	product []domain.ProductAdjustment,
	date time.Time,
) float64 {
	rate := f.BaseRate() * SeasonalMultiplier(f.SeasonalMultipliers, date)

	optedOut := make(map[string]bool)
	for _, p := range product {
		if p.IsOptedOut && p.AccountAdjustmentID != nil &&
			windowCovers(p.StartDate, p.EndDate, p.IsRecurring, date) {
			optedOut[*p.AccountAdjustmentID] = true
		}
	}

	for _, a := range account {
		if optedOut[a.ID] || !windowCovers(a.StartDate, a.EndDate, a.IsRecurring, date) {
			continue
		}
		rate = applyEffect(rate, a.Effect, a.Multiplier)
	}

	for _, p := range product {
		if p.IsOptedOut || !windowCovers(p.StartDate, p.EndDate, p.IsRecurring, date) {
			continue
		}
		rate = applyEffect(rate, p.Effect, p.Multiplier)
	}

	return rate
}

func applyEffect(rate float64, effect domain.AdjustmentEffect, multiplier *float64) float64 {
	switch effect {
	case domain.EffectExclude:
		return 0
	case domain.EffectMultiply:
		if multiplier != nil {
			return rate * *multiplier
		}
	}
	return rate
}

// windowCovers reports whether an adjustment window contains date.
func windowCovers(start, end time.Time, recurring bool, date time.Time) bool {
	if recurring {
		return recurringWindowCovers(start, end, date)
	}

	day := calendarDay(date)
	return !day.Before(calendarDay(start)) && !day.After(calendarDay(end))
}

// recurringWindowCovers compares only month/day components, year ignored.
//
// Windows that wrap a year boundary (e.g. Dec 15 - Jan 15) are NOT matched;
// that is the behavior consumers currently rely on. If that ever changes this
// is the only function to touch.
func recurringWindowCovers(start, end, date time.Time) bool {
	startKey := monthDay(start)
	endKey := monthDay(end)
	dateKey := monthDay(date)

	return dateKey >= startKey && dateKey <= endKey
}

// monthDay encodes month and day into a single comparable value.
func monthDay(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
