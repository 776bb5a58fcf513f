package forecast

import (
	"math"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// UnboundedSentinel is the legacy wire value for "no foreseeable stockout".
// Internally days of stock is a tagged StockDays value; the sentinel only
// appears at the serialization boundary.
const UnboundedSentinel = 999

// DefaultSafetyStockDays is the days-of-cover fallback when a pair has no
// active safety stock rule.
const DefaultSafetyStockDays = 14

// UrgencyThresholds are the inclusive upper bounds of the urgency bands.
type UrgencyThresholds struct {
	CriticalDays int
	WarningDays  int
	PlannedDays  int
}

// DefaultUrgencyThresholds returns the standard 3/7/14-day banding.
func DefaultUrgencyThresholds() UrgencyThresholds {
	return UrgencyThresholds{CriticalDays: 3, WarningDays: 7, PlannedDays: 14}
}

// StockDays is a projected days-of-stock value: either a finite non-negative
// day count or Unbounded when the consumption rate projects no stockout.
type StockDays struct {
	days      int
	unbounded bool
}

// FiniteDays builds a finite StockDays, clamped at zero.
func FiniteDays(days int) StockDays {
	if days < 0 {
		days = 0
	}
	return StockDays{days: days}
}

// Unbounded is the "no foreseeable stockout" value.
func Unbounded() StockDays {
	return StockDays{unbounded: true}
}

// StockDaysFromSentinel rebuilds a StockDays from its wire form.
func StockDaysFromSentinel(v int) StockDays {
	if v >= UnboundedSentinel {
		return Unbounded()
	}
	return FiniteDays(v)
}

// IsUnbounded reports whether no stockout is projected.
func (d StockDays) IsUnbounded() bool { return d.unbounded }

// Days returns the finite day count; it is meaningless when unbounded.
func (d StockDays) Days() int { return d.days }

// Sentinel serializes the value for external consumers: the day count, or
// UnboundedSentinel when unbounded.
func (d StockDays) Sentinel() int {
	if d.unbounded {
		return UnboundedSentinel
	}
	return d.days
}

// ClassifyUrgency buckets a days-of-stock projection into an urgency tier.
// Band boundaries are inclusive. Unbounded projections are always monitor.
// A negative day count is a data anomaly and classifies as critical rather
// than being rejected.
func ClassifyUrgency(remaining StockDays, t UrgencyThresholds) domain.Urgency {
	if remaining.IsUnbounded() {
		return domain.UrgencyMonitor
	}

	switch days := remaining.Days(); {
	case days <= t.CriticalDays:
		return domain.UrgencyCritical
	case days <= t.WarningDays:
		return domain.UrgencyWarning
	case days <= t.PlannedDays:
		return domain.UrgencyPlanned
	default:
		return domain.UrgencyMonitor
	}
}

// DaysOfStock projects how many whole days the available stock covers at the
// given daily rate. A rate that is zero, negative, or NaN yields Unbounded.
func DaysOfStock(available int, dailyRate float64, inTransit int, includeInTransit bool) StockDays {
	if dailyRate <= 0 || math.IsNaN(dailyRate) {
		return Unbounded()
	}

	stock := available
	if includeInTransit {
		stock += inTransit
	}

	return FiniteDays(int(math.Floor(float64(stock) / dailyRate)))
}

// StockoutDate projects the calendar day stock runs out, nil when unbounded.
// Dates are local calendar days: the same timezone policy is used for "now"
// and for the projected date.
func StockoutDate(remaining StockDays, now time.Time) *time.Time {
	if remaining.IsUnbounded() {
		return nil
	}

	y, m, d := now.Date()
	date := time.Date(y, m, d+remaining.Days(), 0, 0, 0, 0, now.Location())

	return &date
}

// EstimatedArrival returns now + transitDays as a local calendar day.
func EstimatedArrival(transitDays int, now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+transitDays, 0, 0, 0, 0, now.Location())
}

// RecommendedQty computes the replenishment quantity to reach daysOfCover
// days of stock: the shortfall against ceil(rate x cover), rounded up to the
// next multiple of minOrderQty. The result is always 0 or a positive multiple
// of minOrderQty.
func RecommendedQty(dailyRate float64, daysOfCover int, currentStock, inTransit, minOrderQty int) int {
	if dailyRate <= 0 || math.IsNaN(dailyRate) || daysOfCover <= 0 {
		return 0
	}
	if minOrderQty < 1 {
		minOrderQty = 1
	}

	target := int(math.Ceil(dailyRate * float64(daysOfCover)))
	needed := target - currentStock - inTransit
	if needed <= 0 {
		return 0
	}
	if needed <= minOrderQty {
		return minOrderQty
	}

	// Round up to the next multiple of minOrderQty.
	orders := (needed + minOrderQty - 1) / minOrderQty

	return orders * minOrderQty
}

// SeasonalMultiplier looks up the multiplier for the month of date. Arrays
// that are nil or not exactly 12 long are treated as absent.
func SeasonalMultiplier(multipliers []float64, date time.Time) float64 {
	if len(multipliers) != 12 {
		return 1
	}
	return monthMultiplierOrDefault(multipliers[int(date.Month())-1])
}

// monthMultiplierOrDefault preserves the legacy falsy fallback: a stored
// multiplier of exactly 0 (or NaN) is indistinguishable from "not configured"
// and falls back to 1. Consumers rely on this; do not change it without a
// product decision.
func monthMultiplierOrDefault(m float64) float64 {
	if m == 0 || math.IsNaN(m) {
		return 1
	}
	return m
}

// SafetyStock resolves the safety stock threshold in units. A units rule is
// taken verbatim; a days-of-cover rule is ceil(rate x value); no rule falls
// back to ceil(rate x defaultDays). Never negative.
func SafetyStock(thresholdType domain.ThresholdType, thresholdValue *float64, dailyRate float64, defaultDays int) int {
	if math.IsNaN(dailyRate) || dailyRate < 0 {
		dailyRate = 0
	}

	var threshold float64
	switch {
	case thresholdValue != nil && thresholdType == domain.ThresholdUnits:
		threshold = *thresholdValue
	case thresholdValue != nil && thresholdType == domain.ThresholdDaysOfCover:
		threshold = dailyRate * *thresholdValue
	default:
		threshold = dailyRate * float64(defaultDays)
	}

	if math.IsNaN(threshold) || threshold < 0 {
		return 0
	}

	return int(math.Ceil(threshold))
}
