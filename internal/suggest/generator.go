// internal/suggest/generator.go
package suggest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
)

// Input is everything the generator needs for one (product, location) pair.
// Now is explicit so runs are reproducible in tests.
type Input struct {
	Forecast           domain.SalesForecast
	AccountAdjustments []domain.AccountAdjustment
	ProductAdjustments []domain.ProductAdjustment
	Position           domain.StockPosition
	SafetyRule         *domain.SafetyStockRule
	Routes             []domain.ShippingRoute
	Now                time.Time
}

// Generator turns a pair's forecast and stock position into replenishment
// suggestions. Pure: all I/O lives in the service driving it.
type Generator struct {
	thresholds      forecast.UrgencyThresholds
	planningHorizon int
}

// Config tunes generation. Zero values fall back to the standard 3/7/14-day
// urgency bands and a 14-day planning horizon.
type Config struct {
	Thresholds          forecast.UrgencyThresholds
	PlanningHorizonDays int
}

func NewGenerator(cfg Config) *Generator {
	thresholds := cfg.Thresholds
	if thresholds == (forecast.UrgencyThresholds{}) {
		thresholds = forecast.DefaultUrgencyThresholds()
	}

	horizon := cfg.PlanningHorizonDays
	if horizon <= 0 {
		horizon = forecast.DefaultSafetyStockDays
	}

	return &Generator{
		thresholds:      thresholds,
		planningHorizon: horizon,
	}
}

// Generate produces one suggestion per available suggestion type for the
// pair. Suggestions are generated at every urgency tier, monitor included:
// the dashboard reads the full distribution, not just the items needing
// replenishment.
func (g *Generator) Generate(in Input) []domain.ReplenishmentSuggestion {
	rate := forecast.EffectiveRate(&in.Forecast, in.AccountAdjustments, in.ProductAdjustments, in.Now)

	available := in.Position.Available()
	days := forecast.DaysOfStock(available, rate, in.Position.InTransitQuantity, true)
	urgency := forecast.ClassifyUrgency(days, g.thresholds)
	stockout := forecast.StockoutDate(days, in.Now)

	threshold := g.safetyThreshold(in.SafetyRule, rate, in.Now)
	coverDays := g.coverDays(in.SafetyRule)

	transferRoute, poRoute := pickRoutes(in.Routes)

	var suggestions []domain.ReplenishmentSuggestion
	if transferRoute != nil {
		suggestions = append(suggestions,
			g.build(in, domain.TypeTransfer, transferRoute, rate, days, urgency, stockout, threshold, coverDays))
	}
	if poRoute != nil || transferRoute == nil {
		// Purchase order is the fallback when no routing data exists at all.
		suggestions = append(suggestions,
			g.build(in, domain.TypePurchaseOrder, poRoute, rate, days, urgency, stockout, threshold, coverDays))
	}

	return suggestions
}

func (g *Generator) build(
	in Input,
	sType domain.SuggestionType,
	route *domain.ShippingRoute,
	rate float64,
	days forecast.StockDays,
	urgency domain.Urgency,
	stockout *time.Time,
	threshold int,
	coverDays int,
) domain.ReplenishmentSuggestion {
	minOrder := 1
	if sType == domain.TypePurchaseOrder && route != nil && route.MinOrderQty > 1 {
		minOrder = route.MinOrderQty
	}

	qty := forecast.RecommendedQty(rate, coverDays, in.Position.CurrentStock, in.Position.InTransitQuantity, minOrder)

	s := domain.ReplenishmentSuggestion{
		ID:                    uuid.New(),
		Type:                  sType,
		Urgency:               urgency,
		Status:                domain.StatusPending,
		ProductID:             in.Forecast.ProductID,
		ProductName:           in.Forecast.ProductName,
		DestinationLocationID: in.Forecast.LocationID,
		DestinationName:       in.Forecast.LocationName,
		CurrentStock:          in.Position.CurrentStock,
		InTransitQuantity:     in.Position.InTransitQuantity,
		ReservedQuantity:      in.Position.ReservedQuantity,
		AvailableStock:        in.Position.Available(),
		DailySalesRate:        rate,
		DaysOfStockRemaining:  days.Sentinel(),
		StockoutDate:          stockout,
		SafetyStockThreshold:  threshold,
		RecommendedQty:        qty,
		GeneratedAt:           in.Now,
	}

	if route != nil {
		s.RouteID = &route.ID
		s.SourceLocationID = route.SourceLocationID
		s.SupplierID = route.SupplierID
		arrival := forecast.EstimatedArrival(route.TransitDays, in.Now)
		s.EstimatedArrival = &arrival
		s.EstimatedOrderCost = route.UnitCost.Mul(decimal.NewFromInt(int64(qty)))
	}

	s.Reasoning = g.reasoning(in, rate, days, threshold, qty, minOrder)

	return s
}

// safetyThreshold resolves the safety stock threshold in units, scaling the
// rule's threshold value by its current-month seasonal multiplier first.
func (g *Generator) safetyThreshold(rule *domain.SafetyStockRule, rate float64, now time.Time) int {
	if rule == nil {
		return forecast.SafetyStock("", nil, rate, forecast.DefaultSafetyStockDays)
	}

	multiplier := forecast.SeasonalMultiplier(rule.SeasonalMultipliers, now)
	value := rule.ThresholdValue * multiplier

	return forecast.SafetyStock(rule.ThresholdType, &value, rate, forecast.DefaultSafetyStockDays)
}

// coverDays is the replenishment target window: the rule's days-of-cover
// value when it has one, else the planning horizon.
func (g *Generator) coverDays(rule *domain.SafetyStockRule) int {
	if rule != nil && rule.ThresholdType == domain.ThresholdDaysOfCover && rule.ThresholdValue > 0 {
		return int(math.Ceil(rule.ThresholdValue))
	}
	return g.planningHorizon
}

// pickRoutes selects the fastest transfer route and the fastest supplier
// route; routes arrive ordered by transit days.
func pickRoutes(routes []domain.ShippingRoute) (transfer, po *domain.ShippingRoute) {
	for i := range routes {
		r := &routes[i]
		if r.SourceLocationID != nil && transfer == nil {
			transfer = r
		}
		if r.SupplierID != nil && po == nil {
			po = r
		}
	}
	return transfer, po
}

// reasoning builds the ordered human-readable explanation shown alongside a
// suggestion. Display only; nothing downstream computes on these strings.
func (g *Generator) reasoning(in Input, rate float64, days forecast.StockDays, threshold, qty, minOrder int) []string {
	reasons := []string{
		fmt.Sprintf("daily rate %.2f units", rate),
	}

	if days.IsUnbounded() {
		reasons = append(reasons, "no stockout projected at current rate")
	} else {
		reasons = append(reasons, fmt.Sprintf("%d days of stock remaining", days.Days()))
	}

	if m := forecast.SeasonalMultiplier(in.Forecast.SeasonalMultipliers, in.Now); m != 1 {
		reasons = append(reasons, fmt.Sprintf("seasonal multiplier %.2fx applied for %s", m, in.Now.Month()))
	}

	if in.Forecast.ManualOverride != nil {
		reasons = append(reasons, "manual rate override in effect")
	}

	reasons = append(reasons, fmt.Sprintf("safety stock threshold %d units", threshold))

	covered := in.Position.Available() + in.Position.InTransitQuantity
	if covered < threshold {
		reasons = append(reasons, fmt.Sprintf("available plus in-transit stock (%d) below threshold", covered))
	}

	if qty > 0 && minOrder > 1 {
		reasons = append(reasons, fmt.Sprintf("quantity rounded up to min order multiple of %d", minOrder))
	}

	return reasons
}
