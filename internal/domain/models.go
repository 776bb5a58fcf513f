// internal/domain/models.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// SalesSource identifies where a sales history entry came from.
type SalesSource string

const (
	SourceManual    SalesSource = "manual"
	SourceImported  SalesSource = "imported"
	SourceAmazonAPI SalesSource = "amazon-api"
)

// SalesHistoryEntry is one day of recorded sales for a product at a location.
// Entries are immutable once written and uniquely keyed by
// (product_id, location_id, date).
type SalesHistoryEntry struct {
	ProductID    string          `json:"product_id" db:"product_id"`
	LocationID   string          `json:"location_id" db:"location_id"`
	ProductName  string          `json:"product_name" db:"product_name"`
	LocationName string          `json:"location_name" db:"location_name"`
	Date         time.Time       `json:"date" db:"date"`
	UnitsSold    int             `json:"units_sold" db:"units_sold"`
	Revenue      decimal.Decimal `json:"revenue" db:"revenue"`
	Currency     string          `json:"currency" db:"currency"`
	Source       SalesSource     `json:"source" db:"source"`
}

// ForecastConfidence is the confidence tier assigned by the calculator.
type ForecastConfidence string

const (
	ConfidenceHigh   ForecastConfidence = "high"
	ConfidenceMedium ForecastConfidence = "medium"
	ConfidenceLow    ForecastConfidence = "low"
)

// SalesForecast is the per (product, location) forecast row maintained by the
// calculator batch job. SeasonalMultipliers holds exactly 12 values
// (index 0 = January) or is empty, in which case no seasonality is applied.
type SalesForecast struct {
	ProductID           string             `json:"product_id" db:"product_id"`
	LocationID          string             `json:"location_id" db:"location_id"`
	ProductName         string             `json:"product_name" db:"product_name"`
	LocationName        string             `json:"location_name" db:"location_name"`
	DailyRate           float64            `json:"daily_rate" db:"daily_rate"`
	Confidence          ForecastConfidence `json:"confidence" db:"confidence"`
	AccuracyMAPE        *float64           `json:"accuracy_mape" db:"accuracy_mape"`
	ManualOverride      *float64           `json:"manual_override" db:"manual_override"`
	IsEnabled           bool               `json:"is_enabled" db:"is_enabled"`
	SeasonalMultipliers pq.Float64Array    `json:"seasonal_multipliers" db:"seasonal_multipliers"`
	TrendRate           float64            `json:"trend_rate" db:"trend_rate"`
	LastCalculatedAt    time.Time          `json:"last_calculated_at" db:"last_calculated_at"`
}

// BaseRate returns the rate the adjustment overlay starts from: the manual
// override when one is set, otherwise the calculated daily rate.
func (f *SalesForecast) BaseRate() float64 {
	if f.ManualOverride != nil {
		return *f.ManualOverride
	}
	return f.DailyRate
}

// AdjustmentEffect is what an adjustment does to the rate inside its window.
type AdjustmentEffect string

const (
	EffectExclude  AdjustmentEffect = "exclude"
	EffectMultiply AdjustmentEffect = "multiply"
)

// AccountAdjustment is an account-wide demand adjustment window. When
// IsRecurring is true only the month/day of StartDate and EndDate matter.
type AccountAdjustment struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	EndDate     time.Time        `json:"end_date" db:"end_date"`
	Effect      AdjustmentEffect `json:"effect" db:"effect"`
	Multiplier  *float64         `json:"multiplier" db:"multiplier"`
	IsRecurring bool             `json:"is_recurring" db:"is_recurring"`
	Notes       string           `json:"notes" db:"notes"`
}

// ProductAdjustment is a product-level demand adjustment. A row with
// IsOptedOut=true and a non-nil AccountAdjustmentID cancels that account
// adjustment for this product inside the row's window.
type ProductAdjustment struct {
	ID                  string           `json:"id" db:"id"`
	ProductID           string           `json:"product_id" db:"product_id"`
	AccountAdjustmentID *string          `json:"account_adjustment_id" db:"account_adjustment_id"`
	Name                string           `json:"name" db:"name"`
	StartDate           time.Time        `json:"start_date" db:"start_date"`
	EndDate             time.Time        `json:"end_date" db:"end_date"`
	Effect              AdjustmentEffect `json:"effect" db:"effect"`
	Multiplier          *float64         `json:"multiplier" db:"multiplier"`
	IsRecurring         bool             `json:"is_recurring" db:"is_recurring"`
	IsOptedOut          bool             `json:"is_opted_out" db:"is_opted_out"`
}

// ThresholdType is how a safety stock rule expresses its threshold.
type ThresholdType string

const (
	ThresholdUnits       ThresholdType = "units"
	ThresholdDaysOfCover ThresholdType = "days-of-cover"
)

// SafetyStockRule sets the replenishment buffer for a (product, location)
// pair. At most one active rule applies per pair; the effective threshold is
// ThresholdValue scaled by the current month's seasonal multiplier.
type SafetyStockRule struct {
	ID                  string          `json:"id" db:"id"`
	ProductID           string          `json:"product_id" db:"product_id"`
	LocationID          string          `json:"location_id" db:"location_id"`
	ThresholdType       ThresholdType   `json:"threshold_type" db:"threshold_type"`
	ThresholdValue      float64         `json:"threshold_value" db:"threshold_value"`
	SeasonalMultipliers pq.Float64Array `json:"seasonal_multipliers" db:"seasonal_multipliers"`
	IsActive            bool            `json:"is_active" db:"is_active"`
}

// StockPosition is the current inventory ledger snapshot for a pair.
type StockPosition struct {
	ProductID         string `json:"product_id" db:"product_id"`
	LocationID        string `json:"location_id" db:"location_id"`
	CurrentStock      int    `json:"current_stock" db:"current_stock"`
	InTransitQuantity int    `json:"in_transit_quantity" db:"in_transit_quantity"`
	ReservedQuantity  int    `json:"reserved_quantity" db:"reserved_quantity"`
}

// Available returns current stock net of reservations, floored at zero so a
// ledger anomaly cannot push the projection negative.
func (p StockPosition) Available() int {
	available := p.CurrentStock - p.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}

// ShippingRoute is reference routing data between a source (supplier or
// sibling location) and a destination location for one product.
type ShippingRoute struct {
	ID               string          `json:"id" db:"id"`
	ProductID        string          `json:"product_id" db:"product_id"`
	SourceLocationID *string         `json:"source_location_id" db:"source_location_id"`
	SupplierID       *string         `json:"supplier_id" db:"supplier_id"`
	DestinationID    string          `json:"destination_id" db:"destination_id"`
	TransitDays      int             `json:"transit_days" db:"transit_days"`
	MinOrderQty      int             `json:"min_order_qty" db:"min_order_qty"`
	UnitCost         decimal.Decimal `json:"unit_cost" db:"unit_cost"`
}

// SuggestionType splits suggestions into inter-location transfers and
// supplier purchase orders.
type SuggestionType string

const (
	TypeTransfer      SuggestionType = "transfer"
	TypePurchaseOrder SuggestionType = "purchase-order"
)

// ReplenishmentSuggestion is one generated replenishment action. Rows are
// created by the generator run and afterwards mutated only through
// accept/dismiss/snooze transitions; they are never deleted.
//
// DaysOfStockRemaining uses 999 as the "no foreseeable stockout" sentinel for
// interface parity with existing consumers.
type ReplenishmentSuggestion struct {
	ID                    uuid.UUID        `json:"id" db:"id"`
	Type                  SuggestionType   `json:"type" db:"type"`
	Urgency               Urgency          `json:"urgency" db:"urgency"`
	Status                SuggestionStatus `json:"status" db:"status"`
	ProductID             string           `json:"product_id" db:"product_id"`
	ProductName           string           `json:"product_name" db:"product_name"`
	DestinationLocationID string           `json:"destination_location_id" db:"destination_location_id"`
	DestinationName       string           `json:"destination_name" db:"destination_name"`
	CurrentStock          int              `json:"current_stock" db:"current_stock"`
	InTransitQuantity     int              `json:"in_transit_quantity" db:"in_transit_quantity"`
	ReservedQuantity      int              `json:"reserved_quantity" db:"reserved_quantity"`
	AvailableStock        int              `json:"available_stock" db:"available_stock"`
	DailySalesRate        float64          `json:"daily_sales_rate" db:"daily_sales_rate"`
	DaysOfStockRemaining  int              `json:"days_of_stock_remaining" db:"days_of_stock_remaining"`
	StockoutDate          *time.Time       `json:"stockout_date" db:"stockout_date"`
	SafetyStockThreshold  int              `json:"safety_stock_threshold" db:"safety_stock_threshold"`
	RecommendedQty        int              `json:"recommended_qty" db:"recommended_qty"`
	EstimatedArrival      *time.Time       `json:"estimated_arrival" db:"estimated_arrival"`
	SourceLocationID      *string          `json:"source_location_id" db:"source_location_id"`
	SupplierID            *string          `json:"supplier_id" db:"supplier_id"`
	RouteID               *string          `json:"route_id" db:"route_id"`
	EstimatedOrderCost    decimal.Decimal  `json:"estimated_order_cost" db:"estimated_order_cost"`
	Reasoning             pq.StringArray   `json:"reasoning" db:"reasoning"`
	GeneratedAt           time.Time        `json:"generated_at" db:"generated_at"`
	SnoozedUntil          *time.Time       `json:"snoozed_until" db:"snoozed_until"`
	DismissedReason       *string          `json:"dismissed_reason" db:"dismissed_reason"`
	DismissedAt           *time.Time       `json:"dismissed_at" db:"dismissed_at"`
	AcceptedAt            *time.Time       `json:"accepted_at" db:"accepted_at"`
	LinkedEntityID        *string          `json:"linked_entity_id" db:"linked_entity_id"`
	LinkedEntityType      *string          `json:"linked_entity_type" db:"linked_entity_type"`
}
