// internal/repository/reference_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
)

// StockRepository reads the current inventory ledger snapshot. The ledger
// itself is maintained elsewhere; this side only ever reads it.
type StockRepository interface {
	ListPositions(ctx context.Context) ([]domain.StockPosition, error)
	GetPosition(ctx context.Context, productID, locationID string) (*domain.StockPosition, error)
}

// SafetyStockRepository reads safety stock rules. At most one active rule is
// expected per (product, location) pair.
type SafetyStockRepository interface {
	GetActiveRule(ctx context.Context, productID, locationID string) (*domain.SafetyStockRule, error)
}

// RoutingRepository reads shipping routes. Routes are reference data passed
// through to suggestions, never optimized here.
type RoutingRepository interface {
	ListRoutes(ctx context.Context, productID, destinationID string) ([]domain.ShippingRoute, error)
}

type stockRepository struct {
	db *sqlx.DB
}

func NewStockRepository(db *sqlx.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) ListPositions(ctx context.Context) ([]domain.StockPosition, error) {
	query := `
		SELECT product_id, location_id, current_stock, in_transit_quantity, reserved_quantity
		FROM stock_positions
		ORDER BY product_id, location_id
	`

	var positions []domain.StockPosition
	if err := r.db.SelectContext(ctx, &positions, query); err != nil {
		return nil, fmt.Errorf("error listing stock positions: %w", err)
	}

	return positions, nil
}

func (r *stockRepository) GetPosition(ctx context.Context, productID, locationID string) (*domain.StockPosition, error) {
	query := `
		SELECT product_id, location_id, current_stock, in_transit_quantity, reserved_quantity
		FROM stock_positions
		WHERE product_id = $1 AND location_id = $2
	`

	var position domain.StockPosition
	err := r.db.GetContext(ctx, &position, query, productID, locationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting stock position: %w", err)
	}

	return &position, nil
}

type safetyStockRepository struct {
	db *sqlx.DB
}

func NewSafetyStockRepository(db *sqlx.DB) SafetyStockRepository {
	return &safetyStockRepository{db: db}
}

func (r *safetyStockRepository) GetActiveRule(ctx context.Context, productID, locationID string) (*domain.SafetyStockRule, error) {
	query := `
		SELECT id, product_id, location_id, threshold_type, threshold_value,
		       seasonal_multipliers, is_active
		FROM safety_stock_rules
		WHERE product_id = $1 AND location_id = $2 AND is_active = true
		LIMIT 1
	`

	var rule domain.SafetyStockRule
	err := r.db.GetContext(ctx, &rule, query, productID, locationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting safety stock rule: %w", err)
	}

	return &rule, nil
}

type routingRepository struct {
	db *sqlx.DB
}

func NewRoutingRepository(db *sqlx.DB) RoutingRepository {
	return &routingRepository{db: db}
}

func (r *routingRepository) ListRoutes(ctx context.Context, productID, destinationID string) ([]domain.ShippingRoute, error) {
	query := `
		SELECT id, product_id, source_location_id, supplier_id, destination_id,
		       transit_days, min_order_qty, unit_cost
		FROM shipping_routes
		WHERE product_id = $1 AND destination_id = $2
		ORDER BY transit_days
	`

	var routes []domain.ShippingRoute
	if err := r.db.SelectContext(ctx, &routes, query, productID, destinationID); err != nil {
		return nil, fmt.Errorf("error listing shipping routes: %w", err)
	}

	return routes, nil
}
