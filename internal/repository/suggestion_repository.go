// internal/repository/suggestion_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/replenish/internal/domain"
)

// SuggestionRepository persists replenishment suggestions. Suggestion rows
// form an audit trail: regeneration updates the pending row for a
// (product, destination, type) key in place and status transitions are
// single-row updates, but nothing is ever deleted.
type SuggestionRepository interface {
	UpsertPending(ctx context.Context, s *domain.ReplenishmentSuggestion) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReplenishmentSuggestion, error)
	List(ctx context.Context, filter domain.SuggestionFilter) ([]domain.ReplenishmentSuggestion, int, error)
	UrgencySummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, error)
	Accept(ctx context.Context, id uuid.UUID, linkedEntityID, linkedEntityType *string, now time.Time) (bool, error)
	Dismiss(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	Snooze(ctx context.Context, id uuid.UUID, until time.Time) (bool, error)
	RevertLapsedSnoozes(ctx context.Context, now time.Time) (int, error)
	HasBlockingSuggestion(ctx context.Context, productID, destinationID string, sType domain.SuggestionType) (bool, error)
}

type suggestionRepository struct {
	db *sqlx.DB
}

func NewSuggestionRepository(db *sqlx.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

const suggestionColumns = `
	id, type, urgency, status, product_id, product_name,
	destination_location_id, destination_name, current_stock,
	in_transit_quantity, reserved_quantity, available_stock,
	daily_sales_rate, days_of_stock_remaining, stockout_date,
	safety_stock_threshold, recommended_qty, estimated_arrival,
	source_location_id, supplier_id, route_id, estimated_order_cost,
	reasoning, generated_at, snoozed_until, dismissed_reason, dismissed_at,
	accepted_at, linked_entity_id, linked_entity_type`

// UpsertPending writes a freshly generated suggestion, replacing the current
// pending row for the same (product, destination, type) key if one exists.
// Relies on the partial unique index on those columns WHERE status='pending',
// so concurrent generator runs settle on last-write-wins.
func (r *suggestionRepository) UpsertPending(ctx context.Context, s *domain.ReplenishmentSuggestion) error {
	query := fmt.Sprintf(`
		INSERT INTO replenishment_suggestions (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		ON CONFLICT (product_id, destination_location_id, type) WHERE status = 'pending'
		DO UPDATE SET
			urgency = EXCLUDED.urgency,
			product_name = EXCLUDED.product_name,
			destination_name = EXCLUDED.destination_name,
			current_stock = EXCLUDED.current_stock,
			in_transit_quantity = EXCLUDED.in_transit_quantity,
			reserved_quantity = EXCLUDED.reserved_quantity,
			available_stock = EXCLUDED.available_stock,
			daily_sales_rate = EXCLUDED.daily_sales_rate,
			days_of_stock_remaining = EXCLUDED.days_of_stock_remaining,
			stockout_date = EXCLUDED.stockout_date,
			safety_stock_threshold = EXCLUDED.safety_stock_threshold,
			recommended_qty = EXCLUDED.recommended_qty,
			estimated_arrival = EXCLUDED.estimated_arrival,
			source_location_id = EXCLUDED.source_location_id,
			supplier_id = EXCLUDED.supplier_id,
			route_id = EXCLUDED.route_id,
			estimated_order_cost = EXCLUDED.estimated_order_cost,
			reasoning = EXCLUDED.reasoning,
			generated_at = EXCLUDED.generated_at
	`, suggestionColumns)

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Type, s.Urgency, s.Status, s.ProductID, s.ProductName,
		s.DestinationLocationID, s.DestinationName, s.CurrentStock,
		s.InTransitQuantity, s.ReservedQuantity, s.AvailableStock,
		s.DailySalesRate, s.DaysOfStockRemaining, s.StockoutDate,
		s.SafetyStockThreshold, s.RecommendedQty, s.EstimatedArrival,
		s.SourceLocationID, s.SupplierID, s.RouteID, s.EstimatedOrderCost,
		s.Reasoning, s.GeneratedAt, s.SnoozedUntil, s.DismissedReason, s.DismissedAt,
		s.AcceptedAt, s.LinkedEntityID, s.LinkedEntityType,
	)
	if err != nil {
		return fmt.Errorf("error upserting suggestion for %s/%s: %w", s.ProductID, s.DestinationLocationID, err)
	}

	return nil
}

// HasBlockingSuggestion reports whether a still-snoozed suggestion occupies
// the key. Only snoozed rows block regeneration: pending rows are refreshed
// in place by the upsert, and accepted/dismissed rows are terminal history.
func (r *suggestionRepository) HasBlockingSuggestion(ctx context.Context, productID, destinationID string, sType domain.SuggestionType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM replenishment_suggestions
			WHERE product_id = $1 AND destination_location_id = $2 AND type = $3
			  AND status = 'snoozed'
		)
	`

	var blocked bool
	if err := r.db.GetContext(ctx, &blocked, query, productID, destinationID, sType); err != nil {
		return false, fmt.Errorf("error checking blocking suggestion: %w", err)
	}

	return blocked, nil
}

func (r *suggestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReplenishmentSuggestion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM replenishment_suggestions
		WHERE id = $1
	`, suggestionColumns)

	var s domain.ReplenishmentSuggestion
	err := r.db.GetContext(ctx, &s, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting suggestion: %w", err)
	}

	return &s, nil
}

// suggestionFilterConditions renders the filter into WHERE fragments with
// numbered placeholders starting at argCounter. Slice filters must be wrapped
// in pq.Array: lib/pq's default converter rejects bare Go slices.
func suggestionFilterConditions(filter domain.SuggestionFilter, argCounter int) ([]string, []interface{}, int) {
	var conditions []string
	var args []interface{}

	if len(filter.ProductIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("product_id = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.ProductIDs))
		argCounter++
	}

	if len(filter.LocationIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("destination_location_id = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.LocationIDs))
		argCounter++
	}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argCounter))
		args = append(args, filter.Type)
		argCounter++
	}

	if filter.Urgency != "" {
		conditions = append(conditions, fmt.Sprintf("urgency = $%d", argCounter))
		args = append(args, filter.Urgency)
		argCounter++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, filter.Status)
		argCounter++
	}

	return conditions, args, argCounter
}

func (r *suggestionRepository) List(ctx context.Context, filter domain.SuggestionFilter) ([]domain.ReplenishmentSuggestion, int, error) {
	countQuery := `SELECT COUNT(*) FROM replenishment_suggestions WHERE 1=1`
	query := fmt.Sprintf(`SELECT %s FROM replenishment_suggestions WHERE 1=1`, suggestionColumns)

	conditions, args, argCounter := suggestionFilterConditions(filter, 1)
	if len(conditions) > 0 {
		whereClause := " AND " + strings.Join(conditions, " AND ")
		query += whereClause
		countQuery += whereClause
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting suggestions: %w", err)
	}

	query += `
		ORDER BY
			CASE urgency
				WHEN 'critical' THEN 0
				WHEN 'warning' THEN 1
				WHEN 'planned' THEN 2
				ELSE 3
			END,
			days_of_stock_remaining,
			generated_at DESC
	`

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.PageSize, offset)
	}

	var suggestions []domain.ReplenishmentSuggestion
	if err := r.db.SelectContext(ctx, &suggestions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing suggestions: %w", err)
	}

	return suggestions, total, nil
}

func (r *suggestionRepository) UrgencySummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, error) {
	query := `
		SELECT urgency, COUNT(*) as count
		FROM replenishment_suggestions
		WHERE status = 'pending'
	`

	// The summary always scopes to pending rows, so only the identity
	// filters apply here.
	conditions, args, _ := suggestionFilterConditions(domain.SuggestionFilter{
		ProductIDs:  filter.ProductIDs,
		LocationIDs: filter.LocationIDs,
		Type:        filter.Type,
	}, 1)
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " GROUP BY urgency"

	var summaries []domain.UrgencySummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("error getting urgency summary: %w", err)
	}

	return summaries, nil
}

// Accept moves a pending or snoozed suggestion to accepted. Terminal states
// never change again; a lost race between two operators resolves to whichever
// decision landed first, which violates no invariant.
func (r *suggestionRepository) Accept(ctx context.Context, id uuid.UUID, linkedEntityID, linkedEntityType *string, now time.Time) (bool, error) {
	query := `
		UPDATE replenishment_suggestions
		SET status = 'accepted', accepted_at = $2, snoozed_until = NULL,
		    linked_entity_id = $3, linked_entity_type = $4
		WHERE id = $1 AND status IN ('pending', 'snoozed')
	`

	result, err := r.db.ExecContext(ctx, query, id, now, linkedEntityID, linkedEntityType)
	if err != nil {
		return false, fmt.Errorf("error accepting suggestion: %w", err)
	}

	return rowUpdated(result), nil
}

func (r *suggestionRepository) Dismiss(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	query := `
		UPDATE replenishment_suggestions
		SET status = 'dismissed', dismissed_at = $2, dismissed_reason = $3, snoozed_until = NULL
		WHERE id = $1 AND status IN ('pending', 'snoozed')
	`

	result, err := r.db.ExecContext(ctx, query, id, now, reason)
	if err != nil {
		return false, fmt.Errorf("error dismissing suggestion: %w", err)
	}

	return rowUpdated(result), nil
}

func (r *suggestionRepository) Snooze(ctx context.Context, id uuid.UUID, until time.Time) (bool, error) {
	query := `
		UPDATE replenishment_suggestions
		SET status = 'snoozed', snoozed_until = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, until)
	if err != nil {
		return false, fmt.Errorf("error snoozing suggestion: %w", err)
	}

	return rowUpdated(result), nil
}

// RevertLapsedSnoozes reopens snoozed suggestions whose window has passed so
// the next generator run refreshes them.
func (r *suggestionRepository) RevertLapsedSnoozes(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE replenishment_suggestions
		SET status = 'pending', snoozed_until = NULL
		WHERE status = 'snoozed' AND snoozed_until <= $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("error reverting lapsed snoozes: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(n), nil
}

func rowUpdated(result sql.Result) bool {
	n, err := result.RowsAffected()
	return err == nil && n > 0
}
