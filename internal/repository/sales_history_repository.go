// internal/repository/sales_history_repository.go
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
)

// SalesHistoryRepository reads and imports daily sales history. Entries are
// immutable once written except by explicit correction, so the importer
// upserts on the (product_id, location_id, date) key.
type SalesHistoryRepository interface {
	FetchWindow(ctx context.Context, from, to time.Time) ([]domain.SalesHistoryEntry, error)
	FetchPair(ctx context.Context, productID, locationID string, from, to time.Time) ([]domain.SalesHistoryEntry, error)
	BulkUpsert(ctx context.Context, entries []domain.SalesHistoryEntry) (int, error)
}

type salesHistoryRepository struct {
	db *sqlx.DB
}

func NewSalesHistoryRepository(db *sqlx.DB) SalesHistoryRepository {
	return &salesHistoryRepository{db: db}
}

const salesHistoryColumns = `product_id, location_id, date, units_sold, revenue, currency, source`

// salesHistorySelect denormalizes product and location names for display,
// matching the shape forecast rows are stored with.
const salesHistorySelect = `
	SELECT sh.product_id, sh.location_id,
	       COALESCE(p.name, '') AS product_name,
	       COALESCE(l.name, '') AS location_name,
	       sh.date, sh.units_sold, sh.revenue, sh.currency, sh.source
	FROM sales_history sh
	LEFT JOIN products p ON p.id = sh.product_id
	LEFT JOIN locations l ON l.id = sh.location_id`

func (r *salesHistoryRepository) FetchWindow(ctx context.Context, from, to time.Time) ([]domain.SalesHistoryEntry, error) {
	query := salesHistorySelect + `
		WHERE sh.date >= $1 AND sh.date <= $2
		ORDER BY sh.product_id, sh.location_id, sh.date
	`

	var entries []domain.SalesHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		return nil, fmt.Errorf("error fetching sales history window: %w", err)
	}

	return entries, nil
}

func (r *salesHistoryRepository) FetchPair(ctx context.Context, productID, locationID string, from, to time.Time) ([]domain.SalesHistoryEntry, error) {
	query := salesHistorySelect + `
		WHERE sh.product_id = $1 AND sh.location_id = $2 AND sh.date >= $3 AND sh.date <= $4
		ORDER BY sh.date
	`

	var entries []domain.SalesHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, productID, locationID, from, to); err != nil {
		return nil, fmt.Errorf("error fetching sales history for pair: %w", err)
	}

	return entries, nil
}

// BulkUpsert inserts entries in chunks, replacing the row on the natural key
// so corrections can be re-imported. Returns the number of rows written.
func (r *salesHistoryRepository) BulkUpsert(ctx context.Context, entries []domain.SalesHistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	const chunkSize = 500
	written := 0

	for start := 0; start < len(entries); start += chunkSize {
		end := start + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		placeholders := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*7)
		for i, e := range chunk {
			base := i * 7
			placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
			args = append(args, e.ProductID, e.LocationID, e.Date, e.UnitsSold, e.Revenue, e.Currency, e.Source)
		}

		query := fmt.Sprintf(`
			INSERT INTO sales_history (%s)
			VALUES %s
			ON CONFLICT (product_id, location_id, date) DO UPDATE SET
				units_sold = EXCLUDED.units_sold,
				revenue = EXCLUDED.revenue,
				currency = EXCLUDED.currency,
				source = EXCLUDED.source
		`, salesHistoryColumns, strings.Join(placeholders, ", "))

		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return written, fmt.Errorf("error upserting sales history chunk: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			written += int(n)
		} else {
			written += len(chunk)
		}
	}

	return written, nil
}
