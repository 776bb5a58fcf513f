// internal/repository/forecast_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ForecastRepository maintains the per-pair sales forecasts and the demand
// adjustments layered on top of them.
type ForecastRepository interface {
	Upsert(ctx context.Context, f *domain.SalesForecast) error
	GetByPair(ctx context.Context, productID, locationID string) (*domain.SalesForecast, error)
	ListEnabled(ctx context.Context) ([]domain.SalesForecast, error)
	ListAccountAdjustments(ctx context.Context) ([]domain.AccountAdjustment, error)
	ListProductAdjustments(ctx context.Context, productID string) ([]domain.ProductAdjustment, error)
}

type forecastRepository struct {
	db *sqlx.DB
}

func NewForecastRepository(db *sqlx.DB) ForecastRepository {
	return &forecastRepository{db: db}
}

const forecastColumns = `
	product_id, location_id, product_name, location_name, daily_rate,
	confidence, accuracy_mape, manual_override, is_enabled,
	seasonal_multipliers, trend_rate, last_calculated_at`

// Upsert writes one forecast row atomically on the (product_id, location_id)
// key. A hand-set manual override or disabled flag on an existing row is
// preserved; the batch only owns the calculated fields.
func (r *forecastRepository) Upsert(ctx context.Context, f *domain.SalesForecast) error {
	query := fmt.Sprintf(`
		INSERT INTO sales_forecasts (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (product_id, location_id) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			location_name = EXCLUDED.location_name,
			daily_rate = EXCLUDED.daily_rate,
			confidence = EXCLUDED.confidence,
			accuracy_mape = EXCLUDED.accuracy_mape,
			seasonal_multipliers = EXCLUDED.seasonal_multipliers,
			trend_rate = EXCLUDED.trend_rate,
			last_calculated_at = EXCLUDED.last_calculated_at
	`, forecastColumns)

	_, err := r.db.ExecContext(ctx, query,
		f.ProductID, f.LocationID, f.ProductName, f.LocationName, f.DailyRate,
		f.Confidence, f.AccuracyMAPE, f.ManualOverride, f.IsEnabled,
		f.SeasonalMultipliers, f.TrendRate, f.LastCalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("error upserting forecast for %s/%s: %w", f.ProductID, f.LocationID, err)
	}

	return nil
}

func (r *forecastRepository) GetByPair(ctx context.Context, productID, locationID string) (*domain.SalesForecast, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sales_forecasts
		WHERE product_id = $1 AND location_id = $2
	`, forecastColumns)

	var f domain.SalesForecast
	err := r.db.GetContext(ctx, &f, query, productID, locationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting forecast: %w", err)
	}

	return &f, nil
}

func (r *forecastRepository) ListEnabled(ctx context.Context) ([]domain.SalesForecast, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sales_forecasts
		WHERE is_enabled = true
		ORDER BY product_id, location_id
	`, forecastColumns)

	var forecasts []domain.SalesForecast
	if err := r.db.SelectContext(ctx, &forecasts, query); err != nil {
		return nil, fmt.Errorf("error listing enabled forecasts: %w", err)
	}

	return forecasts, nil
}

func (r *forecastRepository) ListAccountAdjustments(ctx context.Context) ([]domain.AccountAdjustment, error) {
	query := `
		SELECT id, name, start_date, end_date, effect, multiplier, is_recurring, notes
		FROM account_forecast_adjustments
		ORDER BY start_date
	`

	var adjustments []domain.AccountAdjustment
	if err := r.db.SelectContext(ctx, &adjustments, query); err != nil {
		return nil, fmt.Errorf("error listing account adjustments: %w", err)
	}

	return adjustments, nil
}

func (r *forecastRepository) ListProductAdjustments(ctx context.Context, productID string) ([]domain.ProductAdjustment, error) {
	query := `
		SELECT id, product_id, account_adjustment_id, name, start_date, end_date,
		       effect, multiplier, is_recurring, is_opted_out
		FROM product_forecast_adjustments
		WHERE product_id = $1
		ORDER BY start_date
	`

	var adjustments []domain.ProductAdjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, productID); err != nil {
		return nil, fmt.Errorf("error listing product adjustments: %w", err)
	}

	return adjustments, nil
}
