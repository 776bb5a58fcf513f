// internal/service/suggestion_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

type fakeStockRepo struct {
	positions map[string]*domain.StockPosition // keyed by product|location
}

func stockKey(productID, locationID string) string { return productID + "|" + locationID }

func (f *fakeStockRepo) ListPositions(ctx context.Context) ([]domain.StockPosition, error) {
	var out []domain.StockPosition
	for _, p := range f.positions {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStockRepo) GetPosition(ctx context.Context, productID, locationID string) (*domain.StockPosition, error) {
	return f.positions[stockKey(productID, locationID)], nil
}

type fakeSafetyRepo struct {
	rules map[string]*domain.SafetyStockRule
}

func (f *fakeSafetyRepo) GetActiveRule(ctx context.Context, productID, locationID string) (*domain.SafetyStockRule, error) {
	return f.rules[stockKey(productID, locationID)], nil
}

type fakeRoutingRepo struct {
	routes map[string][]domain.ShippingRoute
}

func (f *fakeRoutingRepo) ListRoutes(ctx context.Context, productID, destinationID string) ([]domain.ShippingRoute, error) {
	return f.routes[stockKey(productID, destinationID)], nil
}

type fakeSuggestionRepo struct {
	upserted []domain.ReplenishmentSuggestion
	blocked  map[string]bool // product|destination|type
	reverted int
	byID     map[uuid.UUID]*domain.ReplenishmentSuggestion
	accepted []uuid.UUID
}

func blockKey(productID, destinationID string, t domain.SuggestionType) string {
	return productID + "|" + destinationID + "|" + string(t)
}

func (f *fakeSuggestionRepo) UpsertPending(ctx context.Context, s *domain.ReplenishmentSuggestion) error {
	f.upserted = append(f.upserted, *s)
	return nil
}

func (f *fakeSuggestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReplenishmentSuggestion, error) {
	return f.byID[id], nil
}

func (f *fakeSuggestionRepo) List(ctx context.Context, filter domain.SuggestionFilter) ([]domain.ReplenishmentSuggestion, int, error) {
	return f.upserted, len(f.upserted), nil
}

func (f *fakeSuggestionRepo) UrgencySummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, error) {
	return nil, nil
}

func (f *fakeSuggestionRepo) Accept(ctx context.Context, id uuid.UUID, linkedEntityID, linkedEntityType *string, now time.Time) (bool, error) {
	s, ok := f.byID[id]
	if !ok || (s.Status != domain.StatusPending && s.Status != domain.StatusSnoozed) {
		return false, nil
	}
	s.Status = domain.StatusAccepted
	f.accepted = append(f.accepted, id)
	return true, nil
}

func (f *fakeSuggestionRepo) Dismiss(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	s, ok := f.byID[id]
	if !ok || (s.Status != domain.StatusPending && s.Status != domain.StatusSnoozed) {
		return false, nil
	}
	s.Status = domain.StatusDismissed
	return true, nil
}

func (f *fakeSuggestionRepo) Snooze(ctx context.Context, id uuid.UUID, until time.Time) (bool, error) {
	s, ok := f.byID[id]
	if !ok || s.Status != domain.StatusPending {
		return false, nil
	}
	s.Status = domain.StatusSnoozed
	s.SnoozedUntil = &until
	return true, nil
}

func (f *fakeSuggestionRepo) RevertLapsedSnoozes(ctx context.Context, now time.Time) (int, error) {
	return f.reverted, nil
}

func (f *fakeSuggestionRepo) HasBlockingSuggestion(ctx context.Context, productID, destinationID string, sType domain.SuggestionType) (bool, error) {
	return f.blocked[blockKey(productID, destinationID, sType)], nil
}

func newSuggestionFixture(forecasts *fakeForecastRepo, stock *fakeStockRepo, suggestions *fakeSuggestionRepo) *SuggestionService {
	return NewSuggestionService(
		forecasts,
		stock,
		&fakeSafetyRepo{},
		&fakeRoutingRepo{},
		suggestions,
		cache.NewNoopUrgencySummaryCache(),
		config.JobsConfig{},
	)
}

func enabledForecast(productID, locationID string, rate float64) domain.SalesForecast {
	return domain.SalesForecast{
		ProductID:   productID,
		LocationID:  locationID,
		ProductName: "Widget " + productID,
		DailyRate:   rate,
		Confidence:  domain.ConfidenceHigh,
		IsEnabled:   true,
	}
}

func TestSuggestionRunGeneratesForEnabledPairs(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	forecasts := &fakeForecastRepo{
		enabled: []domain.SalesForecast{
			enabledForecast("p1", "l1", 10),
			enabledForecast("p2", "l1", 5),
		},
	}
	stock := &fakeStockRepo{positions: map[string]*domain.StockPosition{
		stockKey("p1", "l1"): {ProductID: "p1", LocationID: "l1", CurrentStock: 20},
		stockKey("p2", "l1"): {ProductID: "p2", LocationID: "l1", CurrentStock: 100},
	}}
	suggestions := &fakeSuggestionRepo{}

	svc := newSuggestionFixture(forecasts, stock, suggestions)
	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	// One purchase-order suggestion per pair (no routes configured).
	assert.Equal(t, 2, summary.SuggestionsGenerated)
	assert.Equal(t, 0, summary.SuggestionsSkipped)
	require.Len(t, suggestions.upserted, 2)
	assert.Equal(t, domain.TypePurchaseOrder, suggestions.upserted[0].Type)
}

func TestSuggestionRunSkipsPairsWithoutStock(t *testing.T) {
	forecasts := &fakeForecastRepo{
		enabled: []domain.SalesForecast{enabledForecast("p1", "l1", 10)},
	}
	suggestions := &fakeSuggestionRepo{}

	svc := newSuggestionFixture(forecasts, &fakeStockRepo{positions: map[string]*domain.StockPosition{}}, suggestions)
	summary, err := svc.Run(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.SuggestionsGenerated)
	assert.Equal(t, 1, summary.SuggestionsSkipped)
	assert.Empty(t, suggestions.upserted)
}

func TestSuggestionRunSkipsSnoozedKeys(t *testing.T) {
	forecasts := &fakeForecastRepo{
		enabled: []domain.SalesForecast{enabledForecast("p1", "l1", 10)},
	}
	stock := &fakeStockRepo{positions: map[string]*domain.StockPosition{
		stockKey("p1", "l1"): {ProductID: "p1", LocationID: "l1", CurrentStock: 20},
	}}
	suggestions := &fakeSuggestionRepo{
		blocked: map[string]bool{
			blockKey("p1", "l1", domain.TypePurchaseOrder): true,
		},
	}

	svc := newSuggestionFixture(forecasts, stock, suggestions)
	summary, err := svc.Run(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.SuggestionsGenerated)
	assert.Equal(t, 1, summary.SuggestionsSkipped)
}

func TestAcceptFromPending(t *testing.T) {
	id := uuid.New()
	suggestions := &fakeSuggestionRepo{byID: map[uuid.UUID]*domain.ReplenishmentSuggestion{
		id: {ID: id, Status: domain.StatusPending},
	}}
	svc := newSuggestionFixture(&fakeForecastRepo{}, &fakeStockRepo{}, suggestions)

	poID := "po-123"
	poType := "purchase_order"
	err := svc.Accept(context.Background(), id, &poID, &poType, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, suggestions.byID[id].Status)
}

func TestAcceptFromDismissedFails(t *testing.T) {
	id := uuid.New()
	suggestions := &fakeSuggestionRepo{byID: map[uuid.UUID]*domain.ReplenishmentSuggestion{
		id: {ID: id, Status: domain.StatusDismissed},
	}}
	svc := newSuggestionFixture(&fakeForecastRepo{}, &fakeStockRepo{}, suggestions)

	err := svc.Accept(context.Background(), id, nil, nil, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcceptMissingSuggestion(t *testing.T) {
	suggestions := &fakeSuggestionRepo{byID: map[uuid.UUID]*domain.ReplenishmentSuggestion{}}
	svc := newSuggestionFixture(&fakeForecastRepo{}, &fakeStockRepo{}, suggestions)

	err := svc.Accept(context.Background(), uuid.New(), nil, nil, time.Now())
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestSnoozeRequiresFutureTime(t *testing.T) {
	svc := newSuggestionFixture(&fakeForecastRepo{}, &fakeStockRepo{}, &fakeSuggestionRepo{})

	now := time.Now()
	err := svc.Snooze(context.Background(), uuid.New(), now.Add(-time.Hour), now)
	require.Error(t, err)
}

func TestSnoozeFromSnoozedFails(t *testing.T) {
	id := uuid.New()
	until := time.Now().Add(48 * time.Hour)
	suggestions := &fakeSuggestionRepo{byID: map[uuid.UUID]*domain.ReplenishmentSuggestion{
		id: {ID: id, Status: domain.StatusSnoozed, SnoozedUntil: &until},
	}}
	svc := newSuggestionFixture(&fakeForecastRepo{}, &fakeStockRepo{}, suggestions)

	err := svc.Snooze(context.Background(), id, until.Add(24*time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSuggestionRunUsesConfiguredThresholds(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	forecasts := &fakeForecastRepo{
		enabled: []domain.SalesForecast{enabledForecast("p1", "l1", 10)},
	}
	// 80 units at 10/day -> 8 days of stock.
	stock := &fakeStockRepo{positions: map[string]*domain.StockPosition{
		stockKey("p1", "l1"): {ProductID: "p1", LocationID: "l1", CurrentStock: 80},
	}}
	suggestions := &fakeSuggestionRepo{}

	svc := NewSuggestionService(
		forecasts,
		stock,
		&fakeSafetyRepo{},
		&fakeRoutingRepo{},
		suggestions,
		cache.NewNoopUrgencySummaryCache(),
		config.JobsConfig{CriticalDays: 10, WarningDays: 12, PlannedDays: 14},
	)
	_, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	// 8 days sits in the widened critical band, not the default warning one.
	require.Len(t, suggestions.upserted, 1)
	assert.Equal(t, domain.UrgencyCritical, suggestions.upserted[0].Urgency)
}

func TestDefaultSnoozeUntil(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	configured := NewSuggestionService(
		&fakeForecastRepo{}, &fakeStockRepo{}, &fakeSafetyRepo{}, &fakeRoutingRepo{},
		&fakeSuggestionRepo{}, cache.NewNoopUrgencySummaryCache(),
		config.JobsConfig{SnoozeDefaultDays: 3},
	)
	assert.Equal(t, now.AddDate(0, 0, 3), configured.DefaultSnoozeUntil(now))

	fallback := newSuggestionFixture(&fakeForecastRepo{}, &fakeStockRepo{}, &fakeSuggestionRepo{})
	assert.Equal(t, now.AddDate(0, 0, 7), fallback.DefaultSnoozeUntil(now))
}
