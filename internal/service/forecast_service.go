// internal/service/forecast_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/repository"
)

// ForecastService runs the batch forecast recalculation across every
// (product, location) pair that has sales history in the trailing window.
type ForecastService struct {
	history   repository.SalesHistoryRepository
	forecasts repository.ForecastRepository
	calc      *forecast.Calculator
	workers   int
}

func NewForecastService(history repository.SalesHistoryRepository, forecasts repository.ForecastRepository, workers int) *ForecastService {
	if workers < 1 {
		workers = 1
	}
	return &ForecastService{
		history:   history,
		forecasts: forecasts,
		calc:      forecast.NewCalculator(),
		workers:   workers,
	}
}

type pairKey struct {
	productID  string
	locationID string
}

// Run recalculates forecasts for every pair with history in the trailing
// 90 days. The history fetch is fatal: without it no pair can be computed.
// Per-pair failures are recorded in the summary and do not abort the run.
func (s *ForecastService) Run(ctx context.Context, now time.Time) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{StartedAt: now}

	from := forecast.HistoryWindowStart(now)
	entries, err := s.history.FetchWindow(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales history window: %w", err)
	}

	groups := make(map[pairKey][]domain.SalesHistoryEntry)
	for _, e := range entries {
		key := pairKey{productID: e.ProductID, locationID: e.LocationID}
		groups[key] = append(groups[key], e)
	}

	keys := make([]pairKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].productID != keys[j].productID {
			return keys[i].productID < keys[j].productID
		}
		return keys[i].locationID < keys[j].locationID
	})

	log.Info().
		Int("pairs", len(keys)).
		Int("history_rows", len(entries)).
		Time("window_start", from).
		Msg("starting forecast run")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, key := range keys {
		key := key
		history := groups[key]
		g.Go(func() error {
			result, ok := s.calc.Calculate(history)
			if !ok {
				return nil
			}

			mu.Lock()
			summary.ForecastsCalculated++
			mu.Unlock()

			f := buildForecast(key, history, result, now)
			if err := s.forecasts.Upsert(gctx, f); err != nil {
				log.Error().Err(err).
					Str("product_id", key.productID).
					Str("location_id", key.locationID).
					Msg("failed to upsert forecast")
				mu.Lock()
				summary.Errors = append(summary.Errors,
					fmt.Sprintf("%s/%s: %v", key.productID, key.locationID, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			summary.ForecastsUpserted++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.CompletedAt = time.Now()
	log.Info().
		Int("calculated", summary.ForecastsCalculated).
		Int("upserted", summary.ForecastsUpserted).
		Int("errors", len(summary.Errors)).
		Msg("forecast run complete")

	return summary, nil
}

// RunPair recalculates a single pair on demand, e.g. after a history import
// correction. Returns false when the pair has no history in the window.
func (s *ForecastService) RunPair(ctx context.Context, productID, locationID string, now time.Time) (bool, error) {
	from := forecast.HistoryWindowStart(now)
	history, err := s.history.FetchPair(ctx, productID, locationID, from, now)
	if err != nil {
		return false, fmt.Errorf("failed to fetch sales history: %w", err)
	}

	result, ok := s.calc.Calculate(history)
	if !ok {
		return false, nil
	}

	key := pairKey{productID: productID, locationID: locationID}
	if err := s.forecasts.Upsert(ctx, buildForecast(key, history, result, now)); err != nil {
		return false, fmt.Errorf("failed to upsert forecast: %w", err)
	}
	return true, nil
}

// ListEnabled returns every forecast the suggestion run would consider.
func (s *ForecastService) ListEnabled(ctx context.Context) ([]domain.SalesForecast, error) {
	return s.forecasts.ListEnabled(ctx)
}

// Get returns the forecast for one pair, or nil when none exists.
func (s *ForecastService) Get(ctx context.Context, productID, locationID string) (*domain.SalesForecast, error) {
	return s.forecasts.GetByPair(ctx, productID, locationID)
}

func buildForecast(key pairKey, history []domain.SalesHistoryEntry, result forecast.Result, now time.Time) *domain.SalesForecast {
	f := &domain.SalesForecast{
		ProductID:           key.productID,
		LocationID:          key.locationID,
		DailyRate:           result.DailyRate,
		Confidence:          result.Confidence,
		AccuracyMAPE:        result.AccuracyMAPE,
		IsEnabled:           true,
		SeasonalMultipliers: pq.Float64Array(result.SeasonalMultipliers),
		TrendRate:           result.TrendRate,
		LastCalculatedAt:    now,
	}
	// Display names ride along on the history rows.
	for _, e := range history {
		if f.ProductName == "" {
			f.ProductName = e.ProductName
		}
		if f.LocationName == "" {
			f.LocationName = e.LocationName
		}
		if f.ProductName != "" && f.LocationName != "" {
			break
		}
	}
	return f
}
