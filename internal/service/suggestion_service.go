// internal/service/suggestion_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/suggest"
)

// ErrInvalidTransition is returned when a suggestion is not in a status the
// requested action can be applied from.
var ErrInvalidTransition = errors.New("suggestion is not in an actionable status")

// ErrSuggestionNotFound is returned when no suggestion exists for the id.
var ErrSuggestionNotFound = errors.New("suggestion not found")

// SuggestionService drives suggestion generation and the review workflow.
type SuggestionService struct {
	forecasts   repository.ForecastRepository
	stock       repository.StockRepository
	safety      repository.SafetyStockRepository
	routing     repository.RoutingRepository
	suggestions repository.SuggestionRepository
	summaries   cache.UrgencySummaryCache
	gen         *suggest.Generator

	snoozeDefaultDays int
}

func NewSuggestionService(
	forecasts repository.ForecastRepository,
	stock repository.StockRepository,
	safety repository.SafetyStockRepository,
	routing repository.RoutingRepository,
	suggestions repository.SuggestionRepository,
	summaries cache.UrgencySummaryCache,
	jobs config.JobsConfig,
) *SuggestionService {
	snoozeDays := jobs.SnoozeDefaultDays
	if snoozeDays <= 0 {
		snoozeDays = defaultSnoozeDays
	}
	return &SuggestionService{
		forecasts:   forecasts,
		stock:       stock,
		safety:      safety,
		routing:     routing,
		suggestions: suggestions,
		summaries:   summaries,
		gen: suggest.NewGenerator(suggest.Config{
			Thresholds: forecast.UrgencyThresholds{
				CriticalDays: jobs.CriticalDays,
				WarningDays:  jobs.WarningDays,
				PlannedDays:  jobs.PlannedDays,
			},
			PlanningHorizonDays: jobs.DefaultCoverDays,
		}),
		snoozeDefaultDays: snoozeDays,
	}
}

// defaultSnoozeDays is the snooze window used when the request and the
// configuration leave it unset.
const defaultSnoozeDays = 7

// DefaultSnoozeUntil returns the configured default snooze deadline relative
// to now, used when a snooze request carries no explicit time.
func (s *SuggestionService) DefaultSnoozeUntil(now time.Time) time.Time {
	return now.AddDate(0, 0, s.snoozeDefaultDays)
}

// Run regenerates pending suggestions from the current forecasts and stock
// positions. Pairs whose snooze has lapsed are reverted to pending first so
// this run refreshes them. Per-pair failures are collected, not fatal.
func (s *SuggestionService) Run(ctx context.Context, now time.Time) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{StartedAt: now}

	reverted, err := s.suggestions.RevertLapsedSnoozes(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revert lapsed snoozes: %w", err)
	}
	if reverted > 0 {
		log.Info().Int("count", reverted).Msg("reverted lapsed snoozes")
	}

	accountAdjs, err := s.forecasts.ListAccountAdjustments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list account adjustments: %w", err)
	}

	forecasts, err := s.forecasts.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled forecasts: %w", err)
	}

	log.Info().
		Int("forecasts", len(forecasts)).
		Int("account_adjustments", len(accountAdjs)).
		Msg("starting suggestion run")

	// Product adjustments are shared across a product's locations.
	productAdjs := make(map[string][]domain.ProductAdjustment)

	for i := range forecasts {
		f := &forecasts[i]
		if err := s.runPair(ctx, f, accountAdjs, productAdjs, now, summary); err != nil {
			log.Error().Err(err).
				Str("product_id", f.ProductID).
				Str("location_id", f.LocationID).
				Msg("failed to generate suggestions for pair")
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("%s/%s: %v", f.ProductID, f.LocationID, err))
		}
	}

	if err := s.summaries.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate urgency summary cache")
	}

	summary.CompletedAt = time.Now()
	log.Info().
		Int("generated", summary.SuggestionsGenerated).
		Int("skipped", summary.SuggestionsSkipped).
		Int("errors", len(summary.Errors)).
		Msg("suggestion run complete")

	return summary, nil
}

func (s *SuggestionService) runPair(
	ctx context.Context,
	f *domain.SalesForecast,
	accountAdjs []domain.AccountAdjustment,
	productAdjs map[string][]domain.ProductAdjustment,
	now time.Time,
	summary *domain.RunSummary,
) error {
	position, err := s.stock.GetPosition(ctx, f.ProductID, f.LocationID)
	if err != nil {
		return fmt.Errorf("fetch stock position: %w", err)
	}
	if position == nil {
		// No stock row means the pair is not replenishable yet.
		summary.SuggestionsSkipped++
		return nil
	}

	adjs, ok := productAdjs[f.ProductID]
	if !ok {
		adjs, err = s.forecasts.ListProductAdjustments(ctx, f.ProductID)
		if err != nil {
			return fmt.Errorf("fetch product adjustments: %w", err)
		}
		productAdjs[f.ProductID] = adjs
	}

	rule, err := s.safety.GetActiveRule(ctx, f.ProductID, f.LocationID)
	if err != nil {
		return fmt.Errorf("fetch safety stock rule: %w", err)
	}

	routes, err := s.routing.ListRoutes(ctx, f.ProductID, f.LocationID)
	if err != nil {
		return fmt.Errorf("fetch shipping routes: %w", err)
	}

	generated := s.gen.Generate(suggest.Input{
		Forecast:           *f,
		AccountAdjustments: accountAdjs,
		ProductAdjustments: adjs,
		Position:           *position,
		SafetyRule:         rule,
		Routes:             routes,
		Now:                now,
	})

	for i := range generated {
		sg := &generated[i]

		// A snoozed suggestion holds its key until the snooze lapses.
		blocked, err := s.suggestions.HasBlockingSuggestion(ctx, sg.ProductID, sg.DestinationLocationID, sg.Type)
		if err != nil {
			return fmt.Errorf("check blocking suggestion: %w", err)
		}
		if blocked {
			summary.SuggestionsSkipped++
			continue
		}

		if err := s.suggestions.UpsertPending(ctx, sg); err != nil {
			return fmt.Errorf("upsert suggestion: %w", err)
		}
		summary.SuggestionsGenerated++
	}

	return nil
}

// List returns a page of suggestions plus the total match count.
func (s *SuggestionService) List(ctx context.Context, filter domain.SuggestionFilter) ([]domain.ReplenishmentSuggestion, int, error) {
	return s.suggestions.List(ctx, filter)
}

// Get returns one suggestion by id.
func (s *SuggestionService) Get(ctx context.Context, id uuid.UUID) (*domain.ReplenishmentSuggestion, error) {
	sg, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, ErrSuggestionNotFound
	}
	return sg, nil
}

// UrgencySummary returns the pending-suggestion counts per urgency tier,
// served from cache when possible.
func (s *SuggestionService) UrgencySummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, error) {
	if cached, ok, err := s.summaries.GetSummary(ctx, filter); err != nil {
		log.Warn().Err(err).Msg("urgency summary cache read failed")
	} else if ok {
		return cached, nil
	}

	summaries, err := s.suggestions.UrgencySummary(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.summaries.SetSummary(ctx, filter, summaries); err != nil {
		log.Warn().Err(err).Msg("urgency summary cache write failed")
	}

	return summaries, nil
}

// Accept marks a pending or snoozed suggestion accepted, optionally linking
// the purchase order or transfer created from it.
func (s *SuggestionService) Accept(ctx context.Context, id uuid.UUID, linkedEntityID, linkedEntityType *string, now time.Time) error {
	updated, err := s.suggestions.Accept(ctx, id, linkedEntityID, linkedEntityType, now)
	if err != nil {
		return err
	}
	if !updated {
		return s.transitionFailure(ctx, id)
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Dismiss marks a pending or snoozed suggestion dismissed with a reason.
func (s *SuggestionService) Dismiss(ctx context.Context, id uuid.UUID, reason string, now time.Time) error {
	updated, err := s.suggestions.Dismiss(ctx, id, reason, now)
	if err != nil {
		return err
	}
	if !updated {
		return s.transitionFailure(ctx, id)
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Snooze hides a pending suggestion until the given time. Snoozed keys are
// excluded from regeneration until the snooze lapses.
func (s *SuggestionService) Snooze(ctx context.Context, id uuid.UUID, until time.Time, now time.Time) error {
	if !until.After(now) {
		return fmt.Errorf("snooze_until must be in the future")
	}

	updated, err := s.suggestions.Snooze(ctx, id, until)
	if err != nil {
		return err
	}
	if !updated {
		return s.transitionFailure(ctx, id)
	}
	s.invalidateSummaries(ctx)
	return nil
}

// transitionFailure distinguishes a missing row from one in a terminal
// status, so handlers can map them to 404 vs 409.
func (s *SuggestionService) transitionFailure(ctx context.Context, id uuid.UUID) error {
	sg, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sg == nil {
		return ErrSuggestionNotFound
	}
	return fmt.Errorf("%w: status is %s", ErrInvalidTransition, sg.Status)
}

func (s *SuggestionService) invalidateSummaries(ctx context.Context) {
	if err := s.summaries.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate urgency summary cache")
	}
}
