package domain

import "time"

// RunSummary reports the outcome of one batch run. Errors holds per-pair
// failure messages; the run keeps going when a single pair fails.
type RunSummary struct {
	ForecastsCalculated  int       `json:"forecasts_calculated"`
	ForecastsUpserted    int       `json:"forecasts_upserted"`
	SuggestionsGenerated int       `json:"suggestions_generated,omitempty"`
	SuggestionsSkipped   int       `json:"suggestions_skipped,omitempty"`
	Errors               []string  `json:"errors,omitempty"`
	StartedAt            time.Time `json:"started_at"`
	CompletedAt          time.Time `json:"completed_at"`
}

// UrgencySummary is the count of pending suggestions in one urgency tier.
type UrgencySummary struct {
	Urgency Urgency `json:"urgency" db:"urgency"`
	Count   int     `json:"count" db:"count"`
}

// SuggestionFilter narrows suggestion list and summary queries.
type SuggestionFilter struct {
	ProductIDs  []string         `json:"product_ids"`
	LocationIDs []string         `json:"location_ids"`
	Type        SuggestionType   `json:"type"`
	Urgency     Urgency          `json:"urgency"`
	Status      SuggestionStatus `json:"status"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
}
