package domain

import "strings"

// Urgency is the coarse replenishment urgency tier over days of stock.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyPlanned  Urgency = "planned"
	UrgencyMonitor  Urgency = "monitor"
)

// urgencyRank orders tiers from most to least urgent for dashboard sorting.
var urgencyRank = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyWarning:  1,
	UrgencyPlanned:  2,
	UrgencyMonitor:  3,
}

// Rank returns the sort position of an urgency tier; unknown tiers sort last.
func (u Urgency) Rank() int {
	if rank, ok := urgencyRank[u]; ok {
		return rank
	}
	return len(urgencyRank)
}

// ParseUrgency returns the urgency tier for a label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	u := Urgency(strings.ToLower(strings.TrimSpace(label)))
	_, ok := urgencyRank[u]

	return u, ok
}

// SuggestionStatus is the lifecycle state of a replenishment suggestion.
//
// pending -> accepted | dismissed | snoozed; a lapsed snooze reverts to
// pending on the next generator run; accepted and dismissed are terminal.
type SuggestionStatus string

const (
	StatusPending   SuggestionStatus = "pending"
	StatusAccepted  SuggestionStatus = "accepted"
	StatusDismissed SuggestionStatus = "dismissed"
	StatusSnoozed   SuggestionStatus = "snoozed"
)

var suggestionStatuses = map[SuggestionStatus]struct{}{
	StatusPending:   {},
	StatusAccepted:  {},
	StatusDismissed: {},
	StatusSnoozed:   {},
}

// ParseSuggestionStatus returns the status for a label (case-insensitive).
func ParseSuggestionStatus(label string) (SuggestionStatus, bool) {
	s := SuggestionStatus(strings.ToLower(strings.TrimSpace(label)))
	_, ok := suggestionStatuses[s]

	return s, ok
}

// IsTerminal reports whether a status can no longer change. Snoozed rows are
// not terminal: regeneration reopens them once the snooze window lapses.
func (s SuggestionStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusDismissed
}
