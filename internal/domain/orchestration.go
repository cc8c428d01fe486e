package domain

import "time"

// Trigger identifies what initiated an orchestration run.
type Trigger string

const (
	TriggerBudgetUpdate    Trigger = "budget_update"
	TriggerItineraryChange Trigger = "itinerary_change"
	TriggerScheduledCheck  Trigger = "scheduled_check"
	TriggerManualRequest   Trigger = "manual_request"
)

// SourceStatus records the outcome of one deal-source fetch so callers can
// distinguish "no deals found" from "source failed".
type SourceStatus struct {
	Source string `json:"source"`
	OK     bool   `json:"ok"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// SavingsSummary aggregates potential savings across matched deals.
type SavingsSummary struct {
	DealCount            int     `json:"deal_count"`
	TotalPotentialSaving float64 `json:"total_potential_saving"`
	AverageScore         float64 `json:"average_score"`
	BudgetCoveragePct    float64 `json:"budget_coverage_pct"` // savings relative to remaining budget
}

// OrchestrationResult is the aggregate output of one orchestration run.
// A run that fails internally still returns a well-formed zero-value result
// with Degraded set; the orchestration layer never propagates panics.
type OrchestrationResult struct {
	UserID      string    `json:"user_id"`
	ItineraryID string    `json:"itinerary_id"`
	Trigger     Trigger   `json:"trigger"`
	GeneratedAt time.Time `json:"generated_at"`

	Report  *BurnRateReport `json:"report,omitempty"`
	Alerts  []AlertInstance `json:"alerts"`
	Deals   []ScoredDeal    `json:"deals"`
	Map     *MapView        `json:"map,omitempty"`
	Summary SavingsSummary  `json:"summary"`

	Sources  []SourceStatus `json:"sources,omitempty"`
	Degraded bool           `json:"degraded"`

	NextCheckAt time.Time `json:"next_check_at"`
	FromCache   bool      `json:"from_cache"`
}
