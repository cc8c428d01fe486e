package orchestrator

import (
	"context"
	"time"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// BudgetSnapshot is the resolved budget record for one itinerary.
type BudgetSnapshot struct {
	Name        string
	Constraints domain.BudgetConstraints
}

// BudgetReader resolves budget constraints from persistence. A missing
// budget or itinerary returns domain.ErrNotFound.
type BudgetReader interface {
	GetBudget(ctx context.Context, userID, itineraryID string) (*BudgetSnapshot, error)
}

// ExpenseReader returns the recorded expenses for a user in a date range.
type ExpenseReader interface {
	GetExpenses(ctx context.Context, userID string, from, to time.Time) ([]domain.ExpenseSample, error)
}

// PreferenceReader returns the user's deal preferences.
type PreferenceReader interface {
	GetUserPreferences(ctx context.Context, userID string) (domain.UserPreferences, error)
}

// RuleProvider returns the user's alert rules.
type RuleProvider interface {
	GetRules(ctx context.Context, userID string) ([]domain.AlertRule, error)
}

// CheckScheduler books the next proactive check for a user. Scheduling a
// new check replaces any pending one for the same user.
type CheckScheduler interface {
	Schedule(userID, itineraryID string, at time.Time)
}
