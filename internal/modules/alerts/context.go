// Package alerts evaluates configured alert rules over burn-rate reports and
// expense events, with per-rule cooldowns as the anti-spam guarantee.
package alerts

import (
	"fmt"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// EvalContext is the typed evaluation context for one budget scope. Every
// template placeholder resolves from a known field here - there is no
// dynamic bag of values.
type EvalContext struct {
	UserID     string
	ScopeID    string // budget or itinerary ID
	BudgetName string

	// Burn-rate context; nil for expense-only evaluations.
	Report *domain.BurnRateReport

	// Budget utilization percentage (spent / total * 100).
	Utilization float64

	// Single-expense context for anomaly rules; nil otherwise.
	Expense *domain.ExpenseSample
}

// Condition field names recognized by the engine.
const (
	FieldRiskLevel     = "risk_level"
	FieldVelocity      = "velocity"
	FieldUtilization   = "utilization_percentage"
	FieldRemainingDays = "remaining_days"
	FieldDailyBurn     = "projected_daily_burn"
	FieldAmount        = "amount"
)

// numericField resolves a numeric condition field from the context.
func (c EvalContext) numericField(field string) (float64, error) {
	switch field {
	case FieldVelocity:
		if c.Report == nil {
			return 0, fmt.Errorf("no burn-rate report in context")
		}
		return c.Report.Velocity, nil
	case FieldUtilization:
		return c.Utilization, nil
	case FieldRemainingDays:
		if c.Report == nil {
			return 0, fmt.Errorf("no burn-rate report in context")
		}
		return float64(c.Report.RemainingDays), nil
	case FieldDailyBurn:
		if c.Report == nil {
			return 0, fmt.Errorf("no burn-rate report in context")
		}
		return c.Report.ProjectedDailyBurn, nil
	case FieldAmount:
		if c.Expense == nil {
			return 0, fmt.Errorf("no expense in context")
		}
		return c.Expense.Amount, nil
	default:
		return 0, fmt.Errorf("unknown numeric field %q", field)
	}
}

// textField resolves a string condition field from the context.
func (c EvalContext) textField(field string) (string, error) {
	switch field {
	case FieldRiskLevel:
		if c.Report == nil {
			return "", fmt.Errorf("no burn-rate report in context")
		}
		return string(c.Report.RiskLevel), nil
	default:
		return "", fmt.Errorf("unknown text field %q", field)
	}
}
