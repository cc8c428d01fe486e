package alerts

import "github.com/leosinemaxx/jatour-engine/internal/domain"

// DefaultAnomalyThreshold is the single-expense amount above which the
// anomaly rule fires, in IDR. User-configurable per rule.
const DefaultAnomalyThreshold = 500_000

// DefaultRules is the built-in rule set seeded for every user. All values
// are defaults the user can edit.
func DefaultRules() []domain.AlertRule {
	return []domain.AlertRule{
		{
			ID:   "burn-rate-critical",
			Type: domain.RuleBurnRateRisk,
			Condition: domain.Condition{
				Field:         FieldRiskLevel,
				Operator:      domain.OpEQ,
				ThresholdText: string(domain.RiskCritical),
			},
			Severity:        domain.SeverityCritical,
			Title:           "Budget at critical risk",
			MessageTemplate: "{budgetName} is on track to run out in about {remainingDays} days. Pause non-essential spending now.",
			CooldownMinutes: 60,
			Enabled:         true,
		},
		{
			ID:   "burn-rate-high",
			Type: domain.RuleBurnRateRisk,
			Condition: domain.Condition{
				Field:         FieldRiskLevel,
				Operator:      domain.OpEQ,
				ThresholdText: string(domain.RiskHigh),
			},
			Severity:        domain.SeverityHigh,
			Title:           "Budget burning fast",
			MessageTemplate: "Spending on {budgetName} is well above plan with {remainingDays} days to go.",
			CooldownMinutes: 120,
			Enabled:         true,
		},
		{
			ID:   "velocity-rising",
			Type: domain.RuleSpendingVelocity,
			Condition: domain.Condition{
				Field:     FieldVelocity,
				Operator:  domain.OpGT,
				Threshold: 0.2,
			},
			Severity:        domain.SeverityMedium,
			Title:           "Spending is accelerating",
			MessageTemplate: "Your spending on {budgetName} has been speeding up over the last few days.",
			CooldownMinutes: 240,
			Enabled:         true,
		},
		{
			ID:   "utilization-90",
			Type: domain.RuleBudgetUtilization,
			Condition: domain.Condition{
				Field:     FieldUtilization,
				Operator:  domain.OpGTE,
				Threshold: 90,
			},
			Severity:        domain.SeverityHigh,
			Title:           "Budget almost used up",
			MessageTemplate: "You have used 90% or more of {budgetName}.",
			CooldownMinutes: 1440,
			Enabled:         true,
		},
		{
			ID:   "expense-anomaly",
			Type: domain.RuleExpenseAnomaly,
			Condition: domain.Condition{
				Field:     FieldAmount,
				Operator:  domain.OpGT,
				Threshold: DefaultAnomalyThreshold,
			},
			Severity:        domain.SeverityMedium,
			Title:           "Unusually large expense",
			MessageTemplate: "A {category} expense of {amount} was recorded on {budgetName}.",
			CooldownMinutes: 60,
			Enabled:         true,
		},
	}
}
