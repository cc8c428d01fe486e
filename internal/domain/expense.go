// Package domain contains the core types shared across the Jatour engine.
// Types here are pure data - no infrastructure dependencies.
package domain

import "time"

// ExpenseSample is a single dated expense amount. Immutable once recorded;
// produced by the expense-tracking collaborator and consumed read-only.
type ExpenseSample struct {
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
}

// RiskLevel is the coarse budget-exhaustion risk classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Score maps a risk level to a numeric score in [0,1], used by the
// scheduler to pick a re-check tier.
func (r RiskLevel) Score() float64 {
	switch r {
	case RiskCritical:
		return 1.0
	case RiskHigh:
		return 0.75
	case RiskMedium:
		return 0.5
	default:
		return 0.25
	}
}

// Trend classifies the direction of a spending window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// BurnRateReport is the derived spending projection for one budget.
// Recomputed on demand and cached with a short TTL.
type BurnRateReport struct {
	DailyAverage        float64   `json:"daily_average"`
	WeeklyAverage       float64   `json:"weekly_average"`
	MonthlyAverage      float64   `json:"monthly_average"`
	Trend               Trend     `json:"trend"`
	Velocity            float64   `json:"velocity"`
	ProjectedDailyBurn  float64   `json:"projected_daily_burn"`
	RiskLevel           RiskLevel `json:"risk_level"`
	RemainingDays       int       `json:"remaining_days"`
	RemainingBudget     float64   `json:"remaining_budget"`
	ProjectedExhaustion time.Time `json:"projected_exhaustion"`
	Recommendations     []string  `json:"recommendations"`
}

// UtilizationPercentage returns spent budget as a percentage of total.
// Returns 0 for a zero total budget.
func UtilizationPercentage(totalBudget, spent float64) float64 {
	if totalBudget <= 0 {
		return 0
	}
	return spent / totalBudget * 100
}
