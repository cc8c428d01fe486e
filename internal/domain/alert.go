package domain

import "time"

// Severity is the alert severity scale. Mirrors RiskLevel values so burn-rate
// driven alerts map directly.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Operator is a comparison operator for alert rule conditions.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
)

// RuleType identifies which evaluation context a rule reads from.
type RuleType string

const (
	RuleBurnRateRisk      RuleType = "burn_rate_risk"
	RuleSpendingVelocity  RuleType = "spending_velocity"
	RuleBudgetUtilization RuleType = "budget_utilization"
	RuleExpenseAnomaly    RuleType = "expense_anomaly"
)

// Condition is a single comparison evaluated against a context field.
// For string fields (risk_level) only OpEQ is meaningful and ThresholdText
// carries the comparand; numeric fields use Threshold.
type Condition struct {
	Field         string   `json:"field"`
	Operator      Operator `json:"operator"`
	Threshold     float64  `json:"threshold"`
	ThresholdText string   `json:"threshold_text,omitempty"`
}

// AlertRule is user-configurable alerting configuration.
type AlertRule struct {
	ID              string    `json:"id"`
	Type            RuleType  `json:"type"`
	Condition       Condition `json:"condition"`
	Severity        Severity  `json:"severity"`
	Title           string    `json:"title"`
	MessageTemplate string    `json:"message_template"`
	CooldownMinutes int       `json:"cooldown_minutes"`
	Enabled         bool      `json:"enabled"`
}

// Cooldown returns the rule's cooldown as a duration.
func (r AlertRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// AlertInstance is one firing of a rule for a scope. At most one unresolved
// instance per (user, rule, scope) may be created inside the cooldown window.
type AlertInstance struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"rule_id"`
	UserID    string    `json:"user_id"`
	ScopeID   string    `json:"scope_id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}
