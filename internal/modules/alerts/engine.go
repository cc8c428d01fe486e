package alerts

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// Notifier forwards an alert to the delivery channel. Fire-and-forget:
// failures are logged by the engine, never fatal.
type Notifier interface {
	Send(userID, title, message string, severity domain.Severity) error
}

// InstanceSink persists alert instances and notification records.
// Best-effort; the engine proceeds when persistence fails.
type InstanceSink interface {
	SaveAlertInstance(instance domain.AlertInstance) error
	SaveNotificationRecord(record domain.NotificationRecord) error
}

// Engine evaluates alert rules against budget contexts.
type Engine struct {
	gate     *CooldownGate
	sink     InstanceSink
	notifier Notifier
	clock    clock.Clock
	log      zerolog.Logger
}

// NewEngine creates an alert rule engine.
func NewEngine(gate *CooldownGate, sink InstanceSink, notifier Notifier, clk clock.Clock, log zerolog.Logger) *Engine {
	return &Engine{
		gate:     gate,
		sink:     sink,
		notifier: notifier,
		clock:    clk,
		log:      log.With().Str("module", "alerts").Logger(),
	}
}

// EvaluateAll runs one evaluation pass over several budget contexts for a
// user. One budget's failure is logged and does not block the others.
func (e *Engine) EvaluateAll(rules []domain.AlertRule, contexts []EvalContext) []domain.AlertInstance {
	fired := make([]domain.AlertInstance, 0)
	for _, ctx := range contexts {
		instances, err := e.Evaluate(rules, ctx)
		if err != nil {
			e.log.Error().Err(err).
				Str("user_id", ctx.UserID).
				Str("scope_id", ctx.ScopeID).
				Msg("Budget evaluation failed, continuing with remaining budgets")
			continue
		}
		fired = append(fired, instances...)
	}
	return fired
}

// Evaluate runs all enabled rules against one budget context and returns the
// instances that fired. Suppressed firings (inside a cooldown window) create
// no instance and no notification.
func (e *Engine) Evaluate(rules []domain.AlertRule, ctx EvalContext) ([]domain.AlertInstance, error) {
	if ctx.UserID == "" || ctx.ScopeID == "" {
		return nil, fmt.Errorf("%w: evaluation context needs user and scope", domain.ErrInvalidInput)
	}

	fired := make([]domain.AlertInstance, 0)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !e.ruleApplies(rule, ctx) {
			continue
		}

		holds, err := evaluateCondition(rule.Condition, ctx)
		if err != nil {
			// Misconfigured rule: log and keep evaluating the rest.
			e.log.Warn().Err(err).Str("rule_id", rule.ID).Msg("Condition evaluation failed")
			continue
		}
		if !holds {
			continue
		}

		key := CooldownKey(ctx.UserID, rule.ID, ctx.ScopeID)
		acquired, err := e.gate.TryAcquire(key, rule.Cooldown())
		if err != nil {
			e.log.Error().Err(err).Str("rule_id", rule.ID).Msg("Cooldown check failed")
			continue
		}
		if !acquired {
			e.log.Debug().Str("rule_id", rule.ID).Str("scope_id", ctx.ScopeID).Msg("Alert suppressed by cooldown")
			continue
		}

		instance := e.fire(rule, ctx)
		fired = append(fired, instance)
	}

	return fired, nil
}

// ruleApplies filters rules to the contexts they can read: anomaly rules
// need a single expense, everything else a burn-rate report or utilization.
func (e *Engine) ruleApplies(rule domain.AlertRule, ctx EvalContext) bool {
	switch rule.Type {
	case domain.RuleExpenseAnomaly:
		return ctx.Expense != nil
	case domain.RuleBudgetUtilization:
		return true
	default:
		return ctx.Report != nil
	}
}

// fire creates the alert instance, persists it and dispatches the
// notification. Persistence and delivery failures are logged only.
func (e *Engine) fire(rule domain.AlertRule, ctx EvalContext) domain.AlertInstance {
	message := RenderTemplate(rule.MessageTemplate, ctx)
	now := e.clock.Now()

	instance := domain.AlertInstance{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		UserID:    ctx.UserID,
		ScopeID:   ctx.ScopeID,
		Severity:  rule.Severity,
		Title:     rule.Title,
		Message:   message,
		CreatedAt: now,
	}

	if err := e.sink.SaveAlertInstance(instance); err != nil {
		e.log.Error().Err(err).Str("rule_id", rule.ID).Msg("Failed to persist alert instance")
	}

	record := domain.NotificationRecord{
		ID:        uuid.NewString(),
		UserID:    ctx.UserID,
		Title:     rule.Title,
		Message:   message,
		Severity:  rule.Severity,
		CreatedAt: now,
	}
	if err := e.sink.SaveNotificationRecord(record); err != nil {
		e.log.Error().Err(err).Str("rule_id", rule.ID).Msg("Failed to persist notification record")
	}

	if err := e.notifier.Send(ctx.UserID, rule.Title, message, rule.Severity); err != nil {
		e.log.Error().Err(err).Str("rule_id", rule.ID).Msg("Notification dispatch failed")
	}

	e.log.Info().
		Str("rule_id", rule.ID).
		Str("user_id", ctx.UserID).
		Str("scope_id", ctx.ScopeID).
		Str("severity", string(rule.Severity)).
		Msg("Alert fired")

	return instance
}

// evaluateCondition applies the rule condition to the context. String fields
// support eq only; numeric fields support the full operator set.
func evaluateCondition(cond domain.Condition, ctx EvalContext) (bool, error) {
	if cond.Field == FieldRiskLevel {
		value, err := ctx.textField(cond.Field)
		if err != nil {
			return false, err
		}
		if cond.Operator != domain.OpEQ {
			return false, fmt.Errorf("operator %q not supported for %s", cond.Operator, cond.Field)
		}
		return value == cond.ThresholdText, nil
	}

	value, err := ctx.numericField(cond.Field)
	if err != nil {
		return false, err
	}

	switch cond.Operator {
	case domain.OpGT:
		return value > cond.Threshold, nil
	case domain.OpGTE:
		return value >= cond.Threshold, nil
	case domain.OpLT:
		return value < cond.Threshold, nil
	case domain.OpLTE:
		return value <= cond.Threshold, nil
	case domain.OpEQ:
		return value == cond.Threshold, nil
	default:
		return false, fmt.Errorf("unknown operator %q", cond.Operator)
	}
}
