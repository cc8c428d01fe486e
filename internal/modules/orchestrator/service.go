// Package orchestrator composes the burn-rate, alert, deal-matching and
// clustering modules into one run per trigger, with result caching and
// adaptive re-check scheduling. A run never panics out to the caller.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/cache"
	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/alerts"
	"github.com/leosinemaxx/jatour-engine/internal/modules/burnrate"
	"github.com/leosinemaxx/jatour-engine/internal/modules/deals"
	"github.com/leosinemaxx/jatour-engine/internal/modules/geocluster"
)

// Cache TTLs and check tiers. The re-check interval shrinks as risk rises.
const (
	ResultTTL = 5 * time.Minute
	ReportTTL = 2 * time.Minute

	FrequentCheckInterval = 30 * time.Minute
	NormalCheckInterval   = 2 * time.Hour
	LowCheckInterval      = 6 * time.Hour

	// Expense lookback window for burn-rate analysis.
	expenseLookbackDays = 30
)

// Request identifies one orchestration run.
type Request struct {
	UserID       string
	ItineraryID  string
	Trigger      domain.Trigger
	ForceRefresh bool
}

// Service is the orchestration layer. All collaborators are injected as
// narrow capabilities so tests can substitute fakes.
type Service struct {
	budgets   BudgetReader
	expenses  ExpenseReader
	prefs     PreferenceReader
	rules     RuleProvider
	analyzer  *burnrate.Analyzer
	alerts    *alerts.Engine
	pipeline  *deals.Pipeline
	clusterer *geocluster.Engine
	cache     cache.Store
	scheduler CheckScheduler
	clock     clock.Clock
	log       zerolog.Logger
}

// Config bundles the Service dependencies.
type Config struct {
	Budgets   BudgetReader
	Expenses  ExpenseReader
	Prefs     PreferenceReader
	Rules     RuleProvider
	Analyzer  *burnrate.Analyzer
	Alerts    *alerts.Engine
	Pipeline  *deals.Pipeline
	Clusterer *geocluster.Engine
	Cache     cache.Store
	Scheduler CheckScheduler
	Clock     clock.Clock
	Log       zerolog.Logger
}

// NewService creates the orchestrator.
func NewService(cfg Config) *Service {
	return &Service{
		budgets:   cfg.Budgets,
		expenses:  cfg.Expenses,
		prefs:     cfg.Prefs,
		rules:     cfg.Rules,
		analyzer:  cfg.Analyzer,
		alerts:    cfg.Alerts,
		pipeline:  cfg.Pipeline,
		clusterer: cfg.Clusterer,
		cache:     cfg.Cache,
		scheduler: cfg.Scheduler,
		clock:     cfg.Clock,
		log:       cfg.Log.With().Str("module", "orchestrator").Logger(),
	}
}

// Run executes one orchestration pass. Only NotFound/InvalidInput surface as
// errors; any other internal failure - including panics - degrades into a
// well-formed zero result.
func (s *Service) Run(ctx context.Context, req Request) (result domain.OrchestrationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).
				Str("user_id", req.UserID).
				Msg("Orchestration panicked, returning zero result")
			result = s.zeroResult(req)
			result.Degraded = true
			err = nil
		}
	}()

	key := resultCacheKey(req.UserID, req.ItineraryID, req.Trigger)
	if !req.ForceRefresh {
		var cached domain.OrchestrationResult
		if found, cacheErr := s.cache.Get(key, &cached); cacheErr == nil && found {
			cached.FromCache = true
			return cached, nil
		}
	}

	snapshot, err := s.budgets.GetBudget(ctx, req.UserID, req.ItineraryID)
	if err != nil {
		// NotFound and InvalidInput are the caller's problem, by contract.
		return domain.OrchestrationResult{}, fmt.Errorf("resolve budget for %s/%s: %w", req.UserID, req.ItineraryID, err)
	}

	result = s.zeroResult(req)

	prefs, err := s.prefs.GetUserPreferences(ctx, req.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", req.UserID).Msg("Preferences unavailable, using defaults")
		prefs = domain.UserPreferences{}
		result.Degraded = true
	}

	report, degraded := s.burnRateReport(ctx, req, snapshot)
	result.Report = report
	result.Degraded = result.Degraded || degraded

	result.Alerts = s.evaluateAlerts(ctx, req, snapshot, report)

	match := s.pipeline.Match(ctx, snapshot.Constraints, prefs)
	result.Deals = match.Deals
	result.Summary = match.Summary
	result.Sources = match.Sources
	result.Degraded = result.Degraded || match.Degraded

	if len(match.Deals) > 0 {
		view := s.clusterer.Cluster(match.Deals, nil)
		result.Map = &view
	}

	result.NextCheckAt = s.clock.Now().Add(checkInterval(report.RiskLevel))
	if s.scheduler != nil {
		s.scheduler.Schedule(req.UserID, req.ItineraryID, result.NextCheckAt)
	}

	if cacheErr := s.cache.Set(key, result, ResultTTL); cacheErr != nil {
		s.log.Warn().Err(cacheErr).Msg("Failed to cache orchestration result")
	}

	s.log.Info().
		Str("user_id", req.UserID).
		Str("trigger", string(req.Trigger)).
		Str("risk", string(report.RiskLevel)).
		Int("deals", len(result.Deals)).
		Int("alerts", len(result.Alerts)).
		Bool("degraded", result.Degraded).
		Msg("Orchestration completed")

	return result, nil
}

// OnExpenseRecorded invalidates cached projections for the user and runs the
// anomaly rules against the single new expense.
func (s *Service) OnExpenseRecorded(ctx context.Context, userID, itineraryID string, expense domain.ExpenseSample) []domain.AlertInstance {
	s.InvalidateUser(userID)

	snapshot, err := s.budgets.GetBudget(ctx, userID, itineraryID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Skipping anomaly evaluation, budget unresolved")
		return nil
	}

	evalCtx := alerts.EvalContext{
		UserID:      userID,
		ScopeID:     itineraryID,
		BudgetName:  snapshot.Name,
		Utilization: domain.UtilizationPercentage(snapshot.Constraints.TotalBudget, snapshot.Constraints.Spent),
		Expense:     &expense,
	}

	fired, err := s.alerts.Evaluate(s.userRules(ctx, userID), evalCtx)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Anomaly evaluation failed")
		return nil
	}
	return fired
}

// InvalidateUser drops all cached results and reports for a user. Called
// when new expenses arrive; TTL expiry is the only other way cached state
// is discarded.
func (s *Service) InvalidateUser(userID string) {
	if err := s.cache.DeleteByPrefix("orchestration:" + userID); err != nil {
		s.log.Warn().Err(err).Msg("Result cache invalidation failed")
	}
	if err := s.cache.DeleteByPrefix("burnrate:" + userID); err != nil {
		s.log.Warn().Err(err).Msg("Report cache invalidation failed")
	}
}

// burnRateReport computes (or returns the cached) report for the run.
// Expense fetch failure degrades to an empty series instead of aborting.
func (s *Service) burnRateReport(ctx context.Context, req Request, snapshot *BudgetSnapshot) (*domain.BurnRateReport, bool) {
	key := fmt.Sprintf("burnrate:%s:%s", req.UserID, req.ItineraryID)

	var cached domain.BurnRateReport
	if found, err := s.cache.Get(key, &cached); err == nil && found {
		return &cached, false
	}

	degraded := false
	now := s.clock.Now()
	expenses, err := s.expenses.GetExpenses(ctx, req.UserID, now.AddDate(0, 0, -expenseLookbackDays), now)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", req.UserID).Msg("Expense fetch failed, analyzing empty series")
		expenses = nil
		degraded = true
	}

	elapsed := snapshot.Constraints.TripDurationDays - snapshot.Constraints.RemainingDays
	if elapsed < 0 {
		elapsed = 0
	}

	report := s.analyzer.Analyze(burnrate.Input{
		Expenses:      expenses,
		ElapsedDays:   elapsed,
		TotalBudget:   snapshot.Constraints.TotalBudget,
		Spent:         snapshot.Constraints.Spent,
		RemainingDays: snapshot.Constraints.RemainingDays,
	})

	if err := s.cache.Set(key, report, ReportTTL); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache burn-rate report")
	}
	return report, degraded
}

func (s *Service) evaluateAlerts(ctx context.Context, req Request, snapshot *BudgetSnapshot, report *domain.BurnRateReport) []domain.AlertInstance {
	evalCtx := alerts.EvalContext{
		UserID:      req.UserID,
		ScopeID:     req.ItineraryID,
		BudgetName:  snapshot.Name,
		Report:      report,
		Utilization: domain.UtilizationPercentage(snapshot.Constraints.TotalBudget, snapshot.Constraints.Spent),
	}

	return s.alerts.EvaluateAll(s.userRules(ctx, req.UserID), []alerts.EvalContext{evalCtx})
}

// userRules falls back to the built-in defaults when the rule store is
// unavailable.
func (s *Service) userRules(ctx context.Context, userID string) []domain.AlertRule {
	rules, err := s.rules.GetRules(ctx, userID)
	if err != nil || len(rules) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Rule store unavailable, using defaults")
		}
		return alerts.DefaultRules()
	}
	return rules
}

func (s *Service) zeroResult(req Request) domain.OrchestrationResult {
	return domain.OrchestrationResult{
		UserID:      req.UserID,
		ItineraryID: req.ItineraryID,
		Trigger:     req.Trigger,
		GeneratedAt: s.clock.Now(),
		Alerts:      []domain.AlertInstance{},
		Deals:       []domain.ScoredDeal{},
	}
}

func resultCacheKey(userID, itineraryID string, trigger domain.Trigger) string {
	return fmt.Sprintf("orchestration:%s:%s:%s", userID, itineraryID, trigger)
}

// checkInterval maps risk to the next proactive check tier.
func checkInterval(risk domain.RiskLevel) time.Duration {
	switch {
	case risk.Score() >= 0.75:
		return FrequentCheckInterval
	case risk.Score() >= 0.5:
		return NormalCheckInterval
	default:
		return LowCheckInterval
	}
}
