package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/alerts"
	"github.com/leosinemaxx/jatour-engine/internal/modules/burnrate"
	"github.com/leosinemaxx/jatour-engine/internal/modules/deals"
	"github.com/leosinemaxx/jatour-engine/internal/modules/geocluster"
	"github.com/leosinemaxx/jatour-engine/internal/modules/orchestrator"
	"github.com/leosinemaxx/jatour-engine/internal/repository"
)

// Handlers exposes the engine over the JSON API.
type Handlers struct {
	orchestrator *orchestrator.Service
	analyzer     *burnrate.Analyzer
	pipeline     *deals.Pipeline
	geo          *geocluster.Engine
	budgets      *repository.BudgetRepository
	expenses     *repository.ExpenseRepository
	prefs        *repository.PreferenceRepository
	rules        *repository.RuleRepository
	alerts       *repository.AlertRepository
	clock        clock.Clock
	log          zerolog.Logger
}

// HandlersConfig collects the handler dependencies.
type HandlersConfig struct {
	Orchestrator *orchestrator.Service
	Analyzer     *burnrate.Analyzer
	Pipeline     *deals.Pipeline
	Geo          *geocluster.Engine
	Budgets      *repository.BudgetRepository
	Expenses     *repository.ExpenseRepository
	Prefs        *repository.PreferenceRepository
	Rules        *repository.RuleRepository
	Alerts       *repository.AlertRepository
	Clock        clock.Clock
	Log          zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		orchestrator: cfg.Orchestrator,
		analyzer:     cfg.Analyzer,
		pipeline:     cfg.Pipeline,
		geo:          cfg.Geo,
		budgets:      cfg.Budgets,
		expenses:     cfg.Expenses,
		prefs:        cfg.Prefs,
		rules:        cfg.Rules,
		alerts:       cfg.Alerts,
		clock:        cfg.Clock,
		log:          cfg.Log.With().Str("component", "handlers").Logger(),
	}
}

// HandleOrchestrate runs a full orchestration pass.
// POST /api/orchestrate
func (h *Handlers) HandleOrchestrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string         `json:"user_id"`
		ItineraryID  string         `json:"itinerary_id"`
		Trigger      domain.Trigger `json:"trigger"`
		ForceRefresh bool           `json:"force_refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ItineraryID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id and itinerary_id are required")
		return
	}
	if req.Trigger == "" {
		req.Trigger = domain.TriggerManualRequest
	}

	result, err := h.orchestrator.Run(r.Context(), orchestrator.Request{
		UserID:       req.UserID,
		ItineraryID:  req.ItineraryID,
		Trigger:      req.Trigger,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Orchestration failed")
		h.writeError(w, http.StatusInternalServerError, "orchestration failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleBurnRate analyzes a spending series directly.
// POST /api/analysis/burn-rate
func (h *Handlers) HandleBurnRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expenses      []domain.ExpenseSample `json:"expenses"`
		ElapsedDays   int                    `json:"elapsed_days"`
		TotalBudget   float64                `json:"total_budget"`
		Spent         float64                `json:"spent"`
		RemainingDays int                    `json:"remaining_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TotalBudget <= 0 {
		h.writeError(w, http.StatusBadRequest, "total_budget must be positive")
		return
	}

	report := h.analyzer.Analyze(burnrate.Input{
		Expenses:      req.Expenses,
		ElapsedDays:   req.ElapsedDays,
		TotalBudget:   req.TotalBudget,
		Spent:         req.Spent,
		RemainingDays: req.RemainingDays,
	})

	h.writeJSON(w, http.StatusOK, report)
}

// HandleMatchDeals runs the deal matching pipeline for an explicit budget
// and preference set.
// POST /api/deals/match
func (h *Handlers) HandleMatchDeals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budget      domain.BudgetConstraints `json:"budget"`
		Preferences domain.UserPreferences   `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.pipeline.Match(r.Context(), req.Budget, req.Preferences)
	h.writeJSON(w, http.StatusOK, result)
}

// HandleClusterDeals groups scored deals for map rendering.
// POST /api/deals/clusters
func (h *Handlers) HandleClusterDeals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Deals  []domain.ScoredDeal `json:"deals"`
		Center *domain.Coordinates `json:"center,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.writeJSON(w, http.StatusOK, h.geo.Cluster(req.Deals, req.Center))
}

// HandleRouteDeals orders deals into a walkable visiting sequence.
// POST /api/deals/route
func (h *Handlers) HandleRouteDeals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start domain.Coordinates  `json:"start"`
		Deals []domain.ScoredDeal `json:"deals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"route": h.geo.OptimizeRoute(req.Start, req.Deals),
	})
}

// HandleGetRules returns the user's alert rules, falling back to defaults.
// GET /api/alerts/rules?user_id=...
func (h *Handlers) HandleGetRules(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	rules, err := h.rules.GetRules(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load rules")
		h.writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}
	if len(rules) == 0 {
		rules = alerts.DefaultRules()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

// HandlePutRules replaces the user's alert rules.
// PUT /api/alerts/rules
func (h *Handlers) HandlePutRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string             `json:"user_id"`
		Rules  []domain.AlertRule `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	for _, rule := range req.Rules {
		if rule.ID == "" {
			h.writeError(w, http.StatusBadRequest, "every rule needs an id")
			return
		}
	}

	if err := h.rules.SaveRules(r.Context(), req.UserID, req.Rules); err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to save rules")
		h.writeError(w, http.StatusInternalServerError, "failed to save rules")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListAlerts returns the user's recent alert instances.
// GET /api/alerts/instances?user_id=...&limit=...
func (h *Handlers) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	instances, err := h.alerts.ListInstances(r.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list alerts")
		h.writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": instances})
}

// HandleResolveAlert marks an alert instance resolved.
// POST /api/alerts/instances/{id}/resolve
func (h *Handlers) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.alerts.ResolveInstance(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.log.Error().Err(err).Str("alert_id", id).Msg("Failed to resolve alert")
		h.writeError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// HandleGetBudget returns a stored budget.
// GET /api/budgets?user_id=...&itinerary_id=...
func (h *Handlers) HandleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	itineraryID := r.URL.Query().Get("itinerary_id")
	if userID == "" || itineraryID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id and itinerary_id are required")
		return
	}

	record, err := h.budgets.GetBudget(r.Context(), userID, itineraryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load budget")
		h.writeError(w, http.StatusInternalServerError, "failed to load budget")
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// HandlePutBudget creates or replaces a budget.
// PUT /api/budgets
func (h *Handlers) HandlePutBudget(w http.ResponseWriter, r *http.Request) {
	var record repository.BudgetRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if record.UserID == "" || record.ItineraryID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id and itinerary_id are required")
		return
	}
	if record.Constraints.TotalBudget <= 0 {
		h.writeError(w, http.StatusBadRequest, "total_budget must be positive")
		return
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if err := h.budgets.Save(r.Context(), record); err != nil {
		h.log.Error().Err(err).Str("user_id", record.UserID).Msg("Failed to save budget")
		h.writeError(w, http.StatusInternalServerError, "failed to save budget")
		return
	}

	// Stored analysis for this user is stale now.
	h.orchestrator.InvalidateUser(record.UserID)

	h.writeJSON(w, http.StatusOK, record)
}

// HandleGetPreferences returns the user's deal preferences.
// GET /api/preferences?user_id=...
func (h *Handlers) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	prefs, err := h.prefs.GetUserPreferences(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load preferences")
		h.writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}

	h.writeJSON(w, http.StatusOK, prefs)
}

// HandlePutPreferences stores the user's deal preferences.
// PUT /api/preferences
func (h *Handlers) HandlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string                 `json:"user_id"`
		Preferences domain.UserPreferences `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.prefs.Save(r.Context(), req.UserID, req.Preferences); err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to save preferences")
		h.writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	h.orchestrator.InvalidateUser(req.UserID)

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRecordExpense records an expense and immediately evaluates
// anomaly alerts for it.
// POST /api/expenses
func (h *Handlers) HandleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string    `json:"user_id"`
		ItineraryID string    `json:"itinerary_id"`
		Amount      float64   `json:"amount"`
		Category    string    `json:"category"`
		Date        time.Time `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ItineraryID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id and itinerary_id are required")
		return
	}
	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Date.IsZero() {
		req.Date = h.clock.Now()
	}

	sample := domain.ExpenseSample{
		Date:     req.Date,
		Amount:   req.Amount,
		Category: req.Category,
	}

	record, err := h.budgets.GetBudget(r.Context(), req.UserID, req.ItineraryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to load budget")
		h.writeError(w, http.StatusInternalServerError, "failed to record expense")
		return
	}

	expenseID := uuid.New().String()
	if err := h.expenses.Add(r.Context(), expenseID, req.UserID, req.ItineraryID, sample); err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to store expense")
		h.writeError(w, http.StatusInternalServerError, "failed to record expense")
		return
	}
	if err := h.budgets.AddSpent(r.Context(), record.ID, req.Amount); err != nil {
		h.log.Error().Err(err).Str("budget_id", record.ID).Msg("Failed to update spent total")
	}

	fired := h.orchestrator.OnExpenseRecorded(r.Context(), req.UserID, req.ItineraryID, sample)

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     expenseID,
		"alerts": fired,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
