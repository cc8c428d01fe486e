package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/config"
	"github.com/leosinemaxx/jatour-engine/internal/di"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// newTestServer wires a full engine over temp-dir databases and returns its
// HTTP surface.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		DataDir:            t.TempDir(),
		Port:               0,
		CheckSweepInterval: time.Minute,
	}
	clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	container, err := di.Wire(cfg, clk, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	handlers := NewHandlers(HandlersConfig{
		Orchestrator: container.Orchestrator,
		Analyzer:     container.Analyzer,
		Pipeline:     container.Pipeline,
		Geo:          container.Clusterer,
		Budgets:      container.BudgetRepo,
		Expenses:     container.ExpenseRepo,
		Prefs:        container.PreferenceRepo,
		Rules:        container.RuleRepo,
		Alerts:       container.AlertRepo,
		Clock:        clk,
		Log:          zerolog.Nop(),
	})

	srv := New(Config{
		Log:            zerolog.Nop(),
		Port:           0,
		DevMode:        true,
		Handlers:       handlers,
		SystemHandlers: NewSystemHandlers(zerolog.Nop(), cfg.DataDir, container.Databases()),
		EventsHandler:  NewEventsHandler(container.EventBus, zerolog.Nop()),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func putBudget(t *testing.T, ts *httptest.Server, userID, itineraryID string, total, spent float64) {
	t.Helper()
	resp, _ := doJSON(t, ts, http.MethodPut, "/api/budgets/", map[string]interface{}{
		"user_id":      userID,
		"itinerary_id": itineraryID,
		"name":         "Bali trip",
		"constraints": map[string]interface{}{
			"total_budget":       total,
			"spent":              spent,
			"daily_budget":       total / 10,
			"location":           "Ubud",
			"trip_duration_days": 10,
			"remaining_days":     7,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestBudgetRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	putBudget(t, ts, "u1", "it-1", 5000000, 1200000)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/budgets/?user_id=u1&itinerary_id=it-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bali trip", body["name"])
	constraints := body["constraints"].(map[string]interface{})
	assert.Equal(t, float64(5000000), constraints["total_budget"])
	assert.Equal(t, float64(1200000), constraints["spent"])
}

func TestPutBudgetValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPut, "/api/budgets/", map[string]interface{}{
		"user_id":      "u1",
		"itinerary_id": "it-1",
		"constraints":  map[string]interface{}{"total_budget": 0},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodPut, "/api/budgets/", map[string]interface{}{
		"itinerary_id": "it-1",
		"constraints":  map[string]interface{}{"total_budget": 100},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetBudgetNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/budgets/?user_id=nobody&itinerary_id=it-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrchestrate(t *testing.T) {
	ts := newTestServer(t)
	putBudget(t, ts, "u1", "it-1", 5000000, 1000000)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/orchestrate", map[string]interface{}{
		"user_id":      "u1",
		"itinerary_id": "it-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, string(domain.TriggerManualRequest), body["trigger"])
	assert.NotNil(t, body["report"])
}

func TestOrchestrateMissingBudget(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/orchestrate", map[string]interface{}{
		"user_id":      "ghost",
		"itinerary_id": "it-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBurnRateAnalysis(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/analysis/burn-rate", map[string]interface{}{
		"expenses": []map[string]interface{}{
			{"date": "2026-03-08T10:00:00Z", "amount": 400000, "category": "dining"},
			{"date": "2026-03-09T10:00:00Z", "amount": 600000, "category": "transport"},
		},
		"elapsed_days":   2,
		"total_budget":   5000000,
		"spent":          1000000,
		"remaining_days": 8,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["risk_level"])
}

func TestBurnRateRequiresBudget(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/analysis/burn-rate", map[string]interface{}{
		"total_budget": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRulesFallsBackToDefaults(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/alerts/rules?user_id=u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rules := body["rules"].([]interface{})
	assert.NotEmpty(t, rules)
}

func TestPutRulesRejectsMissingID(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPut, "/api/alerts/rules", map[string]interface{}{
		"user_id": "u1",
		"rules":   []map[string]interface{}{{"type": "budget_threshold"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreferencesRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPut, "/api/preferences/", map[string]interface{}{
		"user_id": "u1",
		"preferences": map[string]interface{}{
			"preferred_categories": []string{"dining"},
			"price_sensitivity":    "high",
			"likes_discount_deals": true,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/preferences/?user_id=u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"dining"}, body["preferred_categories"])
	assert.Equal(t, true, body["likes_discount_deals"])
}

func TestRecordExpense(t *testing.T) {
	ts := newTestServer(t)
	putBudget(t, ts, "u1", "it-1", 5000000, 0)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/expenses", map[string]interface{}{
		"user_id":      "u1",
		"itinerary_id": "it-1",
		"amount":       250000,
		"category":     "dining",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["id"])

	// Spent total reflects the recorded expense.
	resp, budget := doJSON(t, ts, http.MethodGet, "/api/budgets/?user_id=u1&itinerary_id=it-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	constraints := budget["constraints"].(map[string]interface{})
	assert.Equal(t, float64(250000), constraints["spent"])
}

func TestRecordExpenseValidation(t *testing.T) {
	ts := newTestServer(t)
	putBudget(t, ts, "u1", "it-1", 5000000, 0)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/expenses", map[string]interface{}{
		"user_id":      "u1",
		"itinerary_id": "it-1",
		"amount":       -5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/expenses", map[string]interface{}{
		"user_id":      "ghost",
		"itinerary_id": "it-9",
		"amount":       100,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMatchDeals(t *testing.T) {
	ts := newTestServer(t)

	// No merchant feeds configured: an empty, well-formed result.
	resp, body := doJSON(t, ts, http.MethodPost, "/api/deals/match", map[string]interface{}{
		"budget":      map[string]interface{}{"total_budget": 5000000, "remaining_days": 5},
		"preferences": map[string]interface{}{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body)
}

func TestRouteDeals(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/deals/route", map[string]interface{}{
		"start": map[string]interface{}{"lat": -8.5, "lng": 115.26},
		"deals": []interface{}{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, hasRoute := body["route"]
	assert.True(t, hasRoute)
}

func TestResolveUnknownAlert(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/alerts/instances/no-such-id/resolve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAlertsEmpty(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/alerts/instances?user_id=u1&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alerts, ok := body["alerts"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, alerts)
}

func TestDiskUsage(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/system/disk", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, key := range []string{"data_dir_mb", "logs_dir_mb", "backups_mb", "total_mb"} {
		_, ok := body[key]
		assert.True(t, ok, fmt.Sprintf("missing %s", key))
	}
}
