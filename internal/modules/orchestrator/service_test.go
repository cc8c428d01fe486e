package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leosinemaxx/jatour-engine/internal/cache"
	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/alerts"
	"github.com/leosinemaxx/jatour-engine/internal/modules/burnrate"
	"github.com/leosinemaxx/jatour-engine/internal/modules/deals"
	"github.com/leosinemaxx/jatour-engine/internal/modules/geocluster"
	"github.com/leosinemaxx/jatour-engine/internal/modules/relevance"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeBudgets struct {
	snapshot *BudgetSnapshot
	err      error
	calls    int
}

func (f *fakeBudgets) GetBudget(ctx context.Context, userID, itineraryID string) (*BudgetSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

type fakeExpenses struct {
	samples []domain.ExpenseSample
	err     error
}

func (f *fakeExpenses) GetExpenses(ctx context.Context, userID string, from, to time.Time) ([]domain.ExpenseSample, error) {
	return f.samples, f.err
}

type fakePrefs struct {
	prefs domain.UserPreferences
	err   error
}

func (f *fakePrefs) GetUserPreferences(ctx context.Context, userID string) (domain.UserPreferences, error) {
	return f.prefs, f.err
}

type fakeRules struct {
	rules []domain.AlertRule
	err   error
}

func (f *fakeRules) GetRules(ctx context.Context, userID string) ([]domain.AlertRule, error) {
	return f.rules, f.err
}

type fakeCheckScheduler struct {
	scheduled []time.Time
}

func (f *fakeCheckScheduler) Schedule(userID, itineraryID string, at time.Time) {
	f.scheduled = append(f.scheduled, at)
}

type fakeSink struct{}

func (fakeSink) SaveAlertInstance(domain.AlertInstance) error           { return nil }
func (fakeSink) SaveNotificationRecord(domain.NotificationRecord) error { return nil }

type fakeNotifier struct{ sent int }

func (f *fakeNotifier) Send(userID, title, message string, severity domain.Severity) error {
	f.sent++
	return nil
}

type stubSource struct {
	deals []domain.Deal
	err   error
}

func (s *stubSource) Name() string { return "stub" }
func (s *stubSource) FetchDeals(ctx context.Context, q deals.Query) ([]domain.Deal, error) {
	return s.deals, s.err
}

type harness struct {
	service   *Service
	clk       *clock.Fake
	budgets   *fakeBudgets
	expenses  *fakeExpenses
	prefs     *fakePrefs
	scheduler *fakeCheckScheduler
	notifier  *fakeNotifier
	store     *cache.Memory
}

func steadySnapshot() *BudgetSnapshot {
	return &BudgetSnapshot{
		Name: "Bali trip",
		Constraints: domain.BudgetConstraints{
			BudgetID:           "budget-1",
			TotalBudget:        1_000_000,
			Spent:              300_000,
			Location:           "Ubud, Bali",
			TripDurationDays:   10,
			RemainingDays:      7,
			PerCategoryBudgets: map[string]float64{"dining": 500_000},
		},
	}
}

func steadyExpenses() []domain.ExpenseSample {
	samples := make([]domain.ExpenseSample, 3)
	for i := range samples {
		samples[i] = domain.ExpenseSample{
			Date:     testNow.AddDate(0, 0, -3+i),
			Amount:   100_000,
			Category: "dining",
		}
	}
	return samples
}

func newHarness(t *testing.T, sources ...deals.Source) *harness {
	t.Helper()
	clk := clock.NewFake(testNow)
	store := cache.NewMemory(clk)
	log := zerolog.Nop()

	notifier := &fakeNotifier{}
	alertEngine := alerts.NewEngine(
		alerts.NewCooldownGate(cache.NewMemory(clk), clk),
		fakeSink{}, notifier, clk, log)

	if len(sources) == 0 {
		sources = []deals.Source{&stubSource{deals: []domain.Deal{{
			ID:              "d1",
			Merchant:        "warung-a",
			Category:        "dining",
			OriginalPrice:   150_000,
			DiscountedPrice: 75_000,
			Location:        "Ubud, Bali",
			ValidUntil:      testNow.AddDate(0, 0, 14),
			Rating:          4.5,
			Coordinates:     &domain.Coordinates{Lat: -8.5069, Lng: 115.2625},
		}}}}
	}

	h := &harness{
		clk:       clk,
		budgets:   &fakeBudgets{snapshot: steadySnapshot()},
		expenses:  &fakeExpenses{samples: steadyExpenses()},
		prefs:     &fakePrefs{},
		scheduler: &fakeCheckScheduler{},
		notifier:  notifier,
		store:     store,
	}

	h.service = NewService(Config{
		Budgets:   h.budgets,
		Expenses:  h.expenses,
		Prefs:     h.prefs,
		Rules:     &fakeRules{},
		Analyzer:  burnrate.NewAnalyzer(clk, log),
		Alerts:    alertEngine,
		Pipeline:  deals.NewPipeline(sources, relevance.NewScorer(clk, log), clk, log),
		Clusterer: geocluster.NewEngine(log),
		Cache:     store,
		Scheduler: h.scheduler,
		Clock:     clk,
		Log:       log,
	})
	return h
}

func manualRequest() Request {
	return Request{
		UserID:      "u1",
		ItineraryID: "it-1",
		Trigger:     domain.TriggerManualRequest,
	}
}

func TestRun_FullPass(t *testing.T) {
	h := newHarness(t)

	result, err := h.service.Run(context.Background(), manualRequest())
	require.NoError(t, err)

	require.NotNil(t, result.Report)
	assert.Equal(t, domain.RiskMedium, result.Report.RiskLevel)
	assert.Len(t, result.Deals, 1)
	require.NotNil(t, result.Map)
	assert.Len(t, result.Map.Clusters, 1)
	assert.False(t, result.Degraded)
	assert.False(t, result.FromCache)
	assert.Equal(t, 1, result.Summary.DealCount)

	// Medium risk schedules the normal tier.
	assert.Equal(t, testNow.Add(NormalCheckInterval), result.NextCheckAt)
	require.Len(t, h.scheduler.scheduled, 1)
}

func TestRun_SecondCallServedFromCache(t *testing.T) {
	h := newHarness(t)
	req := manualRequest()

	_, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, h.budgets.calls)

	cached, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Equal(t, 1, h.budgets.calls, "cached run must not hit persistence")
}

func TestRun_ForceRefreshBypassesCache(t *testing.T) {
	h := newHarness(t)
	req := manualRequest()

	_, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)

	req.ForceRefresh = true
	result, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, h.budgets.calls)
}

func TestRun_CacheExpiresAfterTTL(t *testing.T) {
	h := newHarness(t)
	req := manualRequest()

	_, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)

	h.clk.Advance(ResultTTL + time.Second)
	result, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
}

func TestRun_MissingBudgetSurfacesNotFound(t *testing.T) {
	h := newHarness(t)
	h.budgets.snapshot = nil
	h.budgets.err = domain.ErrNotFound

	_, err := h.service.Run(context.Background(), manualRequest())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_ExpenseFetchFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.expenses.err = errors.New("expense service down")

	result, err := h.service.Run(context.Background(), manualRequest())
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.NotNil(t, result.Report)
	// Empty series: zero burn but still a well-formed report.
	assert.Zero(t, result.Report.ProjectedDailyBurn)
}

func TestRun_DealSourceFailureStillReturnsReport(t *testing.T) {
	h := newHarness(t, &stubSource{err: errors.New("merchant API down")})

	result, err := h.service.Run(context.Background(), manualRequest())
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Deals)
	require.NotNil(t, result.Report)
	require.Len(t, result.Sources, 1)
	assert.False(t, result.Sources[0].OK)
}

func TestRun_PreferenceFailureDegradesToDefaults(t *testing.T) {
	h := newHarness(t)
	h.prefs.err = errors.New("prefs store down")

	result, err := h.service.Run(context.Background(), manualRequest())
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Deals, 1)
}

func TestRun_HighRiskSchedulesFrequentTier(t *testing.T) {
	h := newHarness(t)
	// Burn far above the allowance.
	h.expenses.samples = []domain.ExpenseSample{
		{Date: testNow.AddDate(0, 0, -2), Amount: 400_000, Category: "dining"},
		{Date: testNow.AddDate(0, 0, -1), Amount: 400_000, Category: "dining"},
		{Date: testNow, Amount: 400_000, Category: "dining"},
	}

	result, err := h.service.Run(context.Background(), manualRequest())
	require.NoError(t, err)
	require.NotNil(t, result.Report)
	assert.Equal(t, domain.RiskCritical, result.Report.RiskLevel)
	assert.Equal(t, testNow.Add(FrequentCheckInterval), result.NextCheckAt)
	assert.NotEmpty(t, result.Alerts)
	assert.Greater(t, h.notifier.sent, 0)
}

func TestInvalidateUser_DropsCachedResults(t *testing.T) {
	h := newHarness(t)
	req := manualRequest()

	_, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)

	h.service.InvalidateUser(req.UserID)

	result, err := h.service.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, h.budgets.calls)
}

func TestOnExpenseRecorded_FiresAnomalyRule(t *testing.T) {
	h := newHarness(t)

	fired := h.service.OnExpenseRecorded(context.Background(), "u1", "it-1", domain.ExpenseSample{
		Date:     testNow,
		Amount:   750_000,
		Category: "shopping",
	})

	require.Len(t, fired, 1)
	assert.Equal(t, "expense-anomaly", fired[0].RuleID)

	small := h.service.OnExpenseRecorded(context.Background(), "u1", "it-1", domain.ExpenseSample{
		Date:     testNow,
		Amount:   50_000,
		Category: "dining",
	})
	assert.Empty(t, small)
}
