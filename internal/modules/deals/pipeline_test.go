package deals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/relevance"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	name  string
	deals []domain.Deal
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchDeals(ctx context.Context, query Query) ([]domain.Deal, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.deals, s.err
}

func validDeal(id, merchant string) domain.Deal {
	return domain.Deal{
		ID:              id,
		Merchant:        merchant,
		Category:        "dining",
		OriginalPrice:   200_000,
		DiscountedPrice: 100_000,
		Location:        "Ubud, Bali",
		ValidUntil:      testNow.AddDate(0, 0, 14),
		Rating:          4.6,
	}
}

func testBudget() domain.BudgetConstraints {
	return domain.BudgetConstraints{
		TotalBudget:        5_000_000,
		Spent:              1_000_000,
		Location:           "Ubud, Bali",
		TripDurationDays:   10,
		PerCategoryBudgets: map[string]float64{"dining": 800_000},
	}
}

func newPipeline(sources ...Source) *Pipeline {
	clk := clock.NewFake(testNow)
	scorer := relevance.NewScorer(clk, zerolog.Nop())
	return NewPipeline(sources, scorer, clk, zerolog.Nop())
}

func TestMatch_ScoresAndRanksDeals(t *testing.T) {
	source := &stubSource{name: "gotravel", deals: []domain.Deal{
		validDeal("d1", "warung-a"),
		validDeal("d2", "warung-b"),
	}}

	result := newPipeline(source).Match(context.Background(), testBudget(), domain.UserPreferences{})

	require.Len(t, result.Deals, 2)
	assert.False(t, result.Degraded)
	assert.Equal(t, 2, result.Summary.DealCount)
	assert.InDelta(t, 200_000, result.Summary.TotalPotentialSaving, 0.01)
	assert.Greater(t, result.Summary.AverageScore, 0.0)
	assert.InDelta(t, 5.0, result.Summary.BudgetCoveragePct, 0.01)
}

func TestMatch_DeduplicatesByMerchantAndID(t *testing.T) {
	shared := validDeal("d1", "warung-a")
	a := &stubSource{name: "gotravel", deals: []domain.Deal{shared}}
	b := &stubSource{name: "dealhub", deals: []domain.Deal{shared, validDeal("d1", "warung-b")}}

	result := newPipeline(a, b).Match(context.Background(), testBudget(), domain.UserPreferences{})

	// Same merchant+id collapses; same id from a different merchant does not.
	assert.Len(t, result.Deals, 2)
}

func TestMatch_MergeOrderIndependentOfCompletionOrder(t *testing.T) {
	slow := &stubSource{name: "slow", delay: 30 * time.Millisecond, deals: []domain.Deal{validDeal("s1", "m1")}}
	fast := &stubSource{name: "fast", deals: []domain.Deal{validDeal("f1", "m2")}}

	first := newPipeline(slow, fast).Match(context.Background(), testBudget(), domain.UserPreferences{})
	second := newPipeline(slow, fast).Match(context.Background(), testBudget(), domain.UserPreferences{})

	require.Equal(t, len(first.Deals), len(second.Deals))
	for i := range first.Deals {
		assert.Equal(t, first.Deals[i].ID, second.Deals[i].ID)
	}
}

func TestMatch_SourceFailureDegradesInsteadOfAborting(t *testing.T) {
	healthy := &stubSource{name: "gotravel", deals: []domain.Deal{validDeal("d1", "warung-a")}}
	broken := &stubSource{name: "dealhub", err: errors.New("upstream timeout")}

	result := newPipeline(healthy, broken).Match(context.Background(), testBudget(), domain.UserPreferences{})

	assert.True(t, result.Degraded)
	assert.Len(t, result.Deals, 1)

	require.Len(t, result.Sources, 2)
	assert.True(t, result.Sources[0].OK)
	assert.False(t, result.Sources[1].OK)
	assert.Contains(t, result.Sources[1].Error, "upstream timeout")
}

func TestMatch_AllSourcesDownReturnsEmptyDegradedResult(t *testing.T) {
	broken := &stubSource{name: "dealhub", err: errors.New("connection refused")}

	result := newPipeline(broken).Match(context.Background(), testBudget(), domain.UserPreferences{})

	assert.True(t, result.Degraded)
	assert.Empty(t, result.Deals)
	assert.Zero(t, result.Summary.DealCount)
}

func TestMatch_FiltersExpiredAndUnaffordableDeals(t *testing.T) {
	expired := validDeal("expired", "warung-a")
	expired.ValidUntil = testNow.AddDate(0, 0, -1)

	unaffordable := validDeal("pricey", "warung-b")
	unaffordable.DiscountedPrice = 9_000_000

	source := &stubSource{name: "gotravel", deals: []domain.Deal{
		expired, unaffordable, validDeal("ok", "warung-c"),
	}}

	result := newPipeline(source).Match(context.Background(), testBudget(), domain.UserPreferences{})

	require.Len(t, result.Deals, 1)
	assert.Equal(t, "ok", result.Deals[0].ID)
}

func TestMatch_MinScoreFilters(t *testing.T) {
	// A deal in another city with no category budget scores low everywhere.
	weak := validDeal("weak", "warung-a")
	weak.Location = "Bangkok"
	weak.Category = "nightlife"
	weak.Rating = 2.0
	weak.OriginalPrice = 100_000

	source := &stubSource{name: "gotravel", deals: []domain.Deal{weak}}
	pipeline := newPipeline(source)
	pipeline.MinScore = 60

	result := pipeline.Match(context.Background(), testBudget(), domain.UserPreferences{})
	assert.Empty(t, result.Deals)
}
