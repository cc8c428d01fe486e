package relevance

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return NewScorer(clock.NewFake(testNow), zerolog.Nop())
}

func baseBudget() domain.BudgetConstraints {
	return domain.BudgetConstraints{
		TotalBudget:      5_000_000,
		Location:         "Ubud, Bali",
		TripDurationDays: 10,
		PerCategoryBudgets: map[string]float64{
			"dining":     500_000,
			"activities": 800_000,
		},
	}
}

func baseDeal() domain.Deal {
	return domain.Deal{
		ID:              "d1",
		Merchant:        "warung-sari",
		Category:        "dining",
		OriginalPrice:   100_000,
		DiscountedPrice: 50_000,
		Location:        "Ubud, Bali",
		ValidUntil:      testNow.AddDate(0, 0, 14),
		Rating:          4.2,
		BudgetTier:      domain.TierBudget,
	}
}

func TestScore_TenPercentOfCategoryBudgetIsPerfectAlignment(t *testing.T) {
	scorer := newTestScorer()

	// 50k against a 500k dining budget is exactly the 10% band edge.
	scored := scorer.Score(baseDeal(), baseBudget(), domain.UserPreferences{})
	assert.Equal(t, 100.0, scored.BudgetAlignmentScore)
}

func TestScore_BudgetBands(t *testing.T) {
	scorer := newTestScorer()
	budget := baseBudget()

	cases := []struct {
		price    float64
		expected float64
	}{
		{25_000, 100},  // 5%
		{100_000, 90},  // 20%
		{200_000, 75},  // 40%
		{350_000, 60},  // 70%
		{500_000, 40},  // 100%
		{700_000, 20},  // 140%
	}
	for _, tc := range cases {
		deal := baseDeal()
		deal.DiscountedPrice = tc.price
		scored := scorer.Score(deal, budget, domain.UserPreferences{})
		assert.Equal(t, tc.expected, scored.BudgetAlignmentScore, "price %.0f", tc.price)
	}
}

func TestScore_NoCategoryBudgetIsNeutral(t *testing.T) {
	scorer := newTestScorer()

	deal := baseDeal()
	deal.Category = "souvenirs"
	scored := scorer.Score(deal, baseBudget(), domain.UserPreferences{})
	assert.Equal(t, NeutralScore, scored.BudgetAlignmentScore)
}

func TestScore_DiningHourlyBudget(t *testing.T) {
	scorer := newTestScorer()

	budget := baseBudget()
	budget.DiningBudgetPerHour = 75_000

	deal := baseDeal()
	deal.AverageSpendPerHour = 150_000

	scored := scorer.Score(deal, budget, domain.UserPreferences{})
	assert.Equal(t, 50.0, scored.BudgetAlignmentScore)
}

func TestScore_CategoryFitBonuses(t *testing.T) {
	scorer := newTestScorer()

	prefs := domain.UserPreferences{
		PreferredCategories: []string{"dining"},
		StyleByCategory:     map[string]domain.BudgetTier{"dining": domain.TierBudget},
		PriceSensitivity:    domain.SensitivityHigh,
	}

	// Preferred category (+30), tier match (+20), 50% discount with high
	// sensitivity (+15): clamped at 100.
	scored := scorer.Score(baseDeal(), baseBudget(), prefs)
	assert.Equal(t, 100.0, scored.CategoryFitScore)

	scored = scorer.Score(baseDeal(), baseBudget(), domain.UserPreferences{})
	assert.Equal(t, 50.0, scored.CategoryFitScore)
}

func TestScore_LocationRelevance(t *testing.T) {
	scorer := newTestScorer()
	budget := baseBudget()

	exact := baseDeal()
	assert.Equal(t, 100.0, scorer.Score(exact, budget, domain.UserPreferences{}).LocationScore)

	partial := baseDeal()
	partial.Location = "Seminyak, Bali"
	assert.Equal(t, 70.0, scorer.Score(partial, budget, domain.UserPreferences{}).LocationScore)

	elsewhere := baseDeal()
	elsewhere.Location = "Bangkok"
	assert.Equal(t, 30.0, scorer.Score(elsewhere, budget, domain.UserPreferences{}).LocationScore)
}

func TestScore_TimeRelevanceBands(t *testing.T) {
	scorer := newTestScorer()
	budget := baseBudget() // 10-day trip

	cases := []struct {
		validIn  time.Duration
		expected float64
	}{
		{14 * 24 * time.Hour, 100}, // beyond the whole trip
		{6 * 24 * time.Hour, 70},   // more than half
		{36 * time.Hour, 40},       // at least a day
		{6 * time.Hour, 10},        // expiring today
		{-24 * time.Hour, 10},      // already expired
	}
	for _, tc := range cases {
		deal := baseDeal()
		deal.ValidUntil = testNow.Add(tc.validIn)
		scored := scorer.Score(deal, budget, domain.UserPreferences{})
		assert.Equal(t, tc.expected, scored.TimeScore, "valid in %s", tc.validIn)
	}
}

func TestScore_PreferenceAlignment(t *testing.T) {
	scorer := newTestScorer()

	deal := baseDeal()
	deal.Tags = []string{"Flash", "Popular"}
	deal.Rating = 4.7

	prefs := domain.UserPreferences{
		LikesDiscountDeals: true,
		LikesFlashDeals:    true,
		PreferredLocations: []string{"Ubud"},
	}

	// 50 + 20 (discount) + 15 (flash) + 10 (rating) + 15 (location) clamps to 100.
	scored := scorer.Score(deal, baseBudget(), prefs)
	assert.Equal(t, 100.0, scored.PreferenceScore)
}

func TestScore_AllScoresWithinRange(t *testing.T) {
	scorer := newTestScorer()

	deals := []domain.Deal{
		baseDeal(),
		{ID: "bare"},
		{ID: "expired", Category: "activities", DiscountedPrice: 2_000_000, ValidUntil: testNow.AddDate(0, 0, -30)},
	}
	for _, deal := range deals {
		scored := scorer.Score(deal, baseBudget(), domain.UserPreferences{})
		for name, v := range map[string]float64{
			"budget":     scored.BudgetAlignmentScore,
			"category":   scored.CategoryFitScore,
			"location":   scored.LocationScore,
			"time":       scored.TimeScore,
			"preference": scored.PreferenceScore,
			"composite":  float64(scored.RelevanceScore),
		} {
			assert.GreaterOrEqual(t, v, 0.0, "%s for %s", name, deal.ID)
			assert.LessOrEqual(t, v, 100.0, "%s for %s", name, deal.ID)
		}
	}
}

func TestScore_ReasoningContainsStrongBudgetPhrase(t *testing.T) {
	scorer := newTestScorer()

	scored := scorer.Score(baseDeal(), baseBudget(), domain.UserPreferences{})
	assert.Contains(t, scored.Reasoning, "Fits comfortably within your dining budget")
	assert.Contains(t, scored.Reasoning, "Right in your trip area")
}
