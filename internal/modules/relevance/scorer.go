// Package relevance scores merchant deals against a trip budget and user
// preferences. Scoring is a deterministic weighted sum - the "ML" naming in
// the product is marketing, not a learned model.
package relevance

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// Sub-score weights. They must sum to 1.
const (
	BudgetWeight     = 0.40
	CategoryWeight   = 0.25
	LocationWeight   = 0.15
	TimeWeight       = 0.10
	PreferenceWeight = 0.10
)

// NeutralScore is used when a sub-score has no data to judge on.
const NeutralScore = 50.0

// Reasoning thresholds.
const (
	strongMatch   = 80.0
	moderateMatch = 60.0
)

// Scorer computes relevance scores. Pure apart from the injected clock
// (needed for time-relevance); safe for concurrent use.
type Scorer struct {
	clock clock.Clock
	log   zerolog.Logger
}

// NewScorer creates a relevance scorer.
func NewScorer(clk clock.Clock, log zerolog.Logger) *Scorer {
	return &Scorer{
		clock: clk,
		log:   log.With().Str("module", "relevance").Logger(),
	}
}

// Score evaluates one deal. Every sub-score and the composite are in [0,100].
func (s *Scorer) Score(deal domain.Deal, budget domain.BudgetConstraints, prefs domain.UserPreferences) domain.ScoredDeal {
	budgetScore := s.budgetAlignment(deal, budget)
	categoryScore := s.categoryFit(deal, prefs)
	locationScore := s.locationRelevance(deal, budget)
	timeScore := s.timeRelevance(deal, budget)
	preferenceScore := s.preferenceAlignment(deal, prefs)

	composite := budgetScore*BudgetWeight +
		categoryScore*CategoryWeight +
		locationScore*LocationWeight +
		timeScore*TimeWeight +
		preferenceScore*PreferenceWeight

	scored := domain.ScoredDeal{
		Deal:                 deal,
		RelevanceScore:       int(math.Round(composite)),
		BudgetAlignmentScore: budgetScore,
		CategoryFitScore:     categoryScore,
		LocationScore:        locationScore,
		TimeScore:            timeScore,
		PreferenceScore:      preferenceScore,
	}
	scored.Reasoning = reasoning(scored)
	return scored
}

// budgetAlignment (40%). Dining deals with an hourly-spend figure are scored
// against the dining hourly budget; everything else against the category
// budget via fixed percentage bands. No category budget means neutral.
func (s *Scorer) budgetAlignment(deal domain.Deal, budget domain.BudgetConstraints) float64 {
	if deal.Category == "dining" && deal.AverageSpendPerHour > 0 && budget.DiningBudgetPerHour > 0 {
		return clamp100(100 * budget.DiningBudgetPerHour / deal.AverageSpendPerHour)
	}

	categoryBudget := budget.PerCategoryBudgets[deal.Category]
	if categoryBudget <= 0 {
		return NeutralScore
	}

	pct := deal.DiscountedPrice / categoryBudget * 100
	switch {
	case pct <= 10:
		return 100
	case pct <= 25:
		return 90
	case pct <= 50:
		return 75
	case pct <= 75:
		return 60
	case pct <= 100:
		return 40
	default:
		return 20
	}
}

// categoryFit (25%).
func (s *Scorer) categoryFit(deal domain.Deal, prefs domain.UserPreferences) float64 {
	score := NeutralScore

	if prefs.PrefersCategory(deal.Category) {
		score += 30
	}
	if style, ok := prefs.StyleByCategory[deal.Category]; ok && style == deal.BudgetTier {
		score += 20
	}
	if prefs.PriceSensitivity == domain.SensitivityHigh && deal.DiscountPercentage() >= 30 {
		score += 15
	}

	return clamp100(score)
}

// locationRelevance (15%). Exact substring match wins, token overlap is a
// partial match, anything else scores low but non-zero.
func (s *Scorer) locationRelevance(deal domain.Deal, budget domain.BudgetConstraints) float64 {
	dealLoc := strings.ToLower(strings.TrimSpace(deal.Location))
	budgetLoc := strings.ToLower(strings.TrimSpace(budget.Location))
	if dealLoc == "" || budgetLoc == "" {
		return 30
	}

	if strings.Contains(dealLoc, budgetLoc) || strings.Contains(budgetLoc, dealLoc) {
		return 100
	}
	if tokenOverlap(dealLoc, budgetLoc) {
		return 70
	}
	return 30
}

// timeRelevance (10%). Validity measured against trip duration.
func (s *Scorer) timeRelevance(deal domain.Deal, budget domain.BudgetConstraints) float64 {
	daysLeft := deal.ValidUntil.Sub(s.clock.Now()).Hours() / 24
	duration := float64(budget.TripDurationDays)

	switch {
	case duration > 0 && daysLeft >= duration:
		return 100
	case duration > 0 && daysLeft >= duration/2:
		return 70
	case daysLeft >= 1:
		return 40
	default:
		// Expired or expiring today.
		return 10
	}
}

// preferenceAlignment (10%).
func (s *Scorer) preferenceAlignment(deal domain.Deal, prefs domain.UserPreferences) float64 {
	score := NeutralScore

	if prefs.LikesDiscountDeals && deal.DiscountPercentage() >= 50 {
		score += 20
	}
	if prefs.LikesFlashDeals && hasTag(deal.Tags, "Flash") {
		score += 15
	}
	if deal.Rating >= 4.5 {
		score += 10
	}
	if matchesAnyLocation(deal.Location, prefs.PreferredLocations) {
		score += 15
	}

	return clamp100(score)
}

// reasoning emits the threshold-triggered explanation strings. Order follows
// the sub-score weights so the strongest factor is listed first.
func reasoning(d domain.ScoredDeal) []string {
	reasons := make([]string, 0, 5)

	add := func(score float64, strong, moderate string) {
		switch {
		case score >= strongMatch:
			reasons = append(reasons, strong)
		case score >= moderateMatch:
			reasons = append(reasons, moderate)
		}
	}

	add(d.BudgetAlignmentScore,
		fmt.Sprintf("Fits comfortably within your %s budget", d.Category),
		fmt.Sprintf("Reasonable fit for your %s budget", d.Category))
	add(d.CategoryFitScore,
		"Strong match for your preferred categories",
		"Decent match for your travel style")
	add(d.LocationScore,
		"Right in your trip area",
		"Close to your trip area")
	add(d.TimeScore,
		"Valid for your whole trip",
		"Valid for most of your trip")
	add(d.PreferenceScore,
		"Closely matches your deal preferences",
		"Partly matches your deal preferences")

	return reasons
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func matchesAnyLocation(location string, preferred []string) bool {
	loc := strings.ToLower(location)
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && (strings.Contains(loc, p) || strings.Contains(p, loc)) {
			return true
		}
	}
	return false
}

// tokenOverlap reports whether the two location strings share any token.
func tokenOverlap(a, b string) bool {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(a) {
		tokens[strings.Trim(t, ",.")] = true
	}
	for _, t := range strings.Fields(b) {
		if tokens[strings.Trim(t, ",.")] {
			return true
		}
	}
	return false
}
