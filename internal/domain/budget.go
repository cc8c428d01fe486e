package domain

// BudgetConstraints is the snapshot of a trip budget used for scoring and
// burn-rate analysis. Built from persistence records per request; not
// persisted by the engine itself.
type BudgetConstraints struct {
	BudgetID            string             `json:"budget_id"`
	TotalBudget         float64            `json:"total_budget"`
	Spent               float64            `json:"spent"`
	DailyBudget         float64            `json:"daily_budget"`
	PerCategoryBudgets  map[string]float64 `json:"per_category_budgets"`
	DiningBudgetPerHour float64            `json:"dining_budget_per_hour,omitempty"`
	Location            string             `json:"location"`
	TripDurationDays    int                `json:"trip_duration_days"`
	RemainingDays       int                `json:"remaining_days"`
}

// RemainingBudget returns total minus spent, clamped at zero.
func (b BudgetConstraints) RemainingBudget() float64 {
	remaining := b.TotalBudget - b.Spent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PriceSensitivity expresses how strongly a user reacts to discounts.
type PriceSensitivity string

const (
	SensitivityLow    PriceSensitivity = "low"
	SensitivityMedium PriceSensitivity = "medium"
	SensitivityHigh   PriceSensitivity = "high"
)

// UserPreferences drives deal relevance scoring. Read from persistence.
type UserPreferences struct {
	PreferredCategories []string              `json:"preferred_categories"`
	PreferredLocations  []string              `json:"preferred_locations"`
	StyleByCategory     map[string]BudgetTier `json:"style_by_category"` // dining, accommodation
	PriceSensitivity    PriceSensitivity      `json:"price_sensitivity"`
	LikesDiscountDeals  bool                  `json:"likes_discount_deals"`
	LikesFlashDeals     bool                  `json:"likes_flash_deals"`
}

// PrefersCategory reports whether category is in the preferred set
// (case-insensitive handled by callers; stored values are normalized).
func (p UserPreferences) PrefersCategory(category string) bool {
	for _, c := range p.PreferredCategories {
		if c == category {
			return true
		}
	}
	return false
}
