package domain

import "time"

// BudgetTier is the categorical price bracket of a deal or travel style.
type BudgetTier string

const (
	TierBudget   BudgetTier = "budget"
	TierModerate BudgetTier = "moderate"
	TierPremium  BudgetTier = "premium"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Deal is a third-party merchant offer. Supplied by the merchant-integration
// collaborator; read-only to the engine and treated as potentially stale.
type Deal struct {
	ID                  string       `json:"id"`
	Merchant            string       `json:"merchant"`
	Title               string       `json:"title"`
	Category            string       `json:"category"`
	OriginalPrice       float64      `json:"original_price"`
	DiscountedPrice     float64      `json:"discounted_price"`
	Location            string       `json:"location"`
	Coordinates         *Coordinates `json:"coordinates,omitempty"`
	ValidUntil          time.Time    `json:"valid_until"`
	Tags                []string     `json:"tags,omitempty"`
	Rating              float64      `json:"rating"`
	BudgetTier          BudgetTier   `json:"budget_tier"`
	AverageSpendPerHour float64      `json:"average_spend_per_hour,omitempty"` // dining deals only
}

// DiscountPercentage returns the deal's discount as a percentage of the
// original price. Returns 0 when the original price is not positive.
func (d Deal) DiscountPercentage() float64 {
	if d.OriginalPrice <= 0 {
		return 0
	}
	return (d.OriginalPrice - d.DiscountedPrice) / d.OriginalPrice * 100
}

// Savings returns original minus discounted price, never negative.
func (d Deal) Savings() float64 {
	s := d.OriginalPrice - d.DiscountedPrice
	if s < 0 {
		return 0
	}
	return s
}

// ScoredDeal is a Deal plus its relevance breakdown. Derived and ephemeral,
// recomputed per request.
type ScoredDeal struct {
	Deal

	RelevanceScore       int      `json:"relevance_score"`
	BudgetAlignmentScore float64  `json:"budget_alignment_score"`
	CategoryFitScore     float64  `json:"category_fit_score"`
	LocationScore        float64  `json:"location_score"`
	TimeScore            float64  `json:"time_score"`
	PreferenceScore      float64  `json:"preference_score"`
	Reasoning            []string `json:"reasoning"`
}

// DealCluster groups deals whose locations lie within the clustering radius.
type DealCluster struct {
	Center        Coordinates  `json:"center"`
	Deals         []ScoredDeal `json:"deals"`
	DominantTier  BudgetTier   `json:"dominant_tier"`
	AverageRating float64      `json:"average_rating"`
	TotalSavings  float64      `json:"total_savings"`
}

// Bounds is a lat/lng bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// MapView is the full clustering output for map rendering.
type MapView struct {
	Clusters []DealCluster `json:"clusters"`
	Bounds   Bounds        `json:"bounds"`
	Center   Coordinates   `json:"center"`
	Zoom     int           `json:"zoom"`
}
