package geocluster

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

const (
	// DefaultClusterRadiusMeters is the grouping radius. Fixed in the product
	// today; exposed as a field on Engine so it can be tuned without touching
	// the formulas.
	DefaultClusterRadiusMeters = 500.0

	// BoundsPadding is added to each axis of the computed bounding box.
	BoundsPadding = 0.10
)

// DefaultBounds is the fallback viewport when no deal has coordinates
// (greater Jakarta).
var DefaultBounds = domain.Bounds{
	MinLat: -6.4,
	MaxLat: -6.0,
	MinLng: 106.6,
	MaxLng: 107.0,
}

// Engine clusters deals and derives map parameters. Pure computation; safe
// for concurrent use.
type Engine struct {
	RadiusMeters float64
	log          zerolog.Logger
}

// NewEngine creates a cluster engine with the default radius.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		RadiusMeters: DefaultClusterRadiusMeters,
		log:          log.With().Str("module", "geocluster").Logger(),
	}
}

// Cluster groups deals with coordinates into proximity clusters and computes
// the viewport. Deals without coordinates are ignored. When center is nil the
// arithmetic mean of all deal coordinates is used.
//
// The algorithm is a greedy single pass over deals ordered by distance from
// the center: each unprocessed deal seeds a cluster that absorbs every other
// unprocessed deal within RadiusMeters. Not globally optimal, but fully
// deterministic, and every input deal lands in exactly one cluster.
func (e *Engine) Cluster(deals []domain.ScoredDeal, center *domain.Coordinates) domain.MapView {
	located := make([]domain.ScoredDeal, 0, len(deals))
	for _, d := range deals {
		if d.Coordinates != nil {
			located = append(located, d)
		}
	}

	if len(located) == 0 {
		return domain.MapView{
			Clusters: []domain.DealCluster{},
			Bounds:   DefaultBounds,
			Center:   midpoint(DefaultBounds),
			Zoom:     zoomFor(DefaultBounds),
		}
	}

	viewCenter := meanCenter(located)
	if center != nil {
		viewCenter = *center
	}

	ordered := make([]domain.ScoredDeal, len(located))
	copy(ordered, located)
	sort.SliceStable(ordered, func(i, j int) bool {
		return DistanceMeters(*ordered[i].Coordinates, viewCenter) <
			DistanceMeters(*ordered[j].Coordinates, viewCenter)
	})

	processed := make([]bool, len(ordered))
	clusters := make([]domain.DealCluster, 0, len(ordered))

	for i := range ordered {
		if processed[i] {
			continue
		}
		processed[i] = true
		members := []domain.ScoredDeal{ordered[i]}

		for j := i + 1; j < len(ordered); j++ {
			if processed[j] {
				continue
			}
			if DistanceMeters(*ordered[i].Coordinates, *ordered[j].Coordinates) <= e.RadiusMeters {
				processed[j] = true
				members = append(members, ordered[j])
			}
		}

		clusters = append(clusters, buildCluster(members))
	}

	bounds := boundsFor(located)
	view := domain.MapView{
		Clusters: clusters,
		Bounds:   bounds,
		Center:   viewCenter,
		Zoom:     zoomFor(bounds),
	}

	e.log.Debug().
		Int("deals", len(located)).
		Int("clusters", len(clusters)).
		Msg("Clustered deals")

	return view
}

// buildCluster computes the centroid, dominant budget tier (majority vote,
// ties broken by first tier encountered), average rating and total savings.
func buildCluster(members []domain.ScoredDeal) domain.DealCluster {
	var latSum, lngSum, ratingSum, savings float64
	tierCounts := make(map[domain.BudgetTier]int)
	tierOrder := make([]domain.BudgetTier, 0, 3)

	for _, m := range members {
		latSum += m.Coordinates.Lat
		lngSum += m.Coordinates.Lng
		ratingSum += m.Rating
		savings += m.Savings()

		if tierCounts[m.BudgetTier] == 0 {
			tierOrder = append(tierOrder, m.BudgetTier)
		}
		tierCounts[m.BudgetTier]++
	}

	dominant := tierOrder[0]
	for _, tier := range tierOrder {
		if tierCounts[tier] > tierCounts[dominant] {
			dominant = tier
		}
	}

	n := float64(len(members))
	return domain.DealCluster{
		Center:        domain.Coordinates{Lat: latSum / n, Lng: lngSum / n},
		Deals:         members,
		DominantTier:  dominant,
		AverageRating: ratingSum / n,
		TotalSavings:  savings,
	}
}

// boundsFor computes the min/max box across all deals with 10% padding on
// each axis.
func boundsFor(deals []domain.ScoredDeal) domain.Bounds {
	b := domain.Bounds{
		MinLat: deals[0].Coordinates.Lat,
		MaxLat: deals[0].Coordinates.Lat,
		MinLng: deals[0].Coordinates.Lng,
		MaxLng: deals[0].Coordinates.Lng,
	}
	for _, d := range deals[1:] {
		c := d.Coordinates
		if c.Lat < b.MinLat {
			b.MinLat = c.Lat
		}
		if c.Lat > b.MaxLat {
			b.MaxLat = c.Lat
		}
		if c.Lng < b.MinLng {
			b.MinLng = c.Lng
		}
		if c.Lng > b.MaxLng {
			b.MaxLng = c.Lng
		}
	}

	latPad := (b.MaxLat - b.MinLat) * BoundsPadding
	lngPad := (b.MaxLng - b.MinLng) * BoundsPadding
	b.MinLat -= latPad
	b.MaxLat += latPad
	b.MinLng -= lngPad
	b.MaxLng += lngPad
	return b
}

func meanCenter(deals []domain.ScoredDeal) domain.Coordinates {
	var latSum, lngSum float64
	for _, d := range deals {
		latSum += d.Coordinates.Lat
		lngSum += d.Coordinates.Lng
	}
	n := float64(len(deals))
	return domain.Coordinates{Lat: latSum / n, Lng: lngSum / n}
}

func midpoint(b domain.Bounds) domain.Coordinates {
	return domain.Coordinates{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}

// zoomFor maps the larger axis span to a map zoom level. Wider spans give
// lower (more zoomed-out) levels.
func zoomFor(b domain.Bounds) int {
	span := b.MaxLat - b.MinLat
	if lngSpan := b.MaxLng - b.MinLng; lngSpan > span {
		span = lngSpan
	}

	switch {
	case span > 10:
		return 5
	case span > 5:
		return 6
	case span > 2:
		return 7
	case span > 1:
		return 8
	case span > 0.5:
		return 9
	case span > 0.2:
		return 10
	case span > 0.1:
		return 11
	case span > 0.05:
		return 12
	case span > 0.02:
		return 13
	case span > 0.01:
		return 14
	default:
		return 15
	}
}
