package geocluster

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

func TestOptimizeRoute_GreedyNearestNeighbor(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	start := domain.Coordinates{Lat: -8.500, Lng: 115.260}

	deals := []domain.ScoredDeal{
		dealAt("far", -8.560, 115.260),
		dealAt("near", -8.505, 115.260),
		dealAt("mid", -8.520, 115.260),
	}

	route := engine.OptimizeRoute(start, deals)
	require.Len(t, route, 3)

	ids := []string{route[0].ID, route[1].ID, route[2].ID}
	assert.Equal(t, []string{"near", "mid", "far"}, ids)
}

// The traversal is an approximation: a greedy choice can produce a longer
// total path than the optimal ordering. This pins that behavior down so it
// is not "fixed" by accident.
func TestOptimizeRoute_GreedyIsNotShortestPath(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	start := domain.Coordinates{Lat: 0, Lng: 0}

	a := dealAt("a", 0.0010, 0)
	b := dealAt("b", -0.0015, 0)
	c := dealAt("c", 0.0020, 0)

	route := engine.OptimizeRoute(start, []domain.ScoredDeal{a, b, c})
	require.Len(t, route, 3)
	// Greedy walks north first (a is nearest) and only then backtracks south.
	assert.Equal(t, "a", route[0].ID)
	assert.Equal(t, "c", route[1].ID)
	assert.Equal(t, "b", route[2].ID)

	total := func(order []domain.ScoredDeal) float64 {
		sum := 0.0
		pos := start
		for _, d := range order {
			sum += DistanceMeters(pos, *d.Coordinates)
			pos = *d.Coordinates
		}
		return sum
	}

	// Starting south would have been shorter overall.
	assert.Greater(t, total(route), total([]domain.ScoredDeal{b, a, c}))
}

func TestOptimizeRoute_DealsWithoutCoordinatesGoLast(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	noCoords := domain.ScoredDeal{Deal: domain.Deal{ID: "no-coords"}}
	located := dealAt("located", -8.51, 115.26)

	route := engine.OptimizeRoute(domain.Coordinates{Lat: -8.5, Lng: 115.26}, []domain.ScoredDeal{noCoords, located})
	require.Len(t, route, 2)
	assert.Equal(t, "located", route[0].ID)
	assert.Equal(t, "no-coords", route[1].ID)
}

func TestOptimizeRoute_Empty(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	assert.Empty(t, engine.OptimizeRoute(domain.Coordinates{}, nil))
}
