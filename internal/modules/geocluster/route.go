package geocluster

import "github.com/leosinemaxx/jatour-engine/internal/domain"

// OptimizeRoute orders deals by greedy nearest-neighbor traversal from
// start: repeatedly visit the closest unvisited deal and continue from its
// coordinates. This is an approximation, not a shortest-path guarantee -
// it trades optimality for a single deterministic pass. Deals without
// coordinates are appended unchanged at the end of the route.
func (e *Engine) OptimizeRoute(start domain.Coordinates, deals []domain.ScoredDeal) []domain.ScoredDeal {
	located := make([]domain.ScoredDeal, 0, len(deals))
	unlocated := make([]domain.ScoredDeal, 0)
	for _, d := range deals {
		if d.Coordinates != nil {
			located = append(located, d)
		} else {
			unlocated = append(unlocated, d)
		}
	}

	route := make([]domain.ScoredDeal, 0, len(deals))
	visited := make([]bool, len(located))
	position := start

	for len(route) < len(located) {
		next := -1
		best := 0.0
		for i, d := range located {
			if visited[i] {
				continue
			}
			dist := DistanceMeters(position, *d.Coordinates)
			if next == -1 || dist < best {
				next = i
				best = dist
			}
		}

		visited[next] = true
		route = append(route, located[next])
		position = *located[next].Coordinates
	}

	return append(route, unlocated...)
}
