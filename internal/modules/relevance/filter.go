package relevance

import (
	"sort"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// FilterByRelevance returns the deals scoring at or above minScore,
// preserving the input order.
func FilterByRelevance(deals []domain.ScoredDeal, minScore int) []domain.ScoredDeal {
	filtered := make([]domain.ScoredDeal, 0, len(deals))
	for _, d := range deals {
		if d.RelevanceScore >= minScore {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// TopDeals returns the limit highest-scoring deals. The sort is stable:
// deals with equal scores keep their original relative order.
func TopDeals(deals []domain.ScoredDeal, limit int) []domain.ScoredDeal {
	ranked := make([]domain.ScoredDeal, len(deals))
	copy(ranked, deals)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}
