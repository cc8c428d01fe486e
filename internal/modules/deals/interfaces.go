package deals

import (
	"context"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// Query narrows a merchant deal fetch. Zero values mean "no filter".
type Query struct {
	Location string
	Category string
	MaxPrice float64
}

// Source is one merchant integration. Sources may return stale or partial
// data and must be treated as unreliable; the pipeline tolerates individual
// source failures.
type Source interface {
	// Name identifies the source in statuses and dedupe keys.
	Name() string

	// FetchDeals returns candidate deals for the query.
	FetchDeals(ctx context.Context, query Query) ([]domain.Deal, error)
}
