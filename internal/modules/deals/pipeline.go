// Package deals matches merchant deals to a user's remaining budget and
// preferences: concurrent fetch from all sources, dedupe, filter, score,
// rank and summarize.
package deals

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/relevance"
)

// Ranking defaults. User-facing callers can override per request.
const (
	DefaultMinScore = 40
	DefaultMaxDeals = 20
)

// MatchResult is the pipeline output. Degraded marks runs where at least one
// source failed, so "no deals" and "sources down" are distinguishable.
type MatchResult struct {
	Deals    []domain.ScoredDeal   `json:"deals"`
	Summary  domain.SavingsSummary `json:"summary"`
	Sources  []domain.SourceStatus `json:"sources"`
	Degraded bool                  `json:"degraded"`
}

// Pipeline fetches, scores and ranks deals.
type Pipeline struct {
	sources []Source
	scorer  *relevance.Scorer
	clock   clock.Clock
	log     zerolog.Logger

	MinScore int
	MaxDeals int
}

// NewPipeline creates a deal matching pipeline over the given sources.
func NewPipeline(sources []Source, scorer *relevance.Scorer, clk clock.Clock, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		sources:  sources,
		scorer:   scorer,
		clock:    clk,
		log:      log.With().Str("module", "deals").Logger(),
		MinScore: DefaultMinScore,
		MaxDeals: DefaultMaxDeals,
	}
}

// Match runs the full pipeline for one budget. Source failures degrade the
// result instead of aborting it; an all-sources-down run returns an empty,
// degraded result.
func (p *Pipeline) Match(ctx context.Context, budget domain.BudgetConstraints, prefs domain.UserPreferences) MatchResult {
	query := Query{
		Location: budget.Location,
		MaxPrice: budget.RemainingBudget(),
	}

	fetched, statuses := p.fetchAll(ctx, query)

	candidates := p.filter(fetched, budget)

	scored := make([]domain.ScoredDeal, 0, len(candidates))
	for _, deal := range candidates {
		scored = append(scored, p.scorer.Score(deal, budget, prefs))
	}

	ranked := relevance.TopDeals(relevance.FilterByRelevance(scored, p.MinScore), p.MaxDeals)

	degraded := false
	for _, s := range statuses {
		if !s.OK {
			degraded = true
		}
	}

	p.log.Info().
		Int("fetched", len(fetched)).
		Int("matched", len(ranked)).
		Bool("degraded", degraded).
		Msg("Deal matching completed")

	return MatchResult{
		Deals:    ranked,
		Summary:  summarize(ranked, budget),
		Sources:  statuses,
		Degraded: degraded,
	}
}

// fetchAll queries every source concurrently and merges the results
// deterministically: dedupe by merchant+id, iterating sources in
// registration order regardless of completion order.
func (p *Pipeline) fetchAll(ctx context.Context, query Query) ([]domain.Deal, []domain.SourceStatus) {
	type fetchOutcome struct {
		deals []domain.Deal
		err   error
	}

	outcomes := make([]fetchOutcome, len(p.sources))
	var wg sync.WaitGroup
	for i, source := range p.sources {
		wg.Add(1)
		go func(i int, source Source) {
			defer wg.Done()
			deals, err := source.FetchDeals(ctx, query)
			outcomes[i] = fetchOutcome{deals: deals, err: err}
		}(i, source)
	}
	wg.Wait()

	statuses := make([]domain.SourceStatus, len(p.sources))
	merged := make([]domain.Deal, 0)
	seen := make(map[string]bool)

	for i, source := range p.sources {
		outcome := outcomes[i]
		status := domain.SourceStatus{Source: source.Name()}

		if outcome.err != nil {
			status.Error = outcome.err.Error()
			p.log.Warn().Err(outcome.err).Str("source", source.Name()).Msg("Deal source failed")
		} else {
			status.OK = true
			for _, deal := range outcome.deals {
				key := fmt.Sprintf("%s:%s", deal.Merchant, deal.ID)
				if seen[key] {
					continue
				}
				seen[key] = true
				merged = append(merged, deal)
			}
			status.Count = len(outcome.deals)
		}
		statuses[i] = status
	}

	return merged, statuses
}

// filter drops expired deals and deals the remaining budget cannot cover.
func (p *Pipeline) filter(deals []domain.Deal, budget domain.BudgetConstraints) []domain.Deal {
	now := p.clock.Now()
	remaining := budget.RemainingBudget()

	kept := make([]domain.Deal, 0, len(deals))
	for _, deal := range deals {
		if !deal.ValidUntil.IsZero() && deal.ValidUntil.Before(now) {
			continue
		}
		if remaining > 0 && deal.DiscountedPrice > remaining {
			continue
		}
		kept = append(kept, deal)
	}
	return kept
}

// summarize aggregates savings and coverage over the ranked deals.
func summarize(deals []domain.ScoredDeal, budget domain.BudgetConstraints) domain.SavingsSummary {
	summary := domain.SavingsSummary{DealCount: len(deals)}
	if len(deals) == 0 {
		return summary
	}

	scoreSum := 0.0
	for _, d := range deals {
		summary.TotalPotentialSaving += d.Savings()
		scoreSum += float64(d.RelevanceScore)
	}
	summary.AverageScore = scoreSum / float64(len(deals))

	if remaining := budget.RemainingBudget(); remaining > 0 {
		summary.BudgetCoveragePct = summary.TotalPotentialSaving / remaining * 100
	}
	return summary
}
