package di

import (
	"context"

	"github.com/leosinemaxx/jatour-engine/internal/modules/orchestrator"
	"github.com/leosinemaxx/jatour-engine/internal/repository"
)

// BudgetReaderAdapter adapts repository.BudgetRepository to the
// orchestrator's BudgetReader interface.
type BudgetReaderAdapter struct {
	repo *repository.BudgetRepository
}

// NewBudgetReaderAdapter creates a new adapter for the orchestrator.
func NewBudgetReaderAdapter(repo *repository.BudgetRepository) *BudgetReaderAdapter {
	return &BudgetReaderAdapter{repo: repo}
}

// GetBudget resolves the stored budget into an orchestration snapshot.
func (a *BudgetReaderAdapter) GetBudget(ctx context.Context, userID, itineraryID string) (*orchestrator.BudgetSnapshot, error) {
	record, err := a.repo.GetBudget(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	return &orchestrator.BudgetSnapshot{
		Name:        record.Name,
		Constraints: record.Constraints,
	}, nil
}
