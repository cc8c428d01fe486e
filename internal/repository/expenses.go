package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// ExpenseRepository reads and writes recorded expenses.
type ExpenseRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewExpenseRepository creates an expense repository.
func NewExpenseRepository(db *sql.DB, log zerolog.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:  db,
		log: log.With().Str("repository", "expenses").Logger(),
	}
}

// GetExpenses returns the user's expenses in [from, to], oldest first.
func (r *ExpenseRepository) GetExpenses(ctx context.Context, userID string, from, to time.Time) ([]domain.ExpenseSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT amount, category, spent_at
		FROM expenses
		WHERE user_id = ? AND spent_at >= ? AND spent_at <= ?
		ORDER BY spent_at ASC
	`, userID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	samples := make([]domain.ExpenseSample, 0)
	for rows.Next() {
		var sample domain.ExpenseSample
		var spentAt int64
		if err := rows.Scan(&sample.Amount, &sample.Category, &spentAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		sample.Date = time.Unix(spentAt, 0).UTC()
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// Add records a new expense.
func (r *ExpenseRepository) Add(ctx context.Context, id, userID, itineraryID string, sample domain.ExpenseSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, itinerary_id, category, amount, spent_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, userID, itineraryID, sample.Category, sample.Amount, sample.Date.Unix())
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}
