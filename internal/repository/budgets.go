// Package repository implements the persistence collaborators on SQLite:
// budgets, expenses, user preferences, alert rules and the alerting audit
// trail.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// BudgetRecord is one stored trip budget.
type BudgetRecord struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"user_id"`
	ItineraryID string                   `json:"itinerary_id"`
	Name        string                   `json:"name"`
	Constraints domain.BudgetConstraints `json:"constraints"`
}

// BudgetRepository reads and writes trip budgets.
type BudgetRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBudgetRepository creates a budget repository.
func NewBudgetRepository(db *sql.DB, log zerolog.Logger) *BudgetRepository {
	return &BudgetRepository{
		db:  db,
		log: log.With().Str("repository", "budgets").Logger(),
	}
}

// GetBudget resolves the budget for a user's itinerary, including per-category
// amounts. Returns domain.ErrNotFound when no budget exists - never zeros.
func (r *BudgetRepository) GetBudget(ctx context.Context, userID, itineraryID string) (*BudgetRecord, error) {
	record := BudgetRecord{UserID: userID, ItineraryID: itineraryID}
	c := &record.Constraints

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, total_budget, spent, daily_budget, dining_budget_per_hour,
		       location, trip_duration_days, remaining_days
		FROM budgets
		WHERE user_id = ? AND itinerary_id = ?
	`, userID, itineraryID).Scan(
		&record.ID, &record.Name, &c.TotalBudget, &c.Spent, &c.DailyBudget,
		&c.DiningBudgetPerHour, &c.Location, &c.TripDurationDays, &c.RemainingDays,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("budget for %s/%s: %w", userID, itineraryID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query budget: %w", err)
	}
	c.BudgetID = record.ID

	c.PerCategoryBudgets = make(map[string]float64)
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, amount FROM budget_categories WHERE budget_id = ?", record.ID)
	if err != nil {
		return nil, fmt.Errorf("query budget categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var amount float64
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		c.PerCategoryBudgets[category] = amount
	}
	return &record, rows.Err()
}

// Save upserts a budget and its category amounts.
func (r *BudgetRepository) Save(ctx context.Context, record BudgetRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin budget save: %w", err)
	}
	defer tx.Rollback()

	c := record.Constraints
	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, itinerary_id, name, total_budget, spent,
		                     daily_budget, dining_budget_per_hour, location,
		                     trip_duration_days, remaining_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_budget = excluded.total_budget,
			spent = excluded.spent,
			daily_budget = excluded.daily_budget,
			dining_budget_per_hour = excluded.dining_budget_per_hour,
			location = excluded.location,
			trip_duration_days = excluded.trip_duration_days,
			remaining_days = excluded.remaining_days
	`, record.ID, record.UserID, record.ItineraryID, record.Name, c.TotalBudget,
		c.Spent, c.DailyBudget, c.DiningBudgetPerHour, c.Location,
		c.TripDurationDays, c.RemainingDays)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM budget_categories WHERE budget_id = ?", record.ID); err != nil {
		return fmt.Errorf("clear budget categories: %w", err)
	}
	for category, amount := range c.PerCategoryBudgets {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO budget_categories (budget_id, category, amount) VALUES (?, ?, ?)",
			record.ID, category, amount); err != nil {
			return fmt.Errorf("insert budget category: %w", err)
		}
	}

	return tx.Commit()
}

// AddSpent increments the spent figure on a budget.
func (r *BudgetRepository) AddSpent(ctx context.Context, budgetID string, amount float64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE budgets SET spent = spent + ? WHERE id = ?", amount, budgetID)
	if err != nil {
		return fmt.Errorf("add spent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("budget %s: %w", budgetID, domain.ErrNotFound)
	}
	return nil
}
