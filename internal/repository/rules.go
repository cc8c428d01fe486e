package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// RuleRepository stores per-user alert rules as JSON blobs keyed by rule ID.
type RuleRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRuleRepository creates a rule repository.
func NewRuleRepository(db *sql.DB, log zerolog.Logger) *RuleRepository {
	return &RuleRepository{
		db:  db,
		log: log.With().Str("repository", "rules").Logger(),
	}
}

// GetRules returns the user's alert rules in rule-ID order. An empty result
// means the user has never customized rules; callers fall back to defaults.
func (r *RuleRepository) GetRules(ctx context.Context, userID string) ([]domain.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT data FROM alert_rules WHERE user_id = ? ORDER BY rule_id", userID)
	if err != nil {
		return nil, fmt.Errorf("query alert rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.AlertRule, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		var rule domain.AlertRule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			// One corrupt rule must not take down the whole set.
			r.log.Warn().Err(err).Str("user_id", userID).Msg("Skipping undecodable alert rule")
			continue
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveRules upserts the given rules for a user.
func (r *RuleRepository) SaveRules(ctx context.Context, userID string, rules []domain.AlertRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rule save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, rule := range rules {
		data, err := json.Marshal(rule)
		if err != nil {
			return fmt.Errorf("encode rule %s: %w", rule.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alert_rules (user_id, rule_id, data, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, rule_id) DO UPDATE SET
				data = excluded.data,
				updated_at = excluded.updated_at
		`, userID, rule.ID, string(data), now); err != nil {
			return fmt.Errorf("upsert rule %s: %w", rule.ID, err)
		}
	}

	return tx.Commit()
}
