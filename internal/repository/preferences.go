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

// PreferenceRepository stores user deal preferences as JSON blobs.
// Preferences change shape often; columns would churn with every product
// iteration.
type PreferenceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPreferenceRepository creates a preference repository.
func NewPreferenceRepository(db *sql.DB, log zerolog.Logger) *PreferenceRepository {
	return &PreferenceRepository{
		db:  db,
		log: log.With().Str("repository", "preferences").Logger(),
	}
}

// GetUserPreferences returns the stored preferences, or zero-value defaults
// when the user has never saved any. A missing row is not an error.
func (r *PreferenceRepository) GetUserPreferences(ctx context.Context, userID string) (domain.UserPreferences, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM user_preferences WHERE user_id = ?", userID).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.UserPreferences{}, nil
	}
	if err != nil {
		return domain.UserPreferences{}, fmt.Errorf("query preferences: %w", err)
	}

	var prefs domain.UserPreferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return domain.UserPreferences{}, fmt.Errorf("decode preferences for %s: %w", userID, err)
	}
	return prefs, nil
}

// Save upserts the user's preferences.
func (r *PreferenceRepository) Save(ctx context.Context, userID string, prefs domain.UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, userID, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
