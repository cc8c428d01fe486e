package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// AlertRepository persists alert instances and notification records.
// Implements the alert engine's InstanceSink.
type AlertRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAlertRepository creates an alert repository.
func NewAlertRepository(db *sql.DB, log zerolog.Logger) *AlertRepository {
	return &AlertRepository{
		db:  db,
		log: log.With().Str("repository", "alerts").Logger(),
	}
}

// SaveAlertInstance inserts a fired alert instance.
func (r *AlertRepository) SaveAlertInstance(instance domain.AlertInstance) error {
	_, err := r.db.Exec(`
		INSERT INTO alert_instances (id, user_id, rule_id, scope_id, severity,
		                             title, message, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, instance.ID, instance.UserID, instance.RuleID, instance.ScopeID,
		string(instance.Severity), instance.Title, instance.Message,
		boolToInt(instance.Resolved), instance.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert alert instance: %w", err)
	}
	return nil
}

// SaveNotificationRecord inserts a delivery audit record.
func (r *AlertRepository) SaveNotificationRecord(record domain.NotificationRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO notification_records (id, user_id, title, message, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.UserID, record.Title, record.Message,
		string(record.Severity), record.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}

// ListInstances returns the user's most recent alert instances.
func (r *AlertRepository) ListInstances(ctx context.Context, userID string, limit int) ([]domain.AlertInstance, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, rule_id, scope_id, severity, title, message, resolved, created_at
		FROM alert_instances
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert instances: %w", err)
	}
	defer rows.Close()

	instances := make([]domain.AlertInstance, 0)
	for rows.Next() {
		var instance domain.AlertInstance
		var severity string
		var resolved int
		var createdAt int64
		if err := rows.Scan(&instance.ID, &instance.UserID, &instance.RuleID,
			&instance.ScopeID, &severity, &instance.Title, &instance.Message,
			&resolved, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert instance: %w", err)
		}
		instance.Severity = domain.Severity(severity)
		instance.Resolved = resolved != 0
		instance.CreatedAt = time.Unix(createdAt, 0).UTC()
		instances = append(instances, instance)
	}
	return instances, rows.Err()
}

// ResolveInstance marks an alert instance as resolved.
func (r *AlertRepository) ResolveInstance(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE alert_instances SET resolved = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("resolve alert instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("alert instance %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
