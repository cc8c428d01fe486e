package domain

import "time"

// NotificationRecord is the delivery audit trail entry written alongside a
// dispatched notification. Persistence is best-effort; a failed write never
// blocks alert creation.
type NotificationRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}
