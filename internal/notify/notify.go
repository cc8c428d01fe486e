// Package notify delivers fired alerts to users.
package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/events"
)

// LogNotifier writes notifications to the application log. Used as the
// default delivery channel and in development.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		log: log.With().Str("notifier", "log").Logger(),
	}
}

// Send logs the notification.
func (n *LogNotifier) Send(userID, title, message string, severity domain.Severity) error {
	n.log.Info().
		Str("user_id", userID).
		Str("severity", string(severity)).
		Str("title", title).
		Str("message", message).
		Msg("Notification")
	return nil
}

// EventNotifier publishes notifications on the event bus so connected
// websocket clients receive them in real time.
type EventNotifier struct {
	bus *events.Bus
}

// NewEventNotifier creates a bus-backed notifier.
func NewEventNotifier(bus *events.Bus) *EventNotifier {
	return &EventNotifier{bus: bus}
}

// Send publishes an AlertFired event.
func (n *EventNotifier) Send(userID, title, message string, severity domain.Severity) error {
	events.EmitTyped(n.bus, "notify", &events.AlertFiredData{
		UserID:   userID,
		Severity: string(severity),
		Title:    title,
		Message:  message,
	})
	return nil
}

// Multi fans a notification out to several channels. Delivery is
// best-effort per channel; the first error is returned after all channels
// have been attempted.
type Multi struct {
	notifiers []Notifier
}

// Notifier is one delivery channel.
type Notifier interface {
	Send(userID, title, message string, severity domain.Severity) error
}

// NewMulti creates a fan-out notifier.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Send delivers to every channel.
func (m *Multi) Send(userID, title, message string, severity domain.Severity) error {
	var firstErr error
	for i, n := range m.notifiers {
		if err := n.Send(userID, title, message, severity); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notifier %d: %w", i, err)
		}
	}
	return firstErr
}
