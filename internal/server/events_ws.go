package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/leosinemaxx/jatour-engine/internal/events"
)

// allEventTypes are the types streamed when no filter is given.
var allEventTypes = []events.EventType{
	events.OrchestrationCompleted,
	events.AlertFired,
	events.ExpenseRecorded,
	events.BurnRateUpdated,
	events.DealsMatched,
	events.BudgetChanged,
	events.BackupCompleted,
	events.ErrorOccurred,
}

// wsEvent is the wire shape of one streamed event.
type wsEvent struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventsHandler streams bus events to websocket clients. Clients can narrow
// the stream with a comma-separated ?types= query parameter.
type EventsHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsHandler creates a websocket event stream handler.
func NewEventsHandler(bus *events.Bus, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	eventTypes := h.requestedTypes(r)

	h.log.Info().
		Int("types", len(eventTypes)).
		Str("remote", r.RemoteAddr).
		Msg("Client connected to event stream")

	// Buffered so a slow client drops events instead of blocking the bus.
	eventChan := make(chan *events.Event, 100)
	forward := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	unsubscribes := make([]func(), 0, len(eventTypes))
	for _, eventType := range eventTypes {
		unsubscribes = append(unsubscribes, h.bus.Subscribe(eventType, forward))
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	ctx := r.Context()

	if err := wsjson.Write(ctx, conn, wsEvent{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	// Drain reads so close frames and pings are processed.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-readDone:
			h.log.Info().Msg("Client closed event stream")
			return

		case event := <-eventChan:
			payload := wsEvent{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Data:      event.Data,
			}
			if err := wsjson.Write(ctx, conn, payload); err != nil {
				h.log.Debug().Err(err).Msg("Event write failed, dropping client")
				return
			}

		case <-heartbeat.C:
			if err := wsjson.Write(ctx, conn, wsEvent{
				Type:      "heartbeat",
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}

// requestedTypes parses the ?types= filter, defaulting to every known type.
func (h *EventsHandler) requestedTypes(r *http.Request) []events.EventType {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return allEventTypes
	}

	var eventTypes []events.EventType
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			eventTypes = append(eventTypes, events.EventType(t))
		}
	}
	if len(eventTypes) == 0 {
		return allEventTypes
	}
	return eventTypes
}
