package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/papertrader/internal/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// EventsStreamHandler streams bus events to websocket clients as JSON.
// An optional ?types=A,B query restricts the stream to those event types.
type EventsStreamHandler struct {
	events *events.Manager
	log    zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventManager *events.Manager, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		events: eventManager,
		log:    log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	allowed := parseTypes(r.URL.Query().Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is handled by the router
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// Clients never send; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(r.Context())

	stream, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	h.log.Info().Int("subscribers", h.events.SubscriberCount()).Msg("Client connected to event stream")

	if err := h.write(ctx, conn, map[string]interface{}{
		"type":      "CONNECTED",
		"timestamp": time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-stream:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if allowed != nil && !allowed[ev.Type] {
				continue
			}
			if err := h.write(ctx, conn, ev); err != nil {
				h.log.Debug().Err(err).Msg("Event write failed")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

func parseTypes(raw string) map[events.EventType]bool {
	if raw == "" {
		return nil
	}
	allowed := make(map[events.EventType]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			allowed[events.EventType(strings.ToUpper(t))] = true
		}
	}
	return allowed
}
