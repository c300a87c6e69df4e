// Package notify delivers human-readable alerts to chat channels.
// Delivery is best-effort: failures are logged and never returned.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/domain"
)

// Sender is implemented by each notification channel
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier renders alerts and dispatches them to every sender.
// An empty event filter allows all events.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	timeout time.Duration
	log     zerolog.Logger
}

// NewNotifier creates a Notifier for the given senders
func NewNotifier(senders []Sender, events []string, log zerolog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		timeout: 15 * time.Second,
		log:     log.With().Str("component", "notifier").Logger(),
	}
}

// Notify implements domain.AlertSink
func (n *Notifier) Notify(ctx context.Context, event, title string, fields ...domain.AlertField) {
	if len(n.events) > 0 && !n.events[event] {
		n.log.Debug().Str("event", event).Msg("Alert filtered out")
		return
	}

	message := Render(fields)
	n.log.Info().Str("event", event).Str("title", title).Msg("Alert")

	if len(n.senders) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.log.Warn().Err(err).Str("sender", s.Name()).Str("event", event).Msg("Alert delivery failed")
		}
	}
}

// Render formats fields as "Key: Value" lines
func Render(fields []domain.AlertField) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		if f.Key == "" {
			b.WriteString(f.Value)
			continue
		}
		fmt.Fprintf(&b, "%s: %s", f.Key, f.Value)
	}
	return b.String()
}
