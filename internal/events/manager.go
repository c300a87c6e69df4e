package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// subscriberBuffer is the per-subscriber queue length; slow subscribers drop events
const subscriberBuffer = 64

// Manager logs emitted events and fans them out to subscribers
type Manager struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	now         func() time.Time
	log         zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		subscribers: map[int]chan Event{},
		now:         time.Now,
		log:         log.With().Str("service", "events").Logger(),
	}
}

// Emit emits an event
func (m *Manager) Emit(module string, data EventData) {
	if m == nil || data == nil {
		return
	}

	event := Event{
		Type:      data.EventType(),
		Timestamp: m.now(),
		Module:    module,
		Data:      data,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			m.log.Debug().Int("subscriber", id).Msg("Subscriber queue full, event dropped")
		}
	}
}

// EmitError emits an ErrorOccurred event
func (m *Manager) EmitError(module string, err error) {
	if err == nil {
		return
	}
	m.Emit(module, &ErrorData{Module: module, Error: err.Error()})
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release it; it closes the channel.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan Event, subscriberBuffer)
	m.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// SubscriberCount returns the number of live subscribers
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}
