// Package hub fans monitor notifications out to presentation subscribers.
// It is transport-agnostic: the IPC server registers one subscriber per
// connected UI, the monitor engine publishes.
package hub

import (
	"log/slog"
	"sync"

	"go.klb.dev/clipbook/internal/store"
)

// EventKind distinguishes the two notification shapes.
type EventKind int

const (
	// EventAdded carries exactly one new entry; the presentation layer
	// prepends it without reloading anything else.
	EventAdded EventKind = iota
	// EventRefresh signals that prior entries were superseded or removed;
	// the presentation layer must rebuild its entire list.
	EventRefresh
)

func (k EventKind) String() string {
	if k == EventAdded {
		return "added"
	}
	return "refresh"
}

// Event is one notification delivered to a subscriber.
type Event struct {
	Kind  EventKind
	Entry *store.Entry // set only for EventAdded
}

// Subscriber is anything that can receive events from the hub.
type Subscriber interface {
	ID() string
	// Send delivers an event. Must be non-blocking.
	Send(Event)
}

// Hub routes monitor notifications to all registered subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Register adds a subscriber.
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber registered", "subscriber", s.ID(), "total", total)
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber unregistered", "subscriber", s.ID(), "total", total)
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// EntryAdded publishes an incremental-add notification.
func (h *Hub) EntryAdded(e store.Entry) {
	h.publish(Event{Kind: EventAdded, Entry: &e})
}

// FullRefresh publishes a rebuild-everything notification.
func (h *Hub) FullRefresh() {
	h.publish(Event{Kind: EventRefresh})
}

func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Send(ev)
	}
}
