// Package events provides an in-memory event bus for turn lifecycle
// transitions. Every state change in a turn (topic classified, field
// resolved from fallback, handler dispatched, commit or abort) is emitted
// here so failures are diagnosable without ad hoc prints.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one emitted transition.
type Event struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	Source         EventSource    `json:"source"`
	Payload        map[string]any `json:"payload,omitempty"`
}

var eventIDCounter uint64

// New creates an event bound to a conversation.
func New(t EventType, source EventSource, conversationID string, payload map[string]any) Event {
	seq := atomic.AddUint64(&eventIDCounter, 1)
	return Event{
		ID:             fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq),
		ConversationID: conversationID,
		Type:           t,
		Timestamp:      time.Now(),
		Source:         source,
		Payload:        payload,
	}
}

// Subscriber receives events.
type Subscriber func(Event)

type subscription struct {
	eventTypes []EventType
	handler    Subscriber
}

// Bus fans events out to subscribers and keeps a bounded history.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	history     *ring
}

// NewBus creates a bus keeping the last size events.
func NewBus(size int) *Bus {
	return &Bus{
		subscribers: make(map[int]*subscription),
		history:     newRing(size),
	}
}

// Publish records the event and notifies matching subscribers. Delivery
// is synchronous and in emission order, so a subscriber observes the turn
// transitions in the order they happened.
func (b *Bus) Publish(e Event) {
	b.history.add(e)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.matches(e) {
			sub.handler(e)
		}
	}
}

func (s *subscription) matches(e Event) bool {
	if len(s.eventTypes) == 0 {
		return true
	}
	for _, t := range s.eventTypes {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Subscribe registers a handler for the given event types (all types when
// none are given). Returns an unsubscribe function.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subscribers[id] = &subscription{eventTypes: eventTypes, handler: handler}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// History returns up to limit most recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.history.get(limit)
}

// ring is a fixed-size circular buffer of events.
type ring struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 1
	}
	return &ring{events: make([]Event, size), size: size}
}

func (r *ring) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = e
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *ring) get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]Event, n)
	start := (r.pos - n + r.size) % r.size
	for i := 0; i < n; i++ {
		out[i] = r.events[(start+i)%r.size]
	}
	return out
}
