// Package bus provides topic-based publish/subscribe for gointake.
// Each Bus is owned by one session; handlers run synchronously, in
// subscription order, on the publisher's goroutine.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/roelfdiedericks/gointake/internal/logging"
)

// Event represents a notification broadcast to subscribers (pub/sub pattern)
type Event struct {
	Topic     string    // Event topic: "state.value", "state.autosave", etc.
	Data      any       // Optional payload data
	Timestamp time.Time // When the event was published
}

// EventHandler processes an event (no return value - fire and forget)
type EventHandler func(Event)

// SubscriptionID uniquely identifies an event subscription
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// Bus dispatches events to topic subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for a topic.
// Returns a SubscriptionID that can be used to unsubscribe.
func (b *Bus) Subscribe(topic string, handler EventHandler) SubscriptionID {
	id := SubscriptionID(atomic.AddUint64(&b.nextID, 1))

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	L_trace("bus: subscribed", "topic", topic, "subscriptionID", id)
	return id
}

// Unsubscribe removes a subscription by its ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subs {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			L_trace("bus: unsubscribed", "topic", topic, "subscriptionID", id)
			return true
		}
	}
	return false
}

// Publish delivers an event to every subscriber of the topic before returning.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(topic string, data any) {
	event := Event{
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(s, event)
	}
}

func deliver(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			L_error("bus: event handler panic", "topic", event.Topic, "subscriptionID", s.id, "panic", r)
		}
	}()
	s.handler(event)
}

// Count returns the number of subscribers for a topic
func (b *Bus) Count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
