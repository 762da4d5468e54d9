package events

import (
	"sync"

	"github.com/soundscout/soundscout/api"
)

// Bus handles playback event distribution using channels
type Bus struct {
	subscribers map[api.EventType][]chan api.Event
	mu          sync.RWMutex
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[api.EventType][]chan api.Event),
	}
}

// Subscribe returns a channel for receiving events of the specified type
func (b *Bus) Subscribe(eventType api.EventType) <-chan api.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Event, 10)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a channel for receiving all event types
func (b *Bus) SubscribeAll() <-chan api.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Event, 20)
	for _, eventType := range []api.EventType{
		api.EventClipStarted,
		api.EventClipEnded,
		api.EventPositionUpdate,
		api.EventStateChange,
		api.EventError,
	} {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	return ch
}

// Publish broadcasts an event to all subscribers of that event type
func (b *Bus) Publish(event api.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if subs, ok := b.subscribers[event.Type]; ok {
		for _, ch := range subs {
			select {
			case ch <- event:
			default:
				// Channel full, skip to prevent blocking
			}
		}
	}
}

// Unsubscribe removes a subscriber channel
func (b *Bus) Unsubscribe(ch <-chan api.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Close closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Track closed channels to avoid closing the same channel twice
	closed := make(map[chan api.Event]bool)

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}
	b.subscribers = make(map[api.EventType][]chan api.Event)
}
