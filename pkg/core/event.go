package core

import (
	"context"
	"fmt"
	"sync"
)

// EventType represents the type of change in the library.
type EventType string

const (
	EventCreate   EventType = "CREATE"
	EventModify   EventType = "MODIFY"
	EventDelete   EventType = "DELETE"
	EventMerge    EventType = "MERGE"
	EventReplace  EventType = "REPLACE"
	EventExternal EventType = "EXTERNAL"
)

// Event represents a change in the library. ID is a prompt ID for prompt
// and note changes, or a storage key for external changes.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	if e.ID == "" {
		return string(e.Type)
	}
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}

// Publisher accepts events.
type Publisher interface {
	Publish(e Event)
}

// DefaultEventBuffer is the per-subscriber channel size.
const DefaultEventBuffer = 100

// Broker fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

// NewBroker creates a broker. A non-positive buffer means DefaultEventBuffer.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Broker{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe returns a channel of events that is closed when ctx is done or
// the broker is closed.
func (b *Broker) Subscribe(ctx context.Context) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()
	return ch
}

func (b *Broker) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers e to every subscriber with room in its buffer.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes every subscriber channel. Later subscriptions are closed immediately.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
