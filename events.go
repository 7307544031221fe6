package acorn

import (
	"context"
	"reflect"
	"sync"
	"time"
)

const defaultEventBuffer = 64

// EventType identifies what happened to a registry entry.
type EventType string

const (
	// EventRegistered is published once per register call, for the
	// concrete type.
	EventRegistered EventType = "registered"

	// EventInitialized is published when a lazily registered value is
	// constructed.
	EventInitialized EventType = "initialized"

	// EventRemoved is published for every key removed from the table,
	// including cascaded alias keys.
	EventRemoved EventType = "removed"
)

// Event describes a change to the registry.
type Event struct {
	Type      EventType
	Service   reflect.Type
	Value     any // nil for entries that were never constructed
	Timestamp time.Time
}

// broker fans events out to subscribers without ever blocking the
// publisher: a subscriber whose buffer is full misses the event.
type broker struct {
	mu         sync.RWMutex
	subs       map[chan Event]struct{}
	done       chan struct{}
	bufferSize int
}

func newBroker(size int) *broker {
	if size <= 0 {
		size = defaultEventBuffer
	}
	return &broker{
		subs:       make(map[chan Event]struct{}),
		done:       make(chan struct{}),
		bufferSize: size,
	}
}

// subscribe returns a channel that is closed when ctx ends or the broker is
// closed.
func (b *broker) subscribe(ctx context.Context) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event)
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event, b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		select {
		case <-b.done:
			return
		default:
		}

		delete(b.subs, sub)
		close(sub)
	}()

	return sub
}

func (b *broker) publish(typ EventType, service reflect.Type, value any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	if len(b.subs) == 0 {
		return
	}

	ev := Event{Type: typ, Service: service, Value: value, Timestamp: time.Now()}
	for sub := range b.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

func (b *broker) subscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
	}

	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}
