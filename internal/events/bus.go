// Package events provides the structured event bus for the section twin:
// every component reports through Emit, recent events are kept in a ring
// buffer, subscribers receive a live feed, and events are optionally
// persisted to Postgres.
//
// The bus is an explicit object constructed once and passed by handle; there
// is no package-level singleton.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Event is a single structured event.
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Appender persists events. Implemented by the Postgres client; nil means
// no persistence.
type Appender interface {
	Append(ts time.Time, level, name, msg string, fields map[string]interface{}, runID string) error
}

// Subscriber is a channel that receives a live event feed.
type Subscriber chan Event

// Bus fans events out to the ring buffer, subscribers, and the optional store.
type Bus struct {
	buffer *RingBuffer

	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	store       Appender
	storeFailed bool
}

// NewBus creates a bus keeping the last bufferSize events in memory.
func NewBus(bufferSize int) *Bus {
	return &Bus{
		buffer:      NewRingBuffer(bufferSize),
		subscribers: make(map[Subscriber]struct{}),
	}
}

// SetStore attaches an event store. Append failures are reported once as a
// system.error event rather than on every emit.
func (b *Bus) SetStore(store Appender) {
	b.mu.Lock()
	b.store = store
	b.storeFailed = false
	b.mu.Unlock()
}

// Emit validates, buffers, broadcasts, and persists an event. It returns the
// JSON encoding of the event, or an error for unregistered event names.
func (b *Bus) Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	b.buffer.Add(e)
	b.broadcast(e)

	b.mu.RLock()
	store := b.store
	failed := b.storeFailed
	b.mu.RUnlock()

	if store != nil {
		if err := store.Append(ts, level, name, msg, fields, runID(fields)); err != nil && !failed {
			b.mu.Lock()
			first := !b.storeFailed
			b.storeFailed = true
			b.mu.Unlock()
			if first {
				// Direct buffer add: going through Emit again would recurse
				// if the store keeps failing.
				errEvent := Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   "event store append failed",
					Fields:    map[string]interface{}{"error": err.Error()},
				}
				b.buffer.Add(errEvent)
				b.broadcast(errEvent)
			}
		}
	}

	out, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return out, nil
}

// runID extracts the analysis run identifier emitters place in the event
// fields, so persisted rows stay queryable by run.
func runID(fields map[string]interface{}) string {
	if fields == nil {
		return ""
	}
	if id, ok := fields["run_id"].(string); ok {
		return id
	}
	return ""
}

// Subscribe adds a subscriber and returns its channel. The channel is
// buffered so a slow consumer never blocks Emit.
func (b *Bus) Subscribe() Subscriber {
	ch := make(Subscriber, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
	close(sub)
}

// broadcast delivers an event to all subscribers, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) broadcast(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- e:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Snapshot returns all buffered events, oldest first.
func (b *Bus) Snapshot() []Event { return b.buffer.Snapshot() }

// Recent returns the last n buffered events; all of them when n is zero or
// exceeds the buffer contents.
func (b *Bus) Recent(n int) []Event {
	all := b.buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Clear resets the ring buffer. Used by tests.
func (b *Bus) Clear() { b.buffer.Clear() }
