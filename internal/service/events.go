package service

import (
	"slices"
	"sync"

	"scopekit/internal/domain"
)

// EventType names a snapshot lifecycle event
type EventType string

const (
	EventSnapshotSaved     EventType = "snapshot_saved"
	EventSnapshotUnchanged EventType = "snapshot_unchanged"
	EventSnapshotDeleted   EventType = "snapshot_deleted"
)

// Event reports a change to one stored snapshot. Snapshot carries only the
// key for deletions.
type Event struct {
	Type     EventType           `json:"type"`
	Snapshot domain.SnapshotInfo `json:"snapshot"`
}

// EventBus fans events out to subscriber channels without blocking the
// publisher. Events a full channel cannot take are dropped and counted.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	dropped     uint64
}

// NewEventBus creates an event bus with no subscribers
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers ch for every later event
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe stops delivery to ch. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = slices.DeleteFunc(eb.subscribers, func(c chan<- Event) bool {
		return c == ch
	})
}

// Publish offers event to each subscriber
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	var missed uint64
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			missed++
		}
	}
	eb.mu.RUnlock()

	if missed > 0 {
		eb.mu.Lock()
		eb.dropped += missed
		eb.mu.Unlock()
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was full
func (eb *EventBus) Dropped() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.dropped
}
