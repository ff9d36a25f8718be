// Package eventbus is C7: it publishes RecognitionEvents fire-and-forget
// to in-process subscribers and an optional NATS bridge, persists batched
// history to Redis, and drives the dashboard WebSocket rooms (including
// alert lifecycle broadcasts) with a bounded replay buffer.
package eventbus

import (
	"sync"

	"github.com/faceguard/core/internal/domain"
)

// Subscriber receives every RecognitionEvent published on the bus.
type Subscriber func(event domain.RecognitionEvent)

// Bus is the process-wide in-memory subscriber registry spec.md §4.8
// describes. Publishing never blocks on a slow subscriber — each
// subscriber is invoked in its own goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber

	nats    *NATSPublisher
	history *History
	rooms   *RoomRegistry
}

func NewBus(nats *NATSPublisher, history *History, rooms *RoomRegistry) *Bus {
	return &Bus{nats: nats, history: history, rooms: rooms}
}

// Subscribe registers a new in-process subscriber and returns the current
// subscriber count, useful for diagnostics.
func (b *Bus) Subscribe(sub Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
	return len(b.subscribers)
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish fans event out to every in-process subscriber, the NATS bridge
// (if configured), and the per-channel history store (if enabled). Zero
// subscribers is not an error; Publish neither returns nor logs the
// subscriber count (SubscriberCount reads it separately).
func (b *Bus) Publish(channel string, event domain.RecognitionEvent) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, sub := range subs {
		go sub(event)
	}

	if b.nats != nil {
		go b.nats.Publish(event)
	}
	if b.history != nil {
		b.history.Append(channel, event)
	}
}

// PublishAlert broadcasts an alert lifecycle event (triggered, acked,
// resolved, escalated) to a WebSocket room, per spec.md §4.8's "the
// WebSocket broadcast surface shares this bus" note.
func (b *Bus) PublishAlert(room string, eventType string, alert domain.AlertInstance) {
	if b.rooms == nil {
		return
	}
	b.rooms.Broadcast(room, alertMessage{
		Type:     eventType,
		AlertID:  alert.ID,
		Priority: string(alert.Priority),
		Status:   string(alert.Status),
	})
}

// Broadcast satisfies internal/delivery.RoomBroadcaster for the WebSocket
// channel adapter.
func (b *Bus) Broadcast(room string, msg any) int {
	if b.rooms == nil {
		return 0
	}
	return b.rooms.Broadcast(room, msg)
}

type alertMessage struct {
	Type     string `json:"type"`
	AlertID  string `json:"alert_id"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}
