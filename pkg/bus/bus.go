package bus

import (
	"sync"
	"time"
)

// EventType identifies which payload field of an Event is set.
type EventType string

const (
	EventStatusChanged   EventType = "status-changed"
	EventQRUpdated       EventType = "qr-updated"
	EventMessageReceived EventType = "message-received"
)

// Event is one observation surfaced to the UI layer.
type Event struct {
	Type    EventType        `json:"type"`
	Status  *SessionStatus   `json:"status,omitempty"`
	QR      *QRUpdate        `json:"qr,omitempty"`
	Message *ReceivedMessage `json:"message,omitempty"`
	Time    time.Time        `json:"time"`
}

// EventBus fans events out to subscribed observers. Emission never blocks:
// observers that fall behind miss events rather than stalling the pollers.
type EventBus struct {
	observers []chan Event
	mu        sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		observers: make([]chan Event, 0),
	}
}

// Subscribe returns a channel that receives copies of all events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 50)
	b.mu.Lock()
	b.observers = append(b.observers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes an observer channel and closes it.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, obs := range b.observers {
		if obs == ch {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *EventBus) publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, obs := range b.observers {
		select {
		case obs <- event:
		default:
			// Non-blocking: skip slow observers
		}
	}
}

// PublishStatus emits a status-changed event.
func (b *EventBus) PublishStatus(status SessionStatus) {
	b.publish(Event{
		Type:   EventStatusChanged,
		Status: &status,
		Time:   time.Now(),
	})
}

// PublishQR emits a qr-updated event.
func (b *EventBus) PublishQR(qr QRUpdate) {
	b.publish(Event{
		Type: EventQRUpdated,
		QR:   &qr,
		Time: time.Now(),
	})
}

// PublishMessage emits a message-received event.
func (b *EventBus) PublishMessage(msg ReceivedMessage) {
	b.publish(Event{
		Type:    EventMessageReceived,
		Message: &msg,
		Time:    time.Now(),
	})
}
