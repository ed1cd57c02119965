package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/beanbrew/queueboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted  EventType = "session.started"
	EventSessionEnded    EventType = "session.ended"
	EventSnapshotApplied EventType = "snapshot.applied"
	EventOrderPlaced     EventType = "order.placed"
	EventOrderPickedUp   EventType = "order.picked_up"
)

// Event is published on the in-process dispatcher.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// SessionPayload accompanies session.started and session.ended.
type SessionPayload struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role,omitempty"`
	// Restored is set when the session came from durable storage.
	Restored bool `json:"restored,omitempty"`
}

// SnapshotAppliedPayload summarises the board after a successful poll.
type SnapshotAppliedPayload struct {
	Seq       uint64    `json:"seq"`
	FetchedAt time.Time `json:"fetched_at"`
	Total     int       `json:"total"`
	Waiting   int       `json:"waiting"`
	Preparing int       `json:"preparing"`
	Ready     int       `json:"ready"`
}

// OrderPayload accompanies order.placed and order.picked_up.
type OrderPayload struct {
	OrderID      int64              `json:"order_id"`
	CustomerName string             `json:"customer_name,omitempty"`
	DrinkID      int64              `json:"drink_id,omitempty"`
	Status       domain.OrderStatus `json:"status,omitempty"`
}
