// Package events is the in-process publish/subscribe layer. It knows nothing
// about appointments; payload types live in internal/events.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is anything published on a Bus. EventName is the routing key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
	ID() uuid.UUID
}

// BaseEvent is embedded by payload types to satisfy OccurredAt and ID.
type BaseEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func (e BaseEvent) ID() uuid.UUID { return e.EventID }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{EventID: uuid.New(), Timestamp: time.Now().UTC()}
}
