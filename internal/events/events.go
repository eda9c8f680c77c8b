// Package events publishes booking domain events to external subscribers.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"sync"
	"time"
)

// Type is the routing key of an event.
type Type string

// Published event types.
const (
	ReservationCreated   Type = "reservation.created"
	ReservationUpdated   Type = "reservation.updated"
	ReservationCancelled Type = "reservation.cancelled"
	ReservationDeleted   Type = "reservation.deleted"
	SlotBlocked          Type = "slot.blocked"
	SlotUnblocked        Type = "slot.unblocked"
	SlotsGenerated       Type = "slot.generated"
	SlotsPurged          Type = "slot.purged"
	ClinicCreated        Type = "clinic.created"
	ClinicUpdated        Type = "clinic.updated"
	ClinicDeleted        Type = "clinic.deleted"
	SocialCreated        Type = "social.created"
	SocialCancelled      Type = "social.cancelled"
	SessionBooked        Type = "session.booked"
	SessionCancelled     Type = "session.cancelled"
	ConsistencyRepaired  Type = "consistency.repaired"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Type       Type      `json:"type"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder constructs an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the published event types in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	out := make([]Type, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}
