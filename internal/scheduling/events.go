package scheduling

import (
	"context"
	"time"

	"telehealth-server/internal/models"
)

// EventType names a domain event; the values double as realtime event names.
type EventType string

const (
	BookingCreated   EventType = "new-appointment"
	BookingCancelled EventType = "appointment-cancelled"
)

// Event is emitted after a booking or cancellation has been committed.
type Event struct {
	Type        EventType          `json:"type"`
	Appointment models.Appointment `json:"appointment"`
	Patient     models.Party       `json:"patient"`
	Doctor      models.Party       `json:"doctor"`
	CancelledBy models.Role        `json:"cancelledBy,omitempty"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

// Recipient is the party that should hear about the event: the doctor for a
// new booking, and whoever did not cancel for a cancellation.
func (e Event) Recipient() models.Party {
	if e.Type == BookingCancelled && e.CancelledBy == models.RoleDoctor {
		return e.Patient
	}
	return e.Doctor
}

// DeliveryReport tells the guard which channels succeeded.
type DeliveryReport struct {
	EmailSent bool
	Pushed    bool
}

// EventPublisher relays domain events to the outside world. The guard never
// fails an operation because of a publisher error.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) (DeliveryReport, error)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) (DeliveryReport, error) {
	return DeliveryReport{}, nil
}
