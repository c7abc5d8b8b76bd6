// Package notify delivers booking events to the people they concern: an
// email through the configured sender and a realtime push to the
// recipient's room.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"telehealth-server/internal/metrics"
	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
)

// Relay implements scheduling.EventPublisher.
type Relay struct {
	email   EmailSender
	pusher  Pusher
	logger  *zap.Logger
	metrics *metrics.Scheduling
}

func NewRelay(email EmailSender, pusher Pusher, m *metrics.Scheduling, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{email: email, pusher: pusher, logger: logger, metrics: m}
}

// Publish pushes the event to the recipient's room and emails the
// recipient. New bookings notify the doctor in realtime and email the
// patient; cancellations notify only the party that did not cancel.
func (r *Relay) Publish(ctx context.Context, event scheduling.Event) (scheduling.DeliveryReport, error) {
	var (
		report scheduling.DeliveryReport
		errs   []error
	)

	if r.pusher != nil {
		if err := r.push(ctx, event); err != nil {
			r.logger.Warn("realtime push failed", zap.String("event", string(event.Type)), zap.Error(err))
		} else {
			report.Pushed = true
		}
		r.metrics.ObserveNotification("push", report.Pushed)
	}

	if r.email != nil {
		msg, ok := r.emailFor(event)
		if ok {
			if err := r.email.Send(ctx, msg); err != nil {
				errs = append(errs, err)
			} else {
				report.EmailSent = true
			}
			r.metrics.ObserveNotification("email", report.EmailSent)
		}
	}

	return report, errors.Join(errs...)
}

func (r *Relay) push(ctx context.Context, event scheduling.Event) error {
	recipient := event.Recipient()
	room := PatientRoom(recipient.ID)
	if recipient.Role == models.RoleDoctor {
		room = DoctorRoom(recipient.ID)
	}

	data, err := json.Marshal(pushPayload(event))
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.Type, err)
	}
	return r.pusher.Push(ctx, Message{
		Event:     string(event.Type),
		Room:      room,
		Timestamp: event.OccurredAt,
		Data:      data,
	})
}

func (r *Relay) emailFor(event scheduling.Event) (EmailMessage, bool) {
	var msg EmailMessage
	switch event.Type {
	case scheduling.BookingCreated:
		msg = bookingConfirmation(event)
	case scheduling.BookingCancelled:
		msg = cancellationNotice(event)
	default:
		return EmailMessage{}, false
	}
	return msg, msg.To != ""
}

type appointmentPush struct {
	AppointmentID string      `json:"appointmentId"`
	Date          string      `json:"date"`
	TimeSlot      string      `json:"timeSlot"`
	Reason        string      `json:"reason,omitempty"`
	Patient       string      `json:"patientName,omitempty"`
	Doctor        string      `json:"doctorName,omitempty"`
	CancelledBy   models.Role `json:"cancelledBy,omitempty"`
}

func pushPayload(e scheduling.Event) appointmentPush {
	return appointmentPush{
		AppointmentID: e.Appointment.ID,
		Date:          e.Appointment.Date.Format(models.DateLayout),
		TimeSlot:      e.Appointment.TimeSlot,
		Reason:        e.Appointment.Reason,
		Patient:       e.Patient.DisplayName,
		Doctor:        e.Doctor.DisplayName,
		CancelledBy:   e.CancelledBy,
	}
}
