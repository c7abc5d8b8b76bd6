package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-server/internal/metrics"
	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type recordingPusher struct {
	pushed []Message
}

func (p *recordingPusher) Push(_ context.Context, msg Message) error {
	p.pushed = append(p.pushed, msg)
	return nil
}

func sampleEvent(kind scheduling.EventType) scheduling.Event {
	a := models.Appointment{
		PatientID: "p1",
		DoctorID:  "d1",
		Date:      time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		TimeSlot:  "09:00-09:15",
		Status:    models.StatusScheduled,
		Reason:    "Persistent headaches",
	}
	a.ID = "a1"
	return scheduling.Event{
		Type:        kind,
		Appointment: a,
		Patient:     models.Party{ID: "p1", Role: models.RolePatient, DisplayName: "Ada Lovelace", Email: "ada@example.test"},
		Doctor:      models.Party{ID: "d1", Role: models.RoleDoctor, DisplayName: "Grace Hopper", Email: "grace@clinic.test"},
		OccurredAt:  time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC),
	}
}

func TestRelay_BookingPushesDoctorAndEmailsPatient(t *testing.T) {
	sender := &recordingSender{}
	pusher := &recordingPusher{}
	relay := NewRelay(sender, pusher, nil, nil)

	report, err := relay.Publish(context.Background(), sampleEvent(scheduling.BookingCreated))
	require.NoError(t, err)
	assert.Equal(t, scheduling.DeliveryReport{EmailSent: true, Pushed: true}, report)

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "doctor-d1", pusher.pushed[0].Room)
	assert.Equal(t, "new-appointment", pusher.pushed[0].Event)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(pusher.pushed[0].Data, &payload))
	assert.Equal(t, "a1", payload["appointmentId"])
	assert.Equal(t, "Ada Lovelace", payload["patientName"])

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.test", sender.sent[0].To)
	assert.Equal(t, "Appointment Confirmation", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Dr. Grace Hopper")
	assert.Contains(t, sender.sent[0].Body, "Monday, June 16, 2025")
	assert.Contains(t, sender.sent[0].Body, "09:00 - 09:15")
}

func TestRelay_CancellationNotifiesOtherParty(t *testing.T) {
	sender := &recordingSender{}
	pusher := &recordingPusher{}
	relay := NewRelay(sender, pusher, nil, nil)

	byPatient := sampleEvent(scheduling.BookingCancelled)
	byPatient.CancelledBy = models.RolePatient
	_, err := relay.Publish(context.Background(), byPatient)
	require.NoError(t, err)

	byDoctor := sampleEvent(scheduling.BookingCancelled)
	byDoctor.CancelledBy = models.RoleDoctor
	byDoctor.Appointment.Notes = "Cancelled by doctor: emergency"
	_, err = relay.Publish(context.Background(), byDoctor)
	require.NoError(t, err)

	require.Len(t, pusher.pushed, 2)
	assert.Equal(t, "doctor-d1", pusher.pushed[0].Room)
	assert.Equal(t, "patient-p1", pusher.pushed[1].Room)
	assert.Equal(t, "appointment-cancelled", pusher.pushed[1].Event)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "grace@clinic.test", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "your patient Ada Lovelace")
	assert.Equal(t, "ada@example.test", sender.sent[1].To)
	assert.Contains(t, sender.sent[1].Body, "Dr. Grace Hopper")
	assert.Contains(t, sender.sent[1].Body, "emergency")
}

func TestRelay_EmailFailureIsReported(t *testing.T) {
	reg := prometheus.NewRegistry()
	relay := NewRelay(&recordingSender{err: errors.New("smtp down")}, &recordingPusher{}, metrics.NewScheduling(reg), nil)

	report, err := relay.Publish(context.Background(), sampleEvent(scheduling.BookingCreated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.True(t, report.Pushed)
	assert.False(t, report.EmailSent)
}

func TestRelay_SkipsEmailWithoutAddress(t *testing.T) {
	sender := &recordingSender{}
	relay := NewRelay(sender, nil, nil, nil)

	event := sampleEvent(scheduling.BookingCreated)
	event.Patient.Email = ""
	report, err := relay.Publish(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, report.EmailSent)
	assert.Empty(t, sender.sent)
}

func TestStubSender(t *testing.T) {
	assert.NoError(t, NewStubSender(nil).Send(context.Background(), EmailMessage{To: "x@example.test"}))
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, nil))
}
