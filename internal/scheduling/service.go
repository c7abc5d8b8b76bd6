// Package scheduling is the booking guard: it decides whether a slot can be
// booked, cancelled or clinically updated, and keeps the one-active-booking
// rules intact under concurrent requests.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"telehealth-server/internal/metrics"
	"telehealth-server/internal/models"
	"telehealth-server/internal/store"
)

var tracer = otel.Tracer("telehealth-server/scheduling")

// AppointmentStore is the persistence the guard relies on. Implementations
// must reject a second active appointment for the same doctor/date/slot or
// patient/date/slot with store.ErrDuplicate, and report a failed conditional
// update with store.ErrStaleWrite.
type AppointmentStore interface {
	Create(ctx context.Context, a *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ActiveSlots(ctx context.Context, doctorID string, day time.Time) ([]string, error)
	CountActiveInSlot(ctx context.Context, doctorID string, day time.Time, slot string) (int64, error)
	FindActiveForPatient(ctx context.Context, patientID string, day time.Time, slot string) (*models.Appointment, error)
	UpdateIfStatus(ctx context.Context, a *models.Appointment, expected models.AppointmentStatus) error
	MarkEmailSent(ctx context.Context, id string) error
	List(ctx context.Context, f store.ListFilter) ([]models.Appointment, int64, error)
}

// Directory resolves users into parties.
type Directory interface {
	FindParty(ctx context.Context, id string, role models.Role) (*models.Party, error)
}

// Requester is the authenticated caller of an operation.
type Requester struct {
	ID   string
	Role models.Role
}

// Service implements availability, booking, cancellation and clinical updates.
type Service struct {
	appointments AppointmentStore
	directory    Directory
	events       EventPublisher
	logger       *zap.Logger
	metrics      *metrics.Scheduling
	location     *time.Location
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the clinic time zone used to decide whether a slot is in the past.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Scheduling) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(appointments AppointmentStore, directory Directory, events EventPublisher, logger *zap.Logger, opts ...Option) *Service {
	if events == nil {
		events = NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		appointments: appointments,
		directory:    directory,
		events:       events,
		logger:       logger,
		location:     time.UTC,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailabilityResult lists the open slots of one doctor on one day.
type AvailabilityResult struct {
	Doctor             models.Party       `json:"doctor"`
	Date               string             `json:"date"`
	Slots              []SlotAvailability `json:"availableSlots"`
	MaxPatientsPerSlot int                `json:"maxPatientsPerSlot"`
	Message            string             `json:"message,omitempty"`
}

// Availability returns the slots of doctorID still open on day. Weekends
// yield an empty list with an explanatory message rather than an error.
func (s *Service) Availability(ctx context.Context, doctorID string, day time.Time) (*AvailabilityResult, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Availability", trace.WithAttributes(
		attribute.String("doctor.id", doctorID),
		attribute.String("date", day.Format(models.DateLayout)),
	))
	defer span.End()

	result, err := s.availability(ctx, doctorID, DateOf(day))
	endSpan(span, err)
	if err == nil {
		s.metrics.ObserveAvailability()
	}
	return result, err
}

func (s *Service) availability(ctx context.Context, doctorID string, day time.Time) (*AvailabilityResult, error) {
	doctor, err := s.activeDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if day.Before(s.Today()) {
		return nil, invalid(MsgPastAvailability)
	}

	result := &AvailabilityResult{
		Doctor:             *doctor,
		Date:               day.Format(models.DateLayout),
		Slots:              []SlotAvailability{},
		MaxPatientsPerSlot: Capacity,
	}
	if !IsOperatingDay(day) {
		result.Message = notOperatingMessage(doctor, day)
		return result, nil
	}

	booked, err := s.appointments.ActiveSlots(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}
	result.Slots = ComputeAvailability(booked, AllSlots(), Capacity)
	return result, nil
}

// BookingRequest is a patient's request for one slot.
type BookingRequest struct {
	PatientID string
	DoctorID  string
	Date      time.Time
	TimeSlot  string
	Reason    string
}

// Notification summarizes what happened to the side effects of a committed write.
type Notification struct {
	Delivered bool   `json:"delivered"`
	Warning   string `json:"warning,omitempty"`
}

// Result is a committed appointment together with its notification outcome.
type Result struct {
	Appointment  *models.Appointment
	Notification Notification
}

// Book creates a scheduled appointment if the slot and the patient are both free.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Book", trace.WithAttributes(
		attribute.String("doctor.id", req.DoctorID),
		attribute.String("patient.id", req.PatientID),
		attribute.String("time_slot", req.TimeSlot),
	))
	defer span.End()

	result, err := s.book(ctx, req)
	endSpan(span, err)
	s.metrics.ObserveBooking(outcome(err, "created"))
	return result, err
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Result, error) {
	day := DateOf(req.Date)

	doctor, err := s.activeDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.directory.FindParty(ctx, req.PatientID, models.RolePatient)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(MsgPatientNotFound)
		}
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	start, err := SlotStart(day, req.TimeSlot, s.location)
	if err != nil {
		return nil, invalid(MsgInvalidTimeSlot)
	}
	if !start.After(s.now()) {
		return nil, invalid(MsgPastBooking)
	}
	if !IsOperatingDay(day) {
		return nil, invalid(notOperatingMessage(doctor, day))
	}

	booked, err := s.appointments.CountActiveInSlot(ctx, req.DoctorID, day, req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("count slot bookings: %w", err)
	}
	if booked >= Capacity {
		return nil, conflict(MsgSlotFullyBooked)
	}
	if busy, err := s.patientBusy(ctx, req.PatientID, day, req.TimeSlot); err != nil {
		return nil, err
	} else if busy {
		return nil, conflict(MsgPatientDoubleBooked)
	}

	appt := &models.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      day,
		TimeSlot:  req.TimeSlot,
		Status:    models.StatusScheduled,
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, s.duplicateConflict(ctx, req.PatientID, day, req.TimeSlot)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.String("appointmentId", appt.ID),
		zap.String("doctorId", appt.DoctorID),
		zap.String("patientId", appt.PatientID),
		zap.String("date", day.Format(models.DateLayout)),
		zap.String("timeSlot", appt.TimeSlot),
	)

	note := s.publish(ctx, Event{
		Type:        BookingCreated,
		Appointment: *appt,
		Patient:     *patient,
		Doctor:      *doctor,
	}, appt, "Appointment booked but confirmation email failed")

	return &Result{Appointment: appt, Notification: note}, nil
}

// duplicateConflict runs after the store rejected an insert. Whichever
// booking won the race, the patient check tells which rule was hit.
func (s *Service) duplicateConflict(ctx context.Context, patientID string, day time.Time, slot string) error {
	busy, err := s.patientBusy(ctx, patientID, day, slot)
	if err == nil && busy {
		return conflict(MsgPatientDoubleBooked)
	}
	return conflict(MsgSlotJustBooked)
}

func (s *Service) patientBusy(ctx context.Context, patientID string, day time.Time, slot string) (bool, error) {
	_, err := s.appointments.FindActiveForPatient(ctx, patientID, day, slot)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check patient bookings: %w", err)
	}
}

// CancelRequest cancels an appointment on behalf of one of its parties.
type CancelRequest struct {
	AppointmentID string
	Requester     Requester
	Reason        string
}

// Cancel moves an active appointment to cancelled, releasing its slot.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Cancel", trace.WithAttributes(
		attribute.String("appointment.id", req.AppointmentID),
		attribute.String("requester.role", string(req.Requester.Role)),
	))
	defer span.End()

	result, err := s.cancel(ctx, req)
	endSpan(span, err)
	s.metrics.ObserveCancellation(string(req.Requester.Role), outcome(err, "cancelled"))
	return result, err
}

func (s *Service) cancel(ctx context.Context, req CancelRequest) (*Result, error) {
	appt, err := s.load(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !involves(appt, req.Requester) {
		return nil, forbidden(MsgCancelForbidden)
	}

	switch appt.Status {
	case models.StatusCancelled:
		return nil, invalid(MsgAlreadyCancelled)
	case models.StatusCompleted:
		return nil, invalid(MsgCancelCompleted)
	case models.StatusNoShow:
		return nil, invalid(MsgCancelNoShow)
	}

	previous := appt.Status
	appt.Status = models.StatusCancelled
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		appt.Notes = appendNote(appt.Notes, fmt.Sprintf("Cancelled by %s: %s", req.Requester.Role, reason))
	}
	if err := s.appointments.UpdateIfStatus(ctx, appt, previous); err != nil {
		if errors.Is(err, store.ErrStaleWrite) {
			return nil, conflict(MsgConcurrentModified)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointmentId", appt.ID),
		zap.String("cancelledBy", string(req.Requester.Role)),
	)

	event := Event{
		Type:        BookingCancelled,
		Appointment: *appt,
		Patient:     s.partyOrStub(ctx, appt.PatientID, models.RolePatient),
		Doctor:      s.partyOrStub(ctx, appt.DoctorID, models.RoleDoctor),
		CancelledBy: req.Requester.Role,
	}
	note := s.publish(ctx, event, nil, "Appointment cancelled but notification failed")
	return &Result{Appointment: appt, Notification: note}, nil
}

// ClinicalUpdate carries the doctor-editable fields. Nil fields are left untouched.
type ClinicalUpdate struct {
	AppointmentID    string
	Requester        Requester
	Status           *models.AppointmentStatus
	Notes            *string
	Diagnosis        *string
	Prescription     *string
	FollowUpRequired *bool
	FollowUpDate     *time.Time
}

// UpdateClinical lets the appointment's doctor change status and clinical fields.
// Cancellation is not reachable from here.
func (s *Service) UpdateClinical(ctx context.Context, upd ClinicalUpdate) (*models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.UpdateClinical", trace.WithAttributes(
		attribute.String("appointment.id", upd.AppointmentID),
	))
	defer span.End()

	appt, err := s.updateClinical(ctx, upd)
	endSpan(span, err)
	s.metrics.ObserveUpdate(outcome(err, "updated"))
	return appt, err
}

func (s *Service) updateClinical(ctx context.Context, upd ClinicalUpdate) (*models.Appointment, error) {
	appt, err := s.load(ctx, upd.AppointmentID)
	if err != nil {
		return nil, err
	}
	if upd.Requester.Role != models.RoleDoctor || appt.DoctorID != upd.Requester.ID {
		return nil, forbidden(MsgUpdateForbidden)
	}

	previous := appt.Status
	if upd.Status != nil {
		next := *upd.Status
		switch {
		case !next.Valid():
			return nil, invalid(MsgInvalidStatus)
		case next == models.StatusCancelled && previous != models.StatusCancelled:
			return nil, invalid(MsgUseCancelEndpoint)
		case !CanTransition(previous, next):
			return nil, invalid(fmt.Sprintf(msgIllegalTransition, previous, next))
		}
		appt.Status = next
	}
	if upd.Notes != nil {
		appt.Notes = *upd.Notes
	}
	if upd.Diagnosis != nil {
		appt.Diagnosis = *upd.Diagnosis
	}
	if upd.Prescription != nil {
		appt.Prescription = *upd.Prescription
	}
	if upd.FollowUpRequired != nil {
		appt.FollowUpRequired = *upd.FollowUpRequired
	}
	if upd.FollowUpDate != nil {
		d := DateOf(*upd.FollowUpDate)
		appt.FollowUpDate = &d
	}

	if err := s.appointments.UpdateIfStatus(ctx, appt, previous); err != nil {
		if errors.Is(err, store.ErrStaleWrite) {
			return nil, conflict(MsgConcurrentModified)
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.logger.Info("appointment updated",
		zap.String("appointmentId", appt.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(appt.Status)),
	)
	return appt, nil
}

// Get returns one appointment to either of its parties.
func (s *Service) Get(ctx context.Context, id string, requester Requester) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !involves(appt, requester) {
		return nil, forbidden(MsgViewForbidden)
	}
	return appt, nil
}

// Page is one page of an appointment listing.
type Page struct {
	Appointments []models.Appointment `json:"appointments"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
	TotalPages   int64                `json:"totalPages"`
}

// ListForPatient lists the requester's own appointments, newest schedule last.
func (s *Service) ListForPatient(ctx context.Context, patientID string, f store.ListFilter) (*Page, error) {
	f.PatientID = patientID
	f.DoctorID = ""
	return s.list(ctx, f)
}

// ListForDoctor lists appointments booked with the requesting doctor.
func (s *Service) ListForDoctor(ctx context.Context, doctorID string, f store.ListFilter) (*Page, error) {
	f.DoctorID = doctorID
	f.PatientID = ""
	return s.list(ctx, f)
}

func (s *Service) list(ctx context.Context, f store.ListFilter) (*Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid(MsgInvalidStatus)
	}
	f.Normalize()
	items, total, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	pages := (total + int64(f.Limit) - 1) / int64(f.Limit)
	return &Page{Appointments: items, Total: total, Page: f.Page, Limit: f.Limit, TotalPages: pages}, nil
}

// publish hands the event to the publisher and turns its report into a
// Notification. When email went out for a booking, the flag is persisted.
func (s *Service) publish(ctx context.Context, event Event, booked *models.Appointment, warning string) Notification {
	event.OccurredAt = s.now()
	report, err := s.events.Publish(ctx, event)
	if err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("event", string(event.Type)),
			zap.String("appointmentId", event.Appointment.ID),
			zap.Error(err),
		)
	}

	if booked != nil && report.EmailSent {
		if markErr := s.appointments.MarkEmailSent(ctx, booked.ID); markErr != nil {
			s.logger.Warn("could not record email delivery", zap.String("appointmentId", booked.ID), zap.Error(markErr))
		} else {
			booked.EmailSent = true
		}
	}

	if err != nil {
		return Notification{
			Delivered: report.EmailSent || report.Pushed,
			Warning:   fmt.Sprintf("%s: %v", warning, err),
		}
	}
	return Notification{Delivered: true}
}

func (s *Service) activeDoctor(ctx context.Context, doctorID string) (*models.Party, error) {
	doctor, err := s.directory.FindParty(ctx, doctorID, models.RoleDoctor)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(MsgDoctorNotFound)
		}
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}
	if !doctor.IsActive {
		return nil, notFound(MsgDoctorNotFound)
	}
	return doctor, nil
}

// partyOrStub resolves a party for an event; a lookup failure only costs the
// display name and email, never the cancellation itself.
func (s *Service) partyOrStub(ctx context.Context, id string, role models.Role) models.Party {
	party, err := s.directory.FindParty(ctx, id, role)
	if err != nil {
		s.logger.Warn("could not resolve party", zap.String("id", id), zap.String("role", string(role)), zap.Error(err))
		return models.Party{ID: id, Role: role}
	}
	return *party
}

func (s *Service) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(MsgAppointmentNotFound)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// Today is the current calendar day in the clinic's time zone.
func (s *Service) Today() time.Time {
	return DateOf(s.now().In(s.location))
}

func involves(appt *models.Appointment, r Requester) bool {
	switch r.Role {
	case models.RolePatient:
		return appt.PatientID == r.ID
	case models.RoleDoctor:
		return appt.DoctorID == r.ID
	}
	return false
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func notOperatingMessage(doctor *models.Party, day time.Time) string {
	return fmt.Sprintf(msgNotOperatingDayFormat, doctor.DisplayName, day.Weekday())
}

func outcome(err error, success string) string {
	if err == nil {
		return success
	}
	if kind, ok := KindOf(err); ok {
		return strings.ToLower(string(kind))
	}
	return "error"
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	if _, ok := KindOf(err); !ok {
		span.SetStatus(codes.Error, err.Error())
	}
}
