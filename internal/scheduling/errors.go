package scheduling

import (
	"errors"
	"fmt"
)

// Kind classifies a scheduling failure so callers can branch without parsing messages.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindConflict       Kind = "CONFLICT"
	KindForbidden      Kind = "FORBIDDEN"
)

// Messages returned to clients. They are part of the API contract.
const (
	MsgDoctorNotFound        = "Doctor not found"
	MsgPatientNotFound       = "Patient not found"
	MsgAppointmentNotFound   = "Appointment not found"
	MsgInvalidTimeSlot       = "Invalid time slot"
	MsgPastAvailability      = "Cannot check availability for past dates"
	MsgPastBooking           = "Cannot book appointments in the past"
	MsgSlotFullyBooked       = "This time slot is fully booked"
	MsgPatientDoubleBooked   = "You already have an appointment at this time"
	MsgSlotJustBooked        = "This time slot was just booked by another patient. Please choose a different time."
	MsgCancelForbidden       = "You are not authorized to cancel this appointment"
	MsgUpdateForbidden       = "You are not authorized to update this appointment"
	MsgViewForbidden         = "You are not authorized to view this appointment"
	MsgAlreadyCancelled      = "Appointment is already cancelled"
	MsgCancelCompleted       = "Cannot cancel a completed appointment"
	MsgCancelNoShow          = "Cannot cancel an appointment marked as no-show"
	MsgUseCancelEndpoint     = "Use the cancel endpoint to cancel an appointment"
	MsgConcurrentModified    = "Appointment was modified concurrently, please reload"
	MsgInvalidStatus         = "Invalid status"
	msgNotOperatingDayFormat = "Dr. %s is not available on %ss"
	msgIllegalTransition     = "Cannot change status from %s to %s"
)

// Error is a caller-facing scheduling failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindConflict}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf extracts the Kind of a scheduling error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

func notFound(msg string) error  { return &Error{Kind: KindNotFound, Message: msg} }
func invalid(msg string) error   { return &Error{Kind: KindInvalidRequest, Message: msg} }
func conflict(msg string) error  { return &Error{Kind: KindConflict, Message: msg} }
func forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }
