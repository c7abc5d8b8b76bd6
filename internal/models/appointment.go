package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// ActiveStatuses are the statuses that occupy a slot.
var ActiveStatuses = []AppointmentStatus{StatusScheduled, StatusConfirmed}

// IsActive reports whether the status counts against slot capacity.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// IsTerminal reports whether no further transition is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment represents a booked consultation between a patient and a doctor.
//
// ActiveSlotKey and ActivePatientKey are non-nil only while the appointment is
// scheduled or confirmed. Both carry unique indexes, and NULL never collides,
// so the database itself rejects a second active booking for the same
// doctor/date/slot or patient/date/slot.
type Appointment struct {
	BaseModel        `bson:",inline"`
	PatientID        string            `gorm:"size:36;not null;index:idx_appointments_patient_date,priority:1" json:"patientId" bson:"patientId"`
	DoctorID         string            `gorm:"size:36;not null;index:idx_appointments_doctor_date,priority:1" json:"doctorId" bson:"doctorId"`
	Date             time.Time         `gorm:"not null;index:idx_appointments_patient_date,priority:2;index:idx_appointments_doctor_date,priority:2" json:"date" bson:"date"`
	TimeSlot         string            `gorm:"size:11;not null" json:"timeSlot" bson:"timeSlot"`
	Status           AppointmentStatus `gorm:"size:20;not null;default:'scheduled';index" json:"status" bson:"status"`
	Reason           string            `gorm:"size:500;not null" json:"reason" bson:"reason"`
	Notes            string            `gorm:"type:text" json:"notes" bson:"notes"`
	Diagnosis        string            `gorm:"type:text" json:"diagnosis" bson:"diagnosis"`
	Prescription     string            `gorm:"type:text" json:"prescription" bson:"prescription"`
	FollowUpRequired bool              `gorm:"default:false" json:"followUpRequired" bson:"followUpRequired"`
	FollowUpDate     *time.Time        `json:"followUpDate,omitempty" bson:"followUpDate,omitempty"`
	EmailSent        bool              `gorm:"default:false" json:"emailSent" bson:"emailSent"`
	ActiveSlotKey    *string           `gorm:"size:96;uniqueIndex" json:"-" bson:"activeSlotKey,omitempty"`
	ActivePatientKey *string           `gorm:"size:96;uniqueIndex" json:"-" bson:"activePatientKey,omitempty"`
}

// DateLayout is the wire format of Appointment.Date.
const DateLayout = "2006-01-02"

// RefreshActiveKeys recomputes the uniqueness keys from the current status.
// Every store calls it before writing an appointment.
func (a *Appointment) RefreshActiveKeys() {
	if !a.Status.IsActive() {
		a.ActiveSlotKey = nil
		a.ActivePatientKey = nil
		return
	}
	day := a.Date.Format(DateLayout)
	slotKey := a.DoctorID + "|" + day + "|" + a.TimeSlot
	patientKey := a.PatientID + "|" + day + "|" + a.TimeSlot
	a.ActiveSlotKey = &slotKey
	a.ActivePatientKey = &patientKey
}

// FormatSlot renders "09:00-09:15" as "09:00 - 09:15". Other labels pass through.
func FormatSlot(label string) string {
	if len(label) != 11 {
		return label
	}
	return label[:5] + " - " + label[6:]
}

// FormattedTime is the display form of the appointment's slot.
func (a *Appointment) FormattedTime() string {
	return FormatSlot(a.TimeSlot)
}
