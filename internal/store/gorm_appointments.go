package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"telehealth-server/internal/models"
)

// GormAppointments stores appointments in a relational database through GORM.
type GormAppointments struct {
	db *gorm.DB
}

// NewGormAppointments wraps an open GORM connection.
func NewGormAppointments(db *gorm.DB) *GormAppointments {
	return &GormAppointments{db: db}
}

// Create inserts a new appointment. A unique-index rejection is reported as ErrDuplicate.
func (s *GormAppointments) Create(ctx context.Context, a *models.Appointment) error {
	a.RefreshActiveKeys()
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID loads an appointment by id.
func (s *GormAppointments) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &a, nil
}

// ActiveSlots returns the slot label of every active appointment a doctor has
// on a day. Labels repeat when a slot holds more than one booking.
func (s *GormAppointments) ActiveSlots(ctx context.Context, doctorID string, day time.Time) ([]string, error) {
	var slots []string
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status IN ?", doctorID, day, activeStatusStrings()).
		Pluck("time_slot", &slots).Error
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	return slots, nil
}

// CountActiveInSlot counts active appointments for a doctor/day/slot.
func (s *GormAppointments) CountActiveInSlot(ctx context.Context, doctorID string, day time.Time, slot string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND time_slot = ? AND status IN ?", doctorID, day, slot, activeStatusStrings()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}
	return count, nil
}

// FindActiveForPatient returns the patient's active appointment in a slot, or ErrNotFound.
func (s *GormAppointments) FindActiveForPatient(ctx context.Context, patientID string, day time.Time, slot string) (*models.Appointment, error) {
	var a models.Appointment
	res := s.db.WithContext(ctx).
		Where("patient_id = ? AND date = ? AND time_slot = ? AND status IN ?", patientID, day, slot, activeStatusStrings()).
		Limit(1).
		Find(&a)
	if res.Error != nil {
		return nil, fmt.Errorf("find patient appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &a, nil
}

// UpdateIfStatus writes the mutable fields of a only if the stored status
// still equals expected. ErrStaleWrite means someone else got there first.
func (s *GormAppointments) UpdateIfStatus(ctx context.Context, a *models.Appointment, expected models.AppointmentStatus) error {
	a.RefreshActiveKeys()
	a.UpdatedAt = time.Now().UTC()

	res := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", a.ID, expected).
		Updates(map[string]interface{}{
			"status":             a.Status,
			"notes":              a.Notes,
			"diagnosis":          a.Diagnosis,
			"prescription":       a.Prescription,
			"follow_up_required": a.FollowUpRequired,
			"follow_up_date":     a.FollowUpDate,
			"active_slot_key":    a.ActiveSlotKey,
			"active_patient_key": a.ActivePatientKey,
			"updated_at":         a.UpdatedAt,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrDuplicate, res.Error)
		}
		return fmt.Errorf("update appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// MarkEmailSent records that the confirmation email went out.
func (s *GormAppointments) MarkEmailSent(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("email_sent", true)
	if res.Error != nil {
		return fmt.Errorf("mark email sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of appointments ordered by day and slot, plus the total match count.
func (s *GormAppointments) List(ctx context.Context, f ListFilter) ([]models.Appointment, int64, error) {
	f.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Appointment{})
	if f.PatientID != "" {
		query = query.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		query = query.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Day != nil {
		query = query.Where("date = ?", *f.Day)
	}
	if f.From != nil {
		query = query.Where("date >= ?", *f.From)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	var appointments []models.Appointment
	err := query.
		Order("date asc").
		Order("time_slot asc").
		Limit(f.Limit).
		Offset(f.Offset()).
		Find(&appointments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, total, nil
}
