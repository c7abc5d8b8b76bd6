// Package store persists appointments and resolves users. It ships a GORM
// implementation for relational databases and a MongoDB implementation for
// deployments that keep appointments in a document store.
package store

import (
	"errors"
	"time"

	"telehealth-server/internal/models"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrStaleWrite is returned when a conditional update matched nothing
	// because the record changed after it was read.
	ErrStaleWrite = errors.New("store: record changed since it was read")
)

// ListFilter narrows appointment listings. Zero values mean "no constraint".
type ListFilter struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
	// Day selects appointments on exactly this calendar day.
	Day *time.Time
	// From selects appointments on or after this calendar day.
	From  *time.Time
	Page  int
	Limit int
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Normalize clamps paging to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
}

// Offset is the number of records skipped for the current page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

func activeStatusStrings() []string {
	out := make([]string, len(models.ActiveStatuses))
	for i, s := range models.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}
