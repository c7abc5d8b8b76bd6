package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshActiveKeys(t *testing.T) {
	a := &Appointment{
		PatientID: "p1",
		DoctorID:  "d1",
		Date:      time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		TimeSlot:  "09:00-09:15",
		Status:    StatusScheduled,
	}

	a.RefreshActiveKeys()
	require.NotNil(t, a.ActiveSlotKey)
	require.NotNil(t, a.ActivePatientKey)
	assert.Equal(t, "d1|2025-06-16|09:00-09:15", *a.ActiveSlotKey)
	assert.Equal(t, "p1|2025-06-16|09:00-09:15", *a.ActivePatientKey)

	a.Status = StatusConfirmed
	a.RefreshActiveKeys()
	assert.NotNil(t, a.ActiveSlotKey)

	for _, s := range []AppointmentStatus{StatusCancelled, StatusCompleted, StatusNoShow} {
		a.Status = s
		a.RefreshActiveKeys()
		assert.Nil(t, a.ActiveSlotKey, s)
		assert.Nil(t, a.ActivePatientKey, s)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusScheduled.IsActive())
	assert.True(t, StatusConfirmed.IsActive())
	assert.False(t, StatusNoShow.IsActive())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusNoShow.IsTerminal())
	assert.False(t, AppointmentStatus("pending").Valid())
}

func TestFormattedTime(t *testing.T) {
	a := &Appointment{TimeSlot: "14:45-15:00"}
	assert.Equal(t, "14:45 - 15:00", a.FormattedTime())
	assert.Equal(t, "09:00 - 09:15", FormatSlot("09:00-09:15"))
	assert.Equal(t, "odd", FormatSlot("odd"))
}
