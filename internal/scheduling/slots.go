package scheduling

import (
	"fmt"
	"strconv"
	"time"

	"telehealth-server/internal/models"
)

// Capacity is the number of active appointments one doctor may hold in one slot.
const Capacity = 1

// slotCatalog is the clinic's bookable granularity: two shifts of 15-minute slots.
var slotCatalog = [...]string{
	"09:00-09:15", "09:15-09:30", "09:30-09:45", "09:45-10:00",
	"10:00-10:15", "10:15-10:30", "10:30-10:45", "10:45-11:00",
	"11:00-11:15", "11:15-11:30", "11:30-11:45", "11:45-12:00",
	"14:00-14:15", "14:15-14:30", "14:30-14:45", "14:45-15:00",
	"15:00-15:15", "15:15-15:30", "15:30-15:45", "15:45-16:00",
	"16:00-16:15", "16:15-16:30", "16:30-16:45", "16:45-17:00",
}

var slotIndex = func() map[string]int {
	m := make(map[string]int, len(slotCatalog))
	for i, s := range slotCatalog {
		m[s] = i
	}
	return m
}()

// AllSlots returns the ordered slot catalog. The slice is a copy.
func AllSlots() []string {
	out := make([]string, len(slotCatalog))
	copy(out, slotCatalog[:])
	return out
}

// IsValidSlot reports whether label is one of the catalog slots.
func IsValidSlot(label string) bool {
	_, ok := slotIndex[label]
	return ok
}

// SlotStart combines a calendar day with the start time of a slot, in the
// clinic's time zone.
func SlotStart(day time.Time, label string, loc *time.Location) (time.Time, error) {
	if !IsValidSlot(label) {
		return time.Time{}, fmt.Errorf("unknown time slot %q", label)
	}
	hour, _ := strconv.Atoi(label[0:2])
	minute, _ := strconv.Atoi(label[3:5])
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in YYYY-MM-DD format: %w", err)
	}
	return t, nil
}

// DateOf drops the time of day, keeping the calendar day t falls on in its
// own location. Calendar days are always represented as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsOperatingDay reports whether the clinic is open on day (Monday to Friday).
func IsOperatingDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
