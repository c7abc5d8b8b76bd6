package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSlots(t *testing.T) {
	slots := AllSlots()
	require.Len(t, slots, 24)
	assert.Equal(t, "09:00-09:15", slots[0])
	assert.Equal(t, "11:45-12:00", slots[11])
	assert.Equal(t, "14:00-14:15", slots[12])
	assert.Equal(t, "16:45-17:00", slots[23])

	slots[0] = "mutated"
	assert.Equal(t, "09:00-09:15", AllSlots()[0])
}

func TestIsValidSlot(t *testing.T) {
	assert.True(t, IsValidSlot("09:15-09:30"))
	assert.False(t, IsValidSlot("12:00-12:15"))
	assert.False(t, IsValidSlot("9:00-9:15"))
	assert.False(t, IsValidSlot(""))
}

func TestSlotStart(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	day := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	start, err := SlotStart(day, "14:30-14:45", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 14, 30, 0, 0, loc), start)
	assert.Equal(t, 18, start.UTC().Hour())

	_, err = SlotStart(day, "13:00-13:15", loc)
	assert.Error(t, err)
}

func TestParseDateAndDateOf(t *testing.T) {
	d, err := ParseDate("2025-06-21")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d.Weekday())
	assert.False(t, IsOperatingDay(d))
	assert.True(t, IsOperatingDay(d.AddDate(0, 0, 2)))

	_, err = ParseDate("21/06/2025")
	assert.Error(t, err)

	loc := time.FixedZone("UTC+10", 10*3600)
	late := time.Date(2025, 6, 17, 1, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC), DateOf(late))
}
