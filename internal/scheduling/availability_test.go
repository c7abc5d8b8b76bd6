package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAvailability_ExcludesFullSlots(t *testing.T) {
	catalog := []string{"09:00-09:15", "09:15-09:30", "09:30-09:45"}

	got := ComputeAvailability([]string{"09:15-09:30"}, catalog, 1)
	require.Len(t, got, 2)
	assert.Equal(t, SlotAvailability{TimeSlot: "09:00-09:15", FormattedTime: "09:00 - 09:15", AvailableSpots: 1, TotalSpots: 1}, got[0])
	assert.Equal(t, "09:30-09:45", got[1].TimeSlot)
}

func TestComputeAvailability_CountsTowardCapacity(t *testing.T) {
	catalog := []string{"09:00-09:15", "09:15-09:30"}

	got := ComputeAvailability([]string{"09:00-09:15", "09:00-09:15", "09:15-09:30"}, catalog, 3)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].AvailableSpots)
	assert.Equal(t, 2, got[1].AvailableSpots)
	assert.Equal(t, 3, got[1].TotalSpots)
}

func TestComputeAvailability_EmptyInputs(t *testing.T) {
	assert.Empty(t, ComputeAvailability(nil, nil, 1))
	assert.Len(t, ComputeAvailability(nil, AllSlots(), Capacity), 24)
	assert.Empty(t, ComputeAvailability(AllSlots(), AllSlots(), Capacity))
}
