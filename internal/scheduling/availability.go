package scheduling

import "telehealth-server/internal/models"

// SlotAvailability describes one slot that can still be booked.
type SlotAvailability struct {
	TimeSlot       string `json:"timeSlot"`
	FormattedTime  string `json:"formattedTime"`
	AvailableSpots int    `json:"availableSpots"`
	TotalSpots     int    `json:"totalSpots"`
}

// ComputeAvailability returns, in catalog order, every slot whose number of
// bookings is below capacity. booked lists one label per active appointment.
func ComputeAvailability(booked []string, catalog []string, capacity int) []SlotAvailability {
	counts := make(map[string]int, len(booked))
	for _, slot := range booked {
		counts[slot]++
	}

	available := make([]SlotAvailability, 0, len(catalog))
	for _, slot := range catalog {
		remaining := capacity - counts[slot]
		if remaining <= 0 {
			continue
		}
		available = append(available, SlotAvailability{
			TimeSlot:       slot,
			FormattedTime:  models.FormatSlot(slot),
			AvailableSpots: remaining,
			TotalSpots:     capacity,
		})
	}
	return available
}
