package scheduling

import "telehealth-server/internal/models"

var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusScheduled: {models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled, models.StatusNoShow},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled, models.StatusNoShow},
}

// CanTransition reports whether an appointment may move from one status to
// another. Re-applying the current status is allowed except on terminal
// statuses, which accept nothing.
func CanTransition(from, to models.AppointmentStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
