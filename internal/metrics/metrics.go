package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scheduling exposes counters for booking, cancellation and notification flows.
// A nil *Scheduling is valid and records nothing.
type Scheduling struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	updatesTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	availabilityTotal  prometheus.Counter
}

func NewScheduling(reg prometheus.Registerer) *Scheduling {
	m := &Scheduling{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by requester role and outcome",
		}, []string{"role", "outcome"}),
		updatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "clinical_updates_total",
			Help:      "Clinical update attempts by outcome",
		}, []string{"outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by channel and status",
		}, []string{"channel", "status"}),
		availabilityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "availability_queries_total",
			Help:      "Availability lookups served",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.updatesTotal, m.notificationsTotal, m.availabilityTotal)
	return m
}

func (m *Scheduling) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Scheduling) ObserveCancellation(role, outcome string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(role, outcome).Inc()
}

func (m *Scheduling) ObserveUpdate(outcome string) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(outcome).Inc()
}

func (m *Scheduling) ObserveNotification(channel string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}

func (m *Scheduling) ObserveAvailability() {
	if m == nil {
		return
	}
	m.availabilityTotal.Inc()
}
