package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestScheduling_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScheduling(reg)

	m.ObserveBooking("created")
	m.ObserveBooking("created")
	m.ObserveBooking("conflict")
	m.ObserveCancellation("patient", "cancelled")
	m.ObserveNotification("email", false)
	m.ObserveAvailability()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancellationsTotal.WithLabelValues("patient", "cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("email", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.availabilityTotal))
}

func TestScheduling_NilIsSafe(t *testing.T) {
	var m *Scheduling
	assert.NotPanics(t, func() {
		m.ObserveBooking("created")
		m.ObserveCancellation("doctor", "forbidden")
		m.ObserveUpdate("updated")
		m.ObserveNotification("push", true)
		m.ObserveAvailability()
	})
}
