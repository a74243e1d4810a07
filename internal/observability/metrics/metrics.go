// Package metrics exposes Prometheus instrumentation for the scheduling
// core. All observe methods are nil-receiver safe so services can run
// uninstrumented in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics counts booking outcomes, capacity conflicts and slot
// lifecycle events.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	capacityConflicts *prometheus.CounterVec
	slotsGenerated    prometheus.Counter
	redistributed     prometheus.Counter
	manualReschedule  prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedula",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		capacityConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedula",
			Subsystem: "booking",
			Name:      "capacity_conflicts_total",
			Help:      "Capacity rule violations by operation",
		}, []string{"operation"}),
		slotsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schedula",
			Subsystem: "slots",
			Name:      "generated_total",
			Help:      "Slots created by pattern generation",
		}),
		redistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schedula",
			Subsystem: "slots",
			Name:      "redistributed_appointments_total",
			Help:      "Appointments reassigned by window redistribution",
		}),
		manualReschedule: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schedula",
			Subsystem: "slots",
			Name:      "manual_reschedule_total",
			Help:      "Appointments left unplaced by window redistribution",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.capacityConflicts, m.slotsGenerated, m.redistributed, m.manualReschedule)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveCapacityConflict(operation string) {
	if m == nil {
		return
	}
	m.capacityConflicts.WithLabelValues(operation).Inc()
}

func (m *SchedulingMetrics) ObserveSlotsGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsGenerated.Add(float64(n))
}

func (m *SchedulingMetrics) ObserveRedistribution(reassigned, manual int) {
	if m == nil {
		return
	}
	if reassigned > 0 {
		m.redistributed.Add(float64(reassigned))
	}
	if manual > 0 {
		m.manualReschedule.Add(float64(manual))
	}
}
