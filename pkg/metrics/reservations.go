package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReservationMetrics counts reservation engine outcomes.
type ReservationMetrics struct {
	created     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	callbacks   *prometheus.CounterVec
	tickets     prometheus.Counter
}

// NewReservationMetrics registers the reservation metrics on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	m := &ReservationMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Reservations committed, by payment mode.",
		}, []string{"payment_mode"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_rejected_total",
			Help:      "Reservation attempts rolled back, by error code.",
		}, []string{"code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_transitions_total",
			Help:      "Reservation status transitions, by target status and source.",
		}, []string{"status", "source"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Payment gateway callbacks, by reported status and outcome.",
		}, []string{"status", "outcome"}),
		tickets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_issued_total",
			Help:      "Tickets issued for paid reservations.",
		}),
	}
	reg.MustRegister(m.created, m.rejected, m.transitions, m.callbacks, m.tickets)
	return m
}

func (m *ReservationMetrics) IncCreated(mode string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(mode)).Inc()
}

func (m *ReservationMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *ReservationMetrics) IncTransition(status, source string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(source)).Inc()
}

func (m *ReservationMetrics) IncCallback(status, outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(status), normalizeLabel(outcome)).Inc()
}

func (m *ReservationMetrics) IncTicketIssued() {
	if m == nil || m.tickets == nil {
		return
	}
	m.tickets.Inc()
}
