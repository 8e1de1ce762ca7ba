package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created through checkout or the admin API.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Applied order status changes, re-applied statuses included.",
		}, []string{"from", "to"}),
	}

	reg.MustRegister(m.created, m.transitions)
	return m
}

func WithMetrics(m *Metrics) Option {
	return func(s *orderService) {
		s.metrics = m
	}
}

func (m *Metrics) orderCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) statusChanged(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}
