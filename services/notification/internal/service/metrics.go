package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	emails *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Status emails by outcome: sent, failed or skipped.",
		}, []string{"status", "result"}),
	}

	reg.MustRegister(m.emails)
	return m
}

func (m *Metrics) record(status, result string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(status, result).Inc()
}
