package metrics

import "github.com/prometheus/client_golang/prometheus"

// AppointmentMetrics exposes counters/gauges for the scheduling flow.
type AppointmentMetrics struct {
	submitTotal  *prometheus.CounterVec
	cancelTotal  *prometheus.CounterVec
	snapshotSize prometheus.Gauge
	priorityDist *prometheus.CounterVec
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		submitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "appointments",
			Name:      "submit_total",
			Help:      "Appointment submissions by outcome",
		}, []string{"outcome"}),
		cancelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "appointments",
			Name:      "cancel_total",
			Help:      "Appointment cancellations by status",
		}, []string{"status"}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "careconnect",
			Subsystem: "appointments",
			Name:      "snapshot_size",
			Help:      "Records in the most recent collection snapshot",
		}),
		priorityDist: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "appointments",
			Name:      "priority_total",
			Help:      "Submitted appointments by triage priority",
		}, []string{"priority"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submitTotal, m.cancelTotal, m.snapshotSize, m.priorityDist)
	return m
}

func (m *AppointmentMetrics) ObserveSubmit(outcome string) {
	if m == nil {
		return
	}
	m.submitTotal.WithLabelValues(outcome).Inc()
}

func (m *AppointmentMetrics) ObserveCancel(status string) {
	if m == nil {
		return
	}
	m.cancelTotal.WithLabelValues(status).Inc()
}

func (m *AppointmentMetrics) ObserveSnapshot(size int) {
	if m == nil {
		return
	}
	m.snapshotSize.Set(float64(size))
}

func (m *AppointmentMetrics) ObservePriority(label string) {
	if m == nil {
		return
	}
	m.priorityDist.WithLabelValues(label).Inc()
}

// AssistMetrics tracks AI assistant chat traffic.
type AssistMetrics struct {
	jobsTotal   *prometheus.CounterVec
	replyTokens prometheus.Histogram
}

func NewAssistMetrics(reg prometheus.Registerer) *AssistMetrics {
	m := &AssistMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "assist",
			Name:      "jobs_total",
			Help:      "Chat jobs by status",
		}, []string{"status"}),
		replyTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "careconnect",
			Subsystem: "assist",
			Name:      "reply_chars",
			Help:      "Length of assistant replies in characters",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.jobsTotal, m.replyTokens)
	return m
}

func (m *AssistMetrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}

func (m *AssistMetrics) ObserveReplySize(chars int) {
	if m == nil {
		return
	}
	m.replyTokens.Observe(float64(chars))
}
