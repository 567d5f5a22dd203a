package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	verdicts     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		messagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskscore_messages_sent_total",
				Help: "Total number of messages sent to a backend",
			},
			[]string{"backend", "topic"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskscore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskscore_verdicts_total",
				Help: "Verdicts produced by kind and label",
			},
			[]string{"kind", "label"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskscore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(r.messagesSent, r.errorsTotal, r.verdicts, r.latency)
	return r
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, topic string) {
	r.messagesSent.WithLabelValues(backend, topic).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordVerdict counts one verdict.
func (r *Recorder) RecordVerdict(kind, label string) {
	r.verdicts.WithLabelValues(kind, label).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
