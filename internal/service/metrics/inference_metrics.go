package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	InferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskscore",
			Subsystem: "inference",
			Name:      "latency_seconds",
			Help:      "Latency of scoring endpoints, feature construction to verdict",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	InferenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskscore",
			Subsystem: "inference",
			Name:      "errors_total",
			Help:      "Errors by scoring endpoint and error code",
		},
		[]string{"endpoint", "code"},
	)

	InferenceRecords = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskscore",
			Subsystem: "inference",
			Name:      "batch_records",
			Help:      "Records per scoring request",
			Buckets:   []float64{1, 2, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"endpoint"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskscore",
			Subsystem: "verdict_cache",
			Name:      "lookups_total",
			Help:      "Verdict cache lookups by result",
		},
		[]string{"kind", "result"},
	)
)

// Register registers the inference collectors with the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(InferenceLatency, InferenceErrors, InferenceRecords, CacheLookups)
	})
}
