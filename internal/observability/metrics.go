// Package observability exposes prometheus metrics for the telemetry service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	readingsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry",
		Subsystem: "ingest",
		Name:      "readings_total",
		Help:      "Total readings appended to the store, by kind.",
	}, []string{"kind"})
	readingsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry",
		Subsystem: "ingest",
		Name:      "rejected_total",
		Help:      "Total write payloads rejected before storage, by kind and reason.",
	}, []string{"kind", "reason"})
	lastReadingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "telemetry",
		Subsystem: "persistence",
		Name:      "last_reading_timestamp_seconds",
		Help:      "Unix timestamp of the most recent reading appended to the store.",
	})
)

func init() {
	prometheus.MustRegister(readingsIngested, readingsRejected, lastReadingGauge)
}

// RecordReadingIngested counts a stored reading and advances the persistence
// watermark gauge.
func RecordReadingIngested(kind string, ts time.Time) {
	readingsIngested.WithLabelValues(kind).Inc()
	if !ts.IsZero() {
		lastReadingGauge.Set(float64(ts.Unix()))
	}
}

// RecordReadingRejected counts a write payload turned away before storage.
func RecordReadingRejected(kind, reason string) {
	readingsRejected.WithLabelValues(kind, reason).Inc()
}
