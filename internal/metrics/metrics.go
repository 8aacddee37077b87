package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ui2code",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ui2code",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "route"},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ui2code",
			Subsystem: "generation",
			Name:      "total",
			Help:      "Generate calls by framework and outcome",
		},
		[]string{"framework", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ui2code",
			Subsystem: "generation",
			Name:      "upstream_duration_seconds",
			Help:      "Time spent waiting on the code generator",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 180},
		},
		[]string{"framework"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ui2code",
			Subsystem: "storage",
			Name:      "upload_bytes_total",
			Help:      "Bytes written to the uploads root",
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ui2code",
			Subsystem: "export",
			Name:      "total",
			Help:      "Project exports by cache outcome",
		},
		[]string{"cache"},
	)

	CleanupDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ui2code",
			Subsystem: "cleanup",
			Name:      "files_deleted_total",
			Help:      "Orphaned files removed by the cleanup sweep",
		},
		[]string{"category"},
	)

	CleanupSweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ui2code",
			Subsystem: "cleanup",
			Name:      "sweeps_total",
			Help:      "Cleanup sweeps by outcome",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordGeneration records the outcome of a generate call.
func RecordGeneration(framework, status string) {
	GenerationsTotal.WithLabelValues(framework, status).Inc()
}

// ObserveUpstream records how long the code generator took.
func ObserveUpstream(framework string, durationSec float64) {
	GenerationDuration.WithLabelValues(framework).Observe(durationSec)
}

// RecordUpload records bytes stored under the uploads root.
func RecordUpload(bytes int) {
	UploadBytesTotal.Add(float64(bytes))
}

// RecordExport records an export, hit or miss on the archive cache.
func RecordExport(cached bool) {
	label := "miss"
	if cached {
		label = "hit"
	}
	ExportsTotal.WithLabelValues(label).Inc()
}

// RecordCleanupDelete records a file removed by the sweep.
func RecordCleanupDelete(category string) {
	CleanupDeletedTotal.WithLabelValues(category).Inc()
}

// RecordSweep records a finished sweep.
func RecordSweep(status string) {
	CleanupSweepsTotal.WithLabelValues(status).Inc()
}
