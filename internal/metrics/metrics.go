// Package metrics provides Prometheus metrics for the docstore service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_store_operations_total",
			Help: "Total remote-store operations",
		},
		[]string{"operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_store_operation_duration_seconds",
			Help:    "Remote-store operation duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_retry_attempts_total",
			Help: "Total retried remote-store attempts",
		},
		[]string{"operation"},
	)

	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docstore_upload_bytes_total",
			Help: "Total bytes uploaded to the remote store",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_uploads_total",
			Help: "Total document uploads",
		},
		[]string{"status"},
	)

	reapRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_reap_runs_total",
			Help: "Total trash reap runs",
		},
		[]string{"status"},
	)

	reapDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docstore_reap_deleted_files_total",
			Help: "Total files permanently removed by the trash reaper",
		},
	)

	reapBytesFreedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docstore_reap_bytes_freed_total",
			Help: "Total bytes freed by the trash reaper",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordStoreOperation records one remote-store operation outcome.
func RecordStoreOperation(operation string, duration time.Duration, success bool) {
	storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storeOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRetry records one retried attempt for an operation.
func RecordRetry(operation string) {
	retryAttemptsTotal.WithLabelValues(operation).Inc()
}

// RecordUpload records a document upload.
func RecordUpload(bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
	if success {
		uploadBytesTotal.Add(float64(bytes))
	}
}

// RecordReap records one trash reap run.
func RecordReap(deleted int, bytesFreed int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	reapRunsTotal.WithLabelValues(status).Inc()
	reapDeletedTotal.Add(float64(deleted))
	reapBytesFreedTotal.Add(float64(bytesFreed))
}
