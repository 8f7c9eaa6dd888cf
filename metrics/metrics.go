// Package metrics exposes Prometheus collectors for view recording, storage
// snapshots, background side effects and HTTP latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// View recording outcomes.
const (
	ViewNew       = "new"
	ViewRepeat    = "repeat"
	ViewAnonymous = "anonymous"
	ViewError     = "error"
)

var (
	PropertyViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_property_views_total",
			Help: "Property view recordings by outcome",
		},
		[]string{"result"},
	)

	StorageSnapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_storage_snapshots_total",
			Help: "Storage history snapshots by status",
		},
		[]string{"status"},
	)

	StorageSizeMB = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "estate_storage_size_mb",
			Help: "Stored file size in MB at the last snapshot",
		},
		[]string{"category"}, // "total", "image", "brochure"
	)

	StorageFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "estate_storage_files",
			Help: "Stored file count at the last snapshot",
		},
		[]string{"category"},
	)

	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estate_background_tasks_total",
			Help: "Fire-and-forget side effects by task and status",
		},
		[]string{"task", "status"}, // status: "ok", "error", "panic"
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordView counts one view recording outcome.
func RecordView(result string) {
	PropertyViews.WithLabelValues(result).Inc()
}

// RecordStorageSnapshot counts a snapshot and, on success, publishes its totals.
func RecordStorageSnapshot(totalFiles, imageFiles, brochureFiles int64, totalMB, imageMB, brochureMB float64, err error) {
	if err != nil {
		StorageSnapshots.WithLabelValues("error").Inc()
		return
	}
	StorageSnapshots.WithLabelValues("ok").Inc()
	StorageFiles.WithLabelValues("total").Set(float64(totalFiles))
	StorageFiles.WithLabelValues("image").Set(float64(imageFiles))
	StorageFiles.WithLabelValues("brochure").Set(float64(brochureFiles))
	StorageSizeMB.WithLabelValues("total").Set(totalMB)
	StorageSizeMB.WithLabelValues("image").Set(imageMB)
	StorageSizeMB.WithLabelValues("brochure").Set(brochureMB)
}

// RecordBackgroundTask counts a finished fire-and-forget task.
func RecordBackgroundTask(task, status string) {
	BackgroundTasks.WithLabelValues(task, status).Inc()
}

// RecordHTTPRequest observes one handled request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
