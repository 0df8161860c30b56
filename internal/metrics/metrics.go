// Package metrics exposes Prometheus instruments for catalog imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_imports_total",
			Help: "Spreadsheet imports by outcome",
		},
		[]string{"status"},
	)

	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_import_duration_seconds",
			Help:    "Time taken to run one spreadsheet through the pipeline",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	ImagesHarvested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_images_harvested_total",
			Help: "Embedded images uploaded to the blob store",
		},
		[]string{"anchored"},
	)

	ImagesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_images_skipped_total",
			Help: "Embedded images dropped during harvest",
		},
		[]string{"reason"},
	)

	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_rows_total",
			Help: "Sheet rows by admission outcome",
		},
		[]string{"outcome"},
	)

	MappingResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mapping_resolutions_total",
			Help: "Column mappings by source",
		},
		[]string{"source"},
	)

	MappingFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mapping_fallbacks_total",
			Help: "Inferred mappings replaced by the default layout",
		},
		[]string{"reason"},
	)

	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_inference_duration_seconds",
			Help:    "Duration of column inference calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_import_queue_depth",
			Help: "Import jobs waiting for a worker",
		},
	)
)

// RecordImport records the outcome of one import.
func RecordImport(status string, d time.Duration) {
	ImportsTotal.WithLabelValues(status).Inc()
	ImportDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordImage records a harvested image.
func RecordImage(anchored bool) {
	label := "false"
	if anchored {
		label = "true"
	}
	ImagesHarvested.WithLabelValues(label).Inc()
}

// RecordImageSkip records a dropped image.
func RecordImageSkip(reason string) {
	ImagesSkipped.WithLabelValues(reason).Inc()
}

// RecordRows adds n rows under outcome.
func RecordRows(outcome string, n int) {
	if n <= 0 {
		return
	}
	RowsProcessed.WithLabelValues(outcome).Add(float64(n))
}

// RecordMapping records which strategy produced the mapping in use.
func RecordMapping(source string) {
	MappingResolutions.WithLabelValues(source).Inc()
}

// RecordFallback records an inferred mapping discarded for reason.
func RecordFallback(reason string) {
	MappingFallbacks.WithLabelValues(reason).Inc()
}

// Timer measures elapsed time.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
