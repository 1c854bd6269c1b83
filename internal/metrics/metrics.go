// Package metrics provides Prometheus metrics for the mediakit helpers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Listing metrics
	listingPageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediakit_listing_page_entries",
			Help:    "Number of entries returned per listing page",
			Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	listingTotalEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediakit_listing_total_entries",
			Help:    "Directory size before pagination",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// Range metrics
	rangeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_range_requests_total",
			Help: "Range header parse outcomes",
		},
		[]string{"outcome"},
	)

	// EXIF metrics
	exifExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_exif_extractions_total",
			Help: "EXIF extraction outcomes",
		},
		[]string{"outcome"},
	)

	exifDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediakit_exif_extraction_duration_seconds",
			Help:    "Time spent waiting on EXIF extraction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Destination guard metrics
	destinationChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_destination_checks_total",
			Help: "Destination existence check outcomes",
		},
		[]string{"outcome"},
	)

	// RAW metrics
	rawExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_raw_extractions_total",
			Help: "RAW preview extractions by path taken",
		},
		[]string{"path"},
	)

	// Storage adapter metrics
	storageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediakit_storage_operation_duration_seconds",
			Help:    "Storage adapter operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_storage_operations_total",
			Help: "Storage adapter operations",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Range outcomes.
const (
	RangeFull          = "full"
	RangePartial       = "partial"
	RangeBadRequest    = "bad_request"
	RangeUnsatisfiable = "unsatisfiable"
)

// EXIF outcomes.
const (
	ExifFound     = "found"
	ExifAbsent    = "absent"
	ExifCancelled = "cancelled"
)

// Destination check outcomes.
const (
	DestSkipped  = "skipped"
	DestUnknown  = "unknown"
	DestError    = "error"
	DestAbsent   = "absent"
	DestConflict = "conflict"
)

// RAW extraction paths.
const (
	RawEmbedded  = "embedded"
	RawProcessed = "processed"
	RawFailed    = "failed"
)

// RecordListingPage records one sort-and-paginate call.
func RecordListingPage(pageEntries, total int) {
	listingPageSize.Observe(float64(pageEntries))
	listingTotalEntries.Observe(float64(total))
}

// RecordRange records a Range header parse outcome.
func RecordRange(outcome string) {
	rangeRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordExif records an EXIF extraction outcome and how long the caller waited.
func RecordExif(outcome string, duration time.Duration) {
	exifExtractionsTotal.WithLabelValues(outcome).Inc()
	exifDuration.Observe(duration.Seconds())
}

// RecordDestinationCheck records a destination guard outcome.
func RecordDestinationCheck(outcome string) {
	destinationChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordRawExtraction records which path produced a RAW preview.
func RecordRawExtraction(path string) {
	rawExtractionsTotal.WithLabelValues(path).Inc()
}

// RecordStorageOperation records a storage adapter call.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	storageOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOpsTotal.WithLabelValues(backend, operation, status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
