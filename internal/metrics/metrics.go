package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Step names recorded for an episode synchronization.
const (
	StepFetch    = "fetch"
	StepMetadata = "metadata"
	StepArtwork  = "artwork"
)

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Thumbnail cache results.
const (
	CacheMiss        = "miss"
	CacheNotModified = "not_modified"
	CacheChanged     = "changed"
	CacheError       = "error"
)

// Episode synchronization metrics
var (
	SyncStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivesync_steps_total",
			Help: "Total number of episode synchronization steps by outcome.",
		},
		[]string{"step", "status"},
	)

	SyncStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archivesync_step_duration_seconds",
			Help:    "Duration of episode synchronization steps.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	ThumbnailBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archivesync_thumbnail_bytes",
			Help:    "Size of the encoded thumbnails uploaded to the media server.",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		},
	)

	ThumbnailCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archivesync_thumbnail_cache_total",
			Help: "Thumbnail cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		SyncStepsTotal,
		SyncStepDuration,
		ThumbnailBytes,
		ThumbnailCacheTotal,
	)
}

// ObserveStep records the outcome and duration of a step started at start.
func ObserveStep(step string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	SyncStepsTotal.WithLabelValues(step, status).Inc()
	SyncStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
