package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// RunsTotal counts collect runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartrate_runs_total",
			Help: "The total number of collect runs.",
		},
		[]string{"status"},
	)

	// RunDuration is a histogram of the time a full collect run takes.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "heartrate_run_duration_seconds",
			Help:    "A histogram of the collect run duration.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RunsInFlight shows whether a collect run is currently executing.
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heartrate_runs_in_flight",
			Help: "The number of collect runs currently being executed.",
		},
	)

	// TokenRefreshTotal counts refresh-grant attempts by outcome.
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartrate_token_refresh_total",
			Help: "The total number of token refresh attempts.",
		},
		[]string{"status"},
	)

	// FetchDuration is a histogram of heart-rate API request latency.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "heartrate_fetch_duration_seconds",
			Help:    "A histogram of the heart-rate API request duration.",
			Buckets: prometheus.LinearBuckets(0.25, 0.25, 12),
		},
	)

	// ReadingsFetched is the number of readings in the last fetched day.
	ReadingsFetched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heartrate_readings_fetched",
			Help: "The number of intraday readings in the most recently fetched day.",
		},
	)

	// LastSuccess is the unix time of the last successful collect run.
	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heartrate_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful collect run.",
		},
	)

	// StorageOperations counts blob store operations.
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartrate_storage_operations_total",
			Help: "The total number of blob store operations.",
		},
		[]string{"backend", "operation", "status"},
	)

	// StorageDuration is a histogram of blob store operation latency.
	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heartrate_storage_operation_duration_seconds",
			Help:    "A histogram of blob store operation duration.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"backend", "operation"},
	)
)

// Status maps an error to a status label value.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
