package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LocationSyncs             = promauto.NewCounter(prometheus.CounterOpts{Namespace: "horse_share", Name: "location_syncs_total", Help: "Location updates pushed to the backend"})
	LocationSyncErrors        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "horse_share", Name: "location_sync_errors_total", Help: "Failed location sync requests"})
	LocationSamplesSuppressed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "horse_share", Name: "location_samples_suppressed_total", Help: "Raw position samples held back by the throttle"})

	RideRequests = promauto.NewCounter(prometheus.CounterOpts{Namespace: "horse_share", Name: "ride_requests_total", Help: "Ride requests submitted"})
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "horse_share", Name: "ride_transitions_total", Help: "Local ride state transitions"},
		[]string{"state"},
	)
	DriverActions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "horse_share", Name: "driver_actions_total", Help: "Driver status updates dispatched"},
		[]string{"status"},
	)
	Heartbeats = promauto.NewCounter(prometheus.CounterOpts{Namespace: "horse_share", Name: "heartbeats_total", Help: "Heartbeat pings sent"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "horse_share", Name: "http_requests_total", Help: "Control API requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "horse_share",
			Name:      "http_request_duration_seconds",
			Help:      "Control API request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
