package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks dispatch attempts per method and outcome kind
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previso_api_requests_total",
			Help: "Total number of API request attempts",
		},
		[]string{"method", "outcome"},
	)

	// APILatency tracks attempt latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "previso_api_latency_seconds",
			Help:    "API request attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// APIRetriesTotal tracks scheduled retries
	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previso_api_retries_total",
			Help: "Total number of retries scheduled after a transient failure",
		},
		[]string{"method", "kind"},
	)

	// SessionExpiries counts forced logins
	SessionExpiries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "previso_session_expiries_total",
			Help: "Total number of forced logins after an unauthorized response",
		},
	)

	// FetchesSuppressed tracks fetches skipped inside the cooldown window
	FetchesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previso_fetches_suppressed_total",
			Help: "Total number of fetches suppressed by the recency cooldown",
		},
		[]string{"key"},
	)

	// LastSuccessfulFetch tracks the unix time of the last successful fetch
	LastSuccessfulFetch = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "previso_last_successful_fetch_timestamp_seconds",
			Help: "Unix time of the last successful fetch per key",
		},
		[]string{"key"},
	)

	// DBConnectionPoolUsage tracks session store pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "previso_db_connection_pool_usage_percent",
			Help: "Percentage of the session store connection pool in use",
		},
	)

	// WatchPollsTotal tracks dashboard poll results per consumer
	WatchPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previso_watch_polls_total",
			Help: "Total number of dashboard polls by consumer and result",
		},
		[]string{"consumer", "result"},
	)

	// BackendUp reports whether the backend is currently reachable (1) or not (0)
	BackendUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "previso_backend_up",
			Help: "Whether the backend API is reachable",
		},
	)
)
