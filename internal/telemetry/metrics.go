package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mimir_calendar_api_requests_total",
		Help: "Total number of HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes request latency by method, endpoint and status.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mimir_calendar_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mimir_calendar_api_active_connections",
		Help: "Number of in-flight HTTP API requests.",
	})

	// DatabaseConnectionsActive tracks open SQL connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mimir_calendar_db_connections_active",
		Help: "Number of open database connections.",
	})

	// OccurrencesExpanded counts occurrences produced by the expander on
	// the read path.
	OccurrencesExpanded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mimir_calendar_occurrences_expanded_total",
		Help: "Total number of event occurrences materialized for responses.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
