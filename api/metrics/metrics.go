package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocity_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revocity_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "revocity_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	complaintsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocity_complaints_submitted_total",
			Help: "Total number of complaints submitted",
		},
		[]string{"priority"},
	)

	complaintStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocity_complaint_status_changed_total",
			Help: "Total number of complaint workflow transitions made by administrators",
		},
		[]string{"from_status", "to_status"},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocity_escalations_total",
			Help: "Total number of complaint escalations",
		},
		[]string{"level"},
	)

	escalationSweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "revocity_escalation_sweep_failures_total",
			Help: "Per-complaint failures during escalation sweeps",
		},
	)

	escalationSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revocity_escalation_sweep_duration_seconds",
			Help:    "Escalation sweep duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	aiFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocity_ai_fallbacks_total",
			Help: "AI calls answered with a degraded fallback result",
		},
		[]string{"task"},
	)

	insertRaces = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revocity_aggregate_insert_races_total",
			Help: "First inserts of an aggregate row that lost to a concurrent insert",
		},
		[]string{"aggregate"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency keyed by the matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		// FullPath is the route template, which keeps ids out of the labels
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// --- Business metric helpers ---

// RecordComplaintSubmitted records an accepted complaint
func RecordComplaintSubmitted(priority string) {
	complaintsSubmitted.WithLabelValues(priority).Inc()
}

// RecordStatusChange records an administrator workflow transition
func RecordStatusChange(fromStatus, toStatus string) {
	complaintStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordEscalation records a complaint promoted to level
func RecordEscalation(level int) {
	escalationsTotal.WithLabelValues(strconv.Itoa(level)).Inc()
}

// RecordSweep records one escalation sweep
func RecordSweep(failed int, duration time.Duration) {
	escalationSweepFailures.Add(float64(failed))
	escalationSweepDuration.Observe(duration.Seconds())
}

// RecordAIFallback records a degraded AI answer for task
func RecordAIFallback(task string) {
	aiFallbacks.WithLabelValues(task).Inc()
}

// RecordInsertRace records a first insert that found the row already created
func RecordInsertRace(aggregate string) {
	insertRaces.WithLabelValues(aggregate).Inc()
}
