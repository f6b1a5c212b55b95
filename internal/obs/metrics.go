package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by scheme and result.",
		},
		[]string{"scheme", "result"},
	)

	orgSyncTriggersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "organization_sync_triggers_total",
		Help: "Asynchronous organization sync triggers fired.",
	})
)

// Init registers all service metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		authAttemptsTotal,
		orgSyncTriggersTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthAttempt counts one authentication attempt.
// Result is one of granted|skipped|denied.
func RecordAuthAttempt(scheme, result string) {
	authAttemptsTotal.WithLabelValues(scheme, result).Inc()
}

// RecordOrgSyncTrigger counts one fired organization sync trigger.
func RecordOrgSyncTrigger() {
	orgSyncTriggersTotal.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
