package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
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

	fileserverHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fileserver_hits_total",
		Help: "Total number of requests served by the static fileserver.",
	})

	// Mirror of fileserverHitsTotal that the admin metrics page can read and
	// the admin reset endpoint can zero. Prometheus counters are write-only
	// from application code and must never be reset.
	fileserverHits atomic.Int64
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, fileserverHitsTotal)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountFileserverHit records one static fileserver request.
func CountFileserverHit() {
	fileserverHitsTotal.Inc()
	fileserverHits.Add(1)
}

// FileserverHitCount returns the number of fileserver requests since startup
// or the last reset.
func FileserverHitCount() int64 {
	return fileserverHits.Load()
}

// ResetFileserverHits zeroes the admin-visible hit counter.
func ResetFileserverHits() {
	fileserverHits.Store(0)
}

// CanonicalPath collapses per-resource path segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasPrefix(path, "/app/") {
		return "/app/*"
	}
	if rest, ok := strings.CutPrefix(path, "/api/posts/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/posts/:id"
	}
	return path
}

// Instrument wraps a handler with RPS, latency and in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
