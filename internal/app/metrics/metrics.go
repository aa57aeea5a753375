package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marketplace",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	calculationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "payouts",
			Name:      "calculation_runs_total",
			Help:      "Total number of monthly calculation runs.",
		},
		[]string{"status"},
	)

	calculationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: "payouts",
			Name:      "calculation_duration_seconds",
			Help:      "Duration of monthly calculation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	payoutAmounts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "payouts",
			Name:      "generated_amount_total",
			Help:      "Total currency units generated by calculation runs, by payout type.",
		},
		[]string{"type"},
	)

	monthLockEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "payouts",
			Name:      "month_lock_events_total",
			Help:      "Total number of administrative lock and unlock actions.",
		},
		[]string{"action"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		calculationRuns,
		calculationDuration,
		payoutAmounts,
		monthLockEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordCalculationRun records the outcome of one monthly calculation run.
func RecordCalculationRun(duration time.Duration, success bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	status := "error"
	if success {
		status = "ok"
	}
	calculationRuns.WithLabelValues(status).Inc()
	calculationDuration.Observe(duration.Seconds())
}

// RecordPayoutTotals records the generated totals for a successful run.
func RecordPayoutTotals(perpetual, contribution int64) {
	payoutAmounts.WithLabelValues("PERPETUAL").Add(float64(perpetual))
	payoutAmounts.WithLabelValues("CONTRIB").Add(float64(contribution))
}

// RecordLockEvent records one administrative lock or unlock action.
func RecordLockEvent(action string) {
	monthLockEvents.WithLabelValues(action).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses IDs out of request paths so the requests_total
// label set stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	// Admin API paths look like /api/v1/<resource>/... — keep the resource,
	// drop identifiers.
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "v1" {
		if len(parts) == 3 {
			return "/api/v1/" + parts[2]
		}
		return "/api/v1/" + parts[2] + "/:id"
	}
	return "/" + parts[0]
}
