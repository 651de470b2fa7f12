// Package observability wires process-level logging, metrics and tracing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	pipeline "github.com/fairyhunter13/softrate-ats/internal/observability"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens sent to and received from AI providers",
		},
		[]string{"provider", "direction"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_events_published_total",
			Help: "Application events handed to the broker by type and result",
		},
		[]string{"type", "result"},
	)
)

// Collectors returns every collector the process exposes.
func Collectors() []prometheus.Collector {
	cs := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AIRequestsTotal,
		AIRequestDuration,
		AITokensTotal,
		CircuitBreakerState,
		EventsPublishedTotal,
	}
	return append(cs, pipeline.Collectors()...)
}

// InitMetrics registers Collectors on the default registry.
func InitMetrics() {
	prometheus.MustRegister(Collectors()...)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RecordAIRequest counts one provider call and its latency.
func RecordAIRequest(provider, operation, outcome string, dur time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

// RecordAITokens adds prompt and completion token estimates.
func RecordAITokens(provider string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// SetCircuitState publishes a breaker state.
func SetCircuitState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordEventPublish counts a publish attempt.
func RecordEventPublish(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}
