package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors exposed on /metrics. Each Metrics
// owns its registry so tests can build as many routers as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	calculations *prometheus.CounterVec
	accrualRuns  *prometheus.CounterVec
	accrued      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loanengine",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loanengine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loanengine",
			Name:      "calculations_total",
			Help:      "Calculator operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		accrualRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loanengine",
			Name:      "accrual_runs_total",
			Help:      "Daily accrual runs by status.",
		}, []string{"status"}),
		accrued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loanengine",
			Name:      "accrued_interest_rupees_total",
			Help:      "Interest recorded by daily accrual runs.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.calculations, m.accrualRuns, m.accrued,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency under the matched route
// pattern, so /api/loans/{id} is one series rather than one per loan.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeCalculation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calculations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeAccrualRun(status string, interest float64) {
	m.accrualRuns.WithLabelValues(status).Inc()
	if interest > 0 {
		m.accrued.Add(interest)
	}
}
