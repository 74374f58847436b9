package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restaurant_ordering"

// Registry owns the service collectors. It implements ports.MetricsRecorder.
type Registry struct {
	reg *prometheus.Registry

	httpInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
	ordersPlaced   *prometheus.CounterVec
	duplicates     *prometheus.CounterVec
	orderStatus    *prometheus.CounterVec
	outboxBatches  *prometheus.CounterVec
	housekeepingOp *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders accepted from table sessions.",
		}, []string{"restaurant_id"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "duplicates_suppressed_total",
			Help:      "Identical baskets rejected inside the dedup window.",
		}, []string{"restaurant_id"}),
		orderStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions by target status.",
		}, []string{"to"}),
		outboxBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events handled by outcome.",
		}, []string{"outcome"}),
		housekeepingOp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "housekeeping",
			Name:      "rows_total",
			Help:      "Rows touched by retention jobs.",
		}, []string{"job"}),
	}
	r.reg.MustRegister(
		r.httpInFlight,
		r.httpRequests,
		r.httpDuration,
		r.rateLimited,
		r.ordersPlaced,
		r.duplicates,
		r.orderStatus,
		r.outboxBatches,
		r.housekeepingOp,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return r
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) OrderPlaced(restaurantID string) {
	r.ordersPlaced.WithLabelValues(restaurantID).Inc()
}

func (r *Registry) DuplicateOrderSuppressed(restaurantID string) {
	r.duplicates.WithLabelValues(restaurantID).Inc()
}

func (r *Registry) OrderTransitioned(to string) {
	r.orderStatus.WithLabelValues(to).Inc()
}

func (r *Registry) RateLimited(scope string) {
	r.rateLimited.WithLabelValues(scope).Inc()
}

// OutboxBatch adds the per-outcome counts of one outbox pass.
func (r *Registry) OutboxBatch(published, failed, deadLettered int) {
	r.outboxBatches.WithLabelValues("published").Add(float64(published))
	r.outboxBatches.WithLabelValues("failed").Add(float64(failed))
	r.outboxBatches.WithLabelValues("dead_lettered").Add(float64(deadLettered))
}

func (r *Registry) Housekeeping(job string, rows int64) {
	r.housekeepingOp.WithLabelValues(job).Add(float64(rows))
}

// Instrument wraps next with HTTP metrics. Routes are labelled by their chi pattern
// so ids in the path do not explode cardinality.
func (r *Registry) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/metrics" {
			next.ServeHTTP(w, req)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		r.httpInFlight.Inc()
		defer r.httpInFlight.Dec()

		next.ServeHTTP(rec, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(req.Method)
		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
