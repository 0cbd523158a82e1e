package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the seat assignment engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	seatsAssigned     prometheus.Counter
	familiesRerouted  prometheus.Counter
	proposalsFiltered prometheus.Counter
	proposalsApplied  prometheus.Counter
	manifestJobs      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "seatmap_cache_latency_seconds",
		Help:    "Latency for seat map cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seatmap_cache_hits_total",
		Help: "Total seat map cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seatmap_cache_misses_total",
		Help: "Total seat map cache misses",
	})

	seatsAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_seats_assigned_total",
		Help: "Total seats assigned by the auto-assignment engine",
	})

	familiesRerouted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_families_rerouted_total",
		Help: "Total reservation groups the engine could not seat contiguously",
	})

	proposalsFiltered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_proposals_filtered_total",
		Help: "Total recommender proposals dropped by validation and conflict filtering",
	})

	proposalsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_proposals_applied_total",
		Help: "Total recommender proposals committed as seat assignments",
	})

	manifestJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manifest_jobs_total",
		Help: "Total manifest export jobs by terminal status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		seatsAssigned, familiesRerouted, proposalsFiltered, proposalsApplied, manifestJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		seatsAssigned:     seatsAssigned,
		familiesRerouted:  familiesRerouted,
		proposalsFiltered: proposalsFiltered,
		proposalsApplied:  proposalsApplied,
		manifestJobs:      manifestJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request duration and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records seat map cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveSeatsAssigned counts seats committed by the auto-assignment engine.
func (m *MetricsService) ObserveSeatsAssigned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.seatsAssigned.Add(float64(n))
}

// ObserveFamilyRerouted counts reservation groups left unseated by the engine.
func (m *MetricsService) ObserveFamilyRerouted() {
	if m == nil {
		return
	}
	m.familiesRerouted.Inc()
}

// ObserveProposalsFiltered counts proposals dropped during validation.
func (m *MetricsService) ObserveProposalsFiltered(dropped int) {
	if m == nil || dropped <= 0 {
		return
	}
	m.proposalsFiltered.Add(float64(dropped))
}

// ObserveProposalsApplied counts proposals committed as assignments.
func (m *MetricsService) ObserveProposalsApplied(applied int) {
	if m == nil || applied <= 0 {
		return
	}
	m.proposalsApplied.Add(float64(applied))
}

// ObserveManifestJob counts a manifest export job reaching a terminal status.
func (m *MetricsService) ObserveManifestJob(status string) {
	if m == nil {
		return
	}
	m.manifestJobs.WithLabelValues(status).Inc()
}
