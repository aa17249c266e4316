package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Commit outcomes recorded by MetricsService.
const (
	CommitOutcomeSuccess      = "success"
	CommitOutcomeInvalid      = "invalid"
	CommitOutcomeInFlight     = "in_flight"
	CommitOutcomeTransport    = "transport_error"
	CommitOutcomeRefreshError = "refresh_error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	commitTotal     *prometheus.CounterVec
	commitDuration  prometheus.Observer
	openSessions    prometheus.Gauge
	submissionTotal *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups partitioned by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	commitTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_commits_total",
		Help: "Grade commits partitioned by outcome",
	}, []string{"outcome"})

	commitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grade_commit_duration_seconds",
		Help:    "Duration of grade commits including the ledger refresh",
		Buckets: prometheus.DefBuckets,
	})

	openSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grading_sessions_open",
		Help: "Grading sessions currently held in memory",
	})

	submissionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_total",
		Help: "Submission attempts partitioned by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, commitTotal, commitDuration, openSessions, submissionTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheLatency:    cacheLatency,
		commitTotal:     commitTotal,
		commitDuration:  commitDuration,
		openSessions:    openSessions,
		submissionTotal: submissionTotal,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCommit records the outcome and latency of a grade commit.
func (m *MetricsService) RecordCommit(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commitTotal.WithLabelValues(outcome).Inc()
	m.commitDuration.Observe(duration.Seconds())
}

// SetOpenSessions publishes the number of live grading sessions.
func (m *MetricsService) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.openSessions.Set(float64(n))
}

// RecordSubmission records a submission attempt.
func (m *MetricsService) RecordSubmission(result string) {
	if m == nil {
		return
	}
	m.submissionTotal.WithLabelValues(result).Inc()
}
