package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Model invocation outcomes recorded against the ai_model_invocations
// counter.
const (
	ModelOutcomeSuccess = "success"
	ModelOutcomeFailure = "failure"
)

// MetricsService encapsulates Prometheus instrumentation for the planner
// and the AI gateway. All methods are nil-receiver safe so services can
// run without metrics wired.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	sectionsExamined prometheus.Histogram
	plansReturned    prometheus.Histogram
	generationTotal  prometheus.Counter
	modelInvocations *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheHitRatio    prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the planner collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	sectionsExamined := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_sections_examined",
		Help:    "Catalog sections fed into one enumeration call",
		Buckets: []float64{1, 5, 10, 20, 40, 80},
	})

	plansReturned := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_plans_returned",
		Help:    "Plans returned by one enumeration call",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
	})

	generationTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_generations_total",
		Help: "Total plan enumeration calls",
	})

	modelInvocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_model_invocations_total",
		Help: "External model invocations by model and outcome",
	}, []string{"model", "outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ai_cache_hits_total",
		Help: "AI response cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ai_cache_misses_total",
		Help: "AI response cache misses",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ai_cache_hit_ratio",
		Help: "Ratio of AI cache hits to total lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(httpRequests, httpDuration, sectionsExamined, plansReturned, generationTotal, modelInvocations, cacheHits, cacheMisses, cacheHitRatio, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
		sectionsExamined: sectionsExamined,
		plansReturned:    plansReturned,
		generationTotal:  generationTotal,
		modelInvocations: modelInvocations,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		cacheHitRatio:    cacheHitRatio,
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

// ObserveHTTPRequest records one handled HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveGeneration records one enumeration call.
func (m *MetricsService) ObserveGeneration(sections, plans int) {
	if m == nil {
		return
	}
	m.generationTotal.Inc()
	m.sectionsExamined.Observe(float64(sections))
	m.plansReturned.Observe(float64(plans))
}

// RecordModelInvocation counts one external model call.
func (m *MetricsService) RecordModelInvocation(model, outcome string) {
	if m == nil {
		return
	}
	m.modelInvocations.WithLabelValues(model, outcome).Inc()
}

// RecordCacheLookup counts an AI response cache lookup and refreshes the
// hit ratio gauge.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
