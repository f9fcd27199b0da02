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
// the enrollment engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	registrations      *prometheus.CounterVec
	capacityRejections prometheus.Counter
	cancellations      prometheus.Counter
	webhookEvents      *prometheus.CounterVec
	recounts           prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_registrations_total",
		Help: "Enrollment registration attempts by outcome",
	}, []string{"outcome"})

	capacityRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_capacity_rejections_total",
		Help: "Registrations rejected because the class was full",
	})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_cancellations_total",
		Help: "Enrollments cancelled",
	})

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Stripe webhook events received by type",
	}, []string{"type"})

	recounts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "counter_recounts_total",
		Help: "Enrollment counter recount jobs executed",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, registrations, capacityRejections,
		cancellations, webhookEvents, recounts, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		registrations:      registrations,
		capacityRejections: capacityRejections,
		cancellations:      cancellations,
		webhookEvents:      webhookEvents,
		recounts:           recounts,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request timing and totals.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordRegistration counts a registration attempt by outcome
// (success, duplicate, full, error).
func (m *MetricsService) RecordRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
	if outcome == "full" {
		m.capacityRejections.Inc()
	}
}

// RecordCancellation counts a completed cancellation.
func (m *MetricsService) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// RecordWebhookEvent counts a received Stripe event by type.
func (m *MetricsService) RecordWebhookEvent(eventType string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType).Inc()
}

// RecordRecount counts an executed counter recount job.
func (m *MetricsService) RecordRecount() {
	if m == nil {
		return
	}
	m.recounts.Inc()
}

// RecordCacheOperation counts a cache lookup result.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
