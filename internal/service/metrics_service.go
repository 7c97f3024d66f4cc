package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the platform
// core.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	accessDecisions    *prometheus.CounterVec
	guardInterventions *prometheus.CounterVec
	entitlementsIssued *prometheus.CounterVec
	couponRedemptions  prometheus.Counter
}

// NewMetricsService registers the platform collectors.
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

	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Content access decisions by resolved level",
	}, []string{"level"})

	guardInterventions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenancy_guard_interventions_total",
		Help: "Tenancy guard interventions by kind",
	}, []string{"kind"})

	entitlementsIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlements_issued_total",
		Help: "Entitlements created by the issuer, by type",
	}, []string{"type"})

	couponRedemptions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coupon_redemptions_total",
		Help: "Coupon redemptions recorded",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, accessDecisions,
		guardInterventions, entitlementsIssued, couponRedemptions, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		accessDecisions:    accessDecisions,
		guardInterventions: guardInterventions,
		entitlementsIssued: entitlementsIssued,
		couponRedemptions:  couponRedemptions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordAccessDecision counts a resolved content access level.
func (s *MetricsService) RecordAccessDecision(level string) {
	s.accessDecisions.WithLabelValues(level).Inc()
}

// GuardIntervention counts a tenancy guard intervention. Satisfies
// tenancy.MetricsRecorder.
func (s *MetricsService) GuardIntervention(kind string) {
	s.guardInterventions.WithLabelValues(kind).Inc()
}

// RecordEntitlementIssued counts a created grant.
func (s *MetricsService) RecordEntitlementIssued(entitlementType string) {
	s.entitlementsIssued.WithLabelValues(entitlementType).Inc()
}

// RecordCouponRedemption counts a first-time redemption.
func (s *MetricsService) RecordCouponRedemption() {
	s.couponRedemptions.Inc()
}
