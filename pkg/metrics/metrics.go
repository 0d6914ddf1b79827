package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Extraction metrics
	ReportsStructured *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	ExamsPerReport    prometheus.Histogram

	// AI extractor metrics
	AIRequests *prometheus.CounterVec
	AIFailures *prometheus.CounterVec
	AILatency  prometheus.Histogram

	// Cache metrics
	CacheOperations *prometheus.CounterVec
	CacheEntries    prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Event publishing
	EventsPublished *prometheus.CounterVec
}

// New creates all application metrics and registers them with reg.
// A nil reg leaves them unregistered.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReportsStructured: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "reports_total",
			Help:      "Total number of structured reports by source",
		}, []string{"source"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "fallbacks_total",
			Help:      "Total number of rule-based fallbacks by reason",
		}, []string{"reason"}),
		ExamsPerReport: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "exams_per_report",
			Help:      "Number of exam results extracted per report",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 80},
		}),

		AIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total number of AI extractor calls by status",
		}, []string{"status"}),
		AIFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "failures_total",
			Help:      "Total number of AI extractor failures by code",
		}, []string{"code"}),
		AILatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Duration of AI extractor calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		CacheOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of report cache events",
		}, []string{"event"}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of entries in the report cache",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of report events published by status",
		}, []string{"status"}),
	}
}

// CacheObserver adapts Metrics to the report cache's observer hooks.
type CacheObserver struct {
	m *Metrics
}

func (m *Metrics) CacheObserver() CacheObserver {
	return CacheObserver{m: m}
}

func (o CacheObserver) Hit()       { o.m.CacheOperations.WithLabelValues("hit").Inc() }
func (o CacheObserver) Miss()      { o.m.CacheOperations.WithLabelValues("miss").Inc() }
func (o CacheObserver) Expired()   { o.m.CacheOperations.WithLabelValues("expired").Inc() }
func (o CacheObserver) Evicted()   { o.m.CacheOperations.WithLabelValues("evicted").Inc() }
func (o CacheObserver) Size(n int) { o.m.CacheEntries.Set(float64(n)) }
