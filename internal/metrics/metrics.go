// Package metrics exposes Prometheus metrics for the audit engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit session metrics
	AuditsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aeo_audits_started_total",
			Help: "Total number of audit sessions started",
		},
	)

	AuditsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aeo_audits_completed_total",
			Help: "Total number of audit sessions reaching a terminal status",
		},
		[]string{"status"},
	)

	AuditDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aeo_audit_duration_seconds",
			Help:    "End-to-end audit run duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	AuditsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aeo_audits_active",
			Help: "Number of audit runs currently executing",
		},
	)

	// Platform call metrics
	PlatformCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aeo_platform_calls_total",
			Help: "Total number of platform calls by outcome",
		},
		[]string{"platform", "outcome"},
	)

	PlatformCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aeo_platform_call_duration_ms",
			Help:    "Platform call duration in milliseconds",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"platform"},
	)

	// Analysis metrics
	AnalysesRun = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aeo_analyses_total",
			Help: "Total number of citation analyses executed",
		},
	)

	AnalysisCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aeo_analysis_cache_hits_total",
			Help: "Total number of analysis results served from cache",
		},
	)

	AnalysisCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aeo_analysis_cache_misses_total",
			Help: "Total number of analysis cache misses",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aeo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
