// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Assessment metrics
	AssessmentsTotal   *prometheus.CounterVec
	AssessmentDuration prometheus.Histogram
	AssessmentScore    prometheus.Histogram
	AssessmentErrors   *prometheus.CounterVec
	FlagsRaised        *prometheus.CounterVec
	DegradedSignals    *prometheus.CounterVec
	BundleDetections   *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec

	// Chain metrics
	RPCCallLatency   *prometheus.HistogramVec
	RPCCallErrors    *prometheus.CounterVec
	MarketRequests   *prometheus.CounterVec
	HighestSlotSeen  prometheus.Gauge
	SlotLocateProbes prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAssessment prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "risk_engine"
	}

	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "total",
			Help:      "Total number of completed assessments by risk level",
		}, []string{"level"}),
		AssessmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "duration_seconds",
			Help:      "End-to-end assessment duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
		AssessmentScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "score",
			Help:      "Distribution of final risk scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		AssessmentErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "errors_total",
			Help:      "Total number of failed assessments",
		}, []string{"reason"}),
		FlagsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "flags_total",
			Help:      "Total number of risk flags raised by type and severity",
		}, []string{"type", "severity"}),
		DegradedSignals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "degraded_signals_total",
			Help:      "Total number of signals that fell back to a neutral value",
		}, []string{"signal"}),
		BundleDetections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "bundle_detections_total",
			Help:      "Total number of bundle detections by confidence",
		}, []string{"confidence"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache name and result",
		}, []string{"cache", "result"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed RPC calls",
		}, []string{"method"}),
		MarketRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "requests_total",
			Help:      "Market data requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "highest_slot_seen",
			Help:      "Highest slot observed",
		}),
		SlotLocateProbes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "slot_locate_probes",
			Help:      "Number of block-time probes per slot search",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),

		LastSuccessfulAssessment: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_assessment_timestamp",
			Help:      "Unix timestamp of last successful assessment",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAssessment records a completed assessment.
func RecordAssessment(level string, score int, seconds float64) {
	DefaultMetrics.AssessmentsTotal.WithLabelValues(level).Inc()
	DefaultMetrics.AssessmentScore.Observe(float64(score))
	DefaultMetrics.AssessmentDuration.Observe(seconds)
	DefaultMetrics.LastSuccessfulAssessment.Set(float64(time.Now().Unix()))
}

// RecordAssessmentError records a failed assessment.
func RecordAssessmentError(reason string) {
	DefaultMetrics.AssessmentErrors.WithLabelValues(reason).Inc()
}

// RecordFlag records a raised risk flag.
func RecordFlag(flagType, severity string) {
	DefaultMetrics.FlagsRaised.WithLabelValues(flagType, severity).Inc()
}

// RecordDegradedSignal records a signal that fell back to its neutral value.
func RecordDegradedSignal(signal string) {
	DefaultMetrics.DegradedSignals.WithLabelValues(signal).Inc()
}

// RecordBundleDetection records a positive bundle detection.
func RecordBundleDetection(confidence string) {
	DefaultMetrics.BundleDetections.WithLabelValues(confidence).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
}

// RecordMarketRequest records a market data request.
func RecordMarketRequest(endpoint, status string) {
	DefaultMetrics.MarketRequests.WithLabelValues(endpoint, status).Inc()
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordSlotLocate records how many probes a slot search used.
func RecordSlotLocate(probes int) {
	DefaultMetrics.SlotLocateProbes.Observe(float64(probes))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, status string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, status).Inc()
}
