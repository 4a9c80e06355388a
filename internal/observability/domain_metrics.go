package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_classifications_total",
			Help: "Total number of classified questions by entity, operation and deciding rule.",
		},
		[]string{"entity", "operation", "rule"},
	)
	storeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_store_calls_total",
			Help: "Total number of storage calls by kind (execute, validate) and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	storeLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydesk_store_latency_ms",
			Help:    "Storage call latency in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"kind"},
	)
	objectStoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_object_store_ops_total",
			Help: "Total number of snapshot object store operations by op and outcome (success, not_found, failure).",
		},
		[]string{"op", "outcome"},
	)
	objectStoreLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydesk_object_store_latency_seconds",
			Help:    "Snapshot object store operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	auditFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_audit_failures_total",
			Help: "Total number of audit records that could not be persisted.",
		},
	)
	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_login_attempts_total",
			Help: "Total number of login attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		classificationsTotal,
		storeCallsTotal,
		storeLatencyMs,
		objectStoreOpsTotal,
		objectStoreLatencySeconds,
		auditFailuresTotal,
		loginAttemptsTotal,
	)
}

func ObserveClassification(entity, operation, rule string) {
	classificationsTotal.WithLabelValues(entity, operation, rule).Inc()
}

func ObserveStoreCall(kind string, success bool, elapsed time.Duration) {
	storeCallsTotal.WithLabelValues(kind, outcomeLabel(success)).Inc()
	storeLatencyMs.WithLabelValues(kind).Observe(float64(elapsed.Milliseconds()))
}

// ObserveObjectStoreOp records one object store call. outcome is success,
// not_found or failure.
func ObserveObjectStoreOp(op, outcome string, elapsed time.Duration) {
	objectStoreOpsTotal.WithLabelValues(op, outcome).Inc()
	objectStoreLatencySeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

func IncrementAuditFailure() {
	auditFailuresTotal.Inc()
}

func ObserveLogin(success bool) {
	loginAttemptsTotal.WithLabelValues(outcomeLabel(success)).Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
