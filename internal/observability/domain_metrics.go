package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	toolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmesh_tool_invocations_total",
			Help: "Total number of tool invocations by tool name and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	toolInvocationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatmesh_tool_invocation_duration_seconds",
			Help:    "Tool invocation latency by tool name.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)
	sqlSynthesisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatmesh_sql_synthesis_duration_seconds",
			Help:    "Latency of SQL query synthesis completion calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	sqlExecutionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatmesh_sql_execution_duration_seconds",
			Help:    "Latency of DuckDB load plus query execution.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	sqlQueriesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatmesh_sql_queries_rejected_total",
			Help: "Total number of generated queries rejected before execution.",
		},
		[]string{"reason"},
	)
	documentsIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatmesh_documents_indexed_total",
			Help: "Total number of documents chunked and upserted into the vector index.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		toolInvocationsTotal,
		toolInvocationDurationSeconds,
		sqlSynthesisDurationSeconds,
		sqlExecutionDurationSeconds,
		sqlQueriesRejectedTotal,
		documentsIndexedTotal,
	)
}

func ObserveToolInvocation(tool, outcome string, elapsed time.Duration) {
	toolInvocationsTotal.WithLabelValues(tool, outcome).Inc()
	toolInvocationDurationSeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func ObserveSynthesis(elapsed time.Duration) {
	sqlSynthesisDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration) {
	sqlExecutionDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementQueryRejected(reason string) {
	sqlQueriesRejectedTotal.WithLabelValues(reason).Inc()
}

func IncrementDocumentsIndexed() {
	documentsIndexedTotal.Inc()
}
