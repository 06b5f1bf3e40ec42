package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus collectors for the service. A private
// registry keeps tests from tripping on duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	LLMCalls    *prometheus.CounterVec
	LLMDuration *prometheus.HistogramVec
	LLMRetries  *prometheus.CounterVec
	BreakerOpen *prometheus.GaugeVec

	NodeExecutions *prometheus.CounterVec
	NodeDuration   *prometheus.HistogramVec
	WorkflowRuns   *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ChunksIndexed prometheus.Counter
	QueriesServed prometheus.Counter

	EventsEmitted *prometheus.CounterVec
	EventsDropped prometheus.Counter
}

// New creates the collector set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_llm_calls_total",
			Help: "LLM gateway calls by provider, task type and outcome",
		}, []string{"provider", "task_type", "outcome"}),

		LLMDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "novaintel_llm_call_duration_seconds",
			Help:    "LLM call latency by provider and task type",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider", "task_type"}),

		LLMRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_llm_retries_total",
			Help: "LLM call retry attempts by provider",
		}, []string{"provider"}),

		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "novaintel_llm_breaker_open",
			Help: "1 when the provider circuit breaker is open",
		}, []string{"provider"}),

		NodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_workflow_node_executions_total",
			Help: "Workflow node executions by node and status",
		}, []string{"node", "status"}),

		NodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "novaintel_workflow_node_duration_seconds",
			Help:    "Workflow node execution latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"node"}),

		WorkflowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_workflow_runs_total",
			Help: "Workflow runs by terminal status",
		}, []string{"status"}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_cache_hits_total",
			Help: "Cache hits by cache name",
		}, []string{"cache"}),

		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_cache_misses_total",
			Help: "Cache misses by cache name",
		}, []string{"cache"}),

		ChunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaintel_chunks_indexed_total",
			Help: "Chunks written to the vector store",
		}),

		QueriesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaintel_retrieval_queries_total",
			Help: "Retrieval queries served",
		}),

		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaintel_events_emitted_total",
			Help: "Events emitted to the project stream by kind",
		}, []string{"kind"}),

		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaintel_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		}),
	}
}

// Handler serves the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLLMCall records one gateway call.
func (m *Metrics) ObserveLLMCall(provider, taskType, outcome string, start time.Time) {
	m.LLMCalls.WithLabelValues(provider, taskType, outcome).Inc()
	m.LLMDuration.WithLabelValues(provider, taskType).Observe(time.Since(start).Seconds())
}

// ObserveNode records one node execution.
func (m *Metrics) ObserveNode(node, status string, start time.Time) {
	m.NodeExecutions.WithLabelValues(node, status).Inc()
	m.NodeDuration.WithLabelValues(node).Observe(time.Since(start).Seconds())
}
