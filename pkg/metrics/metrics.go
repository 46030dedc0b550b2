// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCallDuration tracks external model call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "External model call duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"purpose", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// PipelineStageDuration tracks time spent in each pipeline stage.
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15, 30},
		},
		[]string{"stage"},
	)

	// PipelineRunsTotal counts pipeline runs by outcome.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total pipeline runs",
		},
		[]string{"outcome"},
	)

	// PipelineFallbacksTotal counts fallback paths taken.
	PipelineFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fallbacks_total",
			Help: "Total fallbacks taken by pipeline components",
		},
		[]string{"component", "reason"},
	)

	// SuggestionsReturned tracks the size of suggestion lists.
	SuggestionsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suggestions_returned",
			Help:    "Number of suggestions returned per run",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// CatalogQueryFailures counts failed catalog queries by source.
	CatalogQueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_query_failures_total",
			Help: "Total failed catalog queries",
		},
		[]string{"type"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// JournalPublishFailures counts journal writes that were dropped.
	JournalPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_publish_failures_total",
			Help: "Journal publishes that failed",
		},
		[]string{"kind"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks total messages logged.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages logged",
		},
		[]string{"sender"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one external model call.
func RecordLLMCall(purpose, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(purpose, status).Observe(duration)
	if model == "" {
		return
	}
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordStage records the duration of a pipeline stage.
func RecordStage(stage string, duration float64) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordFallback counts a fallback taken by a component.
func RecordFallback(component, reason string) {
	PipelineFallbacksTotal.WithLabelValues(component, reason).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
