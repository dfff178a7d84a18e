// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	pipelineStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_pipeline_stage_total",
			Help: "Pipeline stage outcomes by stage (schema, generate, execute) and outcome (ok, error).",
		},
		[]string{"stage", "outcome"},
	)

	pipelineDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_pipeline_duration_seconds",
			Help:    "End-to-end question latency by result.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"success"},
	)

	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_llm_requests_total",
			Help: "Language model calls by provider and outcome (ok, error, circuit_open).",
		},
		[]string{"provider", "outcome"},
	)

	injectionFlagsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_injection_flags_total",
			Help: "Questions matching a SQL injection fingerprint.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		pipelineStageTotal,
		pipelineDurationSeconds,
		llmRequestsTotal,
		injectionFlagsTotal,
	)
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

// ObserveStage records the outcome of one pipeline stage.
func ObserveStage(stage string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pipelineStageTotal.WithLabelValues(stage, outcome).Inc()
}

// ObservePipeline records one completed pipeline run.
func ObservePipeline(success bool, elapsedSeconds float64) {
	label := "false"
	if success {
		label = "true"
	}
	pipelineDurationSeconds.WithLabelValues(label).Observe(elapsedSeconds)
}

// ObserveLLMRequest records one language model call.
func ObserveLLMRequest(provider, outcome string) {
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// IncrementInjectionFlag counts a question flagged by the injection heuristic.
func IncrementInjectionFlag() {
	injectionFlagsTotal.Inc()
}
