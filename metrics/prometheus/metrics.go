// Package prometheus exposes bot-core runtime metrics: backend calls, token
// spend, tool execution, loop exhaustion, and eval outcomes.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "botcore"

var (
	// providerRequestDuration is a histogram of chat backend call duration.
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of chat backend calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	// providerRequestsTotal counts chat backend calls.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of chat backend calls",
		},
		[]string{"model", "status"}, // status: success, error
	)

	// providerTokensTotal counts tokens consumed by backend calls.
	providerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_tokens_total",
			Help:      "Total tokens consumed by chat backend calls",
		},
		[]string{"model", "type"}, // type: prompt, completion
	)

	// toolCallDuration is a histogram of tool execution duration.
	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool executions in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"tool"},
	)

	// toolCallsTotal counts tool executions.
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success, error
	)

	// loopExhaustionsTotal counts conversations that hit the iteration budget.
	loopExhaustionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_exhaustions_total",
			Help:      "Total number of tool loops that hit the iteration budget",
		},
	)

	// evalCasesTotal counts eval case outcomes.
	evalCasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_cases_total",
			Help:      "Total number of eval cases by outcome",
		},
		[]string{"status"}, // status: passed, failed
	)

	// evalCaseDuration is a histogram of eval case duration.
	evalCaseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eval_case_duration_seconds",
			Help:      "Duration of eval cases in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		providerRequestDuration,
		providerRequestsTotal,
		providerTokensTotal,
		toolCallDuration,
		toolCallsTotal,
		loopExhaustionsTotal,
		evalCasesTotal,
		evalCaseDuration,
	}
)

// RecordProviderRequest records one chat backend call.
func RecordProviderRequest(model, status string, durationSeconds float64) {
	providerRequestDuration.WithLabelValues(model).Observe(durationSeconds)
	providerRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordProviderTokens records token consumption for one backend call.
func RecordProviderTokens(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		providerTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		providerTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolCall records one tool execution.
func RecordToolCall(toolName, status string, durationSeconds float64) {
	toolCallDuration.WithLabelValues(toolName).Observe(durationSeconds)
	toolCallsTotal.WithLabelValues(toolName, status).Inc()
}

// RecordLoopExhaustion records a conversation that hit the iteration budget.
func RecordLoopExhaustion() {
	loopExhaustionsTotal.Inc()
}

// RecordEvalCase records one eval case outcome.
func RecordEvalCase(status string, durationSeconds float64) {
	evalCasesTotal.WithLabelValues(status).Inc()
	evalCaseDuration.Observe(durationSeconds)
}
