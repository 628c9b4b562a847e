package prometheus

import (
	"github.com/aic-holdings/bot-slack-core/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusPassed  = "passed"
	statusFailed  = "failed"
)

// MetricsListener records runtime events as Prometheus metrics. Register it
// with an event bus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle implements events.Sink.
func (l *MetricsListener) Handle(event *events.Event) {
	switch event.Type {
	case events.EventProviderCallCompleted:
		if data, ok := event.Data.(events.ProviderCallData); ok {
			RecordProviderRequest(data.Model, statusSuccess, data.Duration.Seconds())
			RecordProviderTokens(data.Model, data.Usage.Prompt, data.Usage.Completion)
		}
	case events.EventProviderCallFailed:
		if data, ok := event.Data.(events.ProviderCallData); ok {
			RecordProviderRequest(data.Model, statusError, data.Duration.Seconds())
		}
	case events.EventToolCallCompleted:
		if data, ok := event.Data.(events.ToolCallData); ok {
			RecordToolCall(data.Name, statusSuccess, data.Duration.Seconds())
		}
	case events.EventToolCallFailed:
		if data, ok := event.Data.(events.ToolCallData); ok {
			RecordToolCall(data.Name, statusError, data.Duration.Seconds())
		}
	case events.EventLoopExhausted:
		RecordLoopExhaustion()
	case events.EventCaseCompleted:
		if data, ok := event.Data.(events.CaseCompletedData); ok {
			status := statusFailed
			if data.Passed {
				status = statusPassed
			}
			RecordEvalCase(status, data.Elapsed.Seconds())
		}
	default:
		// Events without metrics are ignored.
	}
}
