package events

import (
	"time"

	"github.com/aic-holdings/bot-slack-core/types"
)

// EventType identifies the type of event emitted by the runtime.
type EventType string

const (
	// EventProviderCallCompleted marks a successful chat backend call.
	EventProviderCallCompleted EventType = "provider.call.completed"
	// EventProviderCallFailed marks a failed chat backend call.
	EventProviderCallFailed EventType = "provider.call.failed"

	// EventToolCallCompleted marks a completed tool execution within a round.
	EventToolCallCompleted EventType = "tool.call.completed"
	// EventToolCallFailed marks a failed tool execution within a round.
	EventToolCallFailed EventType = "tool.call.failed"

	// EventLoopExhausted marks a tool loop ending on its iteration budget.
	EventLoopExhausted EventType = "loop.exhausted"

	// EventCaseCompleted marks a finished eval case run.
	EventCaseCompleted EventType = "eval.case.completed"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a runtime event delivered to sinks.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	BotName   string
	Data      EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// ProviderCallData carries telemetry for a single chat backend call.
type ProviderCallData struct {
	baseEventData
	Model    string
	Usage    types.Usage
	Duration time.Duration
	Err      error
}

// ToolCallData carries telemetry for a single tool execution.
type ToolCallData struct {
	baseEventData
	Name      string
	Args      map[string]any
	Iteration int
	Duration  time.Duration
	Success   bool
}

// LoopExhaustedData carries the iteration budget that was exhausted.
type LoopExhaustedData struct {
	baseEventData
	MaxIterations int
}

// CaseCompletedData carries the outcome of a single eval case run.
type CaseCompletedData struct {
	baseEventData
	CaseID  string
	Passed  bool
	Elapsed time.Duration
	Usage   types.Usage
}
