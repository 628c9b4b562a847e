package events

import (
	"time"

	"github.com/aic-holdings/bot-slack-core/types"
)

// Emitter provides helpers for publishing runtime events with shared metadata.
// A nil Emitter (or one with a nil bus) discards all events, so components
// can emit unconditionally.
type Emitter struct {
	bus     *Bus
	runID   string
	botName string
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *Bus, runID, botName string) *Emitter {
	return &Emitter{
		bus:     bus,
		runID:   runID,
		botName: botName,
	}
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     e.runID,
		BotName:   e.botName,
		Data:      data,
	})
}

// ProviderCallCompleted emits the provider.call.completed event.
func (e *Emitter) ProviderCallCompleted(model string, usage types.Usage, duration time.Duration) {
	e.emit(EventProviderCallCompleted, ProviderCallData{
		Model:    model,
		Usage:    usage,
		Duration: duration,
	})
}

// ProviderCallFailed emits the provider.call.failed event.
func (e *Emitter) ProviderCallFailed(model string, duration time.Duration, err error) {
	e.emit(EventProviderCallFailed, ProviderCallData{
		Model:    model,
		Duration: duration,
		Err:      err,
	})
}

// ToolCallCompleted emits the tool.call.completed event.
func (e *Emitter) ToolCallCompleted(name string, args map[string]any, iteration int, duration time.Duration) {
	e.emit(EventToolCallCompleted, ToolCallData{
		Name:      name,
		Args:      args,
		Iteration: iteration,
		Duration:  duration,
		Success:   true,
	})
}

// ToolCallFailed emits the tool.call.failed event.
func (e *Emitter) ToolCallFailed(name string, args map[string]any, iteration int, duration time.Duration) {
	e.emit(EventToolCallFailed, ToolCallData{
		Name:      name,
		Args:      args,
		Iteration: iteration,
		Duration:  duration,
	})
}

// LoopExhausted emits the loop.exhausted event.
func (e *Emitter) LoopExhausted(maxIterations int) {
	e.emit(EventLoopExhausted, LoopExhaustedData{MaxIterations: maxIterations})
}

// CaseCompleted emits the eval.case.completed event.
func (e *Emitter) CaseCompleted(caseID string, passed bool, elapsed time.Duration, usage types.Usage) {
	e.emit(EventCaseCompleted, CaseCompletedData{
		CaseID:  caseID,
		Passed:  passed,
		Elapsed: elapsed,
		Usage:   usage,
	})
}
