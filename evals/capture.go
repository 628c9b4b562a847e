package evals

import (
	"sync"

	"github.com/aic-holdings/bot-slack-core/events"
)

// Capture is an event-bus sink that accumulates the telemetry one eval case
// produces: token usage from provider calls and tool invocations in order.
// Attach a fresh Capture per case; it is safe for concurrent delivery.
type Capture struct {
	mu        sync.Mutex
	tokens    TokenTotals
	toolCalls []ToolCallRecord
}

// NewCapture creates an empty capture.
func NewCapture() *Capture {
	return &Capture{}
}

// Handle implements events.Sink. Failed tool calls count as invocations:
// the tool was reached even when it did not succeed.
func (c *Capture) Handle(event *events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch data := event.Data.(type) {
	case events.ProviderCallData:
		if event.Type == events.EventProviderCallCompleted {
			c.tokens.Add(data.Usage)
		}
	case events.ToolCallData:
		c.toolCalls = append(c.toolCalls, ToolCallRecord{
			Iteration: data.Iteration,
			Name:      data.Name,
		})
	}
}

// Tokens returns the accumulated token totals.
func (c *Capture) Tokens() TokenTotals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// ToolCalls returns the observed invocations in order.
func (c *Capture) ToolCalls() []ToolCallRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolCallRecord, len(c.toolCalls))
	copy(out, c.toolCalls)
	return out
}

// ToolCalled reports whether the named tool was invoked at least once.
func (c *Capture) ToolCalled(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tc := range c.toolCalls {
		if tc.Name == name {
			return true
		}
	}
	return false
}

// Reset clears all accumulated telemetry.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = TokenTotals{}
	c.toolCalls = nil
}
