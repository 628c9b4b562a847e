package providers

import (
	"context"
	"sync"

	"github.com/aic-holdings/bot-slack-core/types"
)

// MockClient is a Client implementation for testing and development.
// It replays a scripted sequence of assistant turns without making any API
// calls and records every request it receives.
type MockClient struct {
	mu    sync.Mutex
	model string
	turns []*AssistantTurn
	errs  []error
	calls int

	// Requests holds a copy of each conversation passed to Complete, in
	// call order.
	Requests [][]types.Message

	// Tools holds the tool definitions passed on each call.
	Tools [][]types.ToolDef
}

// NewMockClient creates a mock client for the given model identifier.
func NewMockClient(model string) *MockClient {
	return &MockClient{model: model}
}

// QueueTurn appends a scripted assistant turn to the replay sequence.
func (m *MockClient) QueueTurn(turn *AssistantTurn) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	m.errs = append(m.errs, nil)
	return m
}

// QueueError appends a scripted failure to the replay sequence.
func (m *MockClient) QueueError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, nil)
	m.errs = append(m.errs, err)
	return m
}

// QueueText is shorthand for queueing a plain-text turn with the given usage.
func (m *MockClient) QueueText(content string, usage types.Usage) *MockClient {
	return m.QueueTurn(&AssistantTurn{Content: content, Usage: usage})
}

// Calls returns how many times Complete has been invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Model returns the configured model identifier.
func (m *MockClient) Model() string {
	return m.model
}

// Complete replays the next scripted turn or error. Running past the end of
// the script returns an empty turn, which reads as a terminal "no response".
func (m *MockClient) Complete(_ context.Context, conversation []types.Message, tools []types.ToolDef) (*AssistantTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]types.Message, len(conversation))
	copy(snapshot, conversation)
	m.Requests = append(m.Requests, snapshot)
	m.Tools = append(m.Tools, tools)

	idx := m.calls
	m.calls++

	if idx >= len(m.turns) {
		return &AssistantTurn{}, nil
	}
	if m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	return m.turns[idx], nil
}
