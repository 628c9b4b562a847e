// Package providers implements chat backend clients for bot deployments.
//
// The only production backend is OpenRouter's chat-completions API, spoken
// over raw net/http. A Client is stateless per call: it is handed a
// conversation plus optional tool definitions and returns exactly one
// assistant turn (text or tool-call requests) with token usage counters.
// Multi-round tool execution lives in the loop package, not here.
package providers

import (
	"context"
	"time"

	"github.com/aic-holdings/bot-slack-core/types"
)

// AssistantTurn is one assistant reply from a chat backend: either final
// text, or a batch of tool-call requests, or both. Usage covers only the
// call that produced this turn.
type AssistantTurn struct {
	Content   string
	ToolCalls []types.MessageToolCall
	Usage     types.Usage
	Latency   time.Duration
}

// Client is the chat backend abstraction used by the tool loop and the
// orchestrator. Complete blocks until the backend replies or the transport
// times out; there is no retry policy at this layer.
type Client interface {
	// Complete sends the conversation (and optional tool definitions) and
	// returns the assistant's turn. Transport failures and non-2xx
	// responses surface as *BackendError.
	Complete(ctx context.Context, conversation []types.Message, tools []types.ToolDef) (*AssistantTurn, error)

	// Model returns the model identifier this client is configured for.
	Model() string
}
