package runner

import (
	"context"
	"time"

	"github.com/aic-holdings/bot-slack-core/events"
	"github.com/aic-holdings/bot-slack-core/loop"
	"github.com/aic-holdings/bot-slack-core/providers"
	"github.com/aic-holdings/bot-slack-core/types"
)

// Responder produces the assistant response for one conversation. The
// orchestrator selects a concrete strategy at construction time and routes
// every non-diagnostic message through it.
type Responder interface {
	Respond(ctx context.Context, conversation []types.Message) (string, error)
}

// ChatFunc is the legacy injection point for bots that bring their own chat
// implementation instead of the built-in backend.
type ChatFunc func(ctx context.Context, conversation []types.Message, systemPrompt string) (string, error)

// DelegatedResponder routes conversations to an injected ChatFunc. It exists
// for migration: bots move off it once they adopt the built-in backend.
type DelegatedResponder struct {
	fn           ChatFunc
	systemPrompt string
}

// NewDelegatedResponder wraps a legacy chat function.
func NewDelegatedResponder(fn ChatFunc, systemPrompt string) *DelegatedResponder {
	return &DelegatedResponder{fn: fn, systemPrompt: systemPrompt}
}

// Respond invokes the delegated chat function.
func (d *DelegatedResponder) Respond(ctx context.Context, conversation []types.Message) (string, error) {
	return d.fn(ctx, conversation, d.systemPrompt)
}

// ToolResponder runs conversations through the bounded tool-use loop.
type ToolResponder struct {
	loop         *loop.Loop
	systemPrompt string
}

// NewToolResponder wraps a configured tool loop.
func NewToolResponder(l *loop.Loop, systemPrompt string) *ToolResponder {
	return &ToolResponder{loop: l, systemPrompt: systemPrompt}
}

// Respond runs the tool-use protocol to completion.
func (t *ToolResponder) Respond(ctx context.Context, conversation []types.Message) (string, error) {
	return t.loop.Run(ctx, conversation, t.systemPrompt)
}

// SimpleResponder makes a single backend call with no tools offered. Used by
// bots that configure neither tools nor a legacy chat function.
type SimpleResponder struct {
	client       providers.Client
	systemPrompt string
	emitter      *events.Emitter
}

// NewSimpleResponder wraps a chat backend for plain completions. The emitter
// may be nil; telemetry is then discarded.
func NewSimpleResponder(client providers.Client, systemPrompt string, emitter *events.Emitter) *SimpleResponder {
	return &SimpleResponder{client: client, systemPrompt: systemPrompt, emitter: emitter}
}

// Respond performs one completion over the system prompt plus conversation.
// Token usage is published for every backend call, the same as the tool
// loop does, so captures see the no-tools path too.
func (s *SimpleResponder) Respond(ctx context.Context, conversation []types.Message) (string, error) {
	msgs := make([]types.Message, 0, len(conversation)+1)
	if s.systemPrompt != "" {
		msgs = append(msgs, types.SystemMessage(s.systemPrompt))
	}
	msgs = append(msgs, conversation...)

	start := time.Now()
	turn, err := s.client.Complete(ctx, msgs, nil)
	if err != nil {
		s.emitter.ProviderCallFailed(s.client.Model(), time.Since(start), err)
		return "", err
	}
	s.emitter.ProviderCallCompleted(s.client.Model(), turn.Usage, turn.Latency)
	return turn.Content, nil
}
