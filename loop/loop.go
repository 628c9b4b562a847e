// Package loop implements the bounded tool-use conversation loop: send the
// conversation to the chat backend, execute any requested tools, append the
// results, and repeat until the model produces text or the iteration budget
// runs out.
//
// Terminal states are: text from the model (success), a backend failure
// (abort, typed error, never retried), or an exhausted iteration budget
// (ErrMaxIterations, a policy ceiling rather than a backend fault). Tool failures
// are never terminal: they are folded back into the conversation as error
// results so the model can recover or report them.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aic-holdings/bot-slack-core/events"
	"github.com/aic-holdings/bot-slack-core/logger"
	"github.com/aic-holdings/bot-slack-core/providers"
	"github.com/aic-holdings/bot-slack-core/tools"
	"github.com/aic-holdings/bot-slack-core/types"
)

// DefaultMaxIterations bounds tool-use rounds when not configured.
const DefaultMaxIterations = 5

// ErrMaxIterations is returned when the loop completes its iteration budget
// without the model producing a final text response.
var ErrMaxIterations = errors.New("tool loop reached maximum iterations")

// Loop drives the tool-use protocol against a chat backend. One Loop
// instance processes one conversation to completion per Run call; it holds
// no per-run state.
type Loop struct {
	client        providers.Client
	executor      tools.Executor
	defs          []types.ToolDef
	maxIterations int
	emitter       *events.Emitter
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxIterations overrides the iteration budget. Values below one fall
// back to the default.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithEmitter attaches a telemetry emitter. The loop publishes one provider
// event per backend call and one tool event per executed call, so a bus
// subscriber sees exactly what the conversation consumed.
func WithEmitter(emitter *events.Emitter) Option {
	return func(l *Loop) {
		l.emitter = emitter
	}
}

// New creates a tool loop over the given backend, executor, and tool
// definitions.
func New(client providers.Client, executor tools.Executor, defs []types.ToolDef, opts ...Option) *Loop {
	l := &Loop{
		client:        client,
		executor:      executor,
		defs:          defs,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the tool-use protocol. systemPrompt, when non-empty, is
// prepended as a system message. The input conversation is never mutated;
// the loop works on its own copy and only appends.
//
// Run returns the model's final text on success. A *providers.BackendError
// aborts immediately; ErrMaxIterations signals the iteration budget ran out.
// Both are returned unformatted; the orchestrator owns user-facing strings.
func (l *Loop) Run(ctx context.Context, conversation []types.Message, systemPrompt string) (string, error) {
	msgs := make([]types.Message, 0, len(conversation)+1)
	if systemPrompt != "" {
		msgs = append(msgs, types.SystemMessage(systemPrompt))
	}
	msgs = append(msgs, conversation...)

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		start := time.Now()
		turn, err := l.client.Complete(ctx, msgs, l.defs)
		if err != nil {
			// Backend failures are surfaced, not masked: no retry here.
			l.emitter.ProviderCallFailed(l.client.Model(), time.Since(start), err)
			return "", fmt.Errorf("tool loop iteration %d: %w", iteration, err)
		}
		l.emitter.ProviderCallCompleted(l.client.Model(), turn.Usage, turn.Latency)

		if len(turn.ToolCalls) == 0 {
			// Terminal success state, even when content is empty; the
			// caller substitutes its fallback string.
			return turn.Content, nil
		}

		msgs = append(msgs, types.Message{
			Role:      types.RoleAssistant,
			Content:   turn.Content,
			ToolCalls: turn.ToolCalls,
			Timestamp: time.Now(),
			LatencyMs: turn.Latency.Milliseconds(),
			Usage:     &turn.Usage,
		})

		// Execute strictly in the order received: later calls in a round
		// may depend on earlier results being visible in the transcript,
		// and per-call telemetry ordering must be deterministic.
		for _, call := range turn.ToolCalls {
			msgs = append(msgs, l.executeCall(ctx, call, iteration))
		}
	}

	l.emitter.LoopExhausted(l.maxIterations)
	return "", fmt.Errorf("%w (%d)", ErrMaxIterations, l.maxIterations)
}

// executeCall runs one tool call and produces its tool-role message. All
// failure modes (malformed arguments, executor errors, executor panics)
// become structured error results keyed to the call ID.
func (l *Loop) executeCall(ctx context.Context, call types.MessageToolCall, iteration int) types.Message {
	start := time.Now()

	args, err := call.ArgsMap()
	if err == nil {
		logger.ToolCall(call.Name, iteration, "args", args)
		var result any
		result, err = l.invoke(ctx, call.Name, args)
		if err == nil {
			duration := time.Since(start)
			l.emitter.ToolCallCompleted(call.Name, args, iteration, duration)
			msg := types.ToolMessage(call.ID, call.Name, tools.MarshalResult(result), "")
			msg.ToolResult.LatencyMs = duration.Milliseconds()
			return msg
		}
	}

	// args is nil only when the payload itself failed to parse.
	duration := time.Since(start)
	logger.ToolError(call.Name, iteration, err)
	l.emitter.ToolCallFailed(call.Name, args, iteration, duration)

	errText := fmt.Sprintf("Failed to execute %s: %v", call.Name, err)
	content := tools.MarshalResult(map[string]string{"error": errText})
	msg := types.ToolMessage(call.ID, call.Name, content, errText)
	msg.ToolResult.LatencyMs = duration.Milliseconds()
	return msg
}

// invoke calls the executor with panic containment, so a panicking tool
// reads the same as one returning an error.
func (l *Loop) invoke(ctx context.Context, name string, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return l.executor.Execute(ctx, name, args)
}
