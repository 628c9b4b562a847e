package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aic-holdings/bot-slack-core/events"
	"github.com/aic-holdings/bot-slack-core/providers"
	"github.com/aic-holdings/bot-slack-core/tools"
	"github.com/aic-holdings/bot-slack-core/types"
)

func toolTurn(calls ...types.MessageToolCall) *providers.AssistantTurn {
	return &providers.AssistantTurn{
		ToolCalls: calls,
		Usage:     types.Usage{Prompt: 10, Completion: 5, Total: 15},
	}
}

func callNamed(id, name, args string) types.MessageToolCall {
	return types.MessageToolCall{ID: id, Name: name, Args: json.RawMessage(args)}
}

func TestRunReturnsTextWithoutToolUse(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueText("hello there", types.Usage{Prompt: 3, Completion: 2, Total: 5})
	executor := tools.NewStaticExecutor()

	l := New(client, executor, nil)
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("hi")}, "be brief")

	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, 1, client.Calls())
	assert.Empty(t, executor.Invocations)
}

func TestRunPrependsSystemPrompt(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueText("ok", types.Usage{})

	l := New(client, tools.NewStaticExecutor(), nil)
	_, err := l.Run(context.Background(), []types.Message{types.UserMessage("hi")}, "be brief")
	require.NoError(t, err)

	require.Len(t, client.Requests, 1)
	require.Len(t, client.Requests[0], 2)
	assert.Equal(t, types.RoleSystem, client.Requests[0][0].Role)
	assert.Equal(t, "be brief", client.Requests[0][0].Content)
	assert.Equal(t, types.RoleUser, client.Requests[0][1].Role)
}

func TestRunOmitsEmptySystemPrompt(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueText("ok", types.Usage{})

	l := New(client, tools.NewStaticExecutor(), nil)
	_, err := l.Run(context.Background(), []types.Message{types.UserMessage("hi")}, "")
	require.NoError(t, err)

	require.Len(t, client.Requests, 1)
	require.Len(t, client.Requests[0], 1)
	assert.Equal(t, types.RoleUser, client.Requests[0][0].Role)
}

func TestRunExecutesToolRound(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(
			callNamed("call_1", "get_weather", `{"city":"Paris"}`),
			callNamed("call_2", "get_time", `{}`),
		)).
		QueueText("sunny, 14:00", types.Usage{})
	executor := tools.NewStaticExecutor().
		WithResult("get_weather", map[string]any{"forecast": "sunny"}).
		WithResult("get_time", "14:00")

	defs := []types.ToolDef{{Name: "get_weather"}, {Name: "get_time"}}
	l := New(client, executor, defs)
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("weather?")}, "")

	require.NoError(t, err)
	assert.Equal(t, "sunny, 14:00", text)

	require.Len(t, executor.Invocations, 2)
	assert.Equal(t, "get_weather", executor.Invocations[0].Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, executor.Invocations[0].Args)
	assert.Equal(t, "get_time", executor.Invocations[1].Name)
	assert.Empty(t, executor.Invocations[1].Args)

	// Second request carries the assistant turn plus one tool message per
	// call, correlated by ID and in call order.
	require.Len(t, client.Requests, 2)
	second := client.Requests[1]
	require.Len(t, second, 4)
	assert.Equal(t, types.RoleAssistant, second[1].Role)
	require.Len(t, second[1].ToolCalls, 2)

	require.Equal(t, types.RoleTool, second[2].Role)
	require.NotNil(t, second[2].ToolResult)
	assert.Equal(t, "call_1", second[2].ToolResult.ID)
	assert.JSONEq(t, `{"forecast":"sunny"}`, second[2].Content)

	require.Equal(t, types.RoleTool, second[3].Role)
	require.NotNil(t, second[3].ToolResult)
	assert.Equal(t, "call_2", second[3].ToolResult.ID)
	assert.Equal(t, `"14:00"`, second[3].Content)

	// Tool definitions are offered on every call.
	require.Len(t, client.Tools, 2)
	assert.Equal(t, defs, client.Tools[0])
	assert.Equal(t, defs, client.Tools[1])
}

func TestRunContainsToolFailure(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(callNamed("call_1", "get_weather", `{"city":"Paris"}`))).
		QueueText("could not fetch the weather", types.Usage{})
	executor := tools.NewStaticExecutor().
		WithError("get_weather", errors.New("upstream timeout"))

	l := New(client, executor, []types.ToolDef{{Name: "get_weather"}})
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("weather?")}, "")

	require.NoError(t, err)
	assert.Equal(t, "could not fetch the weather", text)

	second := client.Requests[1]
	toolMsg := second[len(second)-1]
	require.Equal(t, types.RoleTool, toolMsg.Role)
	assert.JSONEq(t, `{"error":"Failed to execute get_weather: upstream timeout"}`, toolMsg.Content)
	require.NotNil(t, toolMsg.ToolResult)
	assert.Equal(t, "Failed to execute get_weather: upstream timeout", toolMsg.ToolResult.Error)
}

func TestRunContainsMalformedArguments(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(callNamed("call_1", "get_weather", `{"city":`))).
		QueueText("done", types.Usage{})
	executor := tools.NewStaticExecutor().
		WithResult("get_weather", "sunny")

	l := New(client, executor, []types.ToolDef{{Name: "get_weather"}})
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("weather?")}, "")

	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Empty(t, executor.Invocations)

	toolMsg := client.Requests[1][len(client.Requests[1])-1]
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(toolMsg.Content), &payload))
	assert.Contains(t, payload["error"], "Failed to execute get_weather:")
}

func TestRunContainsPanickingExecutor(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(callNamed("call_1", "explode", `{}`))).
		QueueText("recovered", types.Usage{})
	executor := tools.ExecutorFunc(func(context.Context, string, map[string]any) (any, error) {
		panic("boom")
	})

	l := New(client, executor, []types.ToolDef{{Name: "explode"}})
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("go")}, "")

	require.NoError(t, err)
	assert.Equal(t, "recovered", text)

	toolMsg := client.Requests[1][len(client.Requests[1])-1]
	assert.Contains(t, toolMsg.Content, "Failed to execute explode: panic: boom")
}

func TestRunAbortsOnBackendError(t *testing.T) {
	backendErr := &providers.BackendError{Operation: "chat_completion", StatusCode: 500, Err: errors.New("server error")}
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(callNamed("call_1", "get_weather", `{}`))).
		QueueError(backendErr)
	executor := tools.NewStaticExecutor().WithResult("get_weather", "sunny")

	l := New(client, executor, []types.ToolDef{{Name: "get_weather"}})
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("weather?")}, "")

	assert.Empty(t, text)
	var be *providers.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 500, be.StatusCode)
	// The backend failed on the second call; no further calls were made.
	assert.Equal(t, 2, client.Calls())
}

func TestRunExhaustsIterationBudget(t *testing.T) {
	client := providers.NewMockClient("test-model")
	for i := 0; i < 3; i++ {
		client.QueueTurn(toolTurn(callNamed(fmt.Sprintf("call_%d", i), "get_weather", `{}`)))
	}
	executor := tools.NewStaticExecutor().WithResult("get_weather", "sunny")

	bus := events.NewBus()
	var exhausted []*events.Event
	bus.Subscribe(events.EventLoopExhausted, events.SinkFunc(func(e *events.Event) {
		exhausted = append(exhausted, e)
	}))

	l := New(client, executor, []types.ToolDef{{Name: "get_weather"}},
		WithMaxIterations(2),
		WithEmitter(events.NewEmitter(bus, "run-1", "testbot")))
	text, err := l.Run(context.Background(), []types.Message{types.UserMessage("weather?")}, "")

	assert.Empty(t, text)
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.Equal(t, 2, client.Calls())
	assert.Len(t, executor.Invocations, 2)

	require.Len(t, exhausted, 1)
	data, ok := exhausted[0].Data.(events.LoopExhaustedData)
	require.True(t, ok)
	assert.Equal(t, 2, data.MaxIterations)
}

func TestRunEmitsToolCallEvents(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(
			callNamed("call_1", "get_weather", `{"city":"Paris"}`),
			callNamed("call_2", "broken", `{"city":"Berlin"}`),
		)).
		QueueText("done", types.Usage{})
	executor := tools.NewStaticExecutor().
		WithResult("get_weather", "sunny").
		WithError("broken", errors.New("nope"))

	bus := events.NewBus()
	var got []*events.Event
	bus.SubscribeAll(events.SinkFunc(func(e *events.Event) {
		got = append(got, e)
	}))

	l := New(client, executor, []types.ToolDef{{Name: "get_weather"}, {Name: "broken"}},
		WithEmitter(events.NewEmitter(bus, "run-1", "testbot")))
	_, err := l.Run(context.Background(), []types.Message{types.UserMessage("go")}, "")
	require.NoError(t, err)

	var providerEvents []*events.Event
	for _, e := range got {
		if e.Type == events.EventProviderCallCompleted {
			providerEvents = append(providerEvents, e)
		}
	}
	require.Len(t, providerEvents, 2)
	usage, ok := providerEvents[0].Data.(events.ProviderCallData)
	require.True(t, ok)
	assert.Equal(t, "test-model", usage.Model)
	assert.Equal(t, 15, usage.Usage.Total)

	var toolEvents []*events.Event
	for _, e := range got {
		if e.Type == events.EventToolCallCompleted || e.Type == events.EventToolCallFailed {
			toolEvents = append(toolEvents, e)
		}
	}
	require.Len(t, toolEvents, 2)

	first, ok := toolEvents[0].Data.(events.ToolCallData)
	require.True(t, ok)
	assert.Equal(t, "get_weather", first.Name)
	assert.Equal(t, 1, first.Iteration)
	assert.True(t, first.Success)
	assert.Equal(t, map[string]any{"city": "Paris"}, first.Args)

	// Executor failures still report the parsed arguments.
	second, ok := toolEvents[1].Data.(events.ToolCallData)
	require.True(t, ok)
	assert.Equal(t, "broken", second.Name)
	assert.False(t, second.Success)
	assert.Equal(t, map[string]any{"city": "Berlin"}, second.Args)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	client := providers.NewMockClient("test-model").
		QueueTurn(toolTurn(callNamed("call_1", "get_weather", `{}`))).
		QueueText("done", types.Usage{})
	executor := tools.NewStaticExecutor().WithResult("get_weather", "sunny")

	conversation := []types.Message{types.UserMessage("weather?")}
	l := New(client, executor, []types.ToolDef{{Name: "get_weather"}})
	_, err := l.Run(context.Background(), conversation, "prompt")
	require.NoError(t, err)

	require.Len(t, conversation, 1)
	assert.Equal(t, types.RoleUser, conversation[0].Role)
}
