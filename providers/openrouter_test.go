package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aic-holdings/bot-slack-core/types"
)

type capturedRequest struct {
	headers http.Header
	body    map[string]any
}

func newTestServer(t *testing.T, statusCode int, responseBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		captured = append(captured, capturedRequest{headers: r.Header.Clone(), body: body})
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

const textResponse = `{
	"choices": [{"message": {"content": "It is sunny."}}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
}`

func TestCompleteSendsAttributionHeaders(t *testing.T) {
	server, captured := newTestServer(t, http.StatusOK, textResponse)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("weather?")}, nil)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	headers := (*captured)[0].headers
	assert.Equal(t, "Bearer sk-or-test", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "Weather Bot", headers.Get("X-Title"))
	// The referer slugs the bot name the way the platform names apps.
	assert.Equal(t, "https://weather-bot.railway.app", headers.Get("HTTP-Referer"))
}

func TestCompleteRequestShape(t *testing.T) {
	server, captured := newTestServer(t, http.StatusOK, textResponse)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot",
		WithBaseURL(server.URL), WithModel("openai/gpt-4o"))

	defs := []types.ToolDef{{
		Name:        "get_weather",
		Description: "Look up the weather",
		Parameters:  json.RawMessage(`{"type":"object"}`),
	}}
	_, err := client.Complete(context.Background(),
		[]types.Message{
			types.SystemMessage("You report the weather."),
			types.UserMessage("weather in paris?"),
		}, defs)
	require.NoError(t, err)

	body := (*captured)[0].body
	assert.Equal(t, "openai/gpt-4o", body["model"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You report the weather.", first["content"])

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	fn := tool["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
}

func TestCompleteOmitsToolsWhenNoneDefined(t *testing.T) {
	server, captured := newTestServer(t, http.StatusOK, textResponse)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("hi")}, nil)
	require.NoError(t, err)

	_, hasTools := (*captured)[0].body["tools"]
	assert.False(t, hasTools)
}

func TestCompleteSendsToolRoundTrip(t *testing.T) {
	server, captured := newTestServer(t, http.StatusOK, textResponse)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	conversation := []types.Message{
		types.UserMessage("weather?"),
		{
			Role: types.RoleAssistant,
			ToolCalls: []types.MessageToolCall{
				{ID: "call_1", Name: "get_weather", Args: json.RawMessage(`{"city":"Paris"}`)},
			},
		},
		types.ToolMessage("call_1", "get_weather", `{"forecast":"sunny"}`, ""),
	}
	_, err := client.Complete(context.Background(), conversation, nil)
	require.NoError(t, err)

	messages := (*captured)[0].body["messages"].([]any)
	require.Len(t, messages, 3)

	assistant := messages[1].(map[string]any)
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	call := calls[0].(map[string]any)
	assert.Equal(t, "call_1", call["id"])
	fn := call["function"].(map[string]any)
	// Arguments go over the wire as a string, not an object.
	assert.Equal(t, `{"city":"Paris"}`, fn["arguments"])

	toolMsg := messages[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.Equal(t, "get_weather", toolMsg["name"])
}

func TestCompleteParsesTextResponse(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, textResponse)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	turn, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("weather?")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "It is sunny.", turn.Content)
	assert.Empty(t, turn.ToolCalls)
	assert.Equal(t, types.Usage{Prompt: 12, Completion: 8, Total: 20}, turn.Usage)
	assert.Greater(t, turn.Latency.Nanoseconds(), int64(0))
}

func TestCompleteParsesToolCalls(t *testing.T) {
	response := `{
		"choices": [{"message": {
			"content": "",
			"tool_calls": [{
				"id": "call_abc",
				"type": "function",
				"function": {"name": "get_weather", "arguments": "{\"city\":\"Paris\"}"}
			}]
		}}],
		"usage": {"prompt_tokens": 30, "completion_tokens": 10, "total_tokens": 40}
	}`
	server, _ := newTestServer(t, http.StatusOK, response)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	turn, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("weather?")}, nil)
	require.NoError(t, err)

	require.Len(t, turn.ToolCalls, 1)
	call := turn.ToolCalls[0]
	assert.Equal(t, "call_abc", call.ID)
	assert.Equal(t, "get_weather", call.Name)

	args, err := call.ArgsMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Paris"}, args)
}

func TestCompleteAPIError(t *testing.T) {
	server, _ := newTestServer(t, http.StatusTooManyRequests,
		`{"error": {"message": "Rate limit exceeded", "code": 429}}`)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("hi")}, nil)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusTooManyRequests, backendErr.StatusCode)
	assert.Contains(t, backendErr.Error(), "Rate limit exceeded")
}

func TestCompleteAPIErrorUnparseableBody(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadGateway, "upstream exploded")
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("hi")}, nil)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusBadGateway, backendErr.StatusCode)
	assert.Contains(t, backendErr.Error(), "upstream exploded")
}

func TestCompleteNoChoices(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"choices": [], "usage": {}}`)
	client := NewOpenRouterClient("sk-or-test", "Weather Bot", WithBaseURL(server.URL))

	_, err := client.Complete(context.Background(),
		[]types.Message{types.UserMessage("hi")}, nil)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
}

func TestClientDefaults(t *testing.T) {
	client := NewOpenRouterClient("sk-or-test", "Weather Bot")
	assert.Equal(t, DefaultModel, client.Model())

	client = NewOpenRouterClient("sk-or-test", "Weather Bot", WithModel("custom/model"))
	assert.Equal(t, "custom/model", client.Model())
}
