package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aic-holdings/bot-slack-core/logger"
	"github.com/aic-holdings/bot-slack-core/types"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "anthropic/claude-sonnet-4"

	// defaultTimeout bounds a single chat-completions request. Timeouts
	// surface as *BackendError, not as a distinct cancellation state.
	defaultTimeout = 60 * time.Second

	chatCompletionsPath = "/chat/completions"

	contentTypeHeader   = "Content-Type"
	authorizationHeader = "Authorization"
	applicationJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// OpenRouterClient implements Client against OpenRouter's chat-completions
// API with per-bot attribution headers and optional tool definitions.
type OpenRouterClient struct {
	apiKey  string
	botName string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures an OpenRouterClient.
type Option func(*OpenRouterClient)

// WithModel sets the model identifier sent on every request.
func WithModel(model string) Option {
	return func(c *OpenRouterClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the API root (used by tests and proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *OpenRouterClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenRouterClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenRouterClient) {
		c.client.Timeout = d
	}
}

// WithRateLimit caps outgoing requests at rps requests per second with the
// given burst. Zero rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *OpenRouterClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewOpenRouterClient creates a client for one bot deployment. The bot name
// is sent as the X-Title attribution header so per-bot token spend is
// visible in the OpenRouter dashboard.
func NewOpenRouterClient(apiKey, botName string, opts ...Option) *OpenRouterClient {
	c := &OpenRouterClient{
		apiKey:  apiKey,
		botName: botName,
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *OpenRouterClient) Model() string {
	return c.model
}

// Close releases idle connections held by the HTTP client.
func (c *OpenRouterClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// OpenRouter request/response structures. The wire format is
// OpenAI-compatible: tool calls ride inside choices[0].message.
type chatRequest struct {
	Model    string           `json:"model"`
	Messages []map[string]any `json:"messages"`
	Tools    []wireTool       `json:"tools,omitempty"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // arrives as a string, not RawMessage
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat-completions request and returns the assistant turn.
func (c *OpenRouterClient) Complete(ctx context.Context, conversation []types.Message, tools []types.ToolDef) (*AssistantTurn, error) {
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &BackendError{Operation: "chat completion", Err: err}
		}
	}

	req := chatRequest{
		Model:    c.model,
		Messages: convertMessages(conversation),
		Tools:    buildTooling(tools),
	}

	respBytes, err := c.makeRequest(ctx, req)
	latency := time.Since(start)
	if err != nil {
		logger.LLMError(c.botName, c.model, err)
		return nil, err
	}

	turn, err := parseResponse(respBytes)
	if err != nil {
		return nil, err
	}
	turn.Latency = latency

	logger.LLMResponse(c.botName, c.model,
		turn.Usage.Prompt, turn.Usage.Completion, turn.Usage.Total,
		"tool_calls", len(turn.ToolCalls))

	return turn, nil
}

// makeRequest performs the HTTP POST and returns the raw response body.
func (c *OpenRouterClient) makeRequest(ctx context.Context, request chatRequest) ([]byte, error) {
	reqBytes, err := json.Marshal(request)
	if err != nil {
		return nil, &BackendError{Operation: "encode request", Err: err}
	}

	url := c.baseURL + chatCompletionsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, &BackendError{Operation: "create request", Err: err}
	}

	httpReq.Header.Set(contentTypeHeader, applicationJSON)
	httpReq.Header.Set(authorizationHeader, bearerPrefix+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", c.referer())
	httpReq.Header.Set("X-Title", c.botName)

	logger.APIRequest("OpenRouter", http.MethodPost, url, map[string]string{
		contentTypeHeader:   applicationJSON,
		authorizationHeader: bearerPrefix + c.apiKey,
		"X-Title":           c.botName,
	}, request)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		logger.APIResponse("OpenRouter", 0, "", err)
		return nil, &BackendError{Operation: "chat completion", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Operation: "read response", Err: err}
	}

	logger.APIResponse("OpenRouter", resp.StatusCode, string(respBytes), nil)

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, respBytes)
	}

	return respBytes, nil
}

// referer derives the attribution referer from the bot name the way the
// deployment platform names apps: lowercased, spaces to hyphens.
func (c *OpenRouterClient) referer() string {
	slug := strings.ToLower(strings.ReplaceAll(c.botName, " ", "-"))
	return "https://" + slug + ".railway.app"
}

// convertMessages maps canonical messages onto the OpenAI-compatible wire
// shape, preserving assistant tool calls and tool-result correlation IDs.
func convertMessages(conversation []types.Message) []map[string]any {
	messages := make([]map[string]any, 0, len(conversation))
	for _, msg := range conversation {
		m := map[string]any{
			"role":    msg.Role,
			"content": msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			calls := make([]map[string]any, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				calls[i] = map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": string(tc.Args),
					},
				}
			}
			m["tool_calls"] = calls
		}

		if msg.Role == types.RoleTool && msg.ToolResult != nil {
			m["tool_call_id"] = msg.ToolResult.ID
			m["name"] = msg.ToolResult.Name
		}

		messages = append(messages, m)
	}
	return messages
}

// buildTooling converts tool definitions to the wire format.
func buildTooling(tools []types.ToolDef) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wireTool, len(tools))
	for i, t := range tools {
		out[i] = wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// parseResponse extracts the assistant turn from a chat-completions body.
func parseResponse(respBytes []byte) (*AssistantTurn, error) {
	var resp chatResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, &BackendError{Operation: "parse response", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &BackendError{Operation: "parse response", Body: "no choices in response"}
	}

	choice := resp.Choices[0]
	turn := &AssistantTurn{
		Content: choice.Message.Content,
		Usage: types.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, types.MessageToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}

	return turn, nil
}
