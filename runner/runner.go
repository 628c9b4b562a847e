// Package runner is the bot orchestrator. It owns the chat backend, the
// response strategy (delegated, tool-use, or plain chat), diagnostic command
// handling, and the lifecycle around a human-interface adapter. The adapter
// owns everything Slack-shaped; the runner never sees channels or threads.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aic-holdings/bot-slack-core/events"
	"github.com/aic-holdings/bot-slack-core/logger"
	"github.com/aic-holdings/bot-slack-core/loop"
	cerrors "github.com/aic-holdings/bot-slack-core/pkg/errors"
	"github.com/aic-holdings/bot-slack-core/providers"
	"github.com/aic-holdings/bot-slack-core/tools"
	"github.com/aic-holdings/bot-slack-core/types"
)

// User-facing fallback strings. These are part of the bot contract: evals
// assert against them, so changing them is a behavior change.
const (
	// NoResponseMessage is returned when the backend produces empty text.
	NoResponseMessage = "I wasn't able to generate a response."

	// MaxStepsMessage is returned when the tool loop exhausts its budget.
	MaxStepsMessage = "I hit the maximum number of steps. Could you simplify your request?"
)

// DefaultPlatform is reported in diagnostics when not configured.
const DefaultPlatform = "Railway"

// DefaultDiagnosticCommands trigger the diagnostic response instead of the
// chat backend. Matching is case-insensitive on the trimmed message text.
func DefaultDiagnosticCommands() []string {
	return []string{"status", "info", "diag", "diagnostics", "version", "health", "ping"}
}

// BotConfig describes one bot deployment.
type BotConfig struct {
	// BotName is the display name, also used for backend attribution.
	BotName string `yaml:"bot_name"`

	// Version is reported by diagnostics.
	Version string `yaml:"version"`

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string `yaml:"system_prompt"`

	// Model is the backend model identifier.
	Model string `yaml:"model"`

	// StatusChannel is the channel ID for lifecycle status messages.
	StatusChannel string `yaml:"status_channel"`

	// Platform is reported by diagnostics.
	Platform string `yaml:"platform"`

	// DiagnosticCommands overrides DefaultDiagnosticCommands when non-nil.
	DiagnosticCommands []string `yaml:"diagnostic_commands"`

	// MaxIterations bounds tool-use rounds. Zero means the loop default.
	MaxIterations int `yaml:"max_iterations"`

	// Tools and Executor enable the tool-use loop. Both must be set
	// together for tool use to activate.
	Tools    []types.ToolDef `yaml:"-"`
	Executor tools.Executor  `yaml:"-"`
}

// Validate checks required fields.
func (c *BotConfig) Validate() error {
	if c.BotName == "" {
		return cerrors.New("runner", "Validate", fmt.Errorf("bot_name is required"))
	}
	if c.Version == "" {
		return cerrors.New("runner", "Validate", fmt.Errorf("version is required"))
	}
	if (c.Tools == nil) != (c.Executor == nil) {
		return cerrors.New("runner", "Validate", fmt.Errorf("tools and executor must be configured together"))
	}
	return nil
}

// Adapter is the human interface that delivers user messages to the runner
// and publishes its responses. Start blocks until the context is cancelled
// or the adapter shuts down.
type Adapter interface {
	Start(ctx context.Context, r *Runner) error
}

// Runner orchestrates message handling for one bot.
type Runner struct {
	config    BotConfig
	responder Responder
	bus       *events.Bus
	startTime time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithChatFunc injects a legacy chat function, bypassing the built-in
// backend entirely.
func WithChatFunc(fn ChatFunc) RunnerOption {
	return func(r *Runner) {
		r.responder = NewDelegatedResponder(fn, r.config.SystemPrompt)
	}
}

// WithResponder injects a fully custom response strategy.
func WithResponder(responder Responder) RunnerOption {
	return func(r *Runner) {
		r.responder = responder
	}
}

// WithBus attaches a shared event bus so external sinks observe the runner's
// telemetry. Without it the runner creates a private bus.
func WithBus(bus *events.Bus) RunnerOption {
	return func(r *Runner) {
		r.bus = bus
	}
}

// New builds a runner for config. The client may be nil only when an option
// supplies the responder. Strategy selection mirrors the config: tools plus
// executor activate the tool loop, otherwise plain chat.
func New(config BotConfig, client providers.Client, opts ...RunnerOption) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{config: config}
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = events.NewBus()
	}

	if r.responder == nil {
		if client == nil {
			return nil, cerrors.New("runner", "New", fmt.Errorf("chat backend client is required"))
		}
		emitter := events.NewEmitter(r.bus, uuid.NewString(), config.BotName)
		if config.Tools != nil {
			l := loop.New(client, config.Executor, config.Tools,
				loop.WithMaxIterations(config.MaxIterations),
				loop.WithEmitter(emitter))
			r.responder = NewToolResponder(l, config.SystemPrompt)
		} else {
			r.responder = NewSimpleResponder(client, config.SystemPrompt, emitter)
		}
	}

	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() BotConfig {
	return r.config
}

// Bus returns the event bus carrying this runner's telemetry.
func (r *Runner) Bus() *events.Bus {
	return r.bus
}

// HandleMessage processes one user message and always returns a response
// string. Backend and loop failures are folded into user-facing text here;
// adapters never see an error from this path.
func (r *Runner) HandleMessage(ctx context.Context, userText string, conversation []types.Message) string {
	if r.isDiagnosticCommand(userText) {
		return r.diagnosticInfo()
	}

	response, err := r.responder.Respond(ctx, conversation)
	if err != nil {
		return r.formatFailure(err)
	}
	if response == "" {
		return NoResponseMessage
	}
	return response
}

// formatFailure maps internal errors onto the fixed user-facing strings.
func (r *Runner) formatFailure(err error) string {
	if errors.Is(err, loop.ErrMaxIterations) {
		return MaxStepsMessage
	}

	var backendErr *providers.BackendError
	if errors.As(err, &backendErr) {
		logger.Error("chat backend failure",
			"bot", r.config.BotName,
			"status_code", backendErr.StatusCode,
			"error", backendErr.Error())
		return fmt.Sprintf("Error communicating with AI: %v", backendErr)
	}

	logger.Error("responder failure", "bot", r.config.BotName, "error", err.Error())
	return fmt.Sprintf("Error communicating with AI: %v", err)
}

func (r *Runner) isDiagnosticCommand(userText string) bool {
	text := strings.ToLower(strings.TrimSpace(userText))
	commands := r.config.DiagnosticCommands
	if commands == nil {
		commands = DefaultDiagnosticCommands()
	}
	for _, cmd := range commands {
		if text == cmd {
			return true
		}
	}
	return false
}

// diagnosticInfo renders the diagnostic response. Uptime counts from Start;
// before Start it reads zero.
func (r *Runner) diagnosticInfo() string {
	var uptime int64
	if !r.startTime.IsZero() {
		uptime = int64(time.Since(r.startTime).Seconds())
	}
	hours := uptime / 3600
	minutes := (uptime % 3600) / 60
	seconds := uptime % 60

	platform := r.config.Platform
	if platform == "" {
		platform = DefaultPlatform
	}

	return fmt.Sprintf(`*%s Diagnostics*

:robot_face: *Version:* %s
:clock1: *Uptime:* %dh %dm %ds
:house: *Platform:* %s
`, r.config.BotName, r.config.Version, hours, minutes, seconds, platform)
}

// Start records the startup time and hands control to the adapter. It
// blocks until the adapter returns.
func (r *Runner) Start(ctx context.Context, adapter Adapter) error {
	r.startTime = time.Now()
	logger.Info("starting bot",
		"bot", r.config.BotName,
		"version", r.config.Version)
	if err := adapter.Start(ctx, r); err != nil {
		return cerrors.New("runner", "Start", err)
	}
	return nil
}
