// Package logger provides structured logging for bot deployments.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - LLM API call logging (requests, responses, errors)
//   - Tool execution logging
//   - Automatic API token redaction
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels. Telemetry capture does NOT
// depend on log output; typed events carry that signal (see the events
// package); these logs exist for operators.
package logger

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		switch strings.ToLower(envLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// LLMResponse logs an LLM API response with token usage for per-bot attribution.
func LLMResponse(bot, model string, promptTokens, completionTokens, totalTokens int, attrs ...any) {
	allAttrs := make([]any, 0, 10+len(attrs))
	allAttrs = append(allAttrs,
		"bot", bot,
		"model", model,
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens,
		"total_tokens", totalTokens,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("LLM response", allAttrs...)
}

// LLMError logs an LLM API error for debugging and monitoring.
func LLMError(bot, model string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"bot", bot,
		"model", model,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	Error("LLM call failed", allAttrs...)
}

// ToolCall logs a tool invocation within a tool-use round.
func ToolCall(tool string, iteration int, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"tool", tool,
		"iteration", iteration,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("tool call", allAttrs...)
}

// ToolError logs a failed tool execution. Tool failures are recoverable
// conversational events, so this is a warning rather than an error.
func ToolError(tool string, iteration int, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"tool", tool,
		"iteration", iteration,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	Warn("tool execution failed", allAttrs...)
}

var (
	// tokenPatterns contains compiled regular expressions for detecting sensitive data.
	tokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-or-[a-zA-Z0-9-]{16,}`),   // OpenRouter API keys
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),       // OpenAI-style API keys
		regexp.MustCompile(`xox[bap]-[a-zA-Z0-9-]{10,}`), // Slack bot/app tokens
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_.-]+`),  // Bearer tokens
	}
)

// RedactSensitiveData removes API keys and tokens from strings.
// It replaces matched patterns with a redacted form that preserves the
// first few characters for debugging while hiding the sensitive portion.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range tokenPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}

// APIRequest logs HTTP API request details at debug level with automatic redaction.
// This function is a no-op when debug logging is disabled.
func APIRequest(service, method, url string, headers map[string]string, body interface{}) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 8)
	attrs = append(attrs,
		"service", service,
		"method", method,
		"url", RedactSensitiveData(url),
	)

	if len(headers) > 0 {
		redactedHeaders := make(map[string]string, len(headers))
		for key, value := range headers {
			redactedHeaders[key] = RedactSensitiveData(value)
		}
		attrs = append(attrs, "headers", redactedHeaders)
	}

	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			attrs = append(attrs, "body_error", err.Error())
		} else {
			attrs = append(attrs, "body", RedactSensitiveData(string(bodyJSON)))
		}
	}

	Debug("API request", attrs...)
}

// APIResponse logs HTTP API response details at debug level with automatic redaction.
// This function is a no-op when debug logging is disabled, except errors which
// always log at error level.
func APIResponse(service string, statusCode int, body string, err error) {
	attrs := make([]any, 0, 6)
	attrs = append(attrs,
		"service", service,
		"status_code", statusCode,
	)

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		Error("API response error", attrs...)
		return
	}

	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	if body != "" {
		attrs = append(attrs, "body", RedactSensitiveData(body))
	}

	Debug("API response", attrs...)
}
