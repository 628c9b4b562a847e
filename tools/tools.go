// Package tools provides the tool execution abstraction handed to the tool
// loop. Bot deployments bring their own executors; this package defines the
// contract, a function adapter, and a name-keyed registry with the mock
// executor used by tests and golden evals.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aic-holdings/bot-slack-core/types"
)

// Executor executes a named tool with structured arguments. The returned
// value is serialized to text before rejoining the conversation. Any error
// is treated as a tool-level failure: visible tool output, never a loop
// abort.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// ExecutorFunc adapts a function to the Executor interface. This is the
// shape most bot deployments supply.
type ExecutorFunc func(ctx context.Context, name string, args map[string]any) (any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	return f(ctx, name, args)
}

// Handler implements a single named tool.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Registry maps tool names to handlers and serves as an Executor. It also
// carries each tool's definition so the same registry configures both the
// backend request and the execution side.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	defs     map[string]types.ToolDef
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		defs:     make(map[string]types.ToolDef),
	}
}

// Register adds a tool definition and its handler. A tool registered twice
// is replaced.
func (r *Registry) Register(def types.ToolDef, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[def.Name] = handler
	r.defs[def.Name] = def
}

// Defs returns all registered tool definitions sorted by name, ready to be
// passed to a chat backend.
func (r *Registry) Defs() []types.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]types.ToolDef, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Has returns true when a handler is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Execute dispatches to the registered handler. Unknown tools fail the
// individual call, not the loop.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return handler(ctx, args)
}

// MarshalResult serializes a tool result for the conversation transcript.
// Values that cannot be JSON-encoded fall back to their string form so the
// model always receives something readable.
func MarshalResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
