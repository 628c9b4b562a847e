package tools

import (
	"context"
	"fmt"
	"sync"
)

// StaticExecutor returns canned results keyed by tool name. It is used by
// tests and golden eval runs that must not reach live systems.
type StaticExecutor struct {
	mu      sync.Mutex
	results map[string]any
	errs    map[string]error

	// Invocations records each executed call in order.
	Invocations []StaticInvocation
}

// StaticInvocation records one call through a StaticExecutor.
type StaticInvocation struct {
	Name string
	Args map[string]any
}

// NewStaticExecutor creates an executor with no canned results. Every call
// fails until results are registered.
func NewStaticExecutor() *StaticExecutor {
	return &StaticExecutor{
		results: make(map[string]any),
		errs:    make(map[string]error),
	}
}

// WithResult registers a canned result for the named tool.
func (s *StaticExecutor) WithResult(name string, result any) *StaticExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = result
	return s
}

// WithError registers a canned failure for the named tool.
func (s *StaticExecutor) WithError(name string, err error) *StaticExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[name] = err
	return s
}

// Execute returns the canned result or failure for name.
func (s *StaticExecutor) Execute(_ context.Context, name string, args map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Invocations = append(s.Invocations, StaticInvocation{Name: name, Args: args})

	if err, ok := s.errs[name]; ok {
		return nil, err
	}
	if result, ok := s.results[name]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("no canned result for tool: %s", name)
}
