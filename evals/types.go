// Package evals runs golden test cases against a bot and scores the
// responses with declarative assertions. Telemetry (token usage, tool
// calls) is observed through the event bus, so the chat path needs no
// eval-specific hooks.
package evals

import (
	"encoding/json"
	"fmt"

	"github.com/aic-holdings/bot-slack-core/types"
)

// Assertion kinds recognized by CheckAssertion. Anything else fails with an
// unknown-type detail rather than aborting the case.
const (
	AssertToolCalled          = "tool_called"
	AssertToolNotCalled       = "tool_not_called"
	AssertResponseContains    = "response_contains"
	AssertResponseNotContains = "response_not_contains"
	AssertNoError             = "no_error"
	AssertMaxTokens           = "max_tokens"
)

// Assertion is one declarative check on a case outcome. Parameters ride
// beside the type in the serialized form ({"type":"tool_called","tool":"x"})
// and are decoded per kind at check time.
type Assertion struct {
	Type   string
	Params map[string]any
}

// UnmarshalJSON splits the flat serialized object into type and parameters.
func (a *Assertion) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	atype, ok := raw["type"].(string)
	if !ok {
		return fmt.Errorf("assertion missing type field")
	}
	delete(raw, "type")
	a.Type = atype
	a.Params = raw
	return nil
}

// MarshalJSON restores the flat serialized form.
func (a Assertion) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(a.Params)+1)
	for k, v := range a.Params {
		raw[k] = v
	}
	raw["type"] = a.Type
	return json.Marshal(raw)
}

// EvalCase is a single golden test case.
type EvalCase struct {
	ID         string          `json:"id"`
	Input      string          `json:"input"`
	Assertions []Assertion     `json:"assertions"`
	Tags       []string        `json:"tags,omitempty"`
	Context    []types.Message `json:"context,omitempty"`
}

// AssertionResult is the outcome of one assertion check.
type AssertionResult struct {
	Type   string `json:"type"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ToolCallRecord is one observed tool invocation, in execution order.
type ToolCallRecord struct {
	Iteration int    `json:"iteration"`
	Name      string `json:"name"`
}

// TokenTotals aggregates token usage in the report wire shape.
type TokenTotals struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Add accumulates usage into the totals.
func (t *TokenTotals) Add(usage types.Usage) {
	t.Prompt += usage.Prompt
	t.Completion += usage.Completion
	t.Total += usage.Total
}

// AddTotals accumulates another TokenTotals.
func (t *TokenTotals) AddTotals(other TokenTotals) {
	t.Prompt += other.Prompt
	t.Completion += other.Completion
	t.Total += other.Total
}
