package evals

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type toolParams struct {
	Tool string `mapstructure:"tool"`
}

type textParams struct {
	Text string `mapstructure:"text"`
}

type budgetParams struct {
	Budget int `mapstructure:"budget"`
}

// decodeParams fills out from the assertion's parameter map with weak type
// coercion, since JSON numbers arrive as float64 and budgets are sometimes
// written as strings.
func decodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(params)
}

// CheckAssertion scores one assertion against the response text and the
// captured telemetry. It never fails the whole case by erroring: malformed
// or unknown assertions come back as failed results with a detail.
func CheckAssertion(assertion Assertion, response string, capture *Capture) AssertionResult {
	switch assertion.Type {
	case AssertToolCalled:
		var p toolParams
		if err := decodeParams(assertion.Params, &p); err != nil || p.Tool == "" {
			return invalidParams(assertion.Type, "tool")
		}
		called := capture.ToolCalled(p.Tool)
		detail := fmt.Sprintf("Missing call to %s", p.Tool)
		if called {
			detail = fmt.Sprintf("Found call to %s", p.Tool)
		}
		return AssertionResult{Type: assertion.Type, Passed: called, Detail: detail}

	case AssertToolNotCalled:
		var p toolParams
		if err := decodeParams(assertion.Params, &p); err != nil || p.Tool == "" {
			return invalidParams(assertion.Type, "tool")
		}
		called := capture.ToolCalled(p.Tool)
		detail := fmt.Sprintf("%s not called (correct)", p.Tool)
		if called {
			detail = fmt.Sprintf("%s was called (unexpected)", p.Tool)
		}
		return AssertionResult{Type: assertion.Type, Passed: !called, Detail: detail}

	case AssertResponseContains:
		var p textParams
		if err := decodeParams(assertion.Params, &p); err != nil || !hasParam(assertion.Params, "text") {
			return invalidParams(assertion.Type, "text")
		}
		// Empty text follows substring semantics: trivially contained.
		found := strings.Contains(strings.ToLower(response), strings.ToLower(p.Text))
		detail := fmt.Sprintf("Missing '%s' in response", p.Text)
		if found {
			detail = fmt.Sprintf("Found '%s' in response", p.Text)
		}
		return AssertionResult{Type: assertion.Type, Passed: found, Detail: detail}

	case AssertResponseNotContains:
		var p textParams
		if err := decodeParams(assertion.Params, &p); err != nil || !hasParam(assertion.Params, "text") {
			return invalidParams(assertion.Type, "text")
		}
		found := strings.Contains(strings.ToLower(response), strings.ToLower(p.Text))
		detail := fmt.Sprintf("'%s' absent (correct)", p.Text)
		if found {
			detail = fmt.Sprintf("'%s' found (unexpected)", p.Text)
		}
		return AssertionResult{Type: assertion.Type, Passed: !found, Detail: detail}

	case AssertNoError:
		// The case error path substitutes its own failed result; reaching
		// here means the case completed.
		return AssertionResult{Type: assertion.Type, Passed: true, Detail: "No exception thrown"}

	case AssertMaxTokens:
		var p budgetParams
		if err := decodeParams(assertion.Params, &p); err != nil || p.Budget <= 0 {
			return invalidParams(assertion.Type, "budget")
		}
		actual := capture.Tokens().Total
		cmp := ">"
		if actual <= p.Budget {
			cmp = "<="
		}
		return AssertionResult{
			Type:   assertion.Type,
			Passed: actual <= p.Budget,
			Detail: fmt.Sprintf("Tokens: %d %s %d budget", actual, cmp, p.Budget),
		}
	}

	return AssertionResult{
		Type:   assertion.Type,
		Passed: false,
		Detail: fmt.Sprintf("Unknown assertion type: %s", assertion.Type),
	}
}

// hasParam reports whether the key is present at all. Present-but-empty
// values are legal for text assertions; absent keys are not.
func hasParam(params map[string]any, key string) bool {
	_, ok := params[key]
	return ok
}

func invalidParams(atype, param string) AssertionResult {
	return AssertionResult{
		Type:   atype,
		Passed: false,
		Detail: fmt.Sprintf("Invalid %s assertion: missing %s", atype, param),
	}
}
