package evals

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
)

func sampleReport(results ...CaseResult) *Report {
	passed := 0
	var totals TokenTotals
	for _, r := range results {
		if r.Passed {
			passed++
		}
		totals.AddTotals(r.Tokens)
	}
	rate := 0.0
	if len(results) > 0 {
		rate = float64(passed) / float64(len(results)) * 100
	}
	return &Report{
		BotName:     "Test Bot",
		Model:       "test-model",
		PassRate:    rate,
		TotalTokens: totals,
		Cases:       results,
	}
}

func TestReportSummary(t *testing.T) {
	report := sampleReport(
		CaseResult{CaseID: "a", Passed: true, Tokens: TokenTotals{Total: 1200}, ElapsedSeconds: 1.2},
		CaseResult{CaseID: "b", Passed: false, Tokens: TokenTotals{Total: 300}, ElapsedSeconds: 0.4,
			AssertionResults: []AssertionResult{
				{Type: AssertToolCalled, Passed: false, Detail: "Missing call to get_weather"},
			}},
	)
	report.DurationSeconds = 1.6

	summary := report.Summary()
	for _, want := range []string{
		"Eval: Test Bot (test-model)",
		"Pass rate: 50% (1/2)",
		"Tokens: 1,500",
		"Duration: 1.6s",
		"[PASS] a",
		"[FAIL] b",
		"FAILED: Missing call to get_weather",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestReportCompare(t *testing.T) {
	baseline := sampleReport(
		CaseResult{CaseID: "a", Passed: true, Tokens: TokenTotals{Prompt: 100, Completion: 50, Total: 150}},
		CaseResult{CaseID: "b", Passed: false},
		CaseResult{CaseID: "baseline-only", Passed: true},
	)
	current := sampleReport(
		CaseResult{CaseID: "a", Passed: false, Tokens: TokenTotals{Prompt: 150, Completion: 60, Total: 210}},
		CaseResult{CaseID: "b", Passed: true},
		CaseResult{CaseID: "current-only", Passed: false},
	)

	cmp := current.Compare(baseline)

	if len(cmp.Regressions) != 1 || cmp.Regressions[0] != "a" {
		t.Fatalf("unexpected regressions: %v", cmp.Regressions)
	}
	if len(cmp.Improvements) != 1 || cmp.Improvements[0] != "b" {
		t.Fatalf("unexpected improvements: %v", cmp.Improvements)
	}
	if cmp.TokenDelta.Total != 60 || cmp.TokenDelta.Prompt != 50 || cmp.TokenDelta.Completion != 10 {
		t.Fatalf("unexpected token delta: %+v", cmp.TokenDelta)
	}

	// 3 cases each, baseline 2/3 passed, current 1/3 passed.
	wantDelta := current.PassRate - baseline.PassRate
	if cmp.PassRateDelta != wantDelta {
		t.Fatalf("unexpected pass rate delta: %f", cmp.PassRateDelta)
	}
	if cmp.BaselinePassRate != baseline.PassRate || cmp.CurrentPassRate != current.PassRate {
		t.Fatalf("unexpected rates: %+v", cmp)
	}
}

func TestReportCompareIgnoresUnmatchedCases(t *testing.T) {
	baseline := sampleReport(CaseResult{CaseID: "only-baseline", Passed: true})
	current := sampleReport(CaseResult{CaseID: "only-current", Passed: false})

	cmp := current.Compare(baseline)
	if len(cmp.Regressions) != 0 || len(cmp.Improvements) != 0 {
		t.Fatalf("unmatched cases must not count: %+v", cmp)
	}
}

func TestCaseResultSerializationTruncatesResponse(t *testing.T) {
	long := strings.Repeat("x", 800)
	result := CaseResult{CaseID: "a", Response: long}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if got := decoded["response"].(string); len(got) != maxResponseLen {
		t.Fatalf("serialized response length %d, want %d", len(got), maxResponseLen)
	}

	// The in-memory result keeps the full text.
	if len(result.Response) != 800 {
		t.Fatal("in-memory response must not be truncated")
	}
}

func TestCaseResultSerializationTruncatesOnRuneBoundary(t *testing.T) {
	// 499 ASCII bytes, then a 3-byte rune straddling the 500-byte cut.
	long := strings.Repeat("x", maxResponseLen-1) + strings.Repeat("日", 200)
	result := CaseResult{CaseID: "a", Response: long}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	got := decoded["response"].(string)
	if !utf8.ValidString(got) {
		t.Fatal("truncated response must stay valid UTF-8")
	}
	// The split rune is dropped whole, not cut mid-sequence.
	if len(got) != maxResponseLen-1 {
		t.Fatalf("serialized response length %d, want %d", len(got), maxResponseLen-1)
	}
}

func TestReportRoundTrip(t *testing.T) {
	report := sampleReport(
		CaseResult{
			CaseID:   "a",
			Passed:   true,
			Response: "short",
			AssertionResults: []AssertionResult{
				{Type: AssertNoError, Passed: true, Detail: "No exception thrown"},
			},
			Tokens:    TokenTotals{Prompt: 10, Completion: 5, Total: 15},
			ToolCalls: []ToolCallRecord{{Iteration: 1, Name: "get_weather"}},
		},
	)

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}

	var loaded Report
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.BotName != "Test Bot" || loaded.PassRate != 100 {
		t.Fatalf("unexpected report: %+v", loaded)
	}
	if len(loaded.Cases) != 1 || loaded.Cases[0].ToolCalls[0].Name != "get_weather" {
		t.Fatalf("unexpected cases: %+v", loaded.Cases)
	}
}
