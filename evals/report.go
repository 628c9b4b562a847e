package evals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxResponseLen bounds the response text stored in serialized reports.
// The in-memory result keeps the full response.
const maxResponseLen = 500

// CaseResult is the outcome of one eval case.
type CaseResult struct {
	CaseID           string            `json:"case_id"`
	Passed           bool              `json:"passed"`
	Response         string            `json:"response"`
	AssertionResults []AssertionResult `json:"assertion_results"`
	Error            string            `json:"error,omitempty"`
	ElapsedSeconds   float64           `json:"elapsed_seconds"`
	Tokens           TokenTotals       `json:"tokens"`
	ToolCalls        []ToolCallRecord  `json:"tool_calls"`
}

// MarshalJSON truncates the response in the serialized form only. The cut
// backs up to a rune boundary so truncation never emits invalid UTF-8.
func (c CaseResult) MarshalJSON() ([]byte, error) {
	type alias CaseResult
	out := alias(c)
	if len(out.Response) > maxResponseLen {
		cut := maxResponseLen
		for cut > 0 && !utf8.RuneStart(out.Response[cut]) {
			cut--
		}
		out.Response = out.Response[:cut]
	}
	return json.Marshal(out)
}

// Report aggregates the results of one eval run.
type Report struct {
	BotName         string       `json:"bot_name"`
	Model           string       `json:"model"`
	Timestamp       time.Time    `json:"timestamp"`
	PassRate        float64      `json:"pass_rate"`
	TotalTokens     TokenTotals  `json:"total_tokens"`
	DurationSeconds float64      `json:"duration_seconds"`
	Cases           []CaseResult `json:"cases"`
}

// Count returns the number of cases in the report.
func (r *Report) Count() int {
	return len(r.Cases)
}

// PassedCount returns how many cases passed.
func (r *Report) PassedCount() int {
	passed := 0
	for _, c := range r.Cases {
		if c.Passed {
			passed++
		}
	}
	return passed
}

// Summary renders a human-readable run summary with per-case status lines
// and the detail of every failed assertion.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eval: %s (%s)\n", r.BotName, r.Model)
	fmt.Fprintf(&b, "Pass rate: %.0f%% (%d/%d)\n", r.PassRate, r.PassedCount(), r.Count())
	fmt.Fprintf(&b, "Tokens: %s\n", groupThousands(r.TotalTokens.Total))
	fmt.Fprintf(&b, "Duration: %.1fs", r.DurationSeconds)

	for _, c := range r.Cases {
		status := "FAIL"
		if c.Passed {
			status = "PASS"
		}
		fmt.Fprintf(&b, "\n  [%s] %s (%.1fs, %dt)", status, c.CaseID, c.ElapsedSeconds, c.Tokens.Total)
		for _, ar := range c.AssertionResults {
			if !ar.Passed {
				fmt.Fprintf(&b, "\n         FAILED: %s", ar.Detail)
			}
		}
	}
	return b.String()
}

// Comparison is the delta between a report and a baseline.
type Comparison struct {
	PassRateDelta    float64     `json:"pass_rate_delta"`
	TokenDelta       TokenTotals `json:"token_delta"`
	Regressions      []string    `json:"regressions"`
	Improvements     []string    `json:"improvements"`
	BaselinePassRate float64     `json:"baseline_pass_rate"`
	CurrentPassRate  float64     `json:"current_pass_rate"`
}

// Compare matches cases by ID against a baseline report. Cases present on
// only one side are ignored; a case passing here but failing in the baseline
// is an improvement, the reverse is a regression.
func (r *Report) Compare(baseline *Report) Comparison {
	baselineByID := make(map[string]CaseResult, len(baseline.Cases))
	for _, c := range baseline.Cases {
		baselineByID[c.CaseID] = c
	}

	regressions := []string{}
	improvements := []string{}
	for _, c := range r.Cases {
		bl, ok := baselineByID[c.CaseID]
		if !ok {
			continue
		}
		switch {
		case bl.Passed && !c.Passed:
			regressions = append(regressions, c.CaseID)
		case !bl.Passed && c.Passed:
			improvements = append(improvements, c.CaseID)
		}
	}

	return Comparison{
		PassRateDelta: r.PassRate - baseline.PassRate,
		TokenDelta: TokenTotals{
			Prompt:     r.TotalTokens.Prompt - baseline.TotalTokens.Prompt,
			Completion: r.TotalTokens.Completion - baseline.TotalTokens.Completion,
			Total:      r.TotalTokens.Total - baseline.TotalTokens.Total,
		},
		Regressions:      regressions,
		Improvements:     improvements,
		BaselinePassRate: baseline.PassRate,
		CurrentPassRate:  r.PassRate,
	}
}

// groupThousands formats n with comma separators.
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
