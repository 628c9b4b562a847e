package evals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aic-holdings/bot-slack-core/events"
	"github.com/aic-holdings/bot-slack-core/logger"
	"github.com/aic-holdings/bot-slack-core/runner"
	"github.com/aic-holdings/bot-slack-core/types"
)

// Target is the bot surface an eval run exercises. *runner.Runner satisfies
// it; tests substitute lighter implementations.
type Target interface {
	HandleMessage(ctx context.Context, userText string, conversation []types.Message) string
	Config() runner.BotConfig
	Bus() *events.Bus
}

// Runner executes golden cases sequentially against a Target and produces
// a Report.
type Runner struct {
	target Target
}

// NewRunner creates an eval runner over the target bot.
func NewRunner(target Target) *Runner {
	return &Runner{target: target}
}

// Run executes all cases in order and aggregates the report. Cases run
// sequentially so per-case telemetry capture stays unentangled.
func (r *Runner) Run(ctx context.Context, cases []EvalCase) *Report {
	cfg := r.target.Config()
	model := cfg.Model
	if model == "" {
		model = "unknown"
	}

	emitter := events.NewEmitter(r.target.Bus(), uuid.NewString(), cfg.BotName)

	runStart := time.Now()
	results := make([]CaseResult, 0, len(cases))
	var totals TokenTotals
	passed := 0

	for _, c := range cases {
		result := r.runCase(ctx, c)
		totals.AddTotals(result.Tokens)
		if result.Passed {
			passed++
		}
		logger.Info("eval case finished",
			"case_id", result.CaseID,
			"passed", result.Passed,
			"elapsed_seconds", result.ElapsedSeconds,
			"tokens", result.Tokens.Total)
		emitter.CaseCompleted(result.CaseID, result.Passed,
			time.Duration(result.ElapsedSeconds*float64(time.Second)),
			types.Usage{
				Prompt:     result.Tokens.Prompt,
				Completion: result.Tokens.Completion,
				Total:      result.Tokens.Total,
			})
		results = append(results, result)
	}

	passRate := 0.0
	if len(results) > 0 {
		passRate = float64(passed) / float64(len(results)) * 100
	}

	return &Report{
		BotName:         cfg.BotName,
		Model:           model,
		Timestamp:       time.Now().UTC(),
		PassRate:        passRate,
		TotalTokens:     totals,
		DurationSeconds: time.Since(runStart).Seconds(),
		Cases:           results,
	}
}

// RunCase executes a single case with a fresh telemetry capture. The
// capture attaches before the message is handled and always detaches,
// including on the panic path.
func (r *Runner) RunCase(ctx context.Context, c EvalCase) CaseResult {
	return r.runCase(ctx, c)
}

func (r *Runner) runCase(ctx context.Context, c EvalCase) (result CaseResult) {
	capture := NewCapture()
	bus := r.target.Bus()
	bus.SubscribeAll(capture)
	defer bus.Unsubscribe(capture)

	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = r.failedCase(c, capture, fmt.Errorf("panic: %v", rec), time.Since(start))
		}
	}()

	conversation := make([]types.Message, 0, len(c.Context)+1)
	conversation = append(conversation, c.Context...)
	conversation = append(conversation, types.UserMessage(c.Input))

	response := r.target.HandleMessage(ctx, c.Input, conversation)
	elapsed := time.Since(start)

	assertionResults := make([]AssertionResult, 0, len(c.Assertions))
	allPassed := true
	for _, a := range c.Assertions {
		ar := CheckAssertion(a, response, capture)
		if !ar.Passed {
			allPassed = false
		}
		assertionResults = append(assertionResults, ar)
	}

	return CaseResult{
		CaseID:           c.ID,
		Passed:           allPassed,
		Response:         response,
		AssertionResults: assertionResults,
		ElapsedSeconds:   elapsed.Seconds(),
		Tokens:           capture.Tokens(),
		ToolCalls:        capture.ToolCalls(),
	}
}

// failedCase builds the result for a case that blew up instead of
// completing. no_error assertions fail with the error detail; everything
// else is checked against an empty response.
func (r *Runner) failedCase(c EvalCase, capture *Capture, err error, elapsed time.Duration) CaseResult {
	logger.Error("eval case failed", "case_id", c.ID, "error", err.Error())

	assertionResults := make([]AssertionResult, 0, len(c.Assertions))
	for _, a := range c.Assertions {
		if a.Type == AssertNoError {
			assertionResults = append(assertionResults, AssertionResult{
				Type:   AssertNoError,
				Passed: false,
				Detail: fmt.Sprintf("Exception: %v", err),
			})
			continue
		}
		assertionResults = append(assertionResults, CheckAssertion(a, "", capture))
	}

	return CaseResult{
		CaseID:           c.ID,
		Passed:           false,
		Response:         "",
		AssertionResults: assertionResults,
		Error:            err.Error(),
		ElapsedSeconds:   elapsed.Seconds(),
		Tokens:           capture.Tokens(),
		ToolCalls:        capture.ToolCalls(),
	}
}
