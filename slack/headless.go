package slack

import (
	"context"

	"github.com/aic-holdings/bot-slack-core/logger"
	"github.com/aic-holdings/bot-slack-core/runner"
)

// HeadlessAdapter runs a bot with no human interface attached. Eval runs
// and local experiments use it so the runner lifecycle works without Slack
// tokens.
type HeadlessAdapter struct{}

// NewHeadlessAdapter creates a headless adapter.
func NewHeadlessAdapter() *HeadlessAdapter {
	return &HeadlessAdapter{}
}

// Start blocks until the context is cancelled.
func (h *HeadlessAdapter) Start(ctx context.Context, r *runner.Runner) error {
	logger.Info("headless adapter started", "bot", r.Config().BotName)
	<-ctx.Done()
	return nil
}
