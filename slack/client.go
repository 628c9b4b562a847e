package slack

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/aic-holdings/bot-slack-core/logger"
)

// defaultThreadLimit bounds how many thread messages feed the conversation.
const defaultThreadLimit = 20

// API is the subset of the Slack Web API the adapter and scanner use.
// *slack.Client satisfies it; tests substitute fakes.
type API interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
}

// ThreadHistory fetches up to limit messages from a thread for conversation
// context. Failures are logged and yield an empty slice so the caller can
// fall back to the bare user message.
func ThreadHistory(ctx context.Context, api API, channel, threadTS string, limit int) []slack.Message {
	if limit <= 0 {
		limit = defaultThreadLimit
	}
	msgs, _, _, err := api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channel,
		Timestamp: threadTS,
		Limit:     limit,
	})
	if err != nil {
		logger.Error("fetch thread history failed",
			"channel", channel, "thread_ts", threadTS, "error", err.Error())
		return nil
	}
	logger.Debug("fetched thread history",
		"channel", channel, "thread_ts", threadTS, "messages", len(msgs))
	return msgs
}

// PostStatusMessage posts to a status channel, reporting success. Failures
// are logged, never fatal: status messages are best effort.
func PostStatusMessage(ctx context.Context, api API, channel, message string) bool {
	_, _, err := api.PostMessageContext(ctx, channel, slack.MsgOptionText(message, false))
	if err != nil {
		logger.Error("post status message failed", "channel", channel, "error", err.Error())
		return false
	}
	return true
}
