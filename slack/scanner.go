package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/aic-holdings/bot-slack-core/logger"
)

const historyPageSize = 200

// Conversation is one full thread in which the bot participated.
type Conversation struct {
	Channel   string          `json:"channel"`
	ThreadTS  string          `json:"thread_ts"`
	Permalink string          `json:"permalink"`
	Messages  []slack.Message `json:"messages"`
	BotUserID string          `json:"bot_user_id"`
}

// Scanner discovers bot conversations across channels, typically to harvest
// real threads into golden eval cases.
type Scanner struct {
	api         API
	threadLimit int
}

// NewScanner creates a scanner over the given API client.
func NewScanner(api API) *Scanner {
	return &Scanner{api: api, threadLimit: defaultThreadLimit}
}

// ChannelHistory fetches up to limit messages from a channel with cursor
// pagination. oldest, when non-empty, restricts to messages after that
// Slack timestamp. Partial results are returned on API errors.
func (s *Scanner) ChannelHistory(ctx context.Context, channel, oldest string, limit int) []slack.Message {
	var messages []slack.Message
	cursor := ""

	for len(messages) < limit {
		pageLimit := limit - len(messages)
		if pageLimit > historyPageSize {
			pageLimit = historyPageSize
		}

		resp, err := s.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channel,
			Oldest:    oldest,
			Cursor:    cursor,
			Limit:     pageLimit,
		})
		if err != nil {
			logger.Warn("conversations.history failed", "channel", channel, "error", err.Error())
			return messages
		}

		messages = append(messages, resp.Messages...)
		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" {
			break
		}
	}

	logger.Debug("fetched channel history", "channel", channel, "messages", len(messages))
	return messages
}

// BotChannels discovers all channels the bot is a member of.
func (s *Scanner) BotChannels(ctx context.Context) []slack.Channel {
	var channels []slack.Channel
	cursor := ""

	for {
		page, nextCursor, err := s.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:  []string{"public_channel", "private_channel"},
			Cursor: cursor,
			Limit:  historyPageSize,
		})
		if err != nil {
			logger.Warn("conversations.list failed", "error", err.Error())
			return channels
		}

		channels = append(channels, page...)
		cursor = nextCursor
		if cursor == "" {
			break
		}
	}

	logger.Debug("discovered channels", "count", len(channels))
	return channels
}

// BotConversations extracts full threads where the bot participated, either
// as sender or by @mention. limit caps the number of threads fetched.
func (s *Scanner) BotConversations(ctx context.Context, channel, botUserID, oldest string, limit int) []Conversation {
	messages := s.ChannelHistory(ctx, channel, oldest, historyPageSize)

	mention := fmt.Sprintf("<@%s>", botUserID)
	seen := make(map[string]bool)
	var threadTimestamps []string

	for _, msg := range messages {
		threadTS := msg.ThreadTimestamp
		if threadTS == "" {
			threadTS = msg.Timestamp
		}
		if threadTS == "" || seen[threadTS] {
			continue
		}

		botSent := msg.User == botUserID || msg.BotID != ""
		botMentioned := strings.Contains(msg.Text, mention)
		if botSent || botMentioned {
			seen[threadTS] = true
			threadTimestamps = append(threadTimestamps, threadTS)
		}
		if len(threadTimestamps) >= limit {
			break
		}
	}

	var conversations []Conversation
	for _, threadTS := range threadTimestamps {
		threadMsgs := ThreadHistory(ctx, s.api, channel, threadTS, s.threadLimit)
		if len(threadMsgs) == 0 {
			continue
		}
		conversations = append(conversations, Conversation{
			Channel:   channel,
			ThreadTS:  threadTS,
			Permalink: permalink(channel, threadTS),
			Messages:  threadMsgs,
			BotUserID: botUserID,
		})
	}

	logger.Debug("found bot conversations", "channel", channel, "count", len(conversations))
	return conversations
}

// permalink builds the archive URL for a thread.
func permalink(channel, threadTS string) string {
	return fmt.Sprintf("https://slack.com/archives/%s/p%s",
		channel, strings.ReplaceAll(threadTS, ".", ""))
}
