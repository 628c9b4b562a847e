// Package slack is the human interface for bots: a Socket Mode adapter that
// routes mentions and DMs to the orchestrator, plus helpers for thread
// history, status posting, and channel scanning.
package slack

import (
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/aic-holdings/bot-slack-core/types"
)

var mentionRE = regexp.MustCompile(`<@[A-Z0-9]+>`)

// StripMentions removes user mention tokens and trims the remainder.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionRE.ReplaceAllString(text, ""))
}

// BuildConversation converts raw thread messages into the conversation
// format the orchestrator consumes. Bot-authored messages become assistant
// turns, everything else is a user turn; messages left empty after mention
// stripping are dropped.
func BuildConversation(threadMessages []slack.Message) []types.Message {
	conversation := make([]types.Message, 0, len(threadMessages))
	for _, msg := range threadMessages {
		text := StripMentions(msg.Text)
		if text == "" {
			continue
		}
		if msg.BotID != "" {
			conversation = append(conversation, types.AssistantMessage(text))
		} else {
			conversation = append(conversation, types.UserMessage(text))
		}
	}
	return conversation
}
