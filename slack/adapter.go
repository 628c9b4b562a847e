package slack

import (
	"context"
	"fmt"
	"os"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/aic-holdings/bot-slack-core/logger"
	cerrors "github.com/aic-holdings/bot-slack-core/pkg/errors"
	"github.com/aic-holdings/bot-slack-core/runner"
	"github.com/aic-holdings/bot-slack-core/types"
)

// Adapter connects a bot to Slack over Socket Mode. Mentions and DMs are
// routed to the runner; responses post back into the originating thread.
type Adapter struct {
	api         API
	socket      *socketmode.Client
	runner      *runner.Runner
	threadLimit int
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithThreadLimit bounds how many thread messages feed the conversation.
func WithThreadLimit(limit int) AdapterOption {
	return func(a *Adapter) {
		if limit > 0 {
			a.threadLimit = limit
		}
	}
}

// NewAdapter creates a Socket Mode adapter. Empty tokens fall back to the
// SLACK_BOT_TOKEN and SLACK_APP_TOKEN environment variables.
func NewAdapter(botToken, appToken string, opts ...AdapterOption) (*Adapter, error) {
	if botToken == "" {
		botToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	if appToken == "" {
		appToken = os.Getenv("SLACK_APP_TOKEN")
	}
	if botToken == "" || appToken == "" {
		return nil, cerrors.New("slack", "NewAdapter",
			fmt.Errorf("missing SLACK_BOT_TOKEN or SLACK_APP_TOKEN"))
	}

	client := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	a := &Adapter{
		api:         client,
		socket:      socketmode.New(client),
		threadLimit: defaultThreadLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start announces the bot, runs the Socket Mode event loop, and posts a
// shutdown notice when the context is cancelled. It blocks until the
// connection ends.
func (a *Adapter) Start(ctx context.Context, r *runner.Runner) error {
	a.runner = r
	cfg := r.Config()

	a.postStatus(ctx, fmt.Sprintf(":white_check_mark: %s v%s is online!", cfg.BotName, cfg.Version))

	go a.eventLoop(ctx)

	err := a.socket.RunContext(ctx)

	// Shutdown status goes out on a fresh context: ours is already done.
	a.postStatus(context.Background(),
		fmt.Sprintf(":warning: %s v%s is shutting down...", cfg.BotName, cfg.Version))

	if err != nil && ctx.Err() == nil {
		return cerrors.New("slack", "Start", err)
	}
	return nil
}

func (a *Adapter) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			a.handleSocketEvent(ctx, evt)
		}
	}
}

func (a *Adapter) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		logger.Info("slack socket mode connected", "bot", a.runner.Config().BotName)
	case socketmode.EventTypeConnectionError:
		logger.Warn("slack socket mode connection error")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleEventsAPI(ctx, apiEvent)
	default:
		// Hello, disconnects, and interactive payloads are not routed.
	}
}

func (a *Adapter) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	switch event := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		a.handleMention(ctx, event)
	case *slackevents.MessageEvent:
		a.handleDM(ctx, event)
	}
}

// handleMention answers @mentions, threading the reply and seeding the
// conversation from thread history when one exists.
func (a *Adapter) handleMention(ctx context.Context, event *slackevents.AppMentionEvent) {
	threadTS := event.ThreadTimeStamp
	if threadTS == "" {
		threadTS = event.TimeStamp
	}

	userMessage := StripMentions(event.Text)
	if userMessage == "" {
		a.say(ctx, event.Channel, threadTS,
			fmt.Sprintf("Hi! I'm %s. Ask me anything!", a.runner.Config().BotName))
		return
	}

	conversation := []types.Message{types.UserMessage(userMessage)}
	if threadMsgs := ThreadHistory(ctx, a.api, event.Channel, threadTS, a.threadLimit); len(threadMsgs) > 0 {
		if built := BuildConversation(threadMsgs); len(built) > 0 {
			conversation = built
		}
	}

	response := a.runner.HandleMessage(ctx, userMessage, conversation)
	a.say(ctx, event.Channel, threadTS, response)
}

// handleDM answers direct messages. Channel messages and bot echoes arrive
// on the same event type and are ignored here.
func (a *Adapter) handleDM(ctx context.Context, event *slackevents.MessageEvent) {
	if event.ChannelType != "im" || event.BotID != "" {
		return
	}

	conversation := []types.Message{types.UserMessage(event.Text)}
	response := a.runner.HandleMessage(ctx, event.Text, conversation)
	a.say(ctx, event.Channel, "", response)
}

func (a *Adapter) say(ctx context.Context, channel, threadTS, text string) {
	options := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := a.api.PostMessageContext(ctx, channel, options...); err != nil {
		logger.Error("post message failed", "channel", channel, "error", err.Error())
	}
}

func (a *Adapter) postStatus(ctx context.Context, message string) {
	if a.runner == nil {
		return
	}
	channel := a.runner.Config().StatusChannel
	if channel == "" {
		return
	}
	PostStatusMessage(ctx, a.api, channel, message)
}
