// Package slackconn feeds Slack messages into a bot over Socket Mode and posts
// its replies back as Block Kit messages.
package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/h1v3-io/botsamples/internal/connector"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// ChannelID is the channel id of activities produced by this connector.
const ChannelID = "slack"

const channelTypeIM = "im"

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token (for Socket Mode)
	Channels []string // only respond in these channels; empty allows all
}

// poster is the part of slack.Client used for replies.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Connector implements connector.Connector for Slack via Socket Mode.
type Connector struct {
	api     poster
	socket  *socketmode.Client
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string
}

// New authenticates against Slack and prepares a Socket Mode client.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	switch {
	case cfg.BotToken == "":
		return nil, fmt.Errorf("slack: bot_token is required")
	case cfg.AppToken == "":
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}
	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	auth, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", auth.User, "team", auth.Team)

	c := newConnector(api, auth.UserID, cfg, handler, logger)
	c.socket = socketmode.New(api)
	return c, nil
}

func newConnector(api poster, botID string, cfg Config, handler connector.InboundHandler, logger *slog.Logger) *Connector {
	return &Connector{
		api:     api,
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   botID,
	}
}

func (c *Connector) Name() string { return ChannelID }

// Start runs the Socket Mode loop. Blocks until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	if c.socket == nil {
		return fmt.Errorf("slack: connector was not created with New")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send posts a message activity to the channel, or thread, named by its
// conversation id. Activities of other types are dropped.
func (c *Connector) Send(ctx context.Context, a *schema.Activity) error {
	if a.Type != schema.ActivityMessage {
		return nil
	}
	blocks := messageBlocks(a)
	if len(blocks) == 0 {
		return nil
	}

	channel, threadTS := SplitChatID(a.Conversation.ID)
	opts := []slack.MsgOption{
		// Text is the notification fallback when blocks are present.
		slack.MsgOptionText(MarkdownToMrkdwn(connector.FlattenText(a)), false),
		slack.MsgOptionBlocks(blocks...),
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	if _, _, err := c.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.socket.Events:
			if !ok {
				return
			}
			switch event.Type {
			case socketmode.EventTypeConnecting:
				c.logger.Debug("slack socket connecting")
			case socketmode.EventTypeConnectionError:
				c.logger.Warn("slack socket connection error", "data", event.Data)
			case socketmode.EventTypeEventsAPI:
				c.ack(event)
				if ev, ok := event.Data.(slackevents.EventsAPIEvent); ok {
					c.handleEventsAPI(ctx, ev)
				}
			case socketmode.EventTypeSlashCommand:
				c.ack(event)
				if cmd, ok := event.Data.(slack.SlashCommand); ok {
					c.handleSlashCommand(ctx, cmd)
				}
			}
		}
	}
}

func (c *Connector) ack(event socketmode.Event) {
	if event.Request != nil {
		c.socket.Ack(*event.Request)
	}
}

func (c *Connector) handleEventsAPI(ctx context.Context, ev slackevents.EventsAPIEvent) {
	switch inner := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		c.handleMessage(ctx, inner)
	case *slackevents.AppMentionEvent:
		c.handleMention(ctx, inner)
	}
}

func (c *Connector) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Bots (ourselves included) and edits, deletes and joins are ignored.
	if ev.BotID != "" || ev.User == "" || ev.User == c.botID || ev.SubType != "" {
		return
	}
	// Channel chatter reaches the bot through app_mention instead.
	if ev.ChannelType != channelTypeIM && strings.Contains(ev.Text, "<@"+c.botID+">") {
		return
	}
	if !c.isAllowedChannel(ev.Channel) || ev.Text == "" {
		return
	}

	act := c.activity(JoinChatID(ev.Channel, ev.ThreadTimeStamp), ev.User, ev.Text)
	act.ID = ev.TimeStamp
	act.Timestamp = parseTS(ev.TimeStamp)
	act.Conversation.ConversationType = ev.ChannelType
	act.Conversation.IsGroup = ev.ChannelType != channelTypeIM
	c.dispatch(ctx, act)
}

func (c *Connector) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == c.botID || !c.isAllowedChannel(ev.Channel) {
		return
	}
	text := StripMention(ev.Text, c.botID)
	if text == "" {
		return
	}

	// Mentions start a thread unless they are already in one.
	thread := ev.ThreadTimeStamp
	if thread == "" {
		thread = ev.TimeStamp
	}
	act := c.activity(JoinChatID(ev.Channel, thread), ev.User, text)
	act.ID = ev.TimeStamp
	act.Timestamp = parseTS(ev.TimeStamp)
	act.Conversation.ConversationType = "channel"
	act.Conversation.IsGroup = true
	c.dispatch(ctx, act)
}

func (c *Connector) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if !c.isAllowedChannel(cmd.ChannelID) {
		return
	}
	text := cmd.Text
	if text == "" {
		text = cmd.Command
	}
	act := c.activity(cmd.ChannelID, cmd.UserID, text)
	act.From.Name = cmd.UserName
	act.Conversation.Name = cmd.ChannelName
	c.dispatch(ctx, act)
}

func (c *Connector) activity(chatID, userID, text string) *schema.Activity {
	act := connector.NewMessage(ChannelID, chatID, userID, text)
	act.Recipient.ID = c.botID
	return act
}

func (c *Connector) dispatch(ctx context.Context, act *schema.Activity) {
	if err := c.handler(ctx, act, c); err != nil {
		c.logger.Error("slack inbound handler error",
			"chat_id", act.Conversation.ID,
			"user", act.From.ID,
			"error", err,
		)
	}
}

func (c *Connector) isAllowedChannel(channel string) bool {
	return len(c.config.Channels) == 0 || slices.Contains(c.config.Channels, channel)
}

// JoinChatID builds the conversation id for a channel message, keeping thread replies grouped.
func JoinChatID(channel, threadTS string) string {
	if threadTS == "" {
		return channel
	}
	return channel + ":" + threadTS
}

// SplitChatID reverses JoinChatID.
func SplitChatID(chatID string) (channel, threadTS string) {
	channel, threadTS, _ = strings.Cut(chatID, ":")
	return channel, threadTS
}

// parseTS converts a Slack message timestamp ("1700000000.000100") to UTC time.
func parseTS(ts string) *time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return nil
	}
	var usec int64
	if frac != "" {
		if usec, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return nil
		}
	}
	t := time.Unix(s, usec*int64(time.Microsecond)).UTC()
	return &t
}
