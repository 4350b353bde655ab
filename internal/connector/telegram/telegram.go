package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/h1v3-io/botsamples/internal/connector"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// ChannelID is the channel id of activities produced by this connector.
const ChannelID = "telegram"

// Config holds Telegram connector configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// botAPI is the part of tgbotapi.BotAPI the connector uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Connector implements the connector.Connector interface for Telegram.
type Connector struct {
	bot      botAPI
	username string
	config   Config
	handler  connector.InboundHandler
	logger   *slog.Logger
	cancel   context.CancelFunc
}

// New creates a new Telegram connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	return newConnector(bot, bot.Self.UserName, cfg, handler, logger), nil
}

func newConnector(bot botAPI, username string, cfg Config, handler connector.InboundHandler, logger *slog.Logger) *Connector {
	return &Connector{
		bot:      bot,
		username: username,
		config:   cfg,
		handler:  handler,
		logger:   logger,
	}
}

func (c *Connector) Name() string { return ChannelID }

// Start begins long-polling for updates. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", c.username)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleUpdate(ctx, update)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers an activity to the Telegram chat named by its conversation id.
// Messages are sent as HTML; typing activities become a chat action.
func (c *Connector) Send(_ context.Context, a *schema.Activity) error {
	chatID, err := strconv.ParseInt(a.Conversation.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat_id %q: %w", a.Conversation.ID, err)
	}

	switch a.Type {
	case schema.ActivityTyping:
		_, err := c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
		return err
	case schema.ActivityMessage:
	default:
		return nil
	}

	text := connector.FlattenText(a)
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("skipping empty message", "chat_id", chatID)
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, ToHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		c.logger.Warn("HTML send failed, falling back to plain text",
			"chat_id", chatID,
			"error", err,
		)
		msg.Text = PlainText(text)
		msg.ParseMode = ""
		if _, err := c.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram: send message: %w", err)
		}
	}
	return nil
}

func (c *Connector) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if len(c.config.AllowFrom) > 0 && !slices.Contains(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if msg.IsCommand() && msg.Command() == "help" {
		c.reply(msg.Chat.ID, "Send me any message and I will repeat it back.")
		return
	}
	if text == "" {
		return
	}

	act := connector.NewMessage(ChannelID,
		strconv.FormatInt(msg.Chat.ID, 10),
		strconv.FormatInt(userID, 10),
		text,
	)
	act.ID = strconv.Itoa(msg.MessageID)
	act.From.Name = msg.From.UserName
	act.Recipient = schema.ChannelAccount{ID: c.username, Role: "bot"}
	act.Conversation.IsGroup = !msg.Chat.IsPrivate()

	if err := c.handler(ctx, act, c); err != nil {
		c.logger.Error("inbound handler error",
			"chat_id", msg.Chat.ID,
			"error", err,
		)
	}
}

func (c *Connector) reply(chatID int64, text string) {
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		c.logger.Warn("telegram reply failed", "chat_id", chatID, "error", err)
	}
}
