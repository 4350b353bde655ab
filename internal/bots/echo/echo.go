// Package echo implements the echo bot: every message is repeated back to its sender.
package echo

import (
	"context"
	"log/slog"

	"github.com/h1v3-io/botsamples/internal/adapter"
	"github.com/h1v3-io/botsamples/internal/dispatch"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

const (
	replyPrefix = "You said "

	errorMessage   = "The bot encountered an error or bug."
	fixMessage     = "To continue to run this bot, please fix the bot source code."
	traceName      = "on_turn_error Trace"
	traceLabel     = "TurnError"
	errorValueType = "https://www.botframework.com/schemas/error"
)

// Bot echoes message text. It holds no state.
type Bot struct{}

// New returns the echo bot wrapped in a dispatch router, ready for the adapter.
func New() turn.Bot {
	return dispatch.NewRouter(Bot{})
}

// OnMessage implements dispatch.MessageHandler.
func (Bot) OnMessage(ctx context.Context, tc *turn.Context, m dispatch.Message) error {
	return tc.SendText(ctx, replyPrefix+m.Text)
}

// TurnErrorHandler returns the handler that converts a failed turn into replies.
// The user gets two fixed messages; the emulator additionally gets a trace carrying the error.
func TurnErrorHandler(logger *slog.Logger) adapter.TurnErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, tc *turn.Context, err error) {
		act := tc.Activity()
		logger.Error("unhandled turn error",
			"channel", act.ChannelID,
			"conversation", act.Conversation.ID,
			"error", err,
		)

		for _, text := range []string{errorMessage, fixMessage} {
			if sendErr := tc.SendText(ctx, text); sendErr != nil {
				logger.Error("failed to send error reply", "error", sendErr)
				return
			}
		}

		if act.ChannelID != schema.ChannelEmulator {
			return
		}
		trace := schema.NewTrace(traceName, traceLabel, err.Error(), errorValueType)
		if sendErr := tc.SendActivity(ctx, trace); sendErr != nil {
			logger.Error("failed to send error trace", "error", sendErr)
		}
	}
}
