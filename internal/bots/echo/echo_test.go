package echo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h1v3-io/botsamples/internal/adapter"
	"github.com/h1v3-io/botsamples/internal/logging"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

func activity(typ schema.ActivityType, channel, text string) *schema.Activity {
	return &schema.Activity{
		Type:         typ,
		ID:           "act-1",
		ChannelID:    channel,
		Conversation: schema.ConversationAccount{ID: "conv"},
		From:         schema.ChannelAccount{ID: "user"},
		Recipient:    schema.ChannelAccount{ID: "bot"},
		Text:         text,
	}
}

func runTurn(t *testing.T, act *schema.Activity, bot turn.Bot) []*schema.Activity {
	t.Helper()
	a := adapter.New(adapter.Config{}, adapter.Options{
		Logger:      logging.NewNop(),
		OnTurnError: TurnErrorHandler(logging.NewNop()),
	})
	rec := &turn.Recorder{}
	_, err := a.RunTurn(context.Background(), act, rec, bot)
	require.NoError(t, err)
	return rec.Activities()
}

func TestEcho_RepliesWithPrefix(t *testing.T) {
	for _, text := range []string{"hello", "", "multi\nline", "ünïcødé"} {
		replies := runTurn(t, activity(schema.ActivityMessage, "test", text), New())
		require.Len(t, replies, 1)
		assert.Equal(t, schema.ActivityMessage, replies[0].Type)
		assert.Equal(t, "You said "+text, replies[0].Text)
		assert.Equal(t, "act-1", replies[0].ReplyToID)
	}
}

func TestEcho_IgnoresNonMessages(t *testing.T) {
	for _, typ := range []schema.ActivityType{
		schema.ActivityConversationUpdate,
		schema.ActivityTyping,
		schema.ActivityEvent,
		schema.ActivityMessageReaction,
	} {
		t.Run(string(typ), func(t *testing.T) {
			assert.Empty(t, runTurn(t, activity(typ, "test", ""), New()))
		})
	}
}

func TestTurnErrorHandler(t *testing.T) {
	failing := turn.BotFunc(func(context.Context, *turn.Context) error {
		return errors.New("database on fire")
	})
	panicking := turn.BotFunc(func(context.Context, *turn.Context) error {
		panic("nil map")
	})

	tests := []struct {
		name      string
		channel   string
		bot       turn.Bot
		wantTrace bool
		wantValue string
	}{
		{"error on emulator", schema.ChannelEmulator, failing, true, "database on fire"},
		{"error on teams", "msteams", failing, false, ""},
		{"panic on emulator", schema.ChannelEmulator, panicking, true, "panic: nil map"},
		{"panic on slack", "slack", panicking, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now().UTC().Add(-time.Second)
			replies := runTurn(t, activity(schema.ActivityMessage, tt.channel, "hi"), tt.bot)

			want := 2
			if tt.wantTrace {
				want = 3
			}
			require.Len(t, replies, want)
			assert.Equal(t, "The bot encountered an error or bug.", replies[0].Text)
			assert.Equal(t, "To continue to run this bot, please fix the bot source code.", replies[1].Text)

			if !tt.wantTrace {
				return
			}
			trace := replies[2]
			assert.Equal(t, schema.ActivityTrace, trace.Type)
			assert.Equal(t, "TurnError", trace.Label)
			assert.Equal(t, "on_turn_error Trace", trace.Name)
			assert.Equal(t, tt.wantValue, trace.Value)
			assert.Equal(t, "https://www.botframework.com/schemas/error", trace.ValueType)
			require.NotNil(t, trace.Timestamp)
			assert.Equal(t, time.UTC, trace.Timestamp.Location())
			assert.True(t, trace.Timestamp.After(before))
		})
	}
}
