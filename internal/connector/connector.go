// Package connector defines chat-platform channels that feed activities into a bot
// and deliver its replies back to the platform.
package connector

import (
	"context"
	"strings"

	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Connector is the interface for external messaging platforms (Telegram, Slack, etc.).
// A connector is also the turn.Sender for replies to the conversations it feeds.
type Connector interface {
	// Name returns the connector type, which is also the channel id of its activities.
	Name() string
	// Start begins listening for inbound messages. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
	// Send delivers an outbound activity to the conversation it is addressed to.
	Send(ctx context.Context, a *schema.Activity) error
}

// InboundHandler runs a turn for an activity received by a connector.
// reply delivers the bot's replies back through the same connector.
type InboundHandler func(ctx context.Context, a *schema.Activity, reply turn.Sender) error

// NewMessage builds the inbound message activity for a platform message.
func NewMessage(channel, chatID, senderID, text string) *schema.Activity {
	a := schema.NewMessage(text)
	a.ChannelID = channel
	a.Conversation = schema.ConversationAccount{ID: chatID}
	a.From = schema.ChannelAccount{ID: senderID, Role: "user"}
	a.Recipient = schema.ChannelAccount{ID: channel + "-bot", Role: "bot"}
	return a
}

// FlattenText renders an outbound activity as Markdown text: the activity text
// followed by each hero or thumbnail card as a bold title and its lines.
// Attachments of other content types are skipped.
func FlattenText(a *schema.Activity) string {
	var parts []string
	if t := strings.TrimSpace(a.Text); t != "" {
		parts = append(parts, t)
	}
	for _, att := range a.Attachments {
		if card := flattenCard(att.Content); card != "" {
			parts = append(parts, card)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Card is the renderable part of a hero or thumbnail card.
type Card struct {
	Title    string
	Subtitle string
	Text     string
	ImageURL string
}

// CardOf extracts a hero or thumbnail card from attachment content, given as a value or pointer.
func CardOf(content any) (Card, bool) {
	var card Card
	var images []schema.CardImage
	switch c := content.(type) {
	case schema.HeroCard:
		card, images = Card{Title: c.Title, Subtitle: c.Subtitle, Text: c.Text}, c.Images
	case *schema.HeroCard:
		card, images = Card{Title: c.Title, Subtitle: c.Subtitle, Text: c.Text}, c.Images
	case schema.ThumbnailCard:
		card, images = Card{Title: c.Title, Subtitle: c.Subtitle, Text: c.Text}, c.Images
	case *schema.ThumbnailCard:
		card, images = Card{Title: c.Title, Subtitle: c.Subtitle, Text: c.Text}, c.Images
	default:
		return Card{}, false
	}
	if len(images) > 0 {
		card.ImageURL = images[0].URL
	}
	return card, true
}

func flattenCard(content any) string {
	c, ok := CardOf(content)
	if !ok {
		return ""
	}

	var lines []string
	if c.Title != "" {
		lines = append(lines, "**"+c.Title+"**")
	}
	for _, s := range []string{c.Subtitle, c.Text} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
