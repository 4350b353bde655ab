package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

func TestNewMessage(t *testing.T) {
	a := NewMessage("telegram", "42", "7", "hello")

	assert.Equal(t, schema.ActivityMessage, a.Type)
	assert.Equal(t, "telegram", a.ChannelID)
	assert.Equal(t, "42", a.Conversation.ID)
	assert.Equal(t, "7", a.From.ID)
	assert.Equal(t, "hello", a.Text)
	assert.NoError(t, a.Validate())
}

func TestFlattenText(t *testing.T) {
	tests := []struct {
		name string
		in   *schema.Activity
		want string
	}{
		{"text only", schema.NewMessage("You said hi"), "You said hi"},
		{
			name: "hero card",
			in: &schema.Activity{Attachments: []schema.Attachment{
				schema.HeroCardAttachment(schema.HeroCard{Title: "Title", Subtitle: "Sub", Text: "Body"}),
			}},
			want: "**Title**\nSub\nBody",
		},
		{
			name: "text and thumbnail pointer",
			in: &schema.Activity{Text: "see", Attachments: []schema.Attachment{
				{ContentType: schema.ContentTypeThumbnailCard, Content: &schema.ThumbnailCard{Title: "T"}},
			}},
			want: "see\n\n**T**",
		},
		{
			name: "unknown content skipped",
			in: &schema.Activity{Text: "x", Attachments: []schema.Attachment{
				{ContentType: schema.ContentTypeAdaptiveCard, Content: map[string]any{"type": "AdaptiveCard"}},
			}},
			want: "x",
		},
		{"empty", &schema.Activity{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenText(tt.in))
		})
	}
}

func TestCardOf(t *testing.T) {
	thumb := schema.ThumbnailCard{
		Title:  "Thumbnail Card",
		Text:   "https://example.com",
		Images: []schema.CardImage{{URL: "https://img/1.png"}, {URL: "https://img/2.png"}},
	}

	c, ok := CardOf(&thumb)
	assert.True(t, ok)
	assert.Equal(t, Card{Title: "Thumbnail Card", Text: "https://example.com", ImageURL: "https://img/1.png"}, c)

	c, ok = CardOf(schema.HeroCard{Title: "Hero", Subtitle: "sub"})
	assert.True(t, ok)
	assert.Equal(t, Card{Title: "Hero", Subtitle: "sub"}, c)

	_, ok = CardOf(schema.TabEntity{Name: "tab"})
	assert.False(t, ok)
	_, ok = CardOf(map[string]any{"title": "generic"})
	assert.False(t, ok)
}
