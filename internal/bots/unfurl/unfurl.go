// Package unfurl implements the Teams link unfurling bot.
//
// Pasting a link into a compose box produces an app-based link query; the bot answers
// with a thumbnail card and a tab entity. The search messaging extension answers a
// single fixed command.
package unfurl

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/h1v3-io/botsamples/internal/dispatch"
	"github.com/h1v3-io/botsamples/internal/preview"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// SearchCommand is the only messaging extension command id the bot answers.
const SearchCommand = "searchQuery"

const (
	cardTitle = "Thumbnail Card"
	cardImage = "https://raw.githubusercontent.com/microsoft/botframework-sdk/master/icon.png"

	tabName       = "Links"
	tabContentURL = "https://github.com/microsoft/botframework-sdk/blob/master/README.md"
	tabWebsiteURL = "https://github.com/microsoft/botframework-sdk"
	tabRemoveURL  = "https://github.com/microsoft/botframework-sdk/blob/master/Contributing.md"

	searchTitle    = "This is a Link Unfurling Sample"
	searchSubtitle = "It will unfurl links from *.BotFramework.com"
	searchText     = "This sample demonstrates how to handle link unfurling in Teams.  Please review the readme for more information. "
)

// CommandError is returned for a messaging extension command the bot does not know.
type CommandError struct {
	CommandID string
}

func (e *CommandError) Error() string { return "Invalid CommandId: " + e.CommandID }

// Unwrap lets callers match the error against dispatch.ErrNotImplemented.
func (e *CommandError) Unwrap() error { return dispatch.ErrNotImplemented }

// PageFetcher fetches a page summary for a link. *preview.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*preview.Page, error)
}

// Options configures the bot.
type Options struct {
	// Preview, when set, is used to add the linked page's title as the card subtitle.
	Preview PageFetcher
	Logger  *slog.Logger
}

// Bot answers link queries and extension queries.
type Bot struct {
	preview PageFetcher
	logger  *slog.Logger
}

// New creates the bot. Wrap it with dispatch.NewRouter to hand it to the adapter.
func New(opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bot{preview: opts.Preview, logger: opts.Logger}
}

// OnLinkQuery implements dispatch.LinkQueryHandler.
func (b *Bot) OnLinkQuery(ctx context.Context, _ *turn.Context, q dispatch.LinkQuery) (*schema.MessagingExtensionResponse, error) {
	card := schema.ThumbnailCard{
		Title:  cardTitle,
		Text:   q.Query.URL,
		Images: []schema.CardImage{{URL: cardImage}},
	}
	if b.preview != nil {
		card.Subtitle = b.pageTitle(ctx, q.Query.URL)
	}

	tab := schema.TabEntity{
		EntityID:   uuid.NewString(),
		Name:       tabName,
		ContentURL: tabContentURL,
		WebsiteURL: tabWebsiteURL,
		RemoveURL:  tabRemoveURL,
	}

	return &schema.MessagingExtensionResponse{
		ComposeExtension: &schema.MessagingExtensionResult{
			AttachmentLayout: schema.AttachmentLayoutList,
			Type:             schema.ResultTypeResult,
			Attachments: []schema.MessagingExtensionAttachment{
				// Teams renders the thumbnail card under the hero content type.
				{ContentType: schema.ContentTypeHeroCard, Content: card},
				{ContentType: schema.ContentTypeTabUnfurling, Content: tab},
			},
		},
	}, nil
}

// OnExtensionQuery implements dispatch.ExtensionQueryHandler.
func (b *Bot) OnExtensionQuery(_ context.Context, _ *turn.Context, q dispatch.ExtensionQuery) (*schema.MessagingExtensionResponse, error) {
	if q.Query.CommandID != SearchCommand {
		return nil, &CommandError{CommandID: q.Query.CommandID}
	}

	card := schema.HeroCard{
		Title:    searchTitle,
		Subtitle: searchSubtitle,
		Text:     searchText,
	}
	previewCard := schema.HeroCardAttachment(card)

	return &schema.MessagingExtensionResponse{
		ComposeExtension: &schema.MessagingExtensionResult{
			AttachmentLayout: schema.AttachmentLayoutList,
			Type:             schema.ResultTypeResult,
			Attachments: []schema.MessagingExtensionAttachment{{
				ContentType: schema.ContentTypeHeroCard,
				Content:     card,
				Preview:     &previewCard,
			}},
		},
	}, nil
}

// pageTitle returns the linked page's title, or "" when it cannot be fetched.
func (b *Bot) pageTitle(ctx context.Context, url string) string {
	page, err := b.preview.Fetch(ctx, url)
	if err != nil {
		b.logger.Warn("link preview failed", "url", url, "error", err)
		return ""
	}
	return page.Title
}
