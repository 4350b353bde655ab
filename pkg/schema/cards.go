package schema

// Attachment content types.
const (
	ContentTypeHeroCard      = "application/vnd.microsoft.card.hero"
	ContentTypeThumbnailCard = "application/vnd.microsoft.card.thumbnail"
	ContentTypeAdaptiveCard  = "application/vnd.microsoft.card.adaptive"
	ContentTypeTabUnfurling  = "application/vnd.microsoft.teams.tab.unfurling"
)

// Attachment layouts.
const (
	AttachmentLayoutList     = "list"
	AttachmentLayoutCarousel = "carousel"
	AttachmentLayoutGrid     = "grid"
)

// Attachment is a rich content unit embedded in an activity.
type Attachment struct {
	ContentType  string `json:"contentType"`
	ContentURL   string `json:"contentUrl,omitempty"`
	Content      any    `json:"content,omitempty"`
	Name         string `json:"name,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// CardAction is a clickable action on a card.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
	Value any    `json:"value,omitempty"`
}

// CardImage is an image shown on a card.
type CardImage struct {
	URL string      `json:"url"`
	Alt string      `json:"alt,omitempty"`
	Tap *CardAction `json:"tap,omitempty"`
}

// HeroCard is a card with a single large image.
type HeroCard struct {
	Title    string       `json:"title,omitempty"`
	Subtitle string       `json:"subtitle,omitempty"`
	Text     string       `json:"text,omitempty"`
	Images   []CardImage  `json:"images,omitempty"`
	Buttons  []CardAction `json:"buttons,omitempty"`
	Tap      *CardAction  `json:"tap,omitempty"`
}

// ThumbnailCard is a card with a single small image.
type ThumbnailCard struct {
	Title    string       `json:"title,omitempty"`
	Subtitle string       `json:"subtitle,omitempty"`
	Text     string       `json:"text,omitempty"`
	Images   []CardImage  `json:"images,omitempty"`
	Buttons  []CardAction `json:"buttons,omitempty"`
	Tap      *CardAction  `json:"tap,omitempty"`
}

// HeroCardAttachment wraps card in an attachment with the hero card content type.
func HeroCardAttachment(card HeroCard) Attachment {
	return Attachment{ContentType: ContentTypeHeroCard, Content: card}
}

// ThumbnailCardAttachment wraps card in an attachment with the thumbnail card content type.
func ThumbnailCardAttachment(card ThumbnailCard) Attachment {
	return Attachment{ContentType: ContentTypeThumbnailCard, Content: card}
}
