package schema

// Invoke activity names used by Teams messaging extensions.
const (
	InvokeQueryLink          = "composeExtension/queryLink"
	InvokeAnonymousQueryLink = "composeExtension/anonymousQueryLink"
	InvokeQuery              = "composeExtension/query"
)

// Messaging extension result types.
const (
	ResultTypeResult  = "result"
	ResultTypeMessage = "message"
	ResultTypeAuth    = "auth"
	ResultTypeConfig  = "config"
)

// AppBasedLinkQuery is the invoke value Teams sends when a user pastes a link the app unfurls.
type AppBasedLinkQuery struct {
	URL   string `json:"url"`
	State string `json:"state,omitempty"`
}

// MessagingExtensionParameter is a named parameter of a messaging extension query.
type MessagingExtensionParameter struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

// MessagingExtensionQueryOptions controls paging of a messaging extension query.
type MessagingExtensionQueryOptions struct {
	Skip  int `json:"skip,omitempty"`
	Count int `json:"count,omitempty"`
}

// MessagingExtensionQuery is the invoke value of a search command in a messaging extension.
type MessagingExtensionQuery struct {
	CommandID    string                          `json:"commandId"`
	Parameters   []MessagingExtensionParameter   `json:"parameters,omitempty"`
	QueryOptions *MessagingExtensionQueryOptions `json:"queryOptions,omitempty"`
	State        string                          `json:"state,omitempty"`
}

// MessagingExtensionAttachment is an attachment with an optional preview rendering.
type MessagingExtensionAttachment struct {
	ContentType  string      `json:"contentType"`
	ContentURL   string      `json:"contentUrl,omitempty"`
	Content      any         `json:"content,omitempty"`
	Name         string      `json:"name,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
	Preview      *Attachment `json:"preview,omitempty"`
}

// MessagingExtensionResult is the composed result of a messaging extension invoke.
type MessagingExtensionResult struct {
	AttachmentLayout string                         `json:"attachmentLayout,omitempty"`
	Type             string                         `json:"type,omitempty"`
	Attachments      []MessagingExtensionAttachment `json:"attachments,omitempty"`
	Text             string                         `json:"text,omitempty"`
}

// MessagingExtensionResponse is the invoke response body for messaging extension invokes.
type MessagingExtensionResponse struct {
	ComposeExtension *MessagingExtensionResult `json:"composeExtension,omitempty"`
}

// TabEntity describes a Teams tab offered as a link unfurling result.
type TabEntity struct {
	EntityID   string `json:"entityId"`
	Name       string `json:"name"`
	ContentURL string `json:"contentUrl"`
	WebsiteURL string `json:"websiteUrl,omitempty"`
	RemoveURL  string `json:"removeUrl,omitempty"`
}
