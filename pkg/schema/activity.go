package schema

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActivityType is the discriminator carried in every activity's "type" field.
type ActivityType string

const (
	ActivityMessage            ActivityType = "message"
	ActivityTrace              ActivityType = "trace"
	ActivityInvoke             ActivityType = "invoke"
	ActivityInvokeResponse     ActivityType = "invokeResponse"
	ActivityConversationUpdate ActivityType = "conversationUpdate"
	ActivityTyping             ActivityType = "typing"
	ActivityEvent              ActivityType = "event"
	ActivityEndOfConversation  ActivityType = "endOfConversation"
	ActivityMessageReaction    ActivityType = "messageReaction"
	ActivityInstallationUpdate ActivityType = "installationUpdate"
)

// Delivery modes.
const (
	DeliveryModeNormal        = "normal"
	DeliveryModeExpectReplies = "expectReplies"
)

// ChannelEmulator is the channel id used by the Bot Framework Emulator.
const ChannelEmulator = "emulator"

// ErrMissingType is returned by Validate when an activity has no type.
var ErrMissingType = errors.New("schema: activity type is required")

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
}

// ConversationReference is the addressing information needed to reply into a conversation.
type ConversationReference struct {
	ActivityID   string              `json:"activityId,omitempty"`
	User         ChannelAccount      `json:"user"`
	Bot          ChannelAccount      `json:"bot"`
	Conversation ConversationAccount `json:"conversation"`
	ChannelID    string              `json:"channelId"`
	ServiceURL   string              `json:"serviceUrl"`
	Locale       string              `json:"locale,omitempty"`
}

// Activity is a single conversational event exchanged between a bot and a channel.
type Activity struct {
	Type             ActivityType        `json:"type"`
	ID               string              `json:"id,omitempty"`
	Timestamp        *time.Time          `json:"timestamp,omitempty"`
	LocalTimestamp   *time.Time          `json:"localTimestamp,omitempty"`
	ServiceURL       string              `json:"serviceUrl,omitempty"`
	ChannelID        string              `json:"channelId,omitempty"`
	From             ChannelAccount      `json:"from"`
	Conversation     ConversationAccount `json:"conversation"`
	Recipient        ChannelAccount      `json:"recipient"`
	ReplyToID        string              `json:"replyToId,omitempty"`
	Text             string              `json:"text,omitempty"`
	TextFormat       string              `json:"textFormat,omitempty"`
	Locale           string              `json:"locale,omitempty"`
	InputHint        string              `json:"inputHint,omitempty"`
	AttachmentLayout string              `json:"attachmentLayout,omitempty"`
	Attachments      []Attachment        `json:"attachments,omitempty"`
	DeliveryMode     string              `json:"deliveryMode,omitempty"`
	Name             string              `json:"name,omitempty"`
	Label            string              `json:"label,omitempty"`
	ValueType        string              `json:"valueType,omitempty"`
	Value            any                 `json:"value,omitempty"`
	ChannelData      any                 `json:"channelData,omitempty"`
}

// NewMessage creates an outbound message activity carrying text.
func NewMessage(text string) *Activity {
	return &Activity{Type: ActivityMessage, Text: text}
}

// NewTrace creates a trace activity. Traces are only delivered to the emulator.
func NewTrace(name, label string, value any, valueType string) *Activity {
	now := time.Now().UTC()
	return &Activity{
		Type:      ActivityTrace,
		Name:      name,
		Label:     label,
		Value:     value,
		ValueType: valueType,
		Timestamp: &now,
	}
}

// Validate checks the minimum an inbound activity needs to be dispatched.
func (a *Activity) Validate() error {
	if a.Type == "" {
		return ErrMissingType
	}
	return nil
}

// ExpectsReplies reports whether the caller wants replies returned in the response body.
func (a *Activity) ExpectsReplies() bool {
	return a.DeliveryMode == DeliveryModeExpectReplies
}

// ConversationReference extracts the reply address of an inbound activity.
func (a *Activity) ConversationReference() ConversationReference {
	return ConversationReference{
		ActivityID:   a.ID,
		User:         a.From,
		Bot:          a.Recipient,
		Conversation: a.Conversation,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		Locale:       a.Locale,
	}
}

// ApplyConversationReference addresses an outbound activity to ref as a reply.
// Fields already set on a are left alone, except routing fields which always follow ref.
func (a *Activity) ApplyConversationReference(ref ConversationReference) {
	a.ChannelID = ref.ChannelID
	a.ServiceURL = ref.ServiceURL
	a.Conversation = ref.Conversation
	a.From = ref.Bot
	a.Recipient = ref.User
	if a.Locale == "" {
		a.Locale = ref.Locale
	}
	if a.ReplyToID == "" {
		a.ReplyToID = ref.ActivityID
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp == nil {
		now := time.Now().UTC()
		a.Timestamp = &now
	}
}

// ExpectedReplies is the body returned when an activity was sent with deliveryMode expectReplies.
type ExpectedReplies struct {
	Activities []*Activity `json:"activities"`
}

// InvokeResponse is the synchronous answer to an invoke activity.
type InvokeResponse struct {
	Status int `json:"status"`
	Body   any `json:"body,omitempty"`
}

// ResourceResponse is returned by the channel service after an activity was accepted.
type ResourceResponse struct {
	ID string `json:"id"`
}
