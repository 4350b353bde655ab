// Package turn holds the per-request state of a single bot turn.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Sender delivers an outbound activity to the channel the turn came from.
type Sender interface {
	Send(ctx context.Context, a *schema.Activity) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, a *schema.Activity) error

func (f SenderFunc) Send(ctx context.Context, a *schema.Activity) error { return f(ctx, a) }

// Bot handles one turn. Returned errors go to the adapter's turn error handler.
type Bot interface {
	OnTurn(ctx context.Context, tc *Context) error
}

// BotFunc adapts a function to Bot.
type BotFunc func(ctx context.Context, tc *Context) error

func (f BotFunc) OnTurn(ctx context.Context, tc *Context) error { return f(ctx, tc) }

// Context is the state of one turn: the inbound activity and the means to reply to it.
// It lives for a single request and is not shared between requests.
type Context struct {
	activity *schema.Activity
	sender   Sender
	logger   *slog.Logger

	mu      sync.Mutex
	replies int
	invoke  *schema.InvokeResponse
	onSend  func(a *schema.Activity)
}

// New creates a turn context for activity. logger may be nil.
func New(activity *schema.Activity, sender Sender, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{activity: activity, sender: sender, logger: logger}
}

// Activity returns the inbound activity.
func (c *Context) Activity() *schema.Activity { return c.activity }

// Logger returns a logger scoped to this turn.
func (c *Context) Logger() *slog.Logger { return c.logger }

// OnSend registers a hook called with every activity actually handed to the sender.
func (c *Context) OnSend(fn func(a *schema.Activity)) {
	c.mu.Lock()
	c.onSend = fn
	c.mu.Unlock()
}

// SendActivity addresses a as a reply to the inbound activity and sends it.
// Trace activities are dropped unless the turn came from the emulator.
func (c *Context) SendActivity(ctx context.Context, a *schema.Activity) error {
	if a.Type == "" {
		a.Type = schema.ActivityMessage
	}
	if a.Type == schema.ActivityTrace && c.activity.ChannelID != schema.ChannelEmulator {
		return nil
	}
	a.ApplyConversationReference(c.activity.ConversationReference())

	if err := c.sender.Send(ctx, a); err != nil {
		return fmt.Errorf("turn: send %s: %w", a.Type, err)
	}

	c.mu.Lock()
	c.replies++
	hook := c.onSend
	c.mu.Unlock()
	if hook != nil {
		hook(a)
	}
	return nil
}

// SendText sends a plain message reply.
func (c *Context) SendText(ctx context.Context, text string) error {
	return c.SendActivity(ctx, schema.NewMessage(text))
}

// Replies returns the number of activities sent so far.
func (c *Context) Replies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replies
}

// Responded reports whether anything was sent or an invoke response was recorded.
func (c *Context) Responded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replies > 0 || c.invoke != nil
}

// SetInvokeResponse records the synchronous answer to an invoke activity.
func (c *Context) SetInvokeResponse(status int, body any) {
	c.mu.Lock()
	c.invoke = &schema.InvokeResponse{Status: status, Body: body}
	c.mu.Unlock()
}

// InvokeResponse returns the recorded invoke response, or nil.
func (c *Context) InvokeResponse() *schema.InvokeResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invoke
}
