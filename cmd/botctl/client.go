package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/h1v3-io/botsamples/internal/adapter"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// client posts activities to a bot's messaging endpoint.
type client struct {
	baseURL      string
	secret       string
	apiKey       string
	channel      string
	conversation string
	user         string
	http         *http.Client
}

// reply is the decoded answer to a posted activity.
type reply struct {
	Status     int
	Activities []*schema.Activity // expectReplies messages
	Body       json.RawMessage    // invoke response body
}

// activity returns an inbound activity of type t addressed from the configured user.
func (c *client) activity(t schema.ActivityType) *schema.Activity {
	now := time.Now().UTC()
	return &schema.Activity{
		Type:         t,
		ID:           uuid.NewString(),
		Timestamp:    &now,
		ChannelID:    c.channel,
		From:         schema.ChannelAccount{ID: c.user, Role: "user"},
		Recipient:    schema.ChannelAccount{ID: "bot", Role: "bot"},
		Conversation: schema.ConversationAccount{ID: c.conversation},
	}
}

// post sends a to /api/messages. Messages are always sent with expectReplies
// so the bot's answers come back in the response.
func (c *client) post(ctx context.Context, a *schema.Activity) (*reply, error) {
	if a.Type == schema.ActivityMessage {
		a.DeliveryMode = schema.DeliveryModeExpectReplies
	}
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/messages"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		sig, err := adapter.ComputeSignature(body, c.secret)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", sig)
	}

	data, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	out := &reply{Status: status}

	switch {
	case status >= 400:
		return out, fmt.Errorf("HTTP %d: %s", status, errorText(data))
	case len(bytes.TrimSpace(data)) == 0:
		return out, nil
	case a.Type == schema.ActivityInvoke:
		out.Body = data
	default:
		var er schema.ExpectedReplies
		if err := json.Unmarshal(data, &er); err != nil {
			return out, fmt.Errorf("decode replies: %w", err)
		}
		out.Activities = er.Activities
	}
	return out, nil
}

// get fetches a diagnostic route.
func (c *client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	data, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", status, errorText(data))
	}
	return data, nil
}

func (c *client) do(req *http.Request) ([]byte, int, error) {
	hc := c.http
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

func (c *client) url(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

// errorText extracts the message of an {"error": ...} body, or returns the body as is.
func errorText(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return "(empty body)"
}
