// Package botframework posts bot replies to a Bot Framework channel service.
package botframework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

const (
	defaultTimeout = 30 * time.Second
	defaultTenant  = "botframework.com"
	tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	channelScope   = "https://api.botframework.com/.default"
)

// Credentials identify the bot to the channel service. Empty credentials send
// unauthenticated requests, which the emulator accepts.
type Credentials struct {
	AppID       string
	AppPassword string
	TenantID    string
	// TokenURL overrides the Azure AD token endpoint.
	TokenURL string
	// TrustedHosts are extra service hosts ("host" or "host:port") that may receive
	// the bot's token over any scheme.
	TrustedHosts []string
}

// channelHosts receive the token over https, as themselves or any subdomain.
var channelHosts = []string{
	"botframework.com",
	"botframework.azure.us",
	"smba.trafficmanager.net",
}

// Client sends activities to the channel service found in each activity's serviceUrl.
// The token is only attached for trusted service hosts; replies to any other
// serviceUrl are sent without credentials.
type Client struct {
	plain   *http.Client
	authed  *http.Client
	trusted []string
}

// NewClient creates a client. With an app id and password, requests to trusted
// hosts carry an OAuth2 client-credentials token for the Bot Framework scope.
func NewClient(ctx context.Context, creds Credentials) *Client {
	c := &Client{
		plain:   &http.Client{Timeout: defaultTimeout},
		trusted: normalizeHosts(creds.TrustedHosts),
	}
	if creds.AppID == "" || creds.AppPassword == "" {
		return c
	}

	tenant := creds.TenantID
	if tenant == "" {
		tenant = defaultTenant
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf(tokenURLFormat, tenant)
	}
	cc := clientcredentials.Config{
		ClientID:     creds.AppID,
		ClientSecret: creds.AppPassword,
		TokenURL:     tokenURL,
		Scopes:       []string{channelScope},
	}
	c.authed = cc.Client(ctx)
	c.authed.Timeout = defaultTimeout
	return c
}

// httpFor picks the authenticated client when endpoint is a trusted service host.
func (c *Client) httpFor(endpoint *url.URL) *http.Client {
	if c.authed != nil && c.trustedHost(endpoint) {
		return c.authed
	}
	return c.plain
}

func (c *Client) trustedHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	hostPort := strings.ToLower(u.Host)
	if slices.Contains(c.trusted, host) || slices.Contains(c.trusted, hostPort) {
		return true
	}
	if u.Scheme != "https" {
		return false
	}
	for _, h := range channelHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Send posts a to its conversation, as a reply when a.ReplyToID is set.
// It satisfies turn.Sender.
func (c *Client) Send(ctx context.Context, a *schema.Activity) error {
	_, err := c.SendActivity(ctx, a)
	return err
}

// SendActivity posts a and returns the id assigned by the channel service.
func (c *Client) SendActivity(ctx context.Context, a *schema.Activity) (*schema.ResourceResponse, error) {
	endpoint, err := activityURL(a)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("botframework: marshal activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("botframework: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpFor(req.URL).Do(req)
	if err != nil {
		return nil, fmt.Errorf("botframework: send activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("botframework: channel returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var rr schema.ResourceResponse
	// Some channels answer with an empty body.
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil && err != io.EOF {
		return nil, fmt.Errorf("botframework: parse response: %w", err)
	}
	return &rr, nil
}

// activityURL builds {serviceUrl}/v3/conversations/{id}/activities[/{replyToId}].
func activityURL(a *schema.Activity) (string, error) {
	if a.ServiceURL == "" {
		return "", fmt.Errorf("botframework: activity has no serviceUrl")
	}
	if a.Conversation.ID == "" {
		return "", fmt.Errorf("botframework: activity has no conversation id")
	}
	base := strings.TrimSuffix(a.ServiceURL, "/")
	u := base + "/v3/conversations/" + url.PathEscape(a.Conversation.ID) + "/activities"
	if a.ReplyToID != "" {
		u += "/" + url.PathEscape(a.ReplyToID)
	}
	return u, nil
}
