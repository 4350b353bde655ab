package botframework

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

func reply(serviceURL string) *schema.Activity {
	a := schema.NewMessage("You said hi")
	a.ServiceURL = serviceURL
	a.Conversation = schema.ConversationAccount{ID: "conv/1"}
	a.ReplyToID = "act-1"
	return a
}

func TestSendActivity_ReplyPath(t *testing.T) {
	var gotPath string
	var got schema.Activity
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(schema.ResourceResponse{ID: "new-1"})
	}))
	defer server.Close()

	c := NewClient(context.Background(), Credentials{})
	rr, err := c.SendActivity(context.Background(), reply(server.URL+"/"))
	require.NoError(t, err)

	assert.Equal(t, "new-1", rr.ID)
	assert.Equal(t, "/v3/conversations/conv%2F1/activities/act-1", gotPath)
	assert.Equal(t, "You said hi", got.Text)
}

func TestSendActivity_NoReplyTo(t *testing.T) {
	a := reply("http://example.com")
	a.ReplyToID = ""
	u, err := activityURL(a)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/v3/conversations/conv%2F1/activities", u)
}

func TestSendActivity_EmptyBodyAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewClient(context.Background(), Credentials{}).Send(context.Background(), reply(server.URL))
	assert.NoError(t, err)
}

func TestSendActivity_ChannelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conversation not found", http.StatusNotFound)
	}))
	defer server.Close()

	err := NewClient(context.Background(), Credentials{}).Send(context.Background(), reply(server.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "conversation not found")
}

func TestSendActivity_MissingAddress(t *testing.T) {
	c := NewClient(context.Background(), Credentials{})
	_, err := c.SendActivity(context.Background(), schema.NewMessage("x"))
	assert.Error(t, err)

	a := schema.NewMessage("x")
	a.ServiceURL = "http://example.com"
	_, err = c.SendActivity(context.Background(), a)
	assert.Error(t, err)
}

func TestSendActivity_ClientCredentials(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, channelScope, r.Form.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	var auth string
	channel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer channel.Close()

	c := NewClient(context.Background(), Credentials{
		AppID:        "app-id",
		AppPassword:  "secret",
		TokenURL:     tokenServer.URL,
		TrustedHosts: []string{channel.Listener.Addr().String()},
	})
	require.NoError(t, c.Send(context.Background(), reply(channel.URL)))
	require.NoError(t, c.Send(context.Background(), reply(channel.URL)))

	assert.True(t, strings.EqualFold(auth, "Bearer tok-123"), "authorization = %q", auth)
	assert.Equal(t, int32(1), tokenCalls.Load(), "token should be cached")
}

func TestSendActivity_UntrustedHostGetsNoToken(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"SECRET-BOT-TOKEN","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	var auth string
	var called bool
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer foreign.Close()

	c := NewClient(context.Background(), Credentials{
		AppID:       "app-id",
		AppPassword: "secret",
		TokenURL:    tokenServer.URL,
	})
	require.NoError(t, c.Send(context.Background(), reply(foreign.URL)))

	assert.True(t, called)
	assert.Empty(t, auth)
	assert.Equal(t, int32(0), tokenCalls.Load(), "no token should be minted for an untrusted host")
}

func TestTrustedHost(t *testing.T) {
	c := NewClient(context.Background(), Credentials{TrustedHosts: []string{" Localhost:3979 ", "emulator.internal"}})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://smba.trafficmanager.net/amer/", true},
		{"https://api.botframework.com", true},
		{"https://europe.webchat.botframework.com/", true},
		{"https://botframework.azure.us", true},
		{"http://smba.trafficmanager.net/amer/", false},
		{"https://botframework.com.attacker.example", false},
		{"https://evilbotframework.com", false},
		{"https://attacker.example", false},
		{"http://localhost:3979", true},
		{"http://localhost:4000", false},
		{"http://emulator.internal:1234", true},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.want, c.trustedHost(u), tt.url)
	}
}
