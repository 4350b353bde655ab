package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h1v3-io/botsamples/internal/connector/botframework"
	"github.com/h1v3-io/botsamples/internal/dispatch"
	"github.com/h1v3-io/botsamples/internal/logging"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

func post(t *testing.T, h http.Handler, body []byte, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func encode(t *testing.T, a *schema.Activity) []byte {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	return data
}

func TestHandler_BuffersRepliesWithoutServiceURL(t *testing.T) {
	a := New(Config{}, Options{Logger: logging.NewNop()})

	rec := post(t, a.Handler(echoBot), encode(t, message("hello")), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var replies schema.ExpectedReplies
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replies))
	require.Len(t, replies.Activities, 1)
	assert.Equal(t, "echo: hello", replies.Activities[0].Text)
	assert.Equal(t, "in-1", replies.Activities[0].ReplyToID)
	assert.Equal(t, "conv-1", replies.Activities[0].Conversation.ID)
}

func TestHandler_ExpectRepliesOverridesServiceURL(t *testing.T) {
	called := false
	a := New(Config{}, Options{
		Logger: logging.NewNop(),
		Senders: func(string) turn.Sender {
			called = true
			return &turn.Recorder{}
		},
	})
	act := message("hi")
	act.ServiceURL = "https://smba.example.com"
	act.DeliveryMode = schema.DeliveryModeExpectReplies

	rec := post(t, a.Handler(echoBot), encode(t, act), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "echo: hi")
}

func TestHandler_PostsToChannelService(t *testing.T) {
	sent := &turn.Recorder{}
	var gotURL string
	a := New(Config{}, Options{
		Logger: logging.NewNop(),
		Senders: func(serviceURL string) turn.Sender {
			gotURL = serviceURL
			return sent
		},
	})
	act := message("hi")
	act.ServiceURL = "https://smba.example.com"

	rec := post(t, a.Handler(echoBot), encode(t, act), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "https://smba.example.com", gotURL)
	require.Equal(t, 1, sent.Len())
	assert.Equal(t, "https://smba.example.com", sent.Activities()[0].ServiceURL)
}

func TestHandler_InvokeResponse(t *testing.T) {
	a := New(Config{}, Options{Logger: logging.NewNop()})
	bot := turn.BotFunc(func(_ context.Context, tc *turn.Context) error {
		tc.SetInvokeResponse(http.StatusOK, map[string]string{"ok": "yes"})
		return nil
	})
	act := message("")
	act.Type = schema.ActivityInvoke

	rec := post(t, a.Handler(bot), encode(t, act), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}

func TestHandler_InvokeWithoutBody(t *testing.T) {
	a := New(Config{}, Options{Logger: logging.NewNop()})
	act := message("")
	act.Type = schema.ActivityInvoke

	rec := post(t, a.Handler(turn.BotFunc(func(context.Context, *turn.Context) error { return nil })), encode(t, act), "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not implemented", fmt.Errorf("bad command: %w", dispatch.ErrNotImplemented), http.StatusNotImplemented},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Config{}, Options{Logger: logging.NewNop()})
			bot := turn.BotFunc(func(context.Context, *turn.Context) error { return tt.err })

			rec := post(t, a.Handler(bot), encode(t, message("x")), "")
			assert.Equal(t, tt.want, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.err.Error()), rec.Body.String())
		})
	}
}

func TestHandler_BadRequests(t *testing.T) {
	a := New(Config{}, Options{Logger: logging.NewNop()})
	h := a.Handler(echoBot)

	rec := post(t, h, []byte("{not json"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON activity")

	rec = post(t, h, []byte(`{"text":"no type"}`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	a := New(Config{MaxBodyBytes: 64}, Options{Logger: logging.NewNop()})

	act := message(strings.Repeat("x", 128))
	rec := post(t, a.Handler(echoBot), encode(t, act), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
}

func TestHandler_ForeignServiceURLGetsNoToken(t *testing.T) {
	var tokenCalls atomic.Int32
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"SECRET-BOT-TOKEN","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokens.Close()

	var gotAuth atomic.Value
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"r-1"}`))
	}))
	defer foreign.Close()

	client := botframework.NewClient(context.Background(), botframework.Credentials{
		AppID:       "app",
		AppPassword: "pw",
		TokenURL:    tokens.URL,
	})
	a := New(Config{}, Options{
		Logger:  logging.NewNop(),
		Senders: func(string) turn.Sender { return client },
	})

	act := message("steal")
	act.ServiceURL = foreign.URL
	rec := post(t, a.Handler(echoBot), encode(t, act), "")
	require.Equal(t, http.StatusOK, rec.Code)

	auth, ok := gotAuth.Load().(string)
	require.True(t, ok, "reply was not delivered")
	assert.Empty(t, auth)
	assert.Zero(t, tokenCalls.Load())
}

func TestHandler_HMAC(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("shared-secret"))
	a := New(Config{InboundSecret: secret}, Options{Logger: logging.NewNop()})
	h := a.Handler(echoBot)
	body := encode(t, message("signed"))

	rec := post(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h, body, "HMAC "+base64.StdEncoding.EncodeToString([]byte("forged")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	sig, err := ComputeSignature(body, secret)
	require.NoError(t, err)
	rec = post(t, h, body, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echo: signed")
}

func TestComputeSignature_RejectsBadSecret(t *testing.T) {
	_, err := ComputeSignature([]byte("x"), "not base64!")
	assert.Error(t, err)
}
