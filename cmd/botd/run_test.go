package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h1v3-io/botsamples/internal/config"
	"github.com/h1v3-io/botsamples/internal/logging"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

func post(t *testing.T, h http.Handler, a *schema.Activity) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(a)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newApp(t *testing.T, kind string) *app {
	t.Helper()
	a, err := buildApp(context.Background(), kind, config.Default(), prometheus.NewRegistry(), logging.NewNop())
	require.NoError(t, err)
	return a
}

func TestBuildApp_Echo(t *testing.T) {
	a := newApp(t, botEcho)

	in := &schema.Activity{
		Type:         schema.ActivityMessage,
		Text:         "hello",
		ChannelID:    schema.ChannelEmulator,
		DeliveryMode: schema.DeliveryModeExpectReplies,
		Conversation: schema.ConversationAccount{ID: "c1"},
		From:         schema.ChannelAccount{ID: "u1"},
	}
	rec := post(t, a.server.Handler(), in)
	require.Equal(t, http.StatusOK, rec.Code)

	var replies schema.ExpectedReplies
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replies))
	require.Len(t, replies.Activities, 1)
	assert.Equal(t, "You said hello", replies.Activities[0].Text)
}

func TestBuildApp_Unfurl(t *testing.T) {
	a := newApp(t, botUnfurl)

	in := &schema.Activity{
		Type:         schema.ActivityInvoke,
		Name:         schema.InvokeQueryLink,
		ChannelID:    "msteams",
		Conversation: schema.ConversationAccount{ID: "c1"},
		Value:        map[string]any{"url": "https://example.com/docs"},
	}
	rec := post(t, a.server.Handler(), in)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schema.MessagingExtensionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ComposeExtension)
	assert.Equal(t, schema.ResultTypeResult, resp.ComposeExtension.Type)
}

func TestBuildApp_UnknownBot(t *testing.T) {
	_, err := buildApp(context.Background(), "parrot", config.Default(), prometheus.NewRegistry(), logging.NewNop())
	assert.ErrorContains(t, err, `unknown bot "parrot"`)
}

func TestInbound_RunsTurnThroughAdapter(t *testing.T) {
	a := newApp(t, botEcho)

	var got []*schema.Activity
	reply := turn.SenderFunc(func(_ context.Context, act *schema.Activity) error {
		got = append(got, act)
		return nil
	})
	in := &schema.Activity{Type: schema.ActivityMessage, Text: "ping", ChannelID: "slack", Conversation: schema.ConversationAccount{ID: "C1"}}
	require.NoError(t, a.inbound(context.Background(), in, reply))

	require.Len(t, got, 1)
	assert.Equal(t, "You said ping", got[0].Text)
	assert.Equal(t, "C1", got[0].Conversation.ID)
}

func TestStartChannels_NoneConfigured(t *testing.T) {
	a := newApp(t, botEcho)
	require.NoError(t, a.startChannels(context.Background(), config.Default(), logging.NewNop()))
	assert.Empty(t, a.channels)
}

func TestConfigInit_WritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botd.yaml")

	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Port, cfg.Server.Port)

	rootCmd.SetArgs([]string{"config", "init", path})
	assert.ErrorContains(t, rootCmd.Execute(), "already exists")
}

func TestServe_ReportsExitAndPanic(t *testing.T) {
	logger := logging.NewNop()
	wait := func(ch <-chan error) error {
		t.Helper()
		select {
		case err := <-ch:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("serve never reported")
			return nil
		}
	}

	assert.NoError(t, wait(serve(context.Background(), logger, func(context.Context) error { return nil })))

	boom := errors.New("listen: address in use")
	assert.ErrorIs(t, wait(serve(context.Background(), logger, func(context.Context) error { return boom })), boom)

	err := wait(serve(context.Background(), logger, func(context.Context) error { panic("bind") }))
	assert.ErrorContains(t, err, "panicked")
}
