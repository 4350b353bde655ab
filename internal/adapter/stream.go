package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Streaming clients are not browsers; origin is not meaningful here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream returns the GET handler that upgrades to a websocket. Each text frame
// carries one activity; replies come back as activity frames on the same socket,
// and an invoke's answer comes back as an invokeResponse activity.
func (a *Adapter) Stream(bot turn.Bot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.authenticateStream(r); err != nil {
			a.logger.Warn("rejected stream", "remote", r.RemoteAddr, "error", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(a.cfg.MaxBodyBytes)
		s := &socketSender{conn: conn}
		a.logger.Debug("stream opened", "remote", r.RemoteAddr)

		ctx := r.Context()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					a.logger.Warn("stream closed unexpectedly", "remote", r.RemoteAddr, "error", err)
				}
				return
			}
			if err := a.serveFrame(ctx, s, data, bot); err != nil {
				a.logger.Warn("stream write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

// serveFrame runs one turn for a frame. The returned error is a socket write failure.
func (a *Adapter) serveFrame(ctx context.Context, s *socketSender, data []byte, bot turn.Bot) error {
	var act schema.Activity
	if err := json.Unmarshal(data, &act); err != nil {
		return s.write(invokeResponseActivity(&act, http.StatusBadRequest, errorBody("invalid JSON activity")))
	}
	if err := act.Validate(); err != nil {
		return s.write(invokeResponseActivity(&act, http.StatusBadRequest, errorBody(err.Error())))
	}

	resp, err := a.RunTurn(ctx, &act, s, bot)
	if err != nil {
		return s.write(invokeResponseActivity(&act, statusFor(err), errorBody(err.Error())))
	}
	if resp != nil {
		return s.write(invokeResponseActivity(&act, resp.Status, resp.Body))
	}
	return nil
}

// socketSender writes activities to a websocket. Writes are serialized.
type socketSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socketSender) Send(_ context.Context, a *schema.Activity) error {
	return s.write(a)
}

func (s *socketSender) write(a *schema.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(a)
}

func invokeResponseActivity(in *schema.Activity, status int, body any) *schema.Activity {
	out := &schema.Activity{
		Type:  schema.ActivityInvokeResponse,
		Value: schema.InvokeResponse{Status: status, Body: body},
	}
	out.ApplyConversationReference(in.ConversationReference())
	return out
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
