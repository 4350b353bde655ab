package adapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/h1v3-io/botsamples/internal/dispatch"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Handler returns the POST handler for the bot's messaging endpoint.
//
// Invoke activities are answered with the invoke response. Replies are returned in
// the body when the activity asks for expectReplies delivery or carries no serviceUrl;
// otherwise they are posted to the channel service and the response is an empty 200.
func (a *Adapter) Handler(bot turn.Bot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		if err := a.authenticate(r.Header.Get("Authorization"), body); err != nil {
			a.logger.Warn("rejected inbound activity", "remote", r.RemoteAddr, "error", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var act schema.Activity
		if err := json.Unmarshal(body, &act); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON activity")
			return
		}
		if err := act.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		sender, buffer := a.senderFor(&act)

		resp, err := a.RunTurn(r.Context(), &act, sender, bot)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		switch {
		case resp != nil:
			writeInvokeResponse(w, resp)
		case buffer != nil:
			writeJSON(w, http.StatusOK, schema.ExpectedReplies{Activities: buffer.Activities()})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

// senderFor picks how replies to act are delivered. A non-nil recorder means the
// replies are buffered and returned in the response body.
func (a *Adapter) senderFor(act *schema.Activity) (turn.Sender, *turn.Recorder) {
	if act.ExpectsReplies() || act.ServiceURL == "" || a.senders == nil {
		rec := &turn.Recorder{}
		return rec, rec
	}
	return a.senders(act.ServiceURL), nil
}

// statusFor maps an unhandled turn error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, dispatch.ErrNotImplemented) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeInvokeResponse(w http.ResponseWriter, resp *schema.InvokeResponse) {
	if resp.Body == nil {
		w.WriteHeader(resp.Status)
		return
	}
	writeJSON(w, resp.Status, resp.Body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
