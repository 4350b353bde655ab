package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// ErrNotImplemented marks a request the bot recognizes but does not support.
var ErrNotImplemented = errors.New("not implemented")

// MessageHandler handles message activities.
type MessageHandler interface {
	OnMessage(ctx context.Context, tc *turn.Context, m Message) error
}

// LinkQueryHandler handles Teams app-based link queries.
type LinkQueryHandler interface {
	OnLinkQuery(ctx context.Context, tc *turn.Context, q LinkQuery) (*schema.MessagingExtensionResponse, error)
}

// ExtensionQueryHandler handles Teams messaging extension queries.
type ExtensionQueryHandler interface {
	OnExtensionQuery(ctx context.Context, tc *turn.Context, q ExtensionQuery) (*schema.MessagingExtensionResponse, error)
}

// Router is a turn.Bot that decodes every activity and calls whichever handler
// interface the wrapped bot implements. Kinds the bot does not handle are no-ops,
// except invokes, which are answered with 501.
type Router struct {
	bot any
}

// NewRouter wraps bot. bot should implement at least one of the handler interfaces.
func NewRouter(bot any) *Router {
	return &Router{bot: bot}
}

// OnTurn implements turn.Bot.
func (r *Router) OnTurn(ctx context.Context, tc *turn.Context) error {
	ev, err := Decode(tc.Activity())
	if err != nil {
		if tc.Activity().Type == schema.ActivityInvoke {
			tc.SetInvokeResponse(http.StatusBadRequest, errorBody(err))
			return nil
		}
		return err
	}

	switch ev := ev.(type) {
	case Message:
		if h, ok := r.bot.(MessageHandler); ok {
			return h.OnMessage(ctx, tc, ev)
		}
		return nil

	case LinkQuery:
		h, ok := r.bot.(LinkQueryHandler)
		if !ok {
			tc.SetInvokeResponse(http.StatusNotImplemented, nil)
			return nil
		}
		resp, err := h.OnLinkQuery(ctx, tc, ev)
		if err != nil {
			return err
		}
		tc.SetInvokeResponse(http.StatusOK, resp)
		return nil

	case ExtensionQuery:
		h, ok := r.bot.(ExtensionQueryHandler)
		if !ok {
			tc.SetInvokeResponse(http.StatusNotImplemented, nil)
			return nil
		}
		resp, err := h.OnExtensionQuery(ctx, tc, ev)
		if err != nil {
			return err
		}
		tc.SetInvokeResponse(http.StatusOK, resp)
		return nil

	case Invoke:
		tc.SetInvokeResponse(http.StatusNotImplemented, nil)
		return nil

	case Other:
		return nil

	default:
		return fmt.Errorf("dispatch: unhandled event %T", ev)
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
