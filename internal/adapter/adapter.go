// Package adapter runs bot turns: it turns inbound activities into turn contexts,
// invokes the bot, recovers from faults and produces the transport response.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/h1v3-io/botsamples/internal/metrics"
	"github.com/h1v3-io/botsamples/internal/transcript"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

// TurnErrorHandler is called once when a turn fails. It may reply to the user through tc.
// When set, the failure is considered handled and is not returned to the transport.
type TurnErrorHandler func(ctx context.Context, tc *turn.Context, err error)

// PanicError is the error a recovered panic inside a turn is converted to.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// SenderFactory returns the sender used to deliver replies addressed to serviceURL.
type SenderFactory func(serviceURL string) turn.Sender

// Config holds adapter settings.
type Config struct {
	// InboundSecret enables HMAC verification of inbound requests (base64-encoded secret).
	InboundSecret string
	// MaxBodyBytes caps the inbound request body (1MB when zero).
	MaxBodyBytes int64
}

// Options wires the adapter's collaborators. All fields are optional.
type Options struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Transcript  *transcript.Buffer
	Senders     SenderFactory
	OnTurnError TurnErrorHandler
}

// Adapter processes activities for a single bot.
type Adapter struct {
	cfg         Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
	transcript  *transcript.Buffer
	senders     SenderFactory
	onTurnError TurnErrorHandler
}

// New creates an adapter.
func New(cfg Config, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Adapter{
		cfg:         cfg,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		transcript:  opts.Transcript,
		senders:     opts.Senders,
		onTurnError: opts.OnTurnError,
	}
}

// RunTurn runs bot for one inbound activity, delivering replies through sender.
//
// For invoke activities the returned response is the one the bot recorded, or a 501
// when it recorded none. For other activities it is nil. An error is returned only
// when the bot failed and no turn error handler is configured.
func (a *Adapter) RunTurn(ctx context.Context, act *schema.Activity, sender turn.Sender, bot turn.Bot) (*schema.InvokeResponse, error) {
	start := time.Now()
	logger := a.logger.With(
		"channel", act.ChannelID,
		"conversation", act.Conversation.ID,
		"activity_type", string(act.Type),
	)

	a.record(transcript.Inbound, act)
	if a.metrics != nil {
		a.metrics.TurnStarted(act.ChannelID, string(act.Type))
		defer func() { a.metrics.TurnDone(time.Since(start)) }()
	}

	tc := turn.New(act, sender, logger)
	tc.OnSend(func(out *schema.Activity) {
		a.record(transcript.Outbound, out)
		if a.metrics != nil {
			a.metrics.ReplySent(string(out.Type))
		}
	})

	err := a.callBot(ctx, tc, bot)
	if err != nil {
		a.countFailure(err)
		if a.onTurnError == nil {
			logger.Error("turn failed", "error", err)
			return nil, err
		}
		a.handleTurnError(ctx, tc, err)
	}

	logger.Debug("turn complete", "replies", tc.Replies(), "duration", time.Since(start))

	if act.Type != schema.ActivityInvoke {
		return nil, nil
	}
	if resp := tc.InvokeResponse(); resp != nil {
		return resp, nil
	}
	return &schema.InvokeResponse{Status: http.StatusNotImplemented}, nil
}

// callBot invokes the bot, converting a panic into a *PanicError.
func (a *Adapter) callBot(ctx context.Context, tc *turn.Context, bot turn.Bot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return bot.OnTurn(ctx, tc)
}

// handleTurnError runs the configured handler. A panic inside the handler is logged and dropped.
func (a *Adapter) handleTurnError(ctx context.Context, tc *turn.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			tc.Logger().Error("turn error handler panicked", "panic", fmt.Sprintf("%v", r), "error", err)
		}
	}()
	a.onTurnError(ctx, tc, err)
}

func (a *Adapter) countFailure(err error) {
	if a.metrics == nil {
		return
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		a.metrics.TurnFailed(metrics.KindPanic)
		return
	}
	a.metrics.TurnFailed(metrics.KindError)
}

func (a *Adapter) record(dir transcript.Direction, act *schema.Activity) {
	if a.transcript != nil {
		a.transcript.Record(dir, act)
	}
}
