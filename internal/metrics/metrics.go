// Package metrics defines the prometheus collectors recorded by the adapter.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error kinds recorded by TurnFailed.
const (
	KindError = "error"
	KindPanic = "panic"
)

// Metrics holds the collectors for one bot.
type Metrics struct {
	bot      string
	gatherer prometheus.Gatherer

	turns    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	replies  *prometheus.CounterVec
}

// New registers the collectors on reg and labels them with bot.
// A nil reg gets a fresh private registry.
func New(bot string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		bot:      bot,
		gatherer: reg,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsamples_turns_total",
				Help: "Total number of turns processed",
			},
			[]string{"bot", "channel", "kind"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsamples_turn_errors_total",
				Help: "Total number of turns that ended in an unhandled error or panic",
			},
			[]string{"bot", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botsamples_turn_duration_seconds",
				Help:    "Duration of turn processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"bot"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsamples_replies_total",
				Help: "Total number of activities sent by the bot",
			},
			[]string{"bot", "type"},
		),
	}
	reg.MustRegister(m.turns, m.errors, m.duration, m.replies)
	return m
}

// TurnStarted counts an inbound activity.
func (m *Metrics) TurnStarted(channel, kind string) {
	m.turns.WithLabelValues(m.bot, channel, kind).Inc()
}

// TurnFailed counts an unhandled error (KindError) or recovered panic (KindPanic).
func (m *Metrics) TurnFailed(kind string) {
	m.errors.WithLabelValues(m.bot, kind).Inc()
}

// TurnDone observes how long a turn took.
func (m *Metrics) TurnDone(d time.Duration) {
	m.duration.WithLabelValues(m.bot).Observe(d.Seconds())
}

// ReplySent counts an outbound activity by type.
func (m *Metrics) ReplySent(activityType string) {
	m.replies.WithLabelValues(m.bot, activityType).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
