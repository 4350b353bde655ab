package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/h1v3-io/botsamples/internal/adapter"
	"github.com/h1v3-io/botsamples/internal/bots/echo"
	"github.com/h1v3-io/botsamples/internal/bots/unfurl"
	"github.com/h1v3-io/botsamples/internal/config"
	"github.com/h1v3-io/botsamples/internal/connector"
	"github.com/h1v3-io/botsamples/internal/connector/botframework"
	slackconn "github.com/h1v3-io/botsamples/internal/connector/slack"
	"github.com/h1v3-io/botsamples/internal/connector/telegram"
	"github.com/h1v3-io/botsamples/internal/dispatch"
	"github.com/h1v3-io/botsamples/internal/logging"
	"github.com/h1v3-io/botsamples/internal/metrics"
	"github.com/h1v3-io/botsamples/internal/preview"
	"github.com/h1v3-io/botsamples/internal/server"
	"github.com/h1v3-io/botsamples/internal/transcript"
	"github.com/h1v3-io/botsamples/internal/turn"
	"github.com/h1v3-io/botsamples/pkg/schema"
)

const (
	botEcho   = "echo"
	botUnfurl = "unfurl"
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Run the echo bot",
	Long:  `Repeats every message back as "You said <text>". Optional Slack and Telegram channels are started when configured.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, botEcho)
	},
}

var unfurlCmd = &cobra.Command{
	Use:   "unfurl",
	Short: "Run the Teams link unfurling bot",
	Long:  `Answers app-based link queries with a thumbnail card and tab, and the searchQuery messaging extension command.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, botUnfurl)
	},
}

func init() {
	rootCmd.AddCommand(echoCmd, unfurlCmd)
}

// app is a fully wired bot host.
type app struct {
	name     string
	adapter  *adapter.Adapter
	bot      turn.Bot
	server   *server.Server
	channels []connector.Connector
}

func run(cmd *cobra.Command, kind string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := buildApp(ctx, kind, cfg, reg, logger)
	if err != nil {
		return err
	}
	logger.Info("botd starting", "bot", kind, "addr", a.server.Addr(), "authenticated", cfg.Bot.AppID != "")

	if err := a.startChannels(ctx, cfg, logger); err != nil {
		return err
	}

	errCh := serve(ctx, logger, a.server.Start)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	serverDone := false
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
			return err
		}
		serverDone = true
	}

	cancel()
	for _, ch := range a.channels {
		ch.Stop()
	}
	if !serverDone {
		<-errCh
	}
	logger.Info("botd stopped")
	return nil
}

// serve runs start in the background. The returned channel always receives
// exactly one value, including when start panics.
func serve(ctx context.Context, logger *slog.Logger, start func(context.Context) error) <-chan error {
	errCh := make(chan error, 1)
	go safeGo(logger, "http-server", func() {
		err := errors.New("http server panicked")
		defer func() { errCh <- err }()
		err = start(ctx)
	})
	return errCh
}

// buildApp wires the adapter, bot and HTTP server for kind.
func buildApp(ctx context.Context, kind string, cfg *config.Config, reg *prometheus.Registry, logger *slog.Logger) (*app, error) {
	buf := transcript.New(cfg.Transcript.Size)
	m := metrics.New(kind, reg)
	client := botframework.NewClient(ctx, botframework.Credentials{
		AppID:        cfg.Bot.AppID,
		AppPassword:  cfg.Bot.AppPassword,
		TenantID:     cfg.Bot.TenantID,
		TrustedHosts: cfg.Bot.TrustedServiceHosts,
	})

	opts := adapter.Options{
		Logger:     logger.With("component", "adapter"),
		Metrics:    m,
		Transcript: buf,
		Senders:    func(string) turn.Sender { return client },
	}

	var bot turn.Bot
	switch kind {
	case botEcho:
		opts.OnTurnError = echo.TurnErrorHandler(logger.With("bot", kind))
		bot = echo.New()
	case botUnfurl:
		uopts := unfurl.Options{Logger: logger.With("bot", kind)}
		if cfg.Unfurl.FetchPreview {
			uopts.Preview = preview.New(cfg.Unfurl.FetchTimeout)
		}
		bot = dispatch.NewRouter(unfurl.New(uopts))
	default:
		return nil, fmt.Errorf("unknown bot %q", kind)
	}

	a := adapter.New(adapter.Config{InboundSecret: cfg.Bot.InboundSecret}, opts)
	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, server.Options{
		Name:       kind,
		Adapter:    a,
		Bot:        bot,
		Transcript: buf,
		Metrics:    m.Handler(),
		Logger:     logger.With("component", "http"),
	})

	return &app{name: kind, adapter: a, bot: bot, server: srv}, nil
}

// inbound runs chat-channel activities through the same turn pipeline as HTTP.
func (a *app) inbound(ctx context.Context, act *schema.Activity, reply turn.Sender) error {
	_, err := a.adapter.RunTurn(ctx, act, reply, a.bot)
	return err
}

// startChannels starts the configured chat channels. Only the echo bot has any.
func (a *app) startChannels(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if a.name != botEcho {
		return nil
	}

	if sc := cfg.Channels.Slack; sc != nil {
		conn, err := slackconn.New(slackconn.Config{
			BotToken: sc.BotToken,
			AppToken: sc.AppToken,
			Channels: sc.Channels,
		}, a.inbound, logger.With("connector", "slack"))
		if err != nil {
			return fmt.Errorf("init slack connector: %w", err)
		}
		a.channels = append(a.channels, conn)
	}

	if tc := cfg.Channels.Telegram; tc != nil {
		conn, err := telegram.New(telegram.Config{
			Token:     tc.Token,
			AllowFrom: tc.AllowFrom,
		}, a.inbound, logger.With("connector", "telegram"))
		if err != nil {
			return fmt.Errorf("init telegram connector: %w", err)
		}
		a.channels = append(a.channels, conn)
	}

	for _, ch := range a.channels {
		go safeGo(logger, ch.Name(), func() { ch.Start(ctx) })
		logger.Info("channel started", "channel", ch.Name())
	}
	return nil
}
