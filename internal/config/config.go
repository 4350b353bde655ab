package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. Nesting uses a double
// underscore: BOTS_SERVER__PORT sets server.port.
const EnvPrefix = "BOTS_"

// Bot Framework conventional variables, applied after the BOTS_ overrides.
const (
	EnvAppID       = "MicrosoftAppId"
	EnvAppPassword = "MicrosoftAppPassword"
	EnvTenantID    = "MicrosoftAppTenantId"
	EnvPort        = "PORT"
)

// Config is the top-level bot host configuration.
type Config struct {
	Bot        BotConfig        `koanf:"bot" yaml:"bot"`
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
	Transcript TranscriptConfig `koanf:"transcript" yaml:"transcript"`
	Unfurl     UnfurlConfig     `koanf:"unfurl" yaml:"unfurl"`
	Channels   ChannelsConfig   `koanf:"channels" yaml:"channels"`
}

// BotConfig holds the bot's identity and inbound authentication.
type BotConfig struct {
	AppID       string `koanf:"app_id" yaml:"app_id"`
	AppPassword string `koanf:"app_password" yaml:"app_password"`
	TenantID    string `koanf:"tenant_id" yaml:"tenant_id,omitempty"`
	// InboundSecret is the base64 HMAC secret for inbound requests. Empty disables the check.
	InboundSecret string `koanf:"inbound_secret" yaml:"inbound_secret,omitempty"`
	// TrustedServiceHosts may receive the bot token besides the Bot Framework channel hosts.
	TrustedServiceHosts []string `koanf:"trusted_service_hosts" yaml:"trusted_service_hosts,omitempty"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host           string        `koanf:"host" yaml:"host"`
	Port           int           `koanf:"port" yaml:"port"`
	APIKey         string        `koanf:"api_key" yaml:"api_key,omitempty"`
	AllowedOrigins []string      `koanf:"allowed_origins" yaml:"allowed_origins,omitempty"`
	ReadTimeout    time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// TranscriptConfig sizes the in-memory activity transcript.
type TranscriptConfig struct {
	Size int `koanf:"size" yaml:"size"`
}

// UnfurlConfig holds settings for the link unfurling bot.
type UnfurlConfig struct {
	FetchPreview bool          `koanf:"fetch_preview" yaml:"fetch_preview"`
	FetchTimeout time.Duration `koanf:"fetch_timeout" yaml:"fetch_timeout"`
}

// ChannelsConfig enables optional chat channels for the echo bot.
type ChannelsConfig struct {
	Slack    *SlackConfig    `koanf:"slack" yaml:"slack,omitempty"`
	Telegram *TelegramConfig `koanf:"telegram" yaml:"telegram,omitempty"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	BotToken string   `koanf:"bot_token" yaml:"bot_token"`
	AppToken string   `koanf:"app_token" yaml:"app_token"`
	Channels []string `koanf:"channels" yaml:"channels,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `koanf:"token" yaml:"token"`
	AllowFrom []int64 `koanf:"allow_from" yaml:"allow_from,omitempty"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3978,
			ReadTimeout:    15 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Log:        LogConfig{Level: "info", Format: "json"},
		Transcript: TranscriptConfig{Size: 500},
		Unfurl:     UnfurlConfig{FetchTimeout: 5 * time.Second},
	}
}

// listKeys are env overrides whose value is a comma-separated list.
var listKeys = map[string]bool{
	"bot.trusted_service_hosts":    true,
	"server.allowed_origins":       true,
	"channels.slack.channels":      true,
	"channels.telegram.allow_from": true,
}

// Load builds the configuration from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist), BOTS_ environment overrides and the
// Bot Framework variables, then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: access %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.applyBotFrameworkEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps BOTS_CHANNELS__SLACK__BOT_TOKEN to channels.slack.bot_token.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func (c *Config) applyBotFrameworkEnv() error {
	if v := os.Getenv(EnvAppID); v != "" {
		c.Bot.AppID = v
	}
	if v := os.Getenv(EnvAppPassword); v != "" {
		c.Bot.AppPassword = v
	}
	if v := os.Getenv(EnvTenantID); v != "" {
		c.Bot.TenantID = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: invalid port %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	return nil
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"json": true, "text": true}
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.RequestTimeout < 0 {
		errs = append(errs, "server timeouts must not be negative")
	}
	if c.Bot.AppPassword != "" && c.Bot.AppID == "" {
		errs = append(errs, "bot.app_id is required when bot.app_password is set")
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}
	if c.Transcript.Size < 1 {
		errs = append(errs, "transcript.size must be at least 1")
	}

	if s := c.Channels.Slack; s != nil {
		if s.BotToken == "" {
			errs = append(errs, "channels.slack.bot_token is required")
		}
		if s.AppToken == "" {
			errs = append(errs, "channels.slack.app_token is required")
		}
	}
	if tg := c.Channels.Telegram; tg != nil && tg.Token == "" {
		errs = append(errs, "channels.telegram.token is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
