// Package config provides configuration loading for the webhook gateway.
// Configuration sources (in priority order): env vars > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/marcus-qen/botgate/internal/keychain"
	"github.com/marcus-qen/botgate/internal/replay"
	"github.com/marcus-qen/botgate/internal/shared/ratelimit"
	"github.com/marcus-qen/botgate/internal/shared/signing"
	"github.com/marcus-qen/botgate/internal/webhook"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOTGATE_"

// Config holds all gateway configuration.
type Config struct {
	// Listen address (default ":8080")
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`

	// Log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Bot       BotConfig       `yaml:"bot" envPrefix:"BOT_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Sweeper   SweeperConfig   `yaml:"sweeper" envPrefix:"SWEEPER_"`
}

// BotConfig configures the Telegram side of the gateway.
type BotConfig struct {
	// Bot API token, used by botgatectl to register the webhook.
	Token string `yaml:"token,omitempty" env:"TOKEN"`

	// Public HTTPS URL Telegram should deliver updates to.
	WebhookURL string `yaml:"webhook_url,omitempty" env:"WEBHOOK_URL"`

	// Shared secret Telegram echoes in X-Telegram-Bot-Api-Secret-Token.
	SecretToken string `yaml:"secret_token,omitempty" env:"SECRET_TOKEN"`

	// Keychain account holding the secret when SecretToken is empty.
	SecretKeyringAccount string `yaml:"secret_keyring_account,omitempty" env:"SECRET_KEYRING_ACCOUNT"`

	// Allowed client IPs or IPv4 CIDRs. Empty allows everyone.
	AllowedIPs []string `yaml:"allowed_ips,omitempty" env:"ALLOWED_IPS" envSeparator:","`

	RateLimit  RateLimitConfig  `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	AntiReplay AntiReplayConfig `yaml:"anti_replay" envPrefix:"ANTI_REPLAY_"`
	Binding    BindingConfig    `yaml:"binding" envPrefix:"BINDING_"`
}

// RateLimitConfig configures per-IP and per-user quotas.
type RateLimitConfig struct {
	IPRequestsPerMinute   int `yaml:"ip_requests_per_minute" env:"IP_REQUESTS_PER_MINUTE"`
	UserRequestsPerMinute int `yaml:"user_requests_per_minute" env:"USER_REQUESTS_PER_MINUTE"`
	// Enforce turns on the in-memory limiter. Off, only the client IP
	// presence check runs.
	Enforce bool `yaml:"enforce" env:"ENFORCE"`
}

// AntiReplayConfig configures duplicate update_id detection.
type AntiReplayConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	Window  time.Duration `yaml:"window" env:"WINDOW"`
}

// BindingConfig bounds account-binding codes.
type BindingConfig struct {
	CodeExpiryMinutes int `yaml:"code_expiry_minutes" env:"CODE_EXPIRY_MINUTES"`
	CodeLengthMin     int `yaml:"code_length_min" env:"CODE_LENGTH_MIN"`
	CodeLengthMax     int `yaml:"code_length_max" env:"CODE_LENGTH_MAX"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	// OTLP gRPC endpoint; empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty" env:"OTLP_ENDPOINT"`
}

// SweeperConfig configures the store eviction job.
type SweeperConfig struct {
	// Cron expression or @every descriptor.
	Schedule string `yaml:"schedule" env:"SCHEDULE"`
}

// Default returns configuration with sensible defaults.
func Default() Config {
	rl := ratelimit.DefaultConfig()
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		Bot: BotConfig{
			RateLimit: RateLimitConfig{
				IPRequestsPerMinute:   rl.IPRequestsPerMinute,
				UserRequestsPerMinute: rl.UserRequestsPerMinute,
			},
			AntiReplay: AntiReplayConfig{
				Window: replay.DefaultWindow,
			},
			Binding: BindingConfig{
				CodeExpiryMinutes: 10,
				CodeLengthMin:     24,
				CodeLengthMax:     30,
			},
		},
		Sweeper: SweeperConfig{
			Schedule: "@every 1m",
		},
	}
}

// Load reads configuration from a YAML file, then overlays environment
// variables, then resolves the secret from the keychain if configured.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load is Load with an explicit environment; nil means the process env.
func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.resolveSecret(keychain.Get); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (Config, error) {
	return Load("")
}

func (c *Config) resolveSecret(get func(account string) (string, error)) error {
	if c.Bot.SecretToken != "" || c.Bot.SecretKeyringAccount == "" {
		return nil
	}
	secret, err := get(c.Bot.SecretKeyringAccount)
	if err != nil {
		return fmt.Errorf("read secret from keychain: %w", err)
	}
	c.Bot.SecretToken = secret
	return nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.Bot.SecretToken != "" {
		if err := signing.CheckSecret(c.Bot.SecretToken); err != nil {
			errs = append(errs, fmt.Errorf("bot.secret_token: %w", err))
		}
	}
	if _, err := webhook.ParseAllowList(c.Bot.AllowedIPs); err != nil {
		errs = append(errs, fmt.Errorf("bot.%w", err))
	}
	if c.Bot.RateLimit.IPRequestsPerMinute <= 0 {
		errs = append(errs, errors.New("bot.rate_limit.ip_requests_per_minute must be positive"))
	}
	if c.Bot.RateLimit.UserRequestsPerMinute <= 0 {
		errs = append(errs, errors.New("bot.rate_limit.user_requests_per_minute must be positive"))
	}
	if c.Bot.AntiReplay.Enabled && c.Bot.AntiReplay.Window <= 0 {
		errs = append(errs, errors.New("bot.anti_replay.window must be positive when enabled"))
	}
	b := c.Bot.Binding
	if b.CodeExpiryMinutes <= 0 || b.CodeLengthMin <= 0 || b.CodeLengthMax < b.CodeLengthMin {
		errs = append(errs, fmt.Errorf("bot.binding bounds invalid (expiry=%d min=%d max=%d)", b.CodeExpiryMinutes, b.CodeLengthMin, b.CodeLengthMax))
	}
	if strings.TrimSpace(c.Sweeper.Schedule) == "" {
		errs = append(errs, errors.New("sweeper.schedule is required"))
	}
	return errors.Join(errs...)
}

// Validation returns the read-only snapshot the webhook validator uses.
func (c Config) Validation() webhook.ValidationConfig {
	return webhook.ValidationConfig{
		SecretToken:           c.Bot.SecretToken,
		AllowedIPs:            append([]string(nil), c.Bot.AllowedIPs...),
		IPRequestsPerMinute:   c.Bot.RateLimit.IPRequestsPerMinute,
		UserRequestsPerMinute: c.Bot.RateLimit.UserRequestsPerMinute,
		Binding: webhook.BindingConfig{
			CodeExpiryMinutes: c.Bot.Binding.CodeExpiryMinutes,
			CodeLengthMin:     c.Bot.Binding.CodeLengthMin,
			CodeLengthMax:     c.Bot.Binding.CodeLengthMax,
		},
	}
}

// HasSecret returns true if a webhook secret is configured.
func (c Config) HasSecret() bool {
	return strings.TrimSpace(c.Bot.SecretToken) != ""
}
