package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultWebhookPath   = "/api/bot"
	DefaultTelegramMode  = "webhook"
	DefaultIDFormat      = "uuid"
	DefaultSweepSchedule = "@every 1m"
	DefaultDownloadMax   = 20 * 1024 * 1024
	DefaultDownloadWait  = "60s"
	DefaultGmailHost     = "smtp.gmail.com"
	DefaultGmailPort     = 587
)

const (
	TelegramModeWebhook = "webhook"
	TelegramModePolling = "polling"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Telegram TelegramConfig `toml:"telegram"`
	Email    EmailConfig    `toml:"email"`
	Sessions SessionsConfig `toml:"sessions"`
	Download DownloadConfig `toml:"download"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	Addr        string `toml:"addr" validate:"required"`
	WebhookPath string `toml:"webhook_path" validate:"required,startswith=/"`
}

type TelegramConfig struct {
	BotToken   string `toml:"bot_token" validate:"required"`
	Mode       string `toml:"mode" validate:"oneof=webhook polling"`
	WebhookURL string `toml:"webhook_url" validate:"omitempty,url"`
}

// EmailConfig selects an email provider. An empty Provider disables email delivery.
type EmailConfig struct {
	Provider string         `toml:"provider" validate:"omitempty,oneof=generic mailgun"`
	To       string         `toml:"to" validate:"omitempty,email"`
	Config   map[string]any `toml:"config"`
}

// Enabled reports whether an email provider is configured.
func (c EmailConfig) Enabled() bool {
	return strings.TrimSpace(c.Provider) != ""
}

type SessionsConfig struct {
	IDFormat      string `toml:"id_format" validate:"oneof=uuid timestamp"`
	TTL           string `toml:"ttl" validate:"omitempty,duration"`
	SweepSchedule string `toml:"sweep_schedule"`
	HistoryLimit  int    `toml:"history_limit" validate:"gte=0"`
}

// TTLDuration returns the session time-to-live. Zero means sessions never expire.
func (c SessionsConfig) TTLDuration() time.Duration {
	return parseDuration(c.TTL)
}

type DownloadConfig struct {
	MaxBytes int64  `toml:"max_bytes" validate:"gt=0"`
	Timeout  string `toml:"timeout" validate:"omitempty,duration"`
}

// TimeoutDuration returns the download timeout.
func (c DownloadConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

func parseDuration(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:        DefaultHTTPAddr,
			WebhookPath: DefaultWebhookPath,
		},
		Telegram: TelegramConfig{
			Mode: DefaultTelegramMode,
		},
		Sessions: SessionsConfig{
			IDFormat:      DefaultIDFormat,
			SweepSchedule: DefaultSweepSchedule,
		},
		Download: DownloadConfig{
			MaxBytes: DefaultDownloadMax,
			Timeout:  DefaultDownloadWait,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnv(&cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays the environment variables the bot has always honoured.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv("BOT_TOKEN")); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := strings.TrimSpace(getenv("HTTP_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(getenv("WEBHOOK_PATH")); v != "" {
		cfg.Server.WebhookPath = v
	}
	if v := strings.TrimSpace(getenv("TELEGRAM_MODE")); v != "" {
		cfg.Telegram.Mode = v
	}
	if v := strings.TrimSpace(getenv("EMAIL_TO")); v != "" {
		cfg.Email.To = v
	}

	user := strings.TrimSpace(getenv("GMAIL_USER"))
	pass := strings.TrimSpace(getenv("GMAIL_PASS"))
	if user == "" || pass == "" {
		return
	}
	if cfg.Email.Provider != "" && cfg.Email.Provider != "generic" {
		return
	}
	cfg.Email.Provider = "generic"
	if cfg.Email.Config == nil {
		cfg.Email.Config = map[string]any{}
	}
	setDefault(cfg.Email.Config, "smtp_host", DefaultGmailHost)
	setDefault(cfg.Email.Config, "smtp_port", int64(DefaultGmailPort))
	setDefault(cfg.Email.Config, "smtp_security", "starttls")
	cfg.Email.Config["username"] = user
	cfg.Email.Config["password"] = pass
	if cfg.Email.To == "" {
		cfg.Email.To = user
	}
}

func setDefault(m map[string]any, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

// Validate checks field constraints and returns a readable error listing every violation.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
