package generic

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/memohai/photorelay/internal/email"
)

const ProviderName email.ProviderName = "generic"

type Adapter struct {
	logger *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	return &Adapter{logger: log.With(slog.String("adapter", "generic"))}
}

func (a *Adapter) Type() email.ProviderName { return ProviderName }

func (a *Adapter) Meta() email.ProviderMeta {
	return email.ProviderMeta{
		Provider:    string(ProviderName),
		DisplayName: "Generic (SMTP)",
		ConfigSchema: email.ConfigSchema{
			Fields: []email.FieldSchema{
				{Key: "username", Type: "string", Title: "Username", Required: true, Example: "user@gmail.com", Order: 1},
				{Key: "password", Type: "secret", Title: "Password", Required: true, Order: 2},
				{Key: "smtp_host", Type: "string", Title: "SMTP Host", Required: true, Example: "smtp.gmail.com", Order: 3},
				{Key: "smtp_port", Type: "number", Title: "SMTP Port", Required: true, Example: 587, Order: 4},
				{Key: "smtp_security", Type: "enum", Title: "SMTP Security", Enum: []string{"tls", "starttls", "none"}, Example: "starttls", Order: 5},
				{Key: "from", Type: "string", Title: "From Address", Description: "Defaults to the username", Order: 6},
			},
		},
	}
}

func (a *Adapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	if _, ok := raw["smtp_port"]; !ok {
		raw["smtp_port"] = float64(587)
	}
	if v, _ := raw["smtp_security"].(string); v == "" {
		raw["smtp_security"] = "starttls"
	}
	if err := a.Meta().ConfigSchema.Check(raw); err != nil {
		return nil, err
	}
	if v, _ := raw["from"].(string); strings.TrimSpace(v) == "" {
		raw["from"] = raw["username"]
	}
	return raw, nil
}

var dialAndSendForTest func(ctx context.Context, client *mail.Client, m *mail.Msg) error

// ---- Sender ----

func (a *Adapter) Send(ctx context.Context, config map[string]any, msg email.OutboundEmail) (string, error) {
	host, _ := config["smtp_host"].(string)
	from, _ := config["from"].(string)
	if from == "" {
		from, _ = config["username"].(string)
	}

	m, err := buildMessage(from, msg)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(host, clientOptions(config)...)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}
	send := dialAndSendForTest
	if send == nil {
		send = func(ctx context.Context, c *mail.Client, m *mail.Msg) error { return c.DialAndSendWithContext(ctx, m) }
	}
	if err := send(ctx, client, m); err != nil {
		a.logger.Error("smtp send failed", slog.String("host", host), slog.Any("error", err))
		return "", fmt.Errorf("send email: %w", err)
	}

	return m.GetMessageID(), nil
}

func buildMessage(from string, msg email.OutboundEmail) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	for _, att := range msg.Attachments {
		var opts []mail.FileOption
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := m.AttachReader(att.Name, bytes.NewReader(att.Data), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", att.Name, err)
		}
	}
	m.SetMessageID()
	return m, nil
}

func clientOptions(config map[string]any) []mail.Option {
	port := intVal(config["smtp_port"], 587)
	username, _ := config["username"].(string)
	password, _ := config["password"].(string)
	smtpSecurity, _ := config["smtp_security"].(string)

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
	}
	switch smtpSecurity {
	case "tls":
		opts = append(opts, mail.WithSSLPort(false), mail.WithTLSPolicy(mail.TLSMandatory))
	case "starttls":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	return opts
}

// intVal accepts the number types produced by JSON (float64) and TOML (int64) decoding.
func intVal(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
