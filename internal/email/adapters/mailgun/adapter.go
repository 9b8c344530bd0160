package mailgun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mg "github.com/mailgun/mailgun-go/v5"

	"github.com/memohai/photorelay/internal/email"
)

const ProviderName email.ProviderName = "mailgun"

type Adapter struct {
	logger *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	return &Adapter{logger: log.With(slog.String("adapter", "mailgun"))}
}

func (a *Adapter) Type() email.ProviderName { return ProviderName }

func (a *Adapter) Meta() email.ProviderMeta {
	return email.ProviderMeta{
		Provider:    string(ProviderName),
		DisplayName: "Mailgun",
		ConfigSchema: email.ConfigSchema{
			Fields: []email.FieldSchema{
				{Key: "domain", Type: "string", Title: "Domain", Required: true, Example: "mg.example.com", Order: 1},
				{Key: "api_key", Type: "secret", Title: "API Key", Required: true, Order: 2},
				{Key: "region", Type: "enum", Title: "Region", Enum: []string{"us", "eu"}, Example: "us", Order: 3},
				{Key: "from", Type: "string", Title: "From Address", Description: "Defaults to noreply@<domain>", Order: 4},
			},
		},
	}
}

func (a *Adapter) NormalizeConfig(raw map[string]any) (map[string]any, error) {
	if v, _ := raw["region"].(string); v == "" {
		raw["region"] = "us"
	}
	if err := a.Meta().ConfigSchema.Check(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func newClient(config map[string]any) *mg.Client {
	apiKey, _ := config["api_key"].(string)
	client := mg.NewMailgun(apiKey)
	region, _ := config["region"].(string)
	if region == "eu" {
		client.SetAPIBase(mg.APIBaseEU)
	}
	return client
}

func fromAddress(config map[string]any) string {
	if from, _ := config["from"].(string); strings.TrimSpace(from) != "" {
		return strings.TrimSpace(from)
	}
	domain, _ := config["domain"].(string)
	return fmt.Sprintf("noreply@%s", domain)
}

var sendForTest func(ctx context.Context, client *mg.Client, m *mg.PlainMessage) (string, error)

// ---- Sender ----

func (a *Adapter) Send(ctx context.Context, config map[string]any, msg email.OutboundEmail) (string, error) {
	client := newClient(config)
	domain, _ := config["domain"].(string)

	m := mg.NewMessage(domain, fromAddress(config), msg.Subject, msg.Body, msg.To...)
	for _, att := range msg.Attachments {
		m.AddBufferAttachment(att.Name, att.Data)
	}

	send := sendForTest
	if send == nil {
		send = func(ctx context.Context, c *mg.Client, m *mg.PlainMessage) (string, error) {
			resp, err := c.Send(ctx, m)
			if err != nil {
				return "", err
			}
			return resp.ID, nil
		}
	}
	id, err := send(ctx, client, m)
	if err != nil {
		a.logger.Error("mailgun send failed", slog.String("domain", domain), slog.Any("error", err))
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}
