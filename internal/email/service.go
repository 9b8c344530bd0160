package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/memohai/photorelay/internal/config"
)

// ErrDisabled is returned by Send when no provider is configured.
var ErrDisabled = errors.New("email delivery is not configured")

// Service sends email through the single configured provider.
type Service struct {
	logger    *slog.Logger
	registry  *Registry
	provider  ProviderName
	config    map[string]any
	sender    Sender
	recipient string
}

// NewService resolves and validates the configured provider. An empty provider yields a
// disabled Service rather than an error.
func NewService(log *slog.Logger, registry *Registry, cfg config.EmailConfig) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		logger:   log.With(slog.String("service", "email")),
		registry: registry,
	}
	if !cfg.Enabled() {
		s.logger.Warn("email provider not set, email delivery disabled")
		return s, nil
	}
	name := ProviderName(strings.TrimSpace(cfg.Provider))
	adapter, err := registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(registry.Names(), ", "))
	}
	sender, err := registry.GetSender(name)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(cfg.Config))
	maps.Copy(raw, cfg.Config)
	normalized, err := adapter.NormalizeConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", name, err)
	}
	recipient := strings.TrimSpace(cfg.To)
	if recipient == "" {
		recipient = defaultRecipient(normalized)
	}
	if recipient == "" {
		return nil, fmt.Errorf("email recipient is required for provider %s", name)
	}
	s.provider = name
	s.config = normalized
	s.sender = sender
	s.recipient = recipient
	s.logger.Info("email delivery enabled", slog.String("provider", string(name)), slog.String("to", recipient))
	return s, nil
}

// defaultRecipient falls back to mailing the sending account's own address.
func defaultRecipient(cfg map[string]any) string {
	for _, key := range []string{"from", "username"} {
		if v, _ := cfg[key].(string); strings.Contains(v, "@") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (s *Service) Enabled() bool { return s != nil && s.sender != nil }

func (s *Service) Provider() string {
	if s == nil {
		return ""
	}
	return string(s.provider)
}

func (s *Service) Recipient() string {
	if s == nil {
		return ""
	}
	return s.recipient
}

// Send delivers msg, addressing it to the configured recipient when To is empty.
func (s *Service) Send(ctx context.Context, msg OutboundEmail) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if len(msg.To) == 0 {
		msg.To = []string{s.recipient}
	}
	id, err := s.sender.Send(ctx, s.config, msg)
	if err != nil {
		return "", err
	}
	s.logger.Info("email sent",
		slog.String("provider", string(s.provider)),
		slog.String("message_id", id),
		slog.Int("attachments", len(msg.Attachments)),
	)
	return id, nil
}
