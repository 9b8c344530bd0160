package generic

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mail "github.com/wneessen/go-mail"

	"github.com/memohai/photorelay/internal/email"
)

func newTestAdapter() *Adapter {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNormalizeConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := newTestAdapter().NormalizeConfig(map[string]any{
		"smtp_host": "smtp.gmail.com",
		"username":  "me@gmail.com",
		"password":  "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(587), cfg["smtp_port"])
	assert.Equal(t, "starttls", cfg["smtp_security"])
	assert.Equal(t, "me@gmail.com", cfg["from"])
}

func TestNormalizeConfigRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]any{
		"missing host":     {"username": "u", "password": "p"},
		"missing password": {"smtp_host": "h", "username": "u"},
		"blank username":   {"smtp_host": "h", "username": " ", "password": "p"},
		"bad security":     {"smtp_host": "h", "username": "u", "password": "p", "smtp_security": "ssl3"},
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestAdapter().NormalizeConfig(raw)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeConfigReportsSchemaViolation(t *testing.T) {
	t.Parallel()

	_, err := newTestAdapter().NormalizeConfig(map[string]any{"username": "u", "password": "p"})
	assert.EqualError(t, err, "smtp_host is required")

	_, err = newTestAdapter().NormalizeConfig(map[string]any{
		"smtp_host": "h", "username": "u", "password": "p", "smtp_security": "ssl3",
	})
	assert.EqualError(t, err, "unsupported smtp_security: ssl3")
}

func TestBuildMessageWithAttachment(t *testing.T) {
	t.Parallel()

	m, err := buildMessage("me@gmail.com", email.OutboundEmail{
		To:      []string{"dest@example.com"},
		Subject: "Telegram Photo - photo_1.jpg",
		Body:    "Photo uploaded from Telegram Bot",
		Attachments: []email.Attachment{{
			Name:        "photo_1.jpg",
			ContentType: "image/jpeg",
			Data:        []byte{0xFF, 0xD8, 0xFF},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Telegram Photo - photo_1.jpg"}, m.GetGenHeader(mail.HeaderSubject))
	assert.Contains(t, strings.Join(m.GetToString(), ","), "dest@example.com")
	attachments := m.GetAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "photo_1.jpg", attachments[0].Name)
	assert.NotEmpty(t, m.GetMessageID())

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "photo_1.jpg")
}

func TestBuildMessageRejectsBadAddress(t *testing.T) {
	t.Parallel()

	_, err := buildMessage("not an address", email.OutboundEmail{To: []string{"dest@example.com"}})
	assert.Error(t, err)
}

func TestIntVal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 465, intVal(float64(465), 1))
	assert.Equal(t, 25, intVal(int64(25), 1))
	assert.Equal(t, 2525, intVal(2525, 1))
	assert.Equal(t, 1, intVal("587", 1))
}

// Tests below swap the package-level send hook and must not run in parallel.

func TestSendUsesHookAndReturnsMessageID(t *testing.T) {
	var captured *mail.Msg
	dialAndSendForTest = func(_ context.Context, _ *mail.Client, m *mail.Msg) error {
		captured = m
		return nil
	}
	t.Cleanup(func() { dialAndSendForTest = nil })

	id, err := newTestAdapter().Send(context.Background(), map[string]any{
		"smtp_host":     "smtp.example.com",
		"smtp_port":     int64(587),
		"smtp_security": "starttls",
		"username":      "me@example.com",
		"password":      "secret",
	}, email.OutboundEmail{To: []string{"dest@example.com"}, Subject: "hi", Body: "body"})
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, captured.GetMessageID(), id)
	assert.Contains(t, strings.Join(captured.GetFromString(), ","), "me@example.com")
}

func TestSendWrapsTransportError(t *testing.T) {
	dialAndSendForTest = func(context.Context, *mail.Client, *mail.Msg) error {
		return errors.New("dial tcp: connection refused")
	}
	t.Cleanup(func() { dialAndSendForTest = nil })

	_, err := newTestAdapter().Send(context.Background(), map[string]any{
		"smtp_host": "smtp.example.com",
		"username":  "me@example.com",
		"password":  "secret",
	}, email.OutboundEmail{To: []string{"dest@example.com"}, Subject: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send email")
}
