package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/memohai/photorelay/internal/media"
	"github.com/memohai/photorelay/internal/upload"
)

const defaultPhotoExtension = ".jpg"

// Downloader fetches the bytes behind a resource locator.
type Downloader interface {
	Fetch(ctx context.Context, rawURL string) (media.Payload, error)
}

// PhotoMailer downloads a photo and mails it as an attachment. It implements upload.Deliverer.
type PhotoMailer struct {
	logger     *slog.Logger
	downloader Downloader
	service    *Service
	now        func() time.Time
}

func NewPhotoMailer(log *slog.Logger, downloader Downloader, service *Service) *PhotoMailer {
	if log == nil {
		log = slog.Default()
	}
	return &PhotoMailer{
		logger:     log.With(slog.String("component", "photo_mailer")),
		downloader: downloader,
		service:    service,
		now:        time.Now,
	}
}

func (m *PhotoMailer) Enabled() bool {
	return m.service.Enabled()
}

// Deliver downloads locator and sends it to the configured recipient.
func (m *PhotoMailer) Deliver(ctx context.Context, locator string) (upload.Receipt, error) {
	if !m.Enabled() {
		return upload.Receipt{}, ErrDisabled
	}
	payload, err := m.downloader.Fetch(ctx, locator)
	if err != nil {
		return upload.Receipt{}, fmt.Errorf("download photo: %w", err)
	}
	now := m.now()
	ext := payload.Extension
	if ext == "" {
		ext = defaultPhotoExtension
	}
	name := fmt.Sprintf("photo_%d%s", now.UnixMilli(), ext)
	msg := OutboundEmail{
		Subject: "Telegram Photo - " + name,
		Body: fmt.Sprintf("Photo uploaded from Telegram Bot\nFile: %s\nTime: %s",
			name, now.Format(time.RFC1123)),
		Attachments: []Attachment{{
			Name:        name,
			ContentType: payload.Mime,
			Data:        payload.Data,
		}},
	}
	messageID, err := m.service.Send(ctx, msg)
	if err != nil {
		return upload.Receipt{}, fmt.Errorf("send photo email: %w", err)
	}
	m.logger.Info("photo mailed", slog.String("file", name), slog.Int64("bytes", payload.Size()))
	return upload.Receipt{
		Recipient: m.service.Recipient(),
		FileName:  name,
		MessageID: messageID,
	}, nil
}
