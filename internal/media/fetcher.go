package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const defaultTimeout = 60 * time.Second

// Payload is a downloaded resource held in memory.
type Payload struct {
	Data      []byte
	Mime      string
	Extension string
}

// Size returns the payload length in bytes.
func (p Payload) Size() int64 {
	return int64(len(p.Data))
}

// Fetcher downloads remote resources over HTTP with a timeout and a size cap.
type Fetcher struct {
	logger   *slog.Logger
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher. Non-positive values fall back to the defaults.
func NewFetcher(log *slog.Logger, timeout time.Duration, maxBytes int64) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		logger:   log.With(slog.String("component", "fetcher")),
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads rawURL and sniffs its content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Payload, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Payload{}, fmt.Errorf("download url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build download request: %w", withoutURL(err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("download: %w", withoutURL(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Payload{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Payload{}, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, f.maxBytes)
	}
	data, err := ReadAllWithLimit(resp.Body, f.maxBytes)
	if err != nil {
		return Payload{}, fmt.Errorf("read download body: %w", err)
	}

	detected := mimetype.Detect(data)
	ext := detected.Extension()
	if ext == "" {
		ext = extensionFromURL(rawURL)
	}
	f.logger.Debug("downloaded", slog.Int("bytes", len(data)), slog.String("mime", detected.String()))
	return Payload{
		Data:      data,
		Mime:      detected.String(),
		Extension: ext,
	}, nil
}

// withoutURL drops the request URL from a *url.Error. Telegram file URLs carry the bot
// token, and these errors end up in logs.
func withoutURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

func extensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}
