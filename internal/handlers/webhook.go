package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"

	"github.com/memohai/photorelay/internal/config"
	"github.com/memohai/photorelay/internal/upload"
)

// UpdateDispatcher handles one decoded Telegram update.
type UpdateDispatcher interface {
	Handle(ctx context.Context, update tgbotapi.Update) error
}

// StatusSource reports upload state for the status endpoint.
type StatusSource interface {
	Stats() upload.Stats
	CanDeliver() bool
}

// WebhookHandler serves the Telegram webhook endpoint.
type WebhookHandler struct {
	logger        *slog.Logger
	path          string
	dispatcher    UpdateDispatcher
	status        StatusSource
	emailProvider string
}

// StatusResponse is returned by GET on the webhook path.
type StatusResponse struct {
	Status         string `json:"status"`
	UsersTracked   int    `json:"users_tracked"`
	PendingUploads int    `json:"pending_uploads"`
	EmailEnabled   bool   `json:"email_enabled"`
	GmailEnabled   bool   `json:"gmail_enabled"`
	EmailProvider  string `json:"email_provider,omitempty"`
}

// AckResponse acknowledges an update whose processing failed, so Telegram does not redeliver it.
type AckResponse struct {
	Error        string `json:"error"`
	Acknowledged bool   `json:"acknowledged"`
}

func NewWebhookHandler(log *slog.Logger, cfg config.Config, dispatcher UpdateDispatcher, status StatusSource, emailProvider string) *WebhookHandler {
	path := strings.TrimSpace(cfg.Server.WebhookPath)
	if path == "" {
		path = config.DefaultWebhookPath
	}
	return &WebhookHandler{
		logger:        log.With(slog.String("handler", "webhook")),
		path:          path,
		dispatcher:    dispatcher,
		status:        status,
		emailProvider: emailProvider,
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.Any(h.path, h.Handle)
}

// Handle godoc
// @Summary Telegram webhook
// @Description GET reports bot status, POST receives a Telegram update
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 405 {object} map[string]string
// @Router /api/bot [post]
func (h *WebhookHandler) Handle(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodGet:
		return h.Status(c)
	case http.MethodPost:
		return h.Update(c)
	case http.MethodOptions:
		return c.NoContent(http.StatusOK)
	default:
		return c.JSON(http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (h *WebhookHandler) Status(c echo.Context) error {
	stats := h.status.Stats()
	enabled := h.status.CanDeliver()
	return c.JSON(http.StatusOK, StatusResponse{
		Status:         "Bot is running!",
		UsersTracked:   stats.UsersTracked,
		PendingUploads: stats.PendingSessions,
		EmailEnabled:   enabled,
		GmailEnabled:   enabled,
		EmailProvider:  h.emailProvider,
	})
}

// Update decodes and dispatches one update. Every outcome is a 200 so Telegram never retries,
// including a panic in the dispatcher.
func (h *WebhookHandler) Update(c echo.Context) (err error) {
	var update tgbotapi.Update
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("webhook processing panicked", slog.Int("update_id", update.UpdateID), slog.Any("panic", r))
			err = c.JSON(http.StatusOK, AckResponse{Error: "internal error", Acknowledged: true})
		}
	}()

	decodeErr := json.NewDecoder(c.Request().Body).Decode(&update)
	var typeErr *json.UnmarshalTypeError
	switch {
	case decodeErr == nil, errors.Is(decodeErr, io.EOF):
	case errors.As(decodeErr, &typeErr):
		// The decoder keeps every field it could read, so the sender is usually known.
		h.logger.Warn("update has unexpected field types, answering with help",
			slog.Int("update_id", update.UpdateID), slog.Any("error", decodeErr))
		update = senderOnly(update)
	default:
		h.logger.Warn("malformed update ignored", slog.Any("error", decodeErr))
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	if err := h.dispatcher.Handle(c.Request().Context(), update); err != nil {
		h.logger.Error("webhook processing failed", slog.Int("update_id", update.UpdateID), slog.Any("error", err))
		return c.JSON(http.StatusOK, AckResponse{Error: err.Error(), Acknowledged: true})
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// senderOnly keeps the chat and user of a partially decoded update and drops its content,
// which turns it into a plain text event.
func senderOnly(u tgbotapi.Update) tgbotapi.Update {
	out := tgbotapi.Update{UpdateID: u.UpdateID}
	if m := u.Message; m != nil && m.Chat != nil {
		out.Message = &tgbotapi.Message{MessageID: m.MessageID, From: m.From, Chat: m.Chat}
	}
	if q := u.CallbackQuery; q != nil && q.ID != "" {
		cq := &tgbotapi.CallbackQuery{ID: q.ID, From: q.From}
		if q.Message != nil && q.Message.Chat != nil {
			cq.Message = &tgbotapi.Message{MessageID: q.Message.MessageID, Chat: q.Message.Chat}
		}
		out.CallbackQuery = cq
	}
	return out
}
