package relay

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/photorelay/internal/telegram"
	"github.com/memohai/photorelay/internal/upload"
)

// Messenger sends replies and manages interactive messages on the chat platform.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard [][]telegram.Button) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// FileResolver maps a platform file id to a downloadable URL.
type FileResolver interface {
	ResolveFile(ctx context.Context, fileID string) (telegram.FileInfo, error)
}

// Dispatcher turns inbound updates into coordinator calls and user-facing replies.
type Dispatcher struct {
	logger      *slog.Logger
	messenger   Messenger
	files       FileResolver
	coordinator *upload.Coordinator
}

func NewDispatcher(log *slog.Logger, messenger Messenger, files FileResolver, coordinator *upload.Coordinator) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		logger:      log.With(slog.String("component", "dispatcher")),
		messenger:   messenger,
		files:       files,
		coordinator: coordinator,
	}
}

// Handle processes one update. A returned error means the user could not even be told
// about a failure; callers at the HTTP boundary still acknowledge the update.
func (d *Dispatcher) Handle(ctx context.Context, update tgbotapi.Update) error {
	ev := Classify(update)
	d.logger.Debug("update classified",
		slog.Int("update_id", update.UpdateID),
		slog.String("kind", ev.Kind.String()),
		slog.String("user_id", ev.UserID),
	)
	switch ev.Kind {
	case KindNewPhoto:
		return d.handlePhoto(ctx, ev)
	case KindConfirm:
		return d.handleConfirm(ctx, ev)
	case KindCancel:
		return d.handleCancel(ctx, ev)
	default:
		return d.handleText(ctx, ev)
	}
}

// HandleAsync adapts Handle to the polling loop, which has no response to carry errors.
func (d *Dispatcher) HandleAsync(ctx context.Context, update tgbotapi.Update) {
	if err := d.Handle(ctx, update); err != nil {
		d.logger.Error("handle update failed", slog.Int("update_id", update.UpdateID), slog.Any("error", err))
	}
}

func (d *Dispatcher) handlePhoto(ctx context.Context, ev Event) error {
	info, err := d.files.ResolveFile(ctx, ev.FileID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrResourceResolution, err)
		d.logger.Error("resolve photo failed", slog.String("user_id", ev.UserID), slog.Any("error", err))
		return d.reply(ctx, ev.ChatID, errorText(err), nil)
	}
	size := info.Size
	if size <= 0 {
		size = ev.FileSize
	}
	canDeliver := d.coordinator.CanDeliver()
	id := d.coordinator.OnPhotoReceived(ev.UserID, info.URL)
	return d.reply(ctx, ev.ChatID, photoReceivedText(info.URL, size), photoKeyboard(id, canDeliver))
}

func (d *Dispatcher) handleConfirm(ctx context.Context, ev Event) error {
	d.answer(ctx, ev.CallbackID, sendingToast)
	res := d.coordinator.OnConfirm(ctx, ev.SessionID)
	d.logger.Info("confirm handled",
		slog.String("user_id", ev.UserID),
		slog.String("upload_id", ev.SessionID),
		slog.String("outcome", res.Outcome.String()),
	)
	return d.reply(ctx, ev.ChatID, outcomeText(res), nil)
}

func (d *Dispatcher) handleCancel(ctx context.Context, ev Event) error {
	d.answer(ctx, ev.CallbackID, closedToast)
	if ev.ChatID != 0 && ev.MessageID != 0 {
		if err := d.messenger.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
			d.logger.Warn("delete message failed", slog.Int64("chat_id", ev.ChatID), slog.Any("error", err))
		}
	}
	d.coordinator.OnCancel(ev.UserID)
	return nil
}

func (d *Dispatcher) handleText(ctx context.Context, ev Event) error {
	if ev.CallbackID != "" {
		d.answer(ctx, ev.CallbackID, "")
	}
	return d.reply(ctx, ev.ChatID, helpText(d.coordinator.CanDeliver()), nil)
}

// answer acknowledges a callback. Failures are logged and otherwise ignored.
func (d *Dispatcher) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := d.messenger.AnswerCallback(ctx, callbackID, text); err != nil {
		d.logger.Warn("answer callback failed", slog.Any("error", err))
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string, keyboard [][]telegram.Button) error {
	if chatID == 0 {
		return nil
	}
	if _, err := d.messenger.SendText(ctx, chatID, text, keyboard); err != nil {
		return fmt.Errorf("reply to chat %d: %w", chatID, err)
	}
	return nil
}
