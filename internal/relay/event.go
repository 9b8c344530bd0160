package relay

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/photorelay/internal/telegram"
)

const (
	// ConfirmPrefix tags the confirm button's callback data; the session id follows it.
	ConfirmPrefix = "gmail_"
	// CancelData is the callback data of the close button.
	CancelData = "cancel"
)

// EventKind classifies an inbound update.
type EventKind int

const (
	KindPlainText EventKind = iota
	KindNewPhoto
	KindConfirm
	KindCancel
)

func (k EventKind) String() string {
	switch k {
	case KindNewPhoto:
		return "new_photo"
	case KindConfirm:
		return "confirm"
	case KindCancel:
		return "cancel"
	default:
		return "plain_text"
	}
}

// Event is the classified form of a Telegram update. ChatID is zero when the
// update carries no chat to reply to.
type Event struct {
	Kind       EventKind
	ChatID     int64
	UserID     string
	MessageID  int
	CallbackID string
	SessionID  string
	FileID     string
	FileSize   int64
	Text       string
}

// Classify maps an update to exactly one event kind. Anything unrecognised is plain text.
func Classify(update tgbotapi.Update) Event {
	if cq := update.CallbackQuery; cq != nil {
		ev := Event{Kind: KindPlainText, CallbackID: cq.ID, UserID: userID(cq.From, cq.Message)}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		data := strings.TrimSpace(cq.Data)
		switch {
		case data == CancelData:
			ev.Kind = KindCancel
		case strings.HasPrefix(data, ConfirmPrefix) && len(data) > len(ConfirmPrefix):
			ev.Kind = KindConfirm
			ev.SessionID = strings.TrimPrefix(data, ConfirmPrefix)
		}
		return ev
	}

	msg := update.Message
	if msg == nil {
		return Event{Kind: KindPlainText}
	}
	ev := Event{
		Kind:      KindPlainText,
		UserID:    userID(msg.From, msg),
		MessageID: msg.MessageID,
		Text:      strings.TrimSpace(msg.Text),
	}
	if msg.Chat != nil {
		ev.ChatID = msg.Chat.ID
	}
	if len(msg.Photo) > 0 {
		photo := telegram.PickPhoto(msg.Photo)
		if photo.FileID != "" {
			ev.Kind = KindNewPhoto
			ev.FileID = photo.FileID
			ev.FileSize = int64(photo.FileSize)
		}
	}
	return ev
}

// userID prefers the sender and falls back to the chat, which equals the user in private chats.
func userID(from *tgbotapi.User, msg *tgbotapi.Message) string {
	if from != nil && from.ID != 0 {
		return strconv.FormatInt(from.ID, 10)
	}
	if msg != nil && msg.Chat != nil {
		return strconv.FormatInt(msg.Chat.ID, 10)
	}
	return ""
}
