package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/photorelay/internal/telegram"
	"github.com/memohai/photorelay/internal/upload"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard [][]telegram.Button
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	answers   map[string]string
	deleted   []int
	sendErr   error
	deleteErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{answers: map[string]string{}}
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, keyboard [][]telegram.Button) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return len(f.sent), nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[callbackID] = text
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return f.deleteErr
}

func (f *fakeMessenger) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeResolver struct {
	info telegram.FileInfo
	err  error
}

func (f *fakeResolver) ResolveFile(_ context.Context, fileID string) (telegram.FileInfo, error) {
	if f.err != nil {
		return telegram.FileInfo{}, f.err
	}
	info := f.info
	info.FileID = fileID
	return info, nil
}

type fakeDeliverer struct {
	enabled bool
	err     error
	calls   []string
}

func (f *fakeDeliverer) Enabled() bool { return f.enabled }

func (f *fakeDeliverer) Deliver(_ context.Context, locator string) (upload.Receipt, error) {
	f.calls = append(f.calls, locator)
	if f.err != nil {
		return upload.Receipt{}, f.err
	}
	return upload.Receipt{Recipient: "me@gmail.com", FileName: "photo_1.jpg"}, nil
}

type harness struct {
	messenger *fakeMessenger
	resolver  *fakeResolver
	deliverer *fakeDeliverer
	store     *upload.MemoryStore
	history   *upload.History
	disp      *Dispatcher
}

func newHarness(enabled bool) *harness {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		messenger: newFakeMessenger(),
		resolver:  &fakeResolver{info: telegram.FileInfo{URL: "https://files.example/abc.jpg", Size: 2048}},
		deliverer: &fakeDeliverer{enabled: enabled},
		store:     upload.NewMemoryStore(),
		history:   upload.NewHistory(0),
	}
	coord := upload.NewCoordinator(log, h.store, h.history, h.deliverer)
	h.disp = NewDispatcher(log, h.messenger, h.resolver, coord)
	return h
}

func photoUpdate(userID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90, FileSize: 100},
			{FileID: "big", Width: 1280, Height: 960, FileSize: 2048},
		},
	}}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-" + data,
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 11,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
	}}
}

func (h *harness) sendPhoto(t *testing.T, userID int64) string {
	t.Helper()
	require.NoError(t, h.disp.Handle(context.Background(), photoUpdate(userID)))
	record, ok := h.history.Latest(strconv.FormatInt(userID, 10))
	require.True(t, ok)
	return record.ID
}

func TestPhotoRegistersSessionAndReplies(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	id := h.sendPhoto(t, 42)

	locator, err := h.store.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/abc.jpg", locator)

	msg := h.messenger.last(t)
	assert.Equal(t, int64(42), msg.chatID)
	assert.Contains(t, msg.text, "https://files.example/abc.jpg")
	assert.Contains(t, msg.text, "Size: 2.0 KB")
	require.Len(t, msg.keyboard, 2)
	assert.Equal(t, ConfirmPrefix+id, msg.keyboard[0][0].Data)
	assert.Equal(t, CancelData, msg.keyboard[1][0].Data)
}

func TestPhotoWithoutEmailOffersOnlyClose(t *testing.T) {
	t.Parallel()

	h := newHarness(false)
	h.sendPhoto(t, 42)

	msg := h.messenger.last(t)
	require.Len(t, msg.keyboard, 1)
	assert.Equal(t, CancelData, msg.keyboard[0][0].Data)
}

func TestPhotoResolutionFailureIsReported(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	h.resolver.err = errors.New("Bad Request: file is too big")
	require.NoError(t, h.disp.Handle(context.Background(), photoUpdate(42)))

	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, 0, h.history.Users())
	assert.Equal(t, "❌ Error: resource resolution failed: Bad Request: file is too big", h.messenger.last(t).text)
}

func TestReplyFailurePropagates(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	h.resolver.err = errors.New("timeout")
	h.messenger.sendErr = errors.New("chat not found")
	err := h.disp.Handle(context.Background(), photoUpdate(42))
	assert.ErrorContains(t, err, "chat not found")
}

func TestConfirmDeliversExactlyOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	id := h.sendPhoto(t, 42)

	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, ConfirmPrefix+id)))
	assert.Equal(t, sendingToast, h.messenger.answers["cb-"+ConfirmPrefix+id])
	assert.Contains(t, h.messenger.last(t).text, "Sent to: me@gmail.com")
	assert.Contains(t, h.messenger.last(t).text, "photo_1.jpg")

	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, ConfirmPrefix+id)))
	assert.Equal(t, expiredText, h.messenger.last(t).text)
	assert.Len(t, h.deliverer.calls, 1)
}

func TestConfirmUnknownIDExpired(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, ConfirmPrefix+"999")))
	assert.Equal(t, expiredText, h.messenger.last(t).text)
	assert.Empty(t, h.deliverer.calls)
}

func TestConfirmFailureKeepsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	id := h.sendPhoto(t, 42)
	h.deliverer.err = errors.New("smtp down")

	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, ConfirmPrefix+id)))
	assert.Equal(t, failedText, h.messenger.last(t).text)
	_, err := h.store.Resolve(id)
	require.NoError(t, err)

	h.deliverer.err = nil
	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, ConfirmPrefix+id)))
	assert.Contains(t, h.messenger.last(t).text, "Email sent")
}

func TestConfirmWithoutEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(false)
	id := h.sendPhoto(t, 42)
	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, ConfirmPrefix+id)))
	assert.Equal(t, unavailableText, h.messenger.last(t).text)
}

func TestCancelRetiresLatestAndDeletes(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	id := h.sendPhoto(t, 42)
	sent := len(h.messenger.sent)

	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, CancelData)))
	assert.Equal(t, closedToast, h.messenger.answers["cb-cancel"])
	assert.Equal(t, []int{11}, h.messenger.deleted)
	_, err := h.store.Resolve(id)
	assert.ErrorIs(t, err, upload.ErrSessionNotFound)
	assert.Len(t, h.history.Records("42"), 1)
	assert.Len(t, h.messenger.sent, sent)
}

func TestCancelContinuesWhenDeleteFails(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	id := h.sendPhoto(t, 42)
	h.messenger.deleteErr = errors.New("message can't be deleted")

	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(42, CancelData)))
	_, err := h.store.Resolve(id)
	assert.ErrorIs(t, err, upload.ErrSessionNotFound)
}

func TestCancelWithoutHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(7, CancelData)))
	assert.Equal(t, 0, h.store.Len())
}

func TestPlainTextGetsHelp(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	update := tgbotapi.Update{Message: &tgbotapi.Message{Text: "/start", Chat: &tgbotapi.Chat{ID: 5}, From: &tgbotapi.User{ID: 5}}}
	require.NoError(t, h.disp.Handle(context.Background(), update))
	assert.Equal(t, helpText(true), h.messenger.last(t).text)
	assert.Contains(t, helpText(true), "email")
	assert.NotContains(t, helpText(false), "email")
}

func TestUnknownCallbackAnsweredWithHelp(t *testing.T) {
	t.Parallel()

	h := newHarness(false)
	require.NoError(t, h.disp.Handle(context.Background(), callbackUpdate(5, "bogus")))
	_, answered := h.messenger.answers["cb-bogus"]
	assert.True(t, answered)
	assert.Equal(t, helpText(false), h.messenger.last(t).text)
}

func TestEmptyUpdateIsIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(true)
	require.NoError(t, h.disp.Handle(context.Background(), tgbotapi.Update{UpdateID: 1}))
	assert.Empty(t, h.messenger.sent)
}
