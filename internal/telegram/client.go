package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMaxMessageLength = 4096

// ErrMissingToken is returned when the client is used without a bot token.
var ErrMissingToken = errors.New("telegram bot token is required")

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// FileInfo describes a resolved Telegram file.
type FileInfo struct {
	FileID string
	URL    string
	Size   int64
}

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client talks to the Telegram Bot API on behalf of one bot token.
type Client struct {
	logger *slog.Logger
	token  string
	mu     sync.Mutex
	bot    botAPI
}

// NewClient creates a Client. The bot is created lazily on first use because
// tgbotapi.NewBotAPI performs a getMe round trip.
func NewClient(log *slog.Logger, token string) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		logger: log.With(slog.String("adapter", "telegram")),
		token:  strings.TrimSpace(token),
	}
	_ = tgbotapi.SetLogger(&slogBotLogger{log: c.logger})
	return c
}

func (c *Client) getOrCreateBot() (botAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil {
		return c.bot, nil
	}
	if c.token == "" {
		return nil, ErrMissingToken
	}
	bot, err := tgbotapi.NewBotAPI(c.token)
	if err != nil {
		c.logger.Error("create bot failed", slog.Any("error", c.redact(err)))
		return nil, c.redact(err)
	}
	c.bot = bot
	return bot, nil
}

// SendText sends text to chatID. Each keyboard row becomes one row of inline buttons.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, keyboard [][]Button) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	bot, err := c.getOrCreateBot()
	if err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, truncateTelegramText(sanitizeTelegramText(text)))
	if markup, ok := buildKeyboard(keyboard); ok {
		msg.ReplyMarkup = markup
	}
	sent, err := bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", c.redact(err))
	}
	return sent.MessageID, nil
}

// AnswerCallback acknowledges a callback query with an optional toast text.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := c.getOrCreateBot()
	if err != nil {
		return err
	}
	if _, err := bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", c.redact(err))
	}
	return nil
}

// DeleteMessage removes a message previously sent to chatID.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := c.getOrCreateBot()
	if err != nil {
		return err
	}
	if _, err := bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", c.redact(err))
	}
	return nil
}

// ResolveFile maps a file id to its temporary download URL and size.
func (c *Client) ResolveFile(ctx context.Context, fileID string) (FileInfo, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return FileInfo{}, fmt.Errorf("file id is required")
	}
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	bot, err := c.getOrCreateBot()
	if err != nil {
		return FileInfo{}, err
	}
	file, err := bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return FileInfo{}, fmt.Errorf("get file: %w", c.redact(err))
	}
	if strings.TrimSpace(file.FilePath) == "" {
		return FileInfo{}, fmt.Errorf("get file: empty file path for %s", fileID)
	}
	return FileInfo{
		FileID: fileID,
		URL:    file.Link(c.token),
		Size:   int64(file.FileSize),
	}, nil
}

// SetWebhook registers url as the bot's webhook.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("parse webhook url: %w", err)
	}
	bot, err := c.getOrCreateBot()
	if err != nil {
		return err
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", c.redact(err))
	}
	c.logger.Info("webhook registered", slog.String("url", url))
	return nil
}

// UpdateHandler processes one decoded update.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Poll long-polls getUpdates until ctx is done, handling each update on its own
// goroutine. Any registered webhook is removed first since Telegram rejects
// getUpdates while one is set.
func (c *Client) Poll(ctx context.Context, handle UpdateHandler) error {
	bot, err := c.getOrCreateBot()
	if err != nil {
		return err
	}
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", c.redact(err))
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.GetUpdatesChan(updateConfig)
	c.logger.Info("polling started")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			c.logger.Info("polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				handle(ctx, update)
			}()
		}
	}
}

func buildKeyboard(rows [][]Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		if len(buttons) > 0 {
			out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
	}
	if len(out) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}

// PickPhoto returns the photo size with the most pixels, breaking ties on file size.
func PickPhoto(items []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	if len(items) == 0 {
		return tgbotapi.PhotoSize{}
	}
	best := items[0]
	for _, item := range items[1:] {
		area, bestArea := item.Width*item.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && item.FileSize > best.FileSize) {
			best = item
		}
	}
	return best
}

// sanitizeTelegramText ensures text is valid UTF-8 for the Telegram API.
func sanitizeTelegramText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}

// truncateTelegramText truncates text to telegramMaxMessageLength on a valid
// UTF-8 rune boundary, appending "..." when truncation occurs.
func truncateTelegramText(text string) string {
	if len(text) <= telegramMaxMessageLength {
		return text
	}
	const suffix = "..."
	limit := telegramMaxMessageLength - len(suffix)
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + suffix
}

// redact strips the bot token from transport errors, which embed the request URL.
func (c *Client) redact(err error) error {
	if err == nil || c.token == "" || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return &redactedError{err: err, token: c.token}
}

type redactedError struct {
	err   error
	token string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.token, "<redacted>")
}

func (e *redactedError) Unwrap() error { return e.err }

type slogBotLogger struct {
	log *slog.Logger
}

func (l *slogBotLogger) Println(v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *slogBotLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
