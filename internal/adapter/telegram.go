package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/treadwise/agent/internal/config"
	twErrors "github.com/treadwise/agent/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxMessage is Telegram's per-message text limit, in characters.
const telegramMaxMessage = 4096

type TelegramAdapter struct {
	token         string
	updateTimeout int
	eventHandler  EventHandler

	mu  sync.RWMutex
	bot *tgbotapi.BotAPI
}

func NewTelegramAdapter(token string, eventHandler EventHandler, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		eventHandler:  eventHandler,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return twErrors.Wrap(err, "failed to init telegram bot")
	}
	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()

	slog.Info("Telegram Adapter started", "user", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	t.mu.RLock()
	bot := t.bot
	t.mu.RUnlock()
	if bot != nil {
		bot.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	sessionID := strconv.FormatInt(msg.Chat.ID, 10)

	// UpdateID is unique per bot, which makes it the redelivery key.
	metadata := map[string]string{
		MetaEventID: strconv.Itoa(update.UpdateID),
		"msg_id":    strconv.Itoa(msg.MessageID),
	}
	if msg.From != nil {
		metadata[MetaUserID] = strconv.FormatInt(msg.From.ID, 10)
		metadata[MetaUserName] = msg.From.UserName
	}

	if t.eventHandler != nil {
		if err := t.eventHandler(ctx, t.Name(), EventTypeUserMessage, sessionID, msg.Text, metadata); err != nil && !errors.Is(err, twErrors.ErrDuplicateEvent) {
			slog.Error("Failed to handle Telegram event", "error", err)
		}
	}
}

// Send sends a reply back to Telegram, split into chunks the API accepts.
func (t *TelegramAdapter) Send(ctx context.Context, sessionID string, content string) error {
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return twErrors.InvalidInput("invalid telegram session ID: " + err.Error())
	}

	t.mu.RLock()
	bot := t.bot
	t.mu.RUnlock()
	if bot == nil {
		return twErrors.Transient("Telegram bot not initialized")
	}

	for _, chunk := range splitMessage(content, telegramMaxMessage) {
		if _, err := bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return twErrors.Wrap(err, "failed to send telegram message")
		}
	}

	slog.Debug("Telegram message sent", "chat_id", sessionID)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	t.mu.RLock()
	bot := t.bot
	t.mu.RUnlock()
	if bot == nil {
		return twErrors.Transient("Telegram bot not initialized")
	}

	if _, err := bot.GetMe(); err != nil {
		return twErrors.Transient(fmt.Sprintf("Telegram connection failed: %v", err))
	}
	return nil
}

// splitMessage cuts s into pieces of at most limit runes.
func splitMessage(s string, limit int) []string {
	r := []rune(s)
	if len(r) <= limit {
		return []string{s}
	}
	var out []string
	for len(r) > 0 {
		n := limit
		if len(r) < n {
			n = len(r)
		}
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return out
}
