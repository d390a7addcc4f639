package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/blobber/internal/config"
	"github.com/semmidev/blobber/internal/domain"
)

// TelegramNotifier posts upload URLs and sweep summaries to a chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	return newTelegram(cfg, tgbotapi.APIEndpoint, &http.Client{})
}

func newTelegram(cfg *config.TelegramConfig, endpoint string, client tgbotapi.HTTPClient) (*TelegramNotifier, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat_id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, message)); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(ctx context.Context, message string) error { return nil }

var (
	_ domain.Notifier = (*TelegramNotifier)(nil)
	_ domain.Notifier = Nop{}
)
