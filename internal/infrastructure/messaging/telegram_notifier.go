package messaging

import (
	"context"
	"fmt"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier posts milestone notifications to a Telegram chat
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logger.Logger
}

// NewTelegramNotifier authenticates the bot; this performs a getMe call
func NewTelegramNotifier(cfg *config.TelegramConfig, logger *logger.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, cfg.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log := logger.WithComponent("telegram-notifier")
	log.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &TelegramNotifier{bot: bot, chatID: cfg.ChatID, logger: log}, nil
}

// Deliver sends n as a plain text message with the click URL appended
func (s *TelegramNotifier) Deliver(ctx context.Context, n *entity.Notification) error {
	text := fmt.Sprintf("%s\n\n%s", n.Title, n.Body)
	if n.URL != "" {
		text += "\n" + n.URL
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	s.logger.Debug("Telegram notification sent", zap.String("id", n.ID))
	return nil
}
