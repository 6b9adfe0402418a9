package messaging

import (
	"context"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log sink
func NewLogNotifier(logger *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent("log-notifier")}
}

// Deliver logs n
func (s *LogNotifier) Deliver(ctx context.Context, n *entity.Notification) error {
	s.logger.Info("Notification",
		zap.String("id", n.ID),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.String("url", n.URL))
	return nil
}
