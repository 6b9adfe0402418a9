package service

import (
	"context"
	"fmt"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/domain/repository"
	"crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MilestoneService derives milestone state for a cycle and emits the
// one-shot unlock notifications
type MilestoneService struct {
	milestones []entity.Milestone
	repo       repository.MilestoneRepository
	gate       *NotificationGate
	title      string
	icon       string
	clickURL   string
	tag        string
	logger     *logger.Logger
}

// NewMilestoneService creates a milestone service from the campaign config
func NewMilestoneService(
	cfg *config.Config,
	repo repository.MilestoneRepository,
	gate *NotificationGate,
	logger *logger.Logger,
) *MilestoneService {
	milestones := make([]entity.Milestone, 0, len(cfg.Campaign.Milestones))
	for _, m := range cfg.Campaign.Milestones {
		milestones = append(milestones, entity.Milestone{Percent: m.Percent, Label: m.Label, Message: m.Message})
	}

	return &MilestoneService{
		milestones: milestones,
		repo:       repo,
		gate:       gate,
		title:      fmt.Sprintf("Milestone Unlocked for %s!", cfg.Campaign.Beneficiary),
		icon:       cfg.Notifications.Icon,
		clickURL:   cfg.Notifications.ClickURL,
		tag:        cfg.Notifications.Tag,
		logger:     logger.WithComponent("milestone-service"),
	}
}

// Milestones returns the configured milestone list
func (s *MilestoneService) Milestones() []entity.Milestone {
	return s.milestones
}

// Update computes the unlock state at percent. Every unlocked milestone not
// yet marked as seen is marked and announced once; the mark is kept even
// when the gate suppresses delivery.
func (s *MilestoneService) Update(ctx context.Context, percent float64) []entity.MilestoneState {
	states := service.MilestoneStates(s.milestones, percent)

	var unlocks []entity.Milestone
	for _, state := range states {
		if !state.Unlocked {
			continue
		}

		key := state.SeenKey()
		seen, err := s.repo.HasSeen(ctx, key)
		if err != nil {
			s.logger.Error("Failed to read milestone flag", zap.String("key", key), zap.Error(err))
			continue
		}
		if seen {
			continue
		}

		if err := s.repo.MarkSeen(ctx, key); err != nil {
			s.logger.Error("Failed to persist milestone flag", zap.String("key", key), zap.Error(err))
			continue
		}
		unlocks = append(unlocks, state.Milestone)
	}

	for _, m := range unlocks {
		n := &entity.Notification{
			ID:    uuid.NewString(),
			Title: s.title,
			Body:  m.Message,
			Icon:  s.icon,
			URL:   s.clickURL,
			Tag:   s.tag,
		}
		if err := s.gate.Notify(ctx, n); err != nil {
			s.logger.Error("Failed to deliver milestone notification",
				zap.Int("percent", m.Percent),
				zap.Error(err))
			continue
		}
		s.logger.Info("Milestone unlocked", zap.Int("percent", m.Percent))
	}

	return states
}
