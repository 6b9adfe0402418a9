package service

import (
	"context"
	"fmt"
	"sync"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// NotificationGate holds the three-state notification permission and only
// lets notifications through to the sink once it is granted
type NotificationGate struct {
	mu     sync.Mutex
	state  entity.PermissionState
	sink   service.NotificationSink
	logger *logger.Logger
}

// NewNotificationGate creates a gate in the given initial state
func NewNotificationGate(initial entity.PermissionState, sink service.NotificationSink, logger *logger.Logger) *NotificationGate {
	return &NotificationGate{
		state:  initial,
		sink:   sink,
		logger: logger.WithComponent("notification-gate"),
	}
}

// State returns the current permission
func (g *NotificationGate) State() entity.PermissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Request asks the prompter for permission while the state is still
// default. A decided state is returned as is without prompting.
func (g *NotificationGate) Request(ctx context.Context, prompter service.PermissionPrompter) (entity.PermissionState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != entity.PermissionDefault {
		return g.state, nil
	}

	answer, err := prompter.Prompt(ctx)
	if err != nil {
		return g.state, fmt.Errorf("permission prompt failed: %w", err)
	}

	g.state = answer
	g.logger.Info("Notification permission decided", zap.String("state", string(answer)))
	return g.state, nil
}

// Notify delivers n when permission is granted and silently drops it otherwise
func (g *NotificationGate) Notify(ctx context.Context, n *entity.Notification) error {
	if state := g.State(); state != entity.PermissionGranted {
		g.logger.Debug("Notification suppressed",
			zap.String("state", string(state)),
			zap.String("title", n.Title))
		return nil
	}
	return g.sink.Deliver(ctx, n)
}
