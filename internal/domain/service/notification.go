package service

import (
	"context"

	"crypto-donation-tracker/internal/domain/entity"
)

// NotificationSink delivers a notification to some audience surface
type NotificationSink interface {
	Deliver(ctx context.Context, n *entity.Notification) error
}

// PermissionPrompter asks the audience whether notifications may be shown.
// It is only consulted while the permission is still undecided.
type PermissionPrompter interface {
	Prompt(ctx context.Context) (entity.PermissionState, error)
}

// PrompterFunc adapts a function into a PermissionPrompter
type PrompterFunc func(ctx context.Context) (entity.PermissionState, error)

// Prompt calls f
func (f PrompterFunc) Prompt(ctx context.Context) (entity.PermissionState, error) {
	return f(ctx)
}
