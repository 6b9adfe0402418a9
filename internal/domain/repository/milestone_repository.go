package repository

import "context"

// MilestoneRepository persists the set-once "seen" flags of milestone
// notifications. Keys look like milestone-{percent}-seen. The tracker never
// clears them; only operator tooling calls Reset when a campaign restarts.
type MilestoneRepository interface {
	// HasSeen reports whether the flag for key has been set
	HasSeen(ctx context.Context, key string) (bool, error)

	// MarkSeen sets the flag for key; setting it twice is a no-op
	MarkSeen(ctx context.Context, key string) error

	// Reset deletes every flag and returns how many were removed
	Reset(ctx context.Context) (int64, error)
}
