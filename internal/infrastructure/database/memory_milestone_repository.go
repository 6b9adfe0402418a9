package database

import (
	"context"
	"sync"

	"crypto-donation-tracker/internal/domain/repository"
)

// MemoryMilestoneRepository keeps milestone flags for the life of the process
type MemoryMilestoneRepository struct {
	mu   sync.RWMutex
	seen map[string]bool
}

// NewMemoryMilestoneRepository creates an empty in-memory flag store
func NewMemoryMilestoneRepository() repository.MilestoneRepository {
	return &MemoryMilestoneRepository{seen: make(map[string]bool)}
}

// HasSeen reports whether key was marked
func (r *MemoryMilestoneRepository) HasSeen(ctx context.Context, key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seen[key], nil
}

// MarkSeen marks key
func (r *MemoryMilestoneRepository) MarkSeen(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[key] = true
	return nil
}

// Reset clears every flag
func (r *MemoryMilestoneRepository) Reset(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.seen))
	r.seen = make(map[string]bool)
	return n, nil
}
