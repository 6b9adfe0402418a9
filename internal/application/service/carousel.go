package service

import (
	"context"
	"sync"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"
)

// Carousel rotates through testimonials on a fixed interval
type Carousel struct {
	mu       sync.RWMutex
	items    []entity.Testimonial
	index    int
	interval time.Duration
	logger   *logger.Logger
}

// NewCarousel creates a carousel positioned on the first testimonial
func NewCarousel(cfg *config.Config, logger *logger.Logger) *Carousel {
	items := make([]entity.Testimonial, 0, len(cfg.Testimonials.Items))
	for _, t := range cfg.Testimonials.Items {
		items = append(items, entity.Testimonial{Author: t.Author, Quote: t.Quote})
	}
	return &Carousel{
		items:    items,
		interval: cfg.Testimonials.Interval,
		logger:   logger.WithComponent("carousel"),
	}
}

// Current returns the active testimonial and its index; ok is false when
// there are no testimonials
func (c *Carousel) Current() (entity.Testimonial, int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		return entity.Testimonial{}, 0, false
	}
	return c.items[c.index], c.index, true
}

// Next advances to the following testimonial, wrapping at the end
func (c *Carousel) Next() (entity.Testimonial, int, bool) {
	return c.step(1)
}

// Prev goes back one testimonial, wrapping at the start
func (c *Carousel) Prev() (entity.Testimonial, int, bool) {
	return c.step(-1)
}

func (c *Carousel) step(delta int) (entity.Testimonial, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	if n == 0 {
		return entity.Testimonial{}, 0, false
	}
	c.index = (c.index + delta + n) % n
	return c.items[c.index], c.index, true
}

// Run advances the carousel every interval until ctx is done
func (c *Carousel) Run(ctx context.Context) {
	if c.interval <= 0 || len(c.items) < 2 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Carousel stopped")
			return
		case <-ticker.C:
			c.Next()
		}
	}
}
