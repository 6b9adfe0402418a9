package messaging

import (
	"context"
	"errors"
	"fmt"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/domain/service"
)

// namedSink labels a sink for error reporting
type namedSink struct {
	name string
	sink service.NotificationSink
}

// FanoutNotifier delivers every notification to all of its sinks. A failing
// sink does not stop delivery to the others.
type FanoutNotifier struct {
	sinks []namedSink
}

// NewFanoutNotifier creates an empty fan-out sink
func NewFanoutNotifier() *FanoutNotifier {
	return &FanoutNotifier{}
}

// Add registers a sink under name
func (f *FanoutNotifier) Add(name string, sink service.NotificationSink) *FanoutNotifier {
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
	return f
}

// Deliver sends n to every sink and joins their errors
func (f *FanoutNotifier) Deliver(ctx context.Context, n *entity.Notification) error {
	var errs error
	for _, s := range f.sinks {
		if err := s.sink.Deliver(ctx, n); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errs
}
