package nop

import (
	"context"

	"github.com/papercomputeco/rtcheck/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCheck validates input and otherwise does nothing.
func (p *Publisher) PublishCheck(_ context.Context, event *eventstream.CheckCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilCheckEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
