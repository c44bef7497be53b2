package eventstream

import "context"

// Publisher publishes check events to an event stream backend.
type Publisher interface {
	PublishCheck(ctx context.Context, event *CheckCompletedEvent) error
	Close() error
}
