// Package eventbus provides the messaging layer connecting trigger sources,
// the scheduler, and execution workers.
package eventbus

import (
	"context"

	"github.com/flowgrid/flowgrid/pkg/events"
)

type EventHandler func(ctx context.Context, event any) error

type EventPublisher interface {
	Publish(ctx context.Context, key string, event events.Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
