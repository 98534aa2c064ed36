// Package eventbus provides the messaging infrastructure the engine uses
// to announce lifecycle and audit events and to receive business events.
package eventbus

import (
	"context"

	"github.com/coinflux/ruleflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
	Key() string
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventHandler func(ctx context.Context, event any) error

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
