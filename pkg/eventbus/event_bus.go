// Package eventbus publishes pipeline events and dispatches them to handlers.
package eventbus

import (
	"context"
	"errors"

	"github.com/dukex/idpflow/pkg/events"
)

var ErrAlreadySubscribed = errors.New("event bus already subscribed")

type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events keyed by the pipeline they belong to.
type EventPublisher interface {
	Publish(ctx context.Context, pipelineID string, event Event) error
}

// EventSubscriber dispatches received events to every handler registered
// for their type. Handlers must be registered before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.RunFailed.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
