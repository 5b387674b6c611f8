package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/idpflow/pkg/events"
)

// WatermillEventBus carries pipeline events over any watermill pub/sub.
// Delivery is best effort: every message is acked once its handlers ran, and
// handler errors are only logged.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu         sync.RWMutex
	handlers   map[events.EventType][]EventHandler
	subscribed bool
	done       chan struct{}
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "eventbus"),
		handlers:   make(map[events.EventType][]EventHandler),
		done:       make(chan struct{}),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, pipelineID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, pipelineID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	if err := eb.publisher.Publish(events.Topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.GetType(), err)
	}

	return nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for %s", eventType)
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)

	return nil
}

// Subscribe starts consuming the pipeline topic until ctx ends or the bus is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	eb.mu.Lock()
	if eb.subscribed {
		eb.mu.Unlock()

		return ErrAlreadySubscribed
	}

	eb.subscribed = true
	eb.mu.Unlock()

	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		eb.mu.Lock()
		eb.subscribed = false
		eb.mu.Unlock()

		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		defer close(eb.done)

		for msg := range messages {
			eb.dispatch(ctx, msg)
			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))
	logger := eb.logger.With("event_type", eventType, "pipeline_id", msg.Metadata.Get(events.EventMetadataKey))

	eb.mu.RLock()
	handlers := eb.handlers[eventType]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := events.New(eventType)
	if event == nil {
		logger.WarnContext(ctx, "Dropping event of unknown type", "message_id", msg.UUID)

		return
	}

	if err := json.Unmarshal(msg.Payload, event); err != nil {
		logger.WarnContext(ctx, "Dropping undecodable event", "message_id", msg.UUID, "error", err)

		return
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			logger.WarnContext(ctx, "Event handler failed", "error", err)
		}
	}
}

// Close stops both sides and waits for in-flight handlers.
func (eb *WatermillEventBus) Close() error {
	err := errors.Join(eb.publisher.Close(), eb.subscriber.Close())

	eb.mu.RLock()
	subscribed := eb.subscribed
	eb.mu.RUnlock()

	if subscribed {
		<-eb.done
	}

	return err
}
