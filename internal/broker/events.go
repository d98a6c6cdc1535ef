package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// CartEventPublisher publishes cart activity events keyed by session id.
type CartEventPublisher struct {
	producer *Producer
}

// NewCartEventPublisher creates a publisher on an existing producer.
func NewCartEventPublisher(producer *Producer) *CartEventPublisher {
	return &CartEventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishItemAdded publishes a CartItemAdded event.
func (p *CartEventPublisher) PublishItemAdded(ctx context.Context, sessionID, productID string, quantity int) error {
	event := models.CartItemAddedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCartItemAdded),
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return p.producer.Publish(ctx, sessionID, event)
}

// PublishQuantityChanged publishes a CartQuantityChanged event.
func (p *CartEventPublisher) PublishQuantityChanged(ctx context.Context, sessionID, productID string, quantity int) error {
	event := models.CartQuantityChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCartQuantityChanged),
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return p.producer.Publish(ctx, sessionID, event)
}

// PublishItemRemoved publishes a CartItemRemoved event.
func (p *CartEventPublisher) PublishItemRemoved(ctx context.Context, sessionID, productID string) error {
	event := models.CartItemRemovedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCartItemRemoved),
		SessionID: sessionID,
		ProductID: productID,
	}
	return p.producer.Publish(ctx, sessionID, event)
}

// PublishCleared publishes a CartCleared event.
func (p *CartEventPublisher) PublishCleared(ctx context.Context, sessionID string) error {
	event := models.CartClearedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCartCleared),
		SessionID: sessionID,
	}
	return p.producer.Publish(ctx, sessionID, event)
}

// EventHandler dispatches consumed cart events to registered callbacks.
type EventHandler struct {
	onItemAdded func(context.Context, *models.CartItemAddedEvent) error
}

// NewEventHandler creates an empty handler.
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnItemAdded registers a callback for CartItemAdded events.
func (h *EventHandler) OnItemAdded(fn func(context.Context, *models.CartItemAddedEvent) error) {
	h.onItemAdded = fn
}

// HandleMessage decodes a message and routes it by event type. Unknown types
// are ignored so the topic can carry more event kinds than this consumer
// cares about.
func (h *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch base.EventType {
	case models.EventTypeCartItemAdded:
		if h.onItemAdded != nil {
			var event models.CartItemAddedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CartItemAdded event: %w", err)
			}
			return h.onItemAdded(ctx, &event)
		}
	}

	return nil
}
