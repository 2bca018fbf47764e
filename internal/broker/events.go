package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"gestistock/internal/models"
	"gestistock/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleCreated publishes SaleCreated event
func (ep *EventPublisher) PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, "sale-"+event.SaleID, event)
}

// PublishSaleCancelled publishes SaleCancelled event
func (ep *EventPublisher) PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, "sale-"+event.SaleID, event)
}

// PublishPaymentRecorded publishes PaymentRecorded event
func (ep *EventPublisher) PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, "sale-"+event.SaleID, event)
}

// PublishClientPromoted publishes ClientPromoted event
func (ep *EventPublisher) PublishClientPromoted(ctx context.Context, event *models.ClientPromotedEvent) error {
	return ep.producer.PublishEvent(ctx, "client-"+event.ClientID, event)
}

// PublishStockLevelChanged publishes StockLevelChanged event
func (ep *EventPublisher) PublishStockLevelChanged(ctx context.Context, event *models.StockLevelChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "product-"+event.ProductID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onStockLevelChanged func(context.Context, *models.StockLevelChangedEvent) error
	onSaleCreated       func(context.Context, *models.SaleCreatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockLevelChanged registers a handler for StockLevelChanged events
func (eh *EventHandler) OnStockLevelChanged(handler func(context.Context, *models.StockLevelChangedEvent) error) {
	eh.onStockLevelChanged = handler
}

// OnSaleCreated registers a handler for SaleCreated events
func (eh *EventHandler) OnSaleCreated(handler func(context.Context, *models.SaleCreatedEvent) error) {
	eh.onSaleCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if t, ok := headerValue(msg, EventTypeHeader); ok && !eh.routes(t) {
		return nil
	}

	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeStockLevelChanged:
		if eh.onStockLevelChanged != nil {
			var event models.StockLevelChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockLevelChanged event: %w", err)
			}
			return eh.onStockLevelChanged(ctx, &event)
		}

	case models.EventTypeSaleCreated:
		if eh.onSaleCreated != nil {
			var event models.SaleCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCreated event: %w", err)
			}
			return eh.onSaleCreated(ctx, &event)
		}

	case models.EventTypeSaleCancelled, models.EventTypePaymentRecorded, models.EventTypeClientPromoted:
		// Consumed by other services

	default:
		logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}

func (eh *EventHandler) routes(eventType string) bool {
	switch eventType {
	case models.EventTypeStockLevelChanged:
		return eh.onStockLevelChanged != nil
	case models.EventTypeSaleCreated:
		return eh.onSaleCreated != nil
	}
	return false
}

func headerValue(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
