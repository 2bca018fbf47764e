package service

import (
	"context"
	"time"

	"gestistock/internal/models"

	"github.com/google/uuid"
)

// EventPublisher is the outbound side of the event stream. broker.EventPublisher implements it.
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
	PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error
	PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error
	PublishClientPromoted(ctx context.Context, event *models.ClientPromotedEvent) error
	PublishStockLevelChanged(ctx context.Context, event *models.StockLevelChangedEvent) error
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func stockLevelChanged(p *models.Product, cause string) *models.StockLevelChangedEvent {
	return &models.StockLevelChangedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeStockLevelChanged),
		ProductID:   p.ID,
		ProductName: p.Name,
		Unit:        p.Unit,
		Quantity:    p.Quantity,
		Threshold:   p.Threshold,
		Status:      p.Status,
		Cause:       cause,
	}
}

func saleItemData(items []models.SaleItem) []models.SaleItemData {
	out := make([]models.SaleItemData, len(items))
	for i, item := range items {
		out[i] = models.SaleItemData{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return out
}
