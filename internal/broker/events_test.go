package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gestistock/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestHandleMessageRoutesStockLevelChanged(t *testing.T) {
	eh := NewEventHandler()
	var got *models.StockLevelChangedEvent
	eh.OnStockLevelChanged(func(ctx context.Context, e *models.StockLevelChangedEvent) error {
		got = e
		return nil
	})

	event := &models.StockLevelChangedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeStockLevelChanged, Timestamp: time.Now()},
		ProductID: "p1",
		Quantity:  3,
		Threshold: 10,
		Status:    models.StockStatusLow,
	}
	require.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ProductID)
	assert.Equal(t, models.StockStatusLow, got.Status)
}

func TestHandleMessageRoutesSaleCreated(t *testing.T) {
	eh := NewEventHandler()
	var got *models.SaleCreatedEvent
	eh.OnSaleCreated(func(ctx context.Context, e *models.SaleCreatedEvent) error {
		got = e
		return nil
	})

	event := &models.SaleCreatedEvent{
		BaseEvent:  models.BaseEvent{EventID: "e2", EventType: models.EventTypeSaleCreated},
		SaleID:     "s1",
		SaleNumber: "VNT-2026-0001",
		Total:      decimal.NewFromInt(25000),
	}
	require.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(25000)))
}

func TestHandleMessageIgnoresOtherEvents(t *testing.T) {
	eh := NewEventHandler()
	called := false
	eh.OnStockLevelChanged(func(ctx context.Context, e *models.StockLevelChangedEvent) error {
		called = true
		return nil
	})

	event := &models.PaymentRecordedEvent{
		BaseEvent: models.BaseEvent{EventID: "e3", EventType: models.EventTypePaymentRecorded},
		SaleID:    "s1",
	}
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	assert.False(t, called)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")}))
}

func TestHandleMessageSkipsByHeader(t *testing.T) {
	eh := NewEventHandler()
	eh.OnSaleCreated(func(ctx context.Context, e *models.SaleCreatedEvent) error {
		t.Fatal("unexpected dispatch")
		return nil
	})

	// The payload is never decoded when the header names an unrouted type
	msg := kafka.Message{
		Value:   []byte("{not json"),
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte(models.EventTypeClientPromoted)}},
	}
	assert.NoError(t, eh.HandleMessage(context.Background(), msg))
}
