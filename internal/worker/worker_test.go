package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gestistock/internal/broker"
	"gestistock/internal/models"
	"gestistock/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replaySource struct {
	messages []kafka.Message
	failed   int
	closed   bool
}

func (s *replaySource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			s.failed++
		}
	}
	return nil
}

func (s *replaySource) Close() error {
	s.closed = true
	return nil
}

type recordingAlerts struct {
	levels []string
	sales  []string
}

func (a *recordingAlerts) HandleStockLevelChanged(_ context.Context, e *models.StockLevelChangedEvent) error {
	a.levels = append(a.levels, e.ProductID)
	return nil
}

func (a *recordingAlerts) HandleSaleCreated(_ context.Context, e *models.SaleCreatedEvent) error {
	a.sales = append(a.sales, e.SaleNumber)
	return nil
}

func encode(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestAlertWorkerRoutesEvents(t *testing.T) {
	source := &replaySource{messages: []kafka.Message{
		encode(t, &models.StockLevelChangedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeStockLevelChanged},
			ProductID: "p1",
			Status:    models.StockStatusLow,
		}),
		encode(t, &models.SaleCreatedEvent{
			BaseEvent:  models.BaseEvent{EventType: models.EventTypeSaleCreated},
			SaleNumber: "VNT-2026-0007",
		}),
		encode(t, &models.PaymentRecordedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypePaymentRecorded},
		}),
		{Value: []byte("not json")},
	}}
	alerts := &recordingAlerts{}

	w := NewAlertWorker(source, alerts)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	assert.Equal(t, []string{"p1"}, alerts.levels)
	assert.Equal(t, []string{"VNT-2026-0007"}, alerts.sales)
	assert.Equal(t, 1, source.failed)
	assert.True(t, source.closed)
}

type countingScanner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingScanner) ScanStockAlerts(context.Context) (*service.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &service.ScanResult{}, nil
}

func (s *countingScanner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestStockScannerRunsUntilCancelled(t *testing.T) {
	scanner := &countingScanner{err: errors.New("store unavailable")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewStockScanner(scanner, 10*time.Millisecond).Start(ctx) }()

	assert.Eventually(t, func() bool { return scanner.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}

func TestStockScannerDisabled(t *testing.T) {
	scanner := &countingScanner{}
	require.NoError(t, NewStockScanner(scanner, 0).Start(context.Background()))
	assert.Equal(t, 0, scanner.count())
}
