package worker

import (
	"context"
	"time"

	"gestistock/internal/broker"
	"gestistock/internal/models"
	"gestistock/internal/service"
	"gestistock/internal/util"

	"go.uber.org/zap"
)

// Source delivers messages to a handler until its context is cancelled.
// broker.Consumer implements it.
type Source interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// AlertHandler reacts to events that may raise a notification.
// service.NotificationService implements it.
type AlertHandler interface {
	HandleStockLevelChanged(ctx context.Context, event *models.StockLevelChangedEvent) error
	HandleSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
}

// AlertWorker turns stock and sale events into dashboard notifications
type AlertWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewAlertWorker creates a new alert worker
func NewAlertWorker(source Source, alerts AlertHandler) *AlertWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnStockLevelChanged(alerts.HandleStockLevelChanged)
	eventHandler.OnSaleCreated(alerts.HandleSaleCreated)

	return &AlertWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes events until ctx is cancelled
func (w *AlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting alert worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AlertWorker) Stop() error {
	w.logger.Info("Stopping alert worker")
	return w.source.Close()
}

// Scanner is the periodic stock check. service.NotificationService implements it.
type Scanner interface {
	ScanStockAlerts(ctx context.Context) (*service.ScanResult, error)
}

// StockScanner runs a full stock alert scan at a fixed interval. It catches
// alerts for products whose events were never consumed.
type StockScanner struct {
	scanner  Scanner
	interval time.Duration
	logger   *zap.Logger
}

// NewStockScanner creates a new scanner; a non-positive interval disables it
func NewStockScanner(scanner Scanner, interval time.Duration) *StockScanner {
	return &StockScanner{
		scanner:  scanner,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start scans once immediately and then on every tick until ctx is cancelled
func (s *StockScanner) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("Stock scanner disabled")
		return nil
	}
	s.logger.Info("Starting stock scanner", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.scan(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("Stock scanner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *StockScanner) scan(ctx context.Context) {
	res, err := s.scanner.ScanStockAlerts(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Stock scan failed", zap.Error(err))
		}
		return
	}
	s.logger.Debug("Stock scan finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("low", res.Low),
		zap.Int("out", res.Out))
}
