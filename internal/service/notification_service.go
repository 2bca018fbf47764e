package service

import (
	"context"
	"fmt"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/store"
	"gestistock/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationListLimit caps the number of notifications returned by List
const NotificationListLimit = 50

// NotificationService raises and manages dashboard alerts
type NotificationService struct {
	repo   store.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo store.Repository) *NotificationService {
	return &NotificationService{
		repo:   repo,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// NotificationList is a page of notifications with the global unread count
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// ScanResult counts the alerts raised by a scan
type ScanResult struct {
	Scanned int `json:"scanned"`
	Low     int `json:"low"`
	Out     int `json:"out"`
}

// List returns the newest notifications and the unread count
func (s *NotificationService) List(ctx context.Context, unreadOnly bool) (*NotificationList, error) {
	notifications, err := s.repo.ListNotifications(ctx, unreadOnly, NotificationListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.repo.CountUnreadNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &NotificationList{Notifications: notifications, UnreadCount: unread}, nil
}

// MarkRead flags one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.repo.MarkNotificationRead(ctx, id)
	if err != nil {
		return nil, notFound(err, "notification", id)
	}
	return n, nil
}

// MarkAllRead flags every notification as read
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.repo.MarkAllNotificationsRead(ctx)
}

// Delete removes a notification
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return notFound(err, "notification", id)
	}
	return nil
}

// ScanStockAlerts raises a stock_low or stock_out notification for every
// alerting product that has no unread notification of that type yet.
func (s *NotificationService) ScanStockAlerts(ctx context.Context) (*ScanResult, error) {
	ctx, span := util.StartSpan(ctx, "NotificationService.ScanStockAlerts")
	defer span.End()

	products, err := s.repo.ListProducts(ctx, store.ProductFilter{
		Statuses: []string{models.StockStatusLow, models.StockStatusOut},
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to list alerting products: %w", err)
	}

	result := &ScanResult{Scanned: len(products)}
	for i := range products {
		created, err := s.raiseStockAlert(ctx, products[i].ID, products[i].Name, products[i].Unit, products[i].Quantity, products[i].Status)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}
		if products[i].Status == models.StockStatusOut {
			result.Out++
		} else {
			result.Low++
		}
	}

	if result.Low+result.Out > 0 {
		s.logger.Info("Stock alerts raised", zap.Int("low", result.Low), zap.Int("out", result.Out))
	}
	return result, nil
}

// HandleStockLevelChanged raises an alert for the product in the event when its status calls for one
func (s *NotificationService) HandleStockLevelChanged(ctx context.Context, event *models.StockLevelChangedEvent) error {
	if event.Status != models.StockStatusLow && event.Status != models.StockStatusOut {
		return nil
	}
	_, err := s.raiseStockAlert(ctx, event.ProductID, event.ProductName, event.Unit, event.Quantity, event.Status)
	return err
}

// HandleSaleCreated records a sale notification
func (s *NotificationService) HandleSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	n := &models.Notification{
		ID:        uuid.New().String(),
		Type:      models.NotificationSale,
		Title:     "New sale",
		Message:   fmt.Sprintf("Sale %s recorded for %s", event.SaleNumber, event.Total.StringFixed(0)),
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create sale notification: %w", err)
	}
	return nil
}

func (s *NotificationService) raiseStockAlert(ctx context.Context, productID, productName, unit string, quantity int, status string) (bool, error) {
	notificationType, title, message := models.NotificationStockLow, "Low stock",
		fmt.Sprintf("%s is running low: %d %s left", productName, quantity, unit)
	if status == models.StockStatusOut {
		notificationType, title, message = models.NotificationStockOut, "Out of stock",
			fmt.Sprintf("%s is out of stock", productName)
	}

	exists, err := s.repo.HasUnreadNotification(ctx, notificationType, productID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing alerts: %w", err)
	}
	if exists {
		return false, nil
	}

	id := productID
	n := &models.Notification{
		ID:          uuid.New().String(),
		Type:        notificationType,
		Title:       title,
		Message:     message,
		ProductID:   &id,
		ProductName: productName,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return false, fmt.Errorf("failed to create %s notification: %w", notificationType, err)
	}
	util.StockAlertsCreatedTotal.WithLabelValues(notificationType).Inc()
	return true, nil
}
