package store

import (
	"context"

	"gestistock/internal/models"
)

const movementColumns = `id, type, product_id, product_name, quantity, unit, reason, user_id,
	user_name, comment, created_at`

const notificationColumns = `id, type, title, message, product_id, product_name, read, created_at`

// GetMovement retrieves a stock movement by ID
func (q *Queries) GetMovement(ctx context.Context, id string) (*models.StockMovement, error) {
	var movement models.StockMovement
	if err := q.getOne(ctx, &movement, "SELECT "+movementColumns+" FROM stock_movements WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &movement, nil
}

// ListMovements retrieves stock movements matching the filter, newest first
func (q *Queries) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error) {
	var w where
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(product_name ILIKE ? OR user_name ILIKE ? OR reason ILIKE ?)", p, p, p)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}
	if filter.ProductID != "" {
		w.add("product_id = ?", filter.ProductID)
	}
	w.addTimeRange("created_at", filter.From, filter.To)

	query, args, err := w.build("SELECT "+movementColumns+" FROM stock_movements", "ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	movements := []models.StockMovement{}
	err = q.q.SelectContext(ctx, &movements, query, args...)
	return movements, err
}

// CreateMovement inserts a stock movement
func (q *Queries) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	_, err := q.q.NamedExecContext(ctx, `
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES (:id, :type, :product_id, :product_name, :quantity, :unit, :reason, :user_id,
			:user_name, :comment, :created_at)`, movement)
	return err
}

// UpdateMovementComment changes the only mutable field of a movement
func (q *Queries) UpdateMovementComment(ctx context.Context, id, comment string) error {
	return q.execOne(ctx, "UPDATE stock_movements SET comment = $1 WHERE id = $2", comment, id)
}

// DeleteMovement removes a stock movement
func (q *Queries) DeleteMovement(ctx context.Context, id string) error {
	return q.execOne(ctx, "DELETE FROM stock_movements WHERE id = $1", id)
}

// CreateNotification inserts a notification
func (q *Queries) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := q.q.NamedExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :type, :title, :message, :product_id, :product_name, :read, :created_at)`, n)
	return err
}

// HasUnreadNotification checks for an unread notification of a type about a product
func (q *Queries) HasUnreadNotification(ctx context.Context, notificationType, productID string) (bool, error) {
	var exists bool
	err := q.q.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM notifications WHERE type = $1 AND product_id = $2 AND read = FALSE)",
		notificationType, productID)
	return exists, err
}

// ListNotifications retrieves the most recent notifications
func (q *Queries) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	var w where
	if unreadOnly {
		w.add("read = FALSE")
	}
	query, args, err := w.build("SELECT "+notificationColumns+" FROM notifications", "ORDER BY created_at DESC LIMIT ?")
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	notifications := []models.Notification{}
	err = q.q.SelectContext(ctx, &notifications, query, args...)
	return notifications, err
}

// CountUnreadNotifications counts notifications not yet read
func (q *Queries) CountUnreadNotifications(ctx context.Context) (int, error) {
	var count int
	err := q.q.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE read = FALSE")
	return count, err
}

// MarkNotificationRead flags a notification as read and returns it
func (q *Queries) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	err := q.getOne(ctx, &n,
		"UPDATE notifications SET read = TRUE WHERE id = $1 RETURNING "+notificationColumns, id)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllNotificationsRead flags every notification as read
func (q *Queries) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := q.q.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE read = FALSE")
	return err
}

// DeleteNotification removes a notification
func (q *Queries) DeleteNotification(ctx context.Context, id string) error {
	return q.execOne(ctx, "DELETE FROM notifications WHERE id = $1", id)
}
