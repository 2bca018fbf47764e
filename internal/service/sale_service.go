package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/redisclient"
	"gestistock/internal/store"
	"gestistock/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InitialPaymentNote is attached to the payment recorded together with a sale
const InitialPaymentNote = "initial payment"

const idempotencyLockTTL = 30 * time.Second

// SaleService records sales, their payments and their cancellation
type SaleService struct {
	repo   store.Repository
	redis  *redisclient.Client
	events EventPublisher
	policy Policy
	cache  statsCache
	now    func() time.Time
	logger *zap.Logger
}

// NewSaleService creates a new sale service. redis and events may be nil.
func NewSaleService(
	repo store.Repository,
	redis *redisclient.Client,
	events EventPublisher,
	policy Policy,
) *SaleService {
	return &SaleService{
		repo:   repo,
		redis:  redis,
		events: events,
		policy: policy,
		cache:  statsCache{redis: redis, ttl: policy.StatsCacheTTL},
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// CreateSaleRequest represents a request to record a sale
type CreateSaleRequest struct {
	ClientID       string            `json:"client" binding:"required"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,max=200,dive"`
	InitialPayment *decimal.Decimal  `json:"initial_payment,omitempty"`
	PaymentMethod  string            `json:"payment_method" binding:"required,payment_method"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Notes          string            `json:"notes,omitempty" binding:"max=1000"`
	IdempotencyKey string            `json:"-"`
}

// SaleItemRequest represents one requested line. The quantity ceiling is models.MaxQuantity.
type SaleItemRequest struct {
	ProductID string `json:"product" binding:"required"`
	Quantity  int    `json:"quantity" binding:"min=1,max=2147483647"`
}

func (r *CreateSaleRequest) validate() error {
	if err := checkShape(r); err != nil {
		return err
	}
	if r.InitialPayment != nil {
		return checkMoney("initial_payment", *r.InitialPayment)
	}
	return nil
}

// AddPaymentRequest represents an installment against an existing sale
type AddPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" binding:"required,payment_method"`
	Notes         string          `json:"notes,omitempty" binding:"max=1000"`
}

// UpdateSaleRequest changes the fields of a sale that are not derived from its lines
type UpdateSaleRequest struct {
	Status  *string    `json:"status,omitempty" binding:"omitempty,sale_status"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Notes   *string    `json:"notes,omitempty" binding:"omitempty,max=1000"`
}

// OutstandingSales lists completed sales that still have something due
type OutstandingSales struct {
	Count            int             `json:"count"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	Sales            []models.Sale   `json:"sales"`
}

// SalesStats is the sales dashboard summary
type SalesStats struct {
	TodayCount       int             `json:"today_count"`
	TodayTotal       decimal.Decimal `json:"today_total"`
	MonthCount       int             `json:"month_count"`
	MonthTotal       decimal.Decimal `json:"month_total"`
	AverageBasket    decimal.Decimal `json:"average_basket"`
	OutstandingCount int             `json:"outstanding_count"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// CreateSale validates the cart against stock, then in one transaction
// decrements every product, persists the sale and updates the client.
func (s *SaleService) CreateSale(ctx context.Context, actor models.Actor, req *CreateSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CreateSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if err := req.validate(); err != nil {
		util.SalesFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" && s.redis != nil {
		existing, err := s.replay(ctx, req.IdempotencyKey)
		if err != nil || existing != nil {
			return existing, err
		}

		acquired, err := s.redis.AcquireLock(ctx, "sale:"+req.IdempotencyKey, idempotencyLockTTL)
		if err != nil {
			s.logger.Warn("Failed to acquire idempotency lock, continuing without it", zap.Error(err))
		} else if !acquired {
			return nil, ErrRequestInProgress
		} else {
			defer func() {
				if err := s.redis.ReleaseLock(ctx, "sale:"+req.IdempotencyKey); err != nil {
					s.logger.Warn("Failed to release idempotency lock", zap.Error(err))
				}
			}()
			// A concurrent request may have completed between the first check and the lock
			existing, err := s.replay(ctx, req.IdempotencyKey)
			if err != nil || existing != nil {
				return existing, err
			}
		}
	}

	requested, ids, err := requestedQuantities(req.Items)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	var (
		sale     *models.Sale
		client   *models.Client
		touched  []*models.Product
		promoted bool
	)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		client, err = tx.GetClientForUpdate(ctx, req.ClientID)
		if err != nil {
			return notFound(err, "client", req.ClientID)
		}

		products := make(map[string]*models.Product, len(ids))
		for _, id := range ids {
			p, err := tx.GetProductForUpdate(ctx, id)
			if err != nil {
				return notFound(err, "product", id)
			}
			products[id] = p
		}

		// Every line is checked before anything is mutated
		for _, item := range req.Items {
			p := products[item.ProductID]
			if p.Quantity < requested[p.ID] {
				return &InsufficientStockError{ProductName: p.Name, Available: p.Quantity, Requested: requested[p.ID]}
			}
		}

		now := s.now()
		sale = &models.Sale{
			ID:         uuid.New().String(),
			ClientID:   client.ID,
			ClientName: client.Name,
			Items:      make([]models.SaleItem, 0, len(req.Items)),
			Payments:   []models.Payment{},
			Status:     models.SaleStatusCompleted,
			DueDate:    req.DueDate,
			UserID:     actor.ID,
			UserName:   actor.Name,
			Notes:      req.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		subtotal := decimal.Zero
		for _, item := range req.Items {
			p := products[item.ProductID]
			lineTotal := p.SellPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			sale.Items = append(sale.Items, models.SaleItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				Unit:        p.Unit,
				Price:       p.SellPrice,
				Total:       lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)
		}
		sale.Subtotal = subtotal
		sale.Tax = decimal.Zero
		sale.Total = subtotal.Add(sale.Tax)
		if !models.IsStorableAmount(sale.Total) {
			return invalid("items", "sale total exceeds the maximum amount")
		}

		paid := decimal.Zero
		if req.InitialPayment != nil {
			paid = *req.InitialPayment
		}
		if paid.GreaterThan(sale.Total) {
			return invalidAmount(paid, sale.Total)
		}
		sale.AmountPaid = paid
		sale.AmountDue = sale.Total.Sub(paid)
		sale.PaymentStatus = models.PaymentStatusFor(paid, sale.Total)
		if paid.IsPositive() {
			sale.Payments = append(sale.Payments, models.Payment{
				Amount:   paid,
				Method:   req.PaymentMethod,
				PaidAt:   now,
				UserID:   actor.ID,
				UserName: actor.Name,
				Notes:    InitialPaymentNote,
			})
		}

		for _, id := range ids {
			p := products[id]
			previous := p.Quantity
			p.SetQuantity(previous - requested[id])
			p.UpdatedAt = now
			if err := tx.UpdateProductStock(ctx, p, previous); err != nil {
				return fmt.Errorf("failed to update stock for %s: %w", p.Name, err)
			}
			touched = append(touched, p)
		}

		seq, err := tx.NextSaleSequence(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate sale number: %w", err)
		}
		sale.SaleNumber = models.FormatSaleNumber(now.Year(), seq)

		if err := tx.CreateSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		client.TotalPurchases = client.TotalPurchases.Add(sale.Total)
		client.LastPurchase = &now
		client.UpdatedAt = now
		if client.Status != models.ClientStatusVIP && client.TotalPurchases.GreaterThanOrEqual(s.policy.VIPThreshold) {
			client.Status = models.ClientStatusVIP
			promoted = true
		}
		if err := tx.UpdateClient(ctx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		return nil
	})
	if err != nil {
		util.SalesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	util.SalesCreatedTotal.Inc()
	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID),
		zap.String("sale_number", sale.SaleNumber),
		zap.String("total", sale.Total.String()))

	if req.IdempotencyKey != "" && s.redis != nil {
		if err := s.redis.SetIdempotencyKey(ctx, req.IdempotencyKey, sale.ID, s.policy.IdempotencyTTL); err != nil {
			s.logger.Error("Failed to store idempotency key", zap.Error(err))
		}
	}

	s.publish(ctx, "SaleCreated", func() error {
		return s.events.PublishSaleCreated(ctx, &models.SaleCreatedEvent{
			BaseEvent:     newBaseEvent(models.EventTypeSaleCreated),
			SaleID:        sale.ID,
			SaleNumber:    sale.SaleNumber,
			ClientID:      sale.ClientID,
			Total:         sale.Total,
			AmountPaid:    sale.AmountPaid,
			PaymentStatus: sale.PaymentStatus,
			Items:         saleItemData(sale.Items),
		})
	})
	for _, p := range touched {
		p := p
		s.publish(ctx, "StockLevelChanged", func() error {
			return s.events.PublishStockLevelChanged(ctx, stockLevelChanged(p, models.ReasonSale))
		})
	}
	if promoted {
		util.ClientsPromotedTotal.Inc()
		s.logger.Info("Client promoted to vip", zap.String("client_id", client.ID))
		s.publish(ctx, "ClientPromoted", func() error {
			return s.events.PublishClientPromoted(ctx, &models.ClientPromotedEvent{
				BaseEvent:      newBaseEvent(models.EventTypeClientPromoted),
				ClientID:       client.ID,
				ClientName:     client.Name,
				TotalPurchases: client.TotalPurchases,
			})
		})
	}
	s.cache.invalidate(ctx, salesStatsKey, dashboardKey)

	return sale, nil
}

// replay returns the sale already created for an idempotency key, if any
func (s *SaleService) replay(ctx context.Context, key string) (*models.Sale, error) {
	saleID, found, err := s.redis.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to check idempotency key", zap.Error(err))
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	sale, err := s.repo.GetSale(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) {
		// The sale was deleted since; treat the key as fresh
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale for idempotency key: %w", err)
	}
	s.logger.Info("Duplicate sale request detected",
		zap.String("idempotency_key", key),
		zap.String("sale_id", sale.ID))
	return sale, nil
}

// requestedQuantities sums quantities per product and returns the product ids
// sorted, which is also the row locking order. A product's sum may not exceed
// models.MaxQuantity.
func requestedQuantities(items []SaleItemRequest) (map[string]int, []string, error) {
	requested := make(map[string]int, len(items))
	for i, item := range items {
		sum, ok := models.ApplyDelta(requested[item.ProductID], item.Quantity)
		if !ok {
			return nil, nil, invalid(fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("total for one product must be at most %d", models.MaxQuantity))
		}
		requested[item.ProductID] = sum
	}
	ids := make([]string, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return requested, ids, nil
}

// AddPayment records an installment and recomputes what is due
func (s *SaleService) AddPayment(ctx context.Context, actor models.Actor, saleID string, req *AddPaymentRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.AddPayment")
	defer span.End()

	if err := checkShape(req); err != nil {
		return nil, err
	}
	if !models.IsStorableAmount(req.Amount) {
		return nil, fmt.Errorf("%w: %s is not a storable amount", ErrInvalidAmount, req.Amount.String())
	}

	var sale *models.Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		sale, err = tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return notFound(err, "sale", saleID)
		}
		if sale.PaymentStatus == models.PaymentStatusPaid {
			return ErrAlreadyPaid
		}
		if !req.Amount.IsPositive() || req.Amount.GreaterThan(sale.AmountDue) {
			return invalidAmount(req.Amount, sale.AmountDue)
		}

		now := s.now()
		payment := models.Payment{
			Amount:   req.Amount,
			Method:   req.PaymentMethod,
			PaidAt:   now,
			UserID:   actor.ID,
			UserName: actor.Name,
			Notes:    req.Notes,
		}
		if err := tx.AddPayment(ctx, sale.ID, &payment); err != nil {
			return fmt.Errorf("failed to add payment: %w", err)
		}

		sale.Payments = append(sale.Payments, payment)
		sale.AmountPaid = sale.AmountPaid.Add(req.Amount)
		sale.AmountDue = sale.AmountDue.Sub(req.Amount)
		sale.PaymentStatus = models.PaymentStatusFor(sale.AmountPaid, sale.Total)
		sale.UpdatedAt = now
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.PaymentsRecordedTotal.WithLabelValues(req.PaymentMethod).Inc()
	s.logger.Info("Payment recorded",
		zap.String("sale_id", sale.ID),
		zap.String("amount", req.Amount.String()),
		zap.String("payment_status", sale.PaymentStatus))

	s.publish(ctx, "PaymentRecorded", func() error {
		return s.events.PublishPaymentRecorded(ctx, &models.PaymentRecordedEvent{
			BaseEvent:     newBaseEvent(models.EventTypePaymentRecorded),
			SaleID:        sale.ID,
			Amount:        req.Amount,
			Method:        req.PaymentMethod,
			AmountDue:     sale.AmountDue,
			PaymentStatus: sale.PaymentStatus,
		})
	})
	s.cache.invalidate(ctx, salesStatsKey, dashboardKey)

	return sale, nil
}

// UpdateSale changes status, due date or notes. Lines and amounts are immutable.
func (s *SaleService) UpdateSale(ctx context.Context, saleID string, req *UpdateSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.UpdateSale")
	defer span.End()

	if err := checkShape(req); err != nil {
		return nil, err
	}

	var sale *models.Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		sale, err = tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return notFound(err, "sale", saleID)
		}
		if req.Status != nil {
			sale.Status = *req.Status
		}
		if req.DueDate != nil {
			sale.DueDate = req.DueDate
		}
		if req.Notes != nil {
			sale.Notes = *req.Notes
		}
		sale.UpdatedAt = s.now()
		return tx.UpdateSale(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, salesStatsKey, dashboardKey)
	return sale, nil
}

// DeleteSale restores stock for every line whose product still exists,
// reverses the client aggregate and removes the sale.
func (s *SaleService) DeleteSale(ctx context.Context, saleID string) error {
	ctx, span := util.StartSpan(ctx, "SaleService.DeleteSale")
	defer span.End()

	var (
		sale     *models.Sale
		restored []*models.Product
	)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		sale, err = tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return notFound(err, "sale", saleID)
		}

		now := s.now()
		quantities := make([]SaleItemRequest, len(sale.Items))
		for i, item := range sale.Items {
			quantities[i] = SaleItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		requested, ids, err := requestedQuantities(quantities)
		if err != nil {
			return err
		}
		for _, id := range ids {
			p, err := tx.GetProductForUpdate(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("Product of cancelled sale no longer exists",
					zap.String("sale_id", sale.ID),
					zap.String("product_id", id))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load product: %w", err)
			}
			previous := p.Quantity
			next, ok := models.ApplyDelta(previous, requested[id])
			if !ok {
				return invalid("items", fmt.Sprintf("restoring %s would exceed %d units", p.Name, models.MaxQuantity))
			}
			p.SetQuantity(next)
			p.UpdatedAt = now
			if err := tx.UpdateProductStock(ctx, p, previous); err != nil {
				return fmt.Errorf("failed to restore stock for %s: %w", p.Name, err)
			}
			restored = append(restored, p)
		}

		client, err := tx.GetClientForUpdate(ctx, sale.ClientID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.logger.Warn("Client of cancelled sale no longer exists", zap.String("client_id", sale.ClientID))
		case err != nil:
			return fmt.Errorf("failed to load client: %w", err)
		default:
			client.TotalPurchases = decimal.Max(client.TotalPurchases.Sub(sale.Total), decimal.Zero)
			if s.policy.DemoteVIPOnCancel && client.Status == models.ClientStatusVIP &&
				client.TotalPurchases.LessThan(s.policy.VIPThreshold) {
				client.Status = models.ClientStatusActive
			}
			client.UpdatedAt = now
			if err := tx.UpdateClient(ctx, client); err != nil {
				return fmt.Errorf("failed to update client: %w", err)
			}
		}

		if err := tx.DeleteSale(ctx, sale.ID); err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return err
	}

	util.SalesCancelledTotal.Inc()
	s.logger.Info("Sale deleted and compensated", zap.String("sale_id", sale.ID))

	s.publish(ctx, "SaleCancelled", func() error {
		return s.events.PublishSaleCancelled(ctx, &models.SaleCancelledEvent{
			BaseEvent:  newBaseEvent(models.EventTypeSaleCancelled),
			SaleID:     sale.ID,
			SaleNumber: sale.SaleNumber,
			ClientID:   sale.ClientID,
			Total:      sale.Total,
			Items:      saleItemData(sale.Items),
		})
	})
	for _, p := range restored {
		p := p
		s.publish(ctx, "StockLevelChanged", func() error {
			return s.events.PublishStockLevelChanged(ctx, stockLevelChanged(p, "sale_cancelled"))
		})
	}
	s.cache.invalidate(ctx, salesStatsKey, dashboardKey)
	return nil
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(ctx context.Context, saleID string) (*models.Sale, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, notFound(err, "sale", saleID)
	}
	return sale, nil
}

// ListSales retrieves sales matching the filter, newest first
func (s *SaleService) ListSales(ctx context.Context, filter store.SaleFilter) ([]models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.ListSales")
	defer span.End()

	return s.repo.ListSales(ctx, filter)
}

// Outstanding lists completed sales with something left to pay, earliest due date first
func (s *SaleService) Outstanding(ctx context.Context) (*OutstandingSales, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.Outstanding")
	defer span.End()

	sales, err := s.repo.ListSales(ctx, outstandingFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding sales: %w", err)
	}

	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.AmountDue)
	}
	return &OutstandingSales{Count: len(sales), TotalOutstanding: total, Sales: sales}, nil
}

func outstandingFilter() store.SaleFilter {
	return store.SaleFilter{
		Status:          models.SaleStatusCompleted,
		PaymentStatuses: []string{models.PaymentStatusUnpaid, models.PaymentStatusPartial},
		OrderByDueDate:  true,
	}
}

// Stats computes the sales dashboard summary over completed sales
func (s *SaleService) Stats(ctx context.Context) (*SalesStats, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.Stats")
	defer span.End()

	var stats SalesStats
	err := s.cache.load(ctx, salesStatsKey, &stats, func() error {
		sales, err := s.repo.ListSales(ctx, store.SaleFilter{Status: models.SaleStatusCompleted})
		if err != nil {
			return fmt.Errorf("failed to list sales: %w", err)
		}

		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		stats = SalesStats{
			TodayTotal:       decimal.Zero,
			MonthTotal:       decimal.Zero,
			AverageBasket:    decimal.Zero,
			TotalOutstanding: decimal.Zero,
		}
		grand := decimal.Zero
		for _, sale := range sales {
			grand = grand.Add(sale.Total)
			if !sale.CreatedAt.Before(month) {
				stats.MonthCount++
				stats.MonthTotal = stats.MonthTotal.Add(sale.Total)
			}
			if !sale.CreatedAt.Before(today) {
				stats.TodayCount++
				stats.TodayTotal = stats.TodayTotal.Add(sale.Total)
			}
			if sale.PaymentStatus != models.PaymentStatusPaid {
				stats.OutstandingCount++
				stats.TotalOutstanding = stats.TotalOutstanding.Add(sale.AmountDue)
			}
		}
		if len(sales) > 0 {
			stats.AverageBasket = grand.DivRound(decimal.NewFromInt(int64(len(sales))), 2)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// publish emits an event after commit; failures are logged, never returned
func (s *SaleService) publish(ctx context.Context, name string, fn func() error) {
	if s.events == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Error("Failed to publish "+name+" event", zap.Error(err))
	}
}

// failureReason labels a failed sale for metrics
func failureReason(err error) string {
	var nf *NotFoundError
	var stock *InsufficientStockError
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, store.ErrStockConflict):
		return "stock_conflict"
	default:
		return "store_error"
	}
}
