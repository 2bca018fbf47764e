package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/redisclient"
	"gestistock/internal/store"
	"gestistock/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockService maintains the stock movement ledger
type StockService struct {
	repo   store.Repository
	events EventPublisher
	policy Policy
	cache  statsCache
	now    func() time.Time
	logger *zap.Logger
}

// NewStockService creates a new stock service. redis and events may be nil.
func NewStockService(repo store.Repository, redis *redisclient.Client, events EventPublisher, policy Policy) *StockService {
	return &StockService{
		repo:   repo,
		events: events,
		policy: policy,
		cache:  statsCache{redis: redis, ttl: policy.StatsCacheTTL},
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// RecordMovementRequest represents a request to record a stock entry or exit
type RecordMovementRequest struct {
	Type      string `json:"type" binding:"required,oneof=entry exit"`
	ProductID string `json:"product" binding:"required"`
	Quantity  int    `json:"quantity" binding:"min=1,max=2147483647"`
	Reason    string `json:"reason" binding:"required"`
	Comment   string `json:"comment,omitempty" binding:"max=500"`
}

func (r *RecordMovementRequest) validate() error {
	if err := checkShape(r); err != nil {
		return err
	}
	if !models.IsValidReason(r.Type, r.Reason) {
		return invalid("reason", fmt.Sprintf("reason %q is not allowed for %s", r.Reason, r.Type))
	}
	return nil
}

// StockStats counts movements for the dashboard
type StockStats struct {
	TodayEntries int `json:"today_entries"`
	TodayExits   int `json:"today_exits"`
	MonthEntries int `json:"month_entries"`
	MonthExits   int `json:"month_exits"`
}

// RecordMovement persists a movement and applies it to the product and,
// for purchases, to the product's supplier.
func (s *StockService) RecordMovement(ctx context.Context, actor models.Actor, req *RecordMovementRequest) (*models.StockMovement, error) {
	ctx, span := util.StartSpan(ctx, "StockService.RecordMovement")
	defer span.End()

	if err := req.validate(); err != nil {
		util.StockRejectionsTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	var (
		movement *models.StockMovement
		product  *models.Product
	)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		product, err = tx.GetProductForUpdate(ctx, req.ProductID)
		if err != nil {
			return notFound(err, "product", req.ProductID)
		}

		previous := product.Quantity
		delta := req.Quantity
		if req.Type == models.MovementTypeExit {
			delta = -req.Quantity
		}
		next, ok := models.ApplyDelta(previous, delta)
		switch {
		case !ok && delta < 0:
			return &InsufficientStockError{ProductName: product.Name, Available: previous, Requested: req.Quantity}
		case !ok:
			return invalid("quantity", fmt.Sprintf("stock of %s would exceed %d units", product.Name, models.MaxQuantity))
		}

		now := s.now()
		movement = &models.StockMovement{
			ID:          uuid.New().String(),
			Type:        req.Type,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    req.Quantity,
			Unit:        product.Unit,
			Reason:      req.Reason,
			UserID:      actor.ID,
			UserName:    actor.Name,
			Comment:     req.Comment,
			CreatedAt:   now,
		}
		if err := tx.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("failed to create movement: %w", err)
		}

		if req.Type == models.MovementTypeEntry && req.Reason == models.ReasonPurchase && product.SupplierID != nil {
			s.creditSupplier(ctx, tx, *product.SupplierID, product.BuyPrice.Mul(decimal.NewFromInt(int64(req.Quantity))), now)
		}

		product.SetQuantity(next)
		product.UpdatedAt = now
		if err := tx.UpdateProductStock(ctx, product, previous); err != nil {
			return fmt.Errorf("failed to update stock for %s: %w", product.Name, err)
		}
		return nil
	})
	if err != nil {
		var stock *InsufficientStockError
		if errors.As(err, &stock) {
			util.StockRejectionsTotal.WithLabelValues("insufficient_stock").Inc()
		}
		util.RecordError(span, err)
		return nil, err
	}

	util.StockMovementsTotal.WithLabelValues(movement.Type, movement.Reason).Inc()
	s.logger.Info("Stock movement recorded",
		zap.String("movement_id", movement.ID),
		zap.String("type", movement.Type),
		zap.String("product_id", product.ID),
		zap.Int("quantity", movement.Quantity),
		zap.Int("on_hand", product.Quantity))

	s.publishStockLevel(ctx, product, movement.Reason)
	s.cache.invalidate(ctx, stockStatsKey, dashboardKey)
	return movement, nil
}

// creditSupplier adds a purchase to the supplier aggregate. It never fails the
// movement: a missing or unwritable supplier is logged and skipped.
func (s *StockService) creditSupplier(ctx context.Context, tx store.Tx, supplierID string, amount decimal.Decimal, now time.Time) {
	supplier, err := tx.GetSupplierForUpdate(ctx, supplierID)
	if err != nil {
		s.logger.Warn("Supplier of purchased product not found, skipping total update",
			zap.String("supplier_id", supplierID),
			zap.Error(err))
		return
	}
	supplier.TotalValue = supplier.TotalValue.Add(amount)
	supplier.LastDelivery = &now
	supplier.UpdatedAt = now
	if err := tx.UpdateSupplier(ctx, supplier); err != nil {
		s.logger.Warn("Failed to update supplier total", zap.String("supplier_id", supplierID), zap.Error(err))
	}
}

// DeleteMovement removes a movement and reverses its effect on the product
func (s *StockService) DeleteMovement(ctx context.Context, movementID string) error {
	ctx, span := util.StartSpan(ctx, "StockService.DeleteMovement")
	defer span.End()

	var product *models.Product

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		movement, err := tx.GetMovement(ctx, movementID)
		if err != nil {
			return notFound(err, "movement", movementID)
		}

		now := s.now()
		p, err := tx.GetProductForUpdate(ctx, movement.ProductID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.logger.Warn("Product of deleted movement no longer exists",
				zap.String("movement_id", movement.ID),
				zap.String("product_id", movement.ProductID))
		case err != nil:
			return fmt.Errorf("failed to load product: %w", err)
		default:
			previous := p.Quantity
			delta := movement.Quantity
			if movement.Type == models.MovementTypeEntry {
				delta = -movement.Quantity
			}
			reversed, ok := models.ApplyDelta(previous, delta)
			switch {
			case !ok && delta < 0:
				return &InsufficientStockError{ProductName: p.Name, Available: previous, Requested: movement.Quantity}
			case !ok:
				return invalid("quantity", fmt.Sprintf("stock of %s would exceed %d units", p.Name, models.MaxQuantity))
			}
			p.SetQuantity(reversed)
			p.UpdatedAt = now
			if err := tx.UpdateProductStock(ctx, p, previous); err != nil {
				return fmt.Errorf("failed to reverse stock for %s: %w", p.Name, err)
			}
			product = p

			if s.policy.ReverseSupplierOnDelete && movement.Type == models.MovementTypeEntry &&
				movement.Reason == models.ReasonPurchase && p.SupplierID != nil {
				s.debitSupplier(ctx, tx, *p.SupplierID, p.BuyPrice.Mul(decimal.NewFromInt(int64(movement.Quantity))), now)
			}
		}

		if err := tx.DeleteMovement(ctx, movement.ID); err != nil {
			return fmt.Errorf("failed to delete movement: %w", err)
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return err
	}

	s.logger.Info("Stock movement deleted", zap.String("movement_id", movementID))
	if product != nil {
		s.publishStockLevel(ctx, product, "movement_deleted")
	}
	s.cache.invalidate(ctx, stockStatsKey, dashboardKey)
	return nil
}

// debitSupplier subtracts a reversed purchase, floored at zero.
// The product's current buy price is used.
func (s *StockService) debitSupplier(ctx context.Context, tx store.Tx, supplierID string, amount decimal.Decimal, now time.Time) {
	supplier, err := tx.GetSupplierForUpdate(ctx, supplierID)
	if err != nil {
		s.logger.Warn("Supplier of reversed purchase not found", zap.String("supplier_id", supplierID), zap.Error(err))
		return
	}
	supplier.TotalValue = decimal.Max(supplier.TotalValue.Sub(amount), decimal.Zero)
	supplier.UpdatedAt = now
	if err := tx.UpdateSupplier(ctx, supplier); err != nil {
		s.logger.Warn("Failed to update supplier total", zap.String("supplier_id", supplierID), zap.Error(err))
	}
}

// GetMovement retrieves a movement by ID
func (s *StockService) GetMovement(ctx context.Context, movementID string) (*models.StockMovement, error) {
	movement, err := s.repo.GetMovement(ctx, movementID)
	if err != nil {
		return nil, notFound(err, "movement", movementID)
	}
	return movement, nil
}

// ListMovements retrieves movements matching the filter, newest first
func (s *StockService) ListMovements(ctx context.Context, filter store.MovementFilter) ([]models.StockMovement, error) {
	ctx, span := util.StartSpan(ctx, "StockService.ListMovements")
	defer span.End()

	return s.repo.ListMovements(ctx, filter)
}

// UpdateComment changes the comment, the only mutable field of a movement
func (s *StockService) UpdateComment(ctx context.Context, movementID, comment string) (*models.StockMovement, error) {
	if err := s.repo.UpdateMovementComment(ctx, movementID, comment); err != nil {
		return nil, notFound(err, "movement", movementID)
	}
	return s.GetMovement(ctx, movementID)
}

// Stats counts entries and exits today and this month
func (s *StockService) Stats(ctx context.Context) (*StockStats, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Stats")
	defer span.End()

	var stats StockStats
	err := s.cache.load(ctx, stockStatsKey, &stats, func() error {
		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		movements, err := s.repo.ListMovements(ctx, store.MovementFilter{From: &month})
		if err != nil {
			return fmt.Errorf("failed to list movements: %w", err)
		}

		stats = StockStats{}
		for _, m := range movements {
			isToday := !m.CreatedAt.Before(today)
			switch m.Type {
			case models.MovementTypeEntry:
				stats.MonthEntries++
				if isToday {
					stats.TodayEntries++
				}
			case models.MovementTypeExit:
				stats.MonthExits++
				if isToday {
					stats.TodayExits++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *StockService) publishStockLevel(ctx context.Context, p *models.Product, cause string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishStockLevelChanged(ctx, stockLevelChanged(p, cause)); err != nil {
		s.logger.Error("Failed to publish StockLevelChanged event", zap.Error(err))
	}
}
