package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/store"
	"gestistock/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService manages products, clients and suppliers
type CatalogService struct {
	repo   store.Repository
	events EventPublisher
	now    func() time.Time
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. events may be nil.
func NewCatalogService(repo store.Repository, events EventPublisher) *CatalogService {
	return &CatalogService{
		repo:   repo,
		events: events,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// ProductInput carries product fields. On create, name, category, unit and
// both prices are required; on update, nil fields are left unchanged.
// Quantity is only accepted on create; later changes go through stock movements.
type ProductInput struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Category    *string          `json:"category" binding:"omitempty,category"`
	Quantity    *int             `json:"quantity" binding:"omitempty,min=0,max=2147483647"`
	Unit        *string          `json:"unit" binding:"omitempty,unit"`
	BuyPrice    *decimal.Decimal `json:"buy_price"`
	SellPrice   *decimal.Decimal `json:"sell_price"`
	Threshold   *int             `json:"threshold" binding:"omitempty,min=0,max=2147483647"`
	SupplierID  *string          `json:"supplier_id"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
}

// ClientInput carries client fields; nil fields are left unchanged on update
type ClientInput struct {
	Name    *string `json:"name" binding:"omitempty,max=200"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Email   *string `json:"email" binding:"omitempty,max=200"`
	Status  *string `json:"status" binding:"omitempty,client_status"`
}

// SupplierInput carries supplier fields; nil fields are left unchanged on update
type SupplierInput struct {
	Name    *string `json:"name" binding:"omitempty,max=200"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Email   *string `json:"email" binding:"omitempty,max=200"`
	Contact *string `json:"contact" binding:"omitempty,max=200"`
	Status  *string `json:"status" binding:"omitempty,supplier_status"`
}

func required(field string, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func (in *ProductInput) validate(creating bool) error {
	if err := checkShape(in); err != nil {
		return err
	}
	if creating {
		for _, f := range []struct {
			name string
			v    *string
		}{{"name", in.Name}, {"category", in.Category}, {"unit", in.Unit}} {
			if err := required(f.name, f.v); err != nil {
				return err
			}
		}
		if in.BuyPrice == nil || in.SellPrice == nil {
			return invalid("price", "buy_price and sell_price are required")
		}
	} else if in.Quantity != nil {
		return invalid("quantity", "record a stock movement to change the quantity")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if in.BuyPrice != nil {
		if err := checkMoney("buy_price", *in.BuyPrice); err != nil {
			return err
		}
	}
	if in.SellPrice != nil {
		return checkMoney("sell_price", *in.SellPrice)
	}
	return nil
}

func (in *ProductInput) apply(p *models.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Unit != nil {
		p.Unit = *in.Unit
	}
	if in.BuyPrice != nil {
		p.BuyPrice = *in.BuyPrice
	}
	if in.SellPrice != nil {
		p.SellPrice = *in.SellPrice
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.SupplierID != nil {
		if *in.SupplierID == "" {
			p.SupplierID = nil
		} else {
			id := *in.SupplierID
			p.SupplierID = &id
		}
	}
	if in.Threshold != nil {
		p.SetThreshold(*in.Threshold)
	}
	if in.Quantity != nil {
		p.SetQuantity(*in.Quantity)
	}
	p.RefreshStatus()
}

// CreateProduct adds a product to the catalog
func (s *CatalogService) CreateProduct(ctx context.Context, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := in.validate(true); err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		ID:        uuid.New().String(),
		Threshold: models.DefaultThreshold,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(product)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.checkSupplier(ctx, tx, product.SupplierID); err != nil {
			return err
		}
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	s.publishStockLevel(ctx, product, "product_created")
	return product, nil
}

// UpdateProduct changes catalog fields and recomputes the stock status
func (s *CatalogService) UpdateProduct(ctx context.Context, productID string, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if err := in.validate(false); err != nil {
		return nil, err
	}

	var product *models.Product
	var statusChanged bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		product, err = tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return notFound(err, "product", productID)
		}
		before := product.Status
		in.apply(product)
		statusChanged = before != product.Status
		product.UpdatedAt = s.now()

		if err := s.checkSupplier(ctx, tx, product.SupplierID); err != nil {
			return err
		}
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publishStockLevel(ctx, product, "threshold_changed")
	}
	return product, nil
}

func (s *CatalogService) checkSupplier(ctx context.Context, tx store.Tx, supplierID *string) error {
	if supplierID == nil {
		return nil
	}
	if _, err := tx.GetSupplier(ctx, *supplierID); err != nil {
		return notFound(err, "supplier", *supplierID)
	}
	return nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}
	return product, nil
}

// ListProducts retrieves products matching the filter
func (s *CatalogService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// LowStock lists products in low or out status, emptiest first
func (s *CatalogService) LowStock(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, store.ProductFilter{
		Statuses:       []string{models.StockStatusLow, models.StockStatusOut},
		SortByQuantity: true,
	})
}

// DeleteProduct removes a product. Sales and movements keep their denormalized copy.
func (s *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return notFound(err, "product", productID)
	}
	s.logger.Info("Product deleted", zap.String("product_id", productID))
	return nil
}

func (in *ClientInput) validate(creating bool) error {
	if err := checkShape(in); err != nil {
		return err
	}
	if creating {
		if err := required("name", in.Name); err != nil {
			return err
		}
		if err := required("phone", in.Phone); err != nil {
			return err
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name", "must not be empty")
	}
	return nil
}

func (in *ClientInput) apply(c *models.Client) {
	setString(&c.Name, in.Name)
	setString(&c.Phone, in.Phone)
	setString(&c.Address, in.Address)
	setString(&c.Email, in.Email)
	setString(&c.Status, in.Status)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// CreateClient registers a client with an empty purchase history
func (s *CatalogService) CreateClient(ctx context.Context, in *ClientInput) (*models.Client, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	now := s.now()
	client := &models.Client{
		ID:             uuid.New().String(),
		TotalPurchases: decimal.Zero,
		Status:         models.ClientStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	in.apply(client)
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// UpdateClient changes contact fields or status. Purchase aggregates are maintained by sales.
func (s *CatalogService) UpdateClient(ctx context.Context, clientID string, in *ClientInput) (*models.Client, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	var client *models.Client
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		client, err = tx.GetClientForUpdate(ctx, clientID)
		if err != nil {
			return notFound(err, "client", clientID)
		}
		in.apply(client)
		client.UpdatedAt = s.now()
		return tx.UpdateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GetClient retrieves a client by ID
func (s *CatalogService) GetClient(ctx context.Context, clientID string) (*models.Client, error) {
	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return nil, notFound(err, "client", clientID)
	}
	return client, nil
}

// ListClients retrieves clients matching the filter
func (s *CatalogService) ListClients(ctx context.Context, filter store.ClientFilter) ([]models.Client, error) {
	return s.repo.ListClients(ctx, filter)
}

// VIPClients lists clients holding vip status
func (s *CatalogService) VIPClients(ctx context.Context) ([]models.Client, error) {
	return s.repo.ListClients(ctx, store.ClientFilter{Status: models.ClientStatusVIP})
}

// DeleteClient removes a client. Its sales keep the denormalized name.
func (s *CatalogService) DeleteClient(ctx context.Context, clientID string) error {
	if err := s.repo.DeleteClient(ctx, clientID); err != nil {
		return notFound(err, "client", clientID)
	}
	return nil
}

func (in *SupplierInput) validate(creating bool) error {
	if err := checkShape(in); err != nil {
		return err
	}
	if creating {
		for _, f := range []struct {
			name string
			v    *string
		}{{"name", in.Name}, {"phone", in.Phone}, {"contact", in.Contact}} {
			if err := required(f.name, f.v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *SupplierInput) apply(sp *models.Supplier) {
	setString(&sp.Name, in.Name)
	setString(&sp.Phone, in.Phone)
	setString(&sp.Address, in.Address)
	setString(&sp.Email, in.Email)
	setString(&sp.Contact, in.Contact)
	setString(&sp.Status, in.Status)
}

// CreateSupplier registers a supplier with no deliveries yet
func (s *CatalogService) CreateSupplier(ctx context.Context, in *SupplierInput) (*models.Supplier, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	now := s.now()
	supplier := &models.Supplier{
		ID:         uuid.New().String(),
		TotalValue: decimal.Zero,
		Status:     models.SupplierStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.apply(supplier)
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, nil
}

// UpdateSupplier changes contact fields or status
func (s *CatalogService) UpdateSupplier(ctx context.Context, supplierID string, in *SupplierInput) (*models.Supplier, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	var supplier *models.Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		supplier, err = tx.GetSupplierForUpdate(ctx, supplierID)
		if err != nil {
			return notFound(err, "supplier", supplierID)
		}
		in.apply(supplier)
		supplier.UpdatedAt = s.now()
		return tx.UpdateSupplier(ctx, supplier)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

// GetSupplier retrieves a supplier by ID
func (s *CatalogService) GetSupplier(ctx context.Context, supplierID string) (*models.Supplier, error) {
	supplier, err := s.repo.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, notFound(err, "supplier", supplierID)
	}
	return supplier, nil
}

// ListSuppliers retrieves suppliers matching the filter
func (s *CatalogService) ListSuppliers(ctx context.Context, filter store.SupplierFilter) ([]models.Supplier, error) {
	return s.repo.ListSuppliers(ctx, filter)
}

// DeleteSupplier removes a supplier; its products lose the reference
func (s *CatalogService) DeleteSupplier(ctx context.Context, supplierID string) error {
	if err := s.repo.DeleteSupplier(ctx, supplierID); err != nil {
		return notFound(err, "supplier", supplierID)
	}
	return nil
}

func (s *CatalogService) publishStockLevel(ctx context.Context, p *models.Product, cause string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishStockLevelChanged(ctx, stockLevelChanged(p, cause)); err != nil {
		s.logger.Error("Failed to publish StockLevelChanged event", zap.Error(err))
	}
}
