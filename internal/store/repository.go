package store

import (
	"context"
	"errors"
	"time"

	"gestistock/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStockConflict is returned when a conditional stock update finds a different quantity than expected.
	ErrStockConflict = errors.New("stock changed concurrently")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")
)

// Tx is the set of persistence operations available inside or outside a transaction.
type Tx interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductForUpdate(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	// UpdateProductStock writes product.Quantity and product.Status only if the
	// stored quantity still equals previous.
	UpdateProductStock(ctx context.Context, product *models.Product, previous int) error
	DeleteProduct(ctx context.Context, id string) error

	GetClient(ctx context.Context, id string) (*models.Client, error)
	GetClientForUpdate(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error)
	CreateClient(ctx context.Context, client *models.Client) error
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id string) error

	GetSupplier(ctx context.Context, id string) (*models.Supplier, error)
	GetSupplierForUpdate(ctx context.Context, id string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error)
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	UpdateSupplier(ctx context.Context, supplier *models.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error

	GetSale(ctx context.Context, id string) (*models.Sale, error)
	GetSaleForUpdate(ctx context.Context, id string) (*models.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]models.Sale, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	UpdateSale(ctx context.Context, sale *models.Sale) error
	AddPayment(ctx context.Context, saleID string, payment *models.Payment) error
	DeleteSale(ctx context.Context, id string) error
	NextSaleSequence(ctx context.Context, year int) (int, error)

	GetMovement(ctx context.Context, id string) (*models.StockMovement, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	UpdateMovementComment(ctx context.Context, id, comment string) error
	DeleteMovement(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	HasUnreadNotification(ctx context.Context, notificationType, productID string) (bool, error)
	ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
}

// Repository is a Tx that can also open transactions.
type Repository interface {
	Tx
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search         string
	Category       string
	Statuses       []string
	SortByQuantity bool
}

// ClientFilter narrows client listings.
type ClientFilter struct {
	Search string
	Status string
}

// SupplierFilter narrows supplier listings.
type SupplierFilter struct {
	Search string
	Status string
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	Search          string
	Status          string
	PaymentStatuses []string
	ClientID        string
	From            *time.Time
	To              *time.Time
	OrderByDueDate  bool
}

// MovementFilter narrows stock movement listings.
type MovementFilter struct {
	Search    string
	Type      string
	ProductID string
	From      *time.Time
	To        *time.Time
}
