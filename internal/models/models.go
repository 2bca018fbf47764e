package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry with its on-hand stock
type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit"`
	BuyPrice    decimal.Decimal `db:"buy_price" json:"buy_price"`
	SellPrice   decimal.Decimal `db:"sell_price" json:"sell_price"`
	Threshold   int             `db:"threshold" json:"threshold"`
	SupplierID  *string         `db:"supplier_id" json:"supplier_id,omitempty"`
	Status      string          `db:"status" json:"status"`
	Description string          `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Client represents a customer and its purchase aggregate
type Client struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Phone          string          `db:"phone" json:"phone"`
	Address        string          `db:"address" json:"address"`
	Email          string          `db:"email" json:"email,omitempty"`
	TotalPurchases decimal.Decimal `db:"total_purchases" json:"total_purchases"`
	LastPurchase   *time.Time      `db:"last_purchase" json:"last_purchase,omitempty"`
	Status         string          `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Supplier represents a vendor and its purchase aggregate
type Supplier struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Phone        string          `db:"phone" json:"phone"`
	Address      string          `db:"address" json:"address"`
	Email        string          `db:"email" json:"email,omitempty"`
	Contact      string          `db:"contact" json:"contact"`
	TotalValue   decimal.Decimal `db:"total_value" json:"total_value"`
	LastDelivery *time.Time      `db:"last_delivery" json:"last_delivery,omitempty"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Sale represents a completed or pending sale transaction
type Sale struct {
	ID            string          `db:"id" json:"id"`
	SaleNumber    string          `db:"sale_number" json:"sale_number"`
	ClientID      string          `db:"client_id" json:"client_id"`
	ClientName    string          `db:"client_name" json:"client_name"`
	Items         []SaleItem      `db:"-" json:"items"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax           decimal.Decimal `db:"tax" json:"tax"`
	Total         decimal.Decimal `db:"total" json:"total"`
	AmountPaid    decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	AmountDue     decimal.Decimal `db:"amount_due" json:"amount_due"`
	Payments      []Payment       `db:"-" json:"payments"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	Status        string          `db:"status" json:"status"`
	DueDate       *time.Time      `db:"due_date" json:"due_date,omitempty"`
	UserID        string          `db:"user_id" json:"user_id"`
	UserName      string          `db:"user_name" json:"user_name"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// SaleItem represents one line of a sale
type SaleItem struct {
	SaleID      string          `db:"sale_id" json:"-"`
	Position    int             `db:"position" json:"-"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

// Payment represents one installment recorded against a sale
type Payment struct {
	SaleID   string          `db:"sale_id" json:"-"`
	Position int             `db:"position" json:"-"`
	Amount   decimal.Decimal `db:"amount" json:"amount"`
	Method   string          `db:"method" json:"payment_method"`
	PaidAt   time.Time       `db:"paid_at" json:"date"`
	UserID   string          `db:"user_id" json:"user_id"`
	UserName string          `db:"user_name" json:"user_name"`
	Notes    string          `db:"notes" json:"notes,omitempty"`
}

// StockMovement represents a single entry or exit against a product
type StockMovement struct {
	ID          string    `db:"id" json:"id"`
	Type        string    `db:"type" json:"type"`
	ProductID   string    `db:"product_id" json:"product_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Unit        string    `db:"unit" json:"unit"`
	Reason      string    `db:"reason" json:"reason"`
	UserID      string    `db:"user_id" json:"user_id"`
	UserName    string    `db:"user_name" json:"user_name"`
	Comment     string    `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Notification represents an alert shown on the dashboard
type Notification struct {
	ID          string    `db:"id" json:"id"`
	Type        string    `db:"type" json:"type"`
	Title       string    `db:"title" json:"title"`
	Message     string    `db:"message" json:"message"`
	ProductID   *string   `db:"product_id" json:"product_id,omitempty"`
	ProductName string    `db:"product_name" json:"product_name,omitempty"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Actor is the authenticated user recording an operation
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Product stock statuses
const (
	StockStatusOK  = "ok"
	StockStatusLow = "low"
	StockStatusOut = "out"
)

// DefaultThreshold is the alert threshold applied when none is given.
const DefaultThreshold = 10

// Product categories
const (
	CategoryFood        = "food"
	CategoryHardware    = "hardware"
	CategoryClothing    = "clothing"
	CategoryElectronics = "electronics"
	CategoryCosmetics   = "cosmetics"
	CategoryOther       = "other"
)

// Units of measure
const (
	UnitBag    = "bag"
	UnitCan    = "can"
	UnitJar    = "jar"
	UnitCarton = "carton"
	UnitPiece  = "piece"
	UnitKg     = "kg"
	UnitLitre  = "litre"
	UnitMetre  = "metre"
	UnitBox    = "box"
)

// Client statuses
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
	ClientStatusVIP      = "vip"
)

// Supplier statuses
const (
	SupplierStatusActive   = "active"
	SupplierStatusInactive = "inactive"
)

// Sale statuses
const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
	SaleStatusCancelled = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// Payment methods
const (
	PaymentMethodCash         = "cash"
	PaymentMethodMobileMoney  = "mobile_money"
	PaymentMethodOrangeMoney  = "orange_money"
	PaymentMethodMTNMoney     = "mtn_money"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheque       = "cheque"
)

// Stock movement types
const (
	MovementTypeEntry = "entry"
	MovementTypeExit  = "exit"
)

// Stock movement reasons
const (
	ReasonPurchase            = "purchase"
	ReasonClientReturn        = "client_return"
	ReasonInventoryAdjustment = "inventory_adjustment"
	ReasonIncomingTransfer    = "incoming_transfer"
	ReasonProduction          = "production"
	ReasonSale                = "sale"
	ReasonLoss                = "loss"
	ReasonBreakage            = "breakage"
	ReasonTheft               = "theft"
	ReasonDonation            = "donation"
	ReasonOutgoingTransfer    = "outgoing_transfer"
	ReasonSample              = "sample"
	ReasonOther               = "other"
)

// Notification types
const (
	NotificationStockLow      = "stock_low"
	NotificationStockOut      = "stock_out"
	NotificationSale          = "sale"
	NotificationStockMovement = "stock_movement"
)

// User roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSeller  = "seller"
)
