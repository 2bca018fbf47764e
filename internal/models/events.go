package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCreated       = "SALE_CREATED"
	EventTypeSaleCancelled     = "SALE_CANCELLED"
	EventTypePaymentRecorded   = "PAYMENT_RECORDED"
	EventTypeClientPromoted    = "CLIENT_PROMOTED"
	EventTypeStockLevelChanged = "STOCK_LEVEL_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type
func (e BaseEvent) Type() string {
	return e.EventType
}

// SaleCreatedEvent published when a sale is recorded
type SaleCreatedEvent struct {
	BaseEvent
	SaleID        string          `json:"sale_id"`
	SaleNumber    string          `json:"sale_number"`
	ClientID      string          `json:"client_id"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentStatus string          `json:"payment_status"`
	Items         []SaleItemData  `json:"items"`
}

// SaleCancelledEvent published when a sale is deleted and compensated
type SaleCancelledEvent struct {
	BaseEvent
	SaleID     string          `json:"sale_id"`
	SaleNumber string          `json:"sale_number"`
	ClientID   string          `json:"client_id"`
	Total      decimal.Decimal `json:"total"`
	Items      []SaleItemData  `json:"items"`
}

// PaymentRecordedEvent published when an installment is added to a sale
type PaymentRecordedEvent struct {
	BaseEvent
	SaleID        string          `json:"sale_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	PaymentStatus string          `json:"payment_status"`
}

// ClientPromotedEvent published when a client crosses the vip threshold
type ClientPromotedEvent struct {
	BaseEvent
	ClientID       string          `json:"client_id"`
	ClientName     string          `json:"client_name"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
}

// StockLevelChangedEvent published whenever a product's quantity is mutated
type StockLevelChangedEvent struct {
	BaseEvent
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Unit        string `json:"unit"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
	Status      string `json:"status"`
	Cause       string `json:"cause"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
