package service

import (
	"errors"
	"fmt"

	"gestistock/internal/store"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for a payment that is not positive or exceeds what is due.
	ErrInvalidAmount = errors.New("invalid payment amount")
	// ErrAlreadyPaid is returned when paying a sale that is already settled.
	ErrAlreadyPaid = errors.New("sale is already fully paid")
	// ErrRequestInProgress is returned when the same idempotency key is being processed.
	ErrRequestInProgress = errors.New("a request with this idempotency key is in progress")
)

// NotFoundError reports a missing referenced entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// InsufficientStockError reports a quantity larger than what is on hand
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.ProductName, e.Available)
}

// ValidationError reports malformed input detected before any persistence call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func invalidAmount(amount, due decimal.Decimal) error {
	return fmt.Errorf("%w: %s (amount due %s)", ErrInvalidAmount, amount.String(), due.String())
}

// notFound converts store.ErrNotFound into a NotFoundError for entity
func notFound(err error, entity, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
