package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxQuantity bounds every stored quantity and threshold. It matches the
// INTEGER columns and the max= binding tags on request structs.
const MaxQuantity = math.MaxInt32

// ApplyDelta returns quantity+delta and whether the result stays within [0, MaxQuantity].
// Both operands must already be within ±MaxQuantity, so the sum cannot overflow int.
func ApplyDelta(quantity, delta int) (int, bool) {
	next := quantity + delta
	return next, next >= 0 && next <= MaxQuantity
}

// MoneyPlaces is the number of decimal places money is stored with
const MoneyPlaces = 2

// MaxAmount is the exclusive upper bound of a stored amount (NUMERIC(18,2))
var MaxAmount = decimal.New(1, 16)

// IsStorableAmount reports whether d fits the money columns without rounding
func IsStorableAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces)) && d.Abs().LessThan(MaxAmount)
}

// StockStatusFor derives a product's stock status from its quantity and alert threshold
func StockStatusFor(quantity, threshold int) string {
	switch {
	case quantity == 0:
		return StockStatusOut
	case quantity <= threshold:
		return StockStatusLow
	default:
		return StockStatusOK
	}
}

// SetQuantity updates the on-hand quantity and recomputes the status
func (p *Product) SetQuantity(quantity int) {
	p.Quantity = quantity
	p.Status = StockStatusFor(p.Quantity, p.Threshold)
}

// SetThreshold updates the alert threshold and recomputes the status
func (p *Product) SetThreshold(threshold int) {
	p.Threshold = threshold
	p.Status = StockStatusFor(p.Quantity, p.Threshold)
}

// RefreshStatus recomputes the status from the current quantity and threshold
func (p *Product) RefreshStatus() {
	p.Status = StockStatusFor(p.Quantity, p.Threshold)
}

// PaymentStatusFor derives a sale's payment status from what was paid against its total
func PaymentStatusFor(amountPaid, total decimal.Decimal) string {
	switch {
	case amountPaid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case amountPaid.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// FormatSaleNumber builds the human readable sale identifier VNT-{year}-{seq}
func FormatSaleNumber(year, sequence int) string {
	return fmt.Sprintf("VNT-%d-%04d", year, sequence)
}

// Categories lists the product categories in display order
var Categories = []string{
	CategoryFood, CategoryHardware, CategoryClothing,
	CategoryElectronics, CategoryCosmetics, CategoryOther,
}

var (
	categories = map[string]bool{
		CategoryFood: true, CategoryHardware: true, CategoryClothing: true,
		CategoryElectronics: true, CategoryCosmetics: true, CategoryOther: true,
	}
	units = map[string]bool{
		UnitBag: true, UnitCan: true, UnitJar: true, UnitCarton: true, UnitPiece: true,
		UnitKg: true, UnitLitre: true, UnitMetre: true, UnitBox: true,
	}
	paymentMethods = map[string]bool{
		PaymentMethodCash: true, PaymentMethodMobileMoney: true, PaymentMethodOrangeMoney: true,
		PaymentMethodMTNMoney: true, PaymentMethodBankTransfer: true, PaymentMethodCheque: true,
	}
	entryReasons = map[string]bool{
		ReasonPurchase: true, ReasonClientReturn: true, ReasonInventoryAdjustment: true,
		ReasonIncomingTransfer: true, ReasonProduction: true, ReasonOther: true,
	}
	exitReasons = map[string]bool{
		ReasonSale: true, ReasonLoss: true, ReasonBreakage: true, ReasonTheft: true,
		ReasonDonation: true, ReasonOutgoingTransfer: true, ReasonSample: true, ReasonOther: true,
	}
	saleStatuses = map[string]bool{
		SaleStatusCompleted: true, SaleStatusPending: true, SaleStatusCancelled: true,
	}
	clientStatuses = map[string]bool{
		ClientStatusActive: true, ClientStatusInactive: true, ClientStatusVIP: true,
	}
	supplierStatuses = map[string]bool{
		SupplierStatusActive: true, SupplierStatusInactive: true,
	}
	roles = map[string]bool{
		RoleAdmin: true, RoleManager: true, RoleSeller: true,
	}
)

// IsValidCategory reports whether c is a known product category
func IsValidCategory(c string) bool { return categories[c] }

// IsValidUnit reports whether u is a known unit of measure
func IsValidUnit(u string) bool { return units[u] }

// IsValidPaymentMethod reports whether m is an accepted payment method
func IsValidPaymentMethod(m string) bool { return paymentMethods[m] }

// IsValidSaleStatus reports whether s is a sale status
func IsValidSaleStatus(s string) bool { return saleStatuses[s] }

// IsValidClientStatus reports whether s is a client status
func IsValidClientStatus(s string) bool { return clientStatuses[s] }

// IsValidSupplierStatus reports whether s is a supplier status
func IsValidSupplierStatus(s string) bool { return supplierStatuses[s] }

// IsValidRole reports whether r is a user role
func IsValidRole(r string) bool { return roles[r] }

// IsValidReason reports whether reason is allowed for the given movement type
func IsValidReason(movementType, reason string) bool {
	switch movementType {
	case MovementTypeEntry:
		return entryReasons[reason]
	case MovementTypeExit:
		return exitReasons[reason]
	default:
		return false
	}
}
