package service

import (
	"math"
	"testing"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movement(kind, productID string, qty int, reason string) *RecordMovementRequest {
	return &RecordMovementRequest{Type: kind, ProductID: productID, Quantity: qty, Reason: reason}
}

func TestPurchaseEntryCreditsSupplier(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	s := f.supplier("Sotrac")
	p := f.product("Cement", 4, 5, 6000, 1000, &s.ID)
	assert.Equal(t, models.StockStatusLow, p.Status)

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	f.stock.now = func() time.Time { return now }

	m, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 10, models.ReasonPurchase))
	require.NoError(t, err)
	assert.Equal(t, p.Name, m.ProductName)
	assert.Equal(t, p.Unit, m.Unit)
	assert.Equal(t, seller.ID, m.UserID)

	product := f.reloadProduct(p.ID)
	assert.Equal(t, 14, product.Quantity)
	assert.Equal(t, models.StockStatusOK, product.Status)

	supplier := f.reloadSupplier(s.ID)
	assertDecimal(t, 10000, supplier.TotalValue)
	require.NotNil(t, supplier.LastDelivery)
	assert.True(t, now.Equal(*supplier.LastDelivery))

	require.Len(t, f.events.levels, 1)
	assert.Equal(t, models.ReasonPurchase, f.events.levels[0].Cause)
}

func TestNonPurchaseEntryLeavesSupplier(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	s := f.supplier("Sotrac")
	p := f.product("Cement", 4, 5, 6000, 1000, &s.ID)

	_, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 3, models.ReasonClientReturn))
	require.NoError(t, err)

	supplier := f.reloadSupplier(s.ID)
	assertDecimal(t, 0, supplier.TotalValue)
	assert.Nil(t, supplier.LastDelivery)
	assert.Equal(t, 7, f.reloadProduct(p.ID).Quantity)
}

func TestPurchaseWithMissingSupplierStillRecords(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	missing := "deleted-supplier"
	p := f.product("Sand", 0, 5, 2000, 1500, &missing)

	_, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 8, models.ReasonPurchase))
	require.NoError(t, err)
	assert.Equal(t, 8, f.reloadProduct(p.ID).Quantity)
}

func TestExitRequiresStock(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Gravel", 3, 1, 1000, 800, nil)

	_, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, p.ID, 4, models.ReasonLoss))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)

	movements, err := f.stock.ListMovements(f.ctx, store.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, movements)

	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, p.ID, 3, models.ReasonBreakage))
	require.NoError(t, err)
	product := f.reloadProduct(p.ID)
	assert.Equal(t, 0, product.Quantity)
	assert.Equal(t, models.StockStatusOut, product.Status)
}

func TestRecordMovementValidation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Bricks", 10, 1, 100, 80, nil)

	tests := []struct {
		name  string
		req   *RecordMovementRequest
		field string
	}{
		{"unknown type", movement("transfer", p.ID, 1, models.ReasonOther), "type"},
		{"no product", movement(models.MovementTypeEntry, "", 1, models.ReasonOther), "product"},
		{"zero quantity", movement(models.MovementTypeEntry, p.ID, 0, models.ReasonOther), "quantity"},
		{"exit reason on entry", movement(models.MovementTypeEntry, p.ID, 1, models.ReasonTheft), "reason"},
		{"entry reason on exit", movement(models.MovementTypeExit, p.ID, 1, models.ReasonPurchase), "reason"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.stock.RecordMovement(f.ctx, seller, tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	_, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, "missing", 1, models.ReasonOther))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "product", nf.Entity)
	assert.Equal(t, 10, f.reloadProduct(p.ID).Quantity)
}

func TestDeleteMovementReversesQuantity(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Pipes", 12, 5, 3000, 2000, nil)

	exit, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, p.ID, 9, models.ReasonSample))
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusLow, f.reloadProduct(p.ID).Status)

	require.NoError(t, f.stock.DeleteMovement(f.ctx, exit.ID))
	product := f.reloadProduct(p.ID)
	assert.Equal(t, 12, product.Quantity)
	assert.Equal(t, models.StockStatusOK, product.Status)

	_, err = f.stock.GetMovement(f.ctx, exit.ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.ErrorAs(t, f.stock.DeleteMovement(f.ctx, exit.ID), &nf)

	last := f.events.levels[len(f.events.levels)-1]
	assert.Equal(t, "movement_deleted", last.Cause)
}

func TestDeleteEntryNeverGoesNegative(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Wire", 0, 2, 500, 300, nil)

	entry, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 10, models.ReasonProduction))
	require.NoError(t, err)
	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, p.ID, 6, models.ReasonSale))
	require.NoError(t, err)

	err = f.stock.DeleteMovement(f.ctx, entry.ID)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, f.reloadProduct(p.ID).Quantity)

	_, err = f.stock.GetMovement(f.ctx, entry.ID)
	assert.NoError(t, err)
}

func TestDeleteMovementOfDeletedProduct(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Cable", 5, 2, 500, 300, nil)

	m, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 5, models.ReasonOther))
	require.NoError(t, err)
	require.NoError(t, f.repo.DeleteProduct(f.ctx, p.ID))
	levels := len(f.events.levels)

	require.NoError(t, f.stock.DeleteMovement(f.ctx, m.ID))
	assert.Len(t, f.events.levels, levels)
}

func TestDeletePurchaseSupplierPolicy(t *testing.T) {
	tests := []struct {
		name      string
		reverse   bool
		wantTotal int64
	}{
		{"supplier total kept", false, 25000},
		{"supplier total reversed", true, 15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.ReverseSupplierOnDelete = tt.reverse
			f := newFixture(t, policy)
			s := f.supplier("Agro Import")
			p := f.product("Maize", 0, 5, 1500, 1000, &s.ID)

			_, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 15, models.ReasonPurchase))
			require.NoError(t, err)
			second, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 10, models.ReasonPurchase))
			require.NoError(t, err)
			assertDecimal(t, 25000, f.reloadSupplier(s.ID).TotalValue)

			require.NoError(t, f.stock.DeleteMovement(f.ctx, second.ID))

			assert.Equal(t, 15, f.reloadProduct(p.ID).Quantity)
			assertDecimal(t, tt.wantTotal, f.reloadSupplier(s.ID).TotalValue)
		})
	}
}

func TestReversedSupplierTotalFloorsAtZero(t *testing.T) {
	policy := DefaultPolicy()
	policy.ReverseSupplierOnDelete = true
	f := newFixture(t, policy)
	s := f.supplier("Agro Import")
	p := f.product("Maize", 0, 5, 1500, 1000, &s.ID)

	m, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, 10, models.ReasonPurchase))
	require.NoError(t, err)

	// A later price increase makes the reversal larger than what was credited
	product := f.reloadProduct(p.ID)
	product.BuyPrice = *amount(5000)
	require.NoError(t, f.repo.UpdateProduct(f.ctx, product))

	require.NoError(t, f.stock.DeleteMovement(f.ctx, m.ID))
	assertDecimal(t, 0, f.reloadSupplier(s.ID).TotalValue)
}

func TestMovementCommentAndListing(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	rice := f.product("Rice", 50, 5, 1000, 800, nil)
	oil := f.product("Oil", 50, 5, 2000, 1500, nil)

	m, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, rice.ID, 5, models.ReasonInventoryAdjustment))
	require.NoError(t, err)
	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, rice.ID, 2, models.ReasonDonation))
	require.NoError(t, err)
	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, oil.ID, 1, models.ReasonTheft))
	require.NoError(t, err)

	updated, err := f.stock.UpdateComment(f.ctx, m.ID, "recount after audit")
	require.NoError(t, err)
	assert.Equal(t, "recount after audit", updated.Comment)
	assert.Equal(t, 5, updated.Quantity)

	_, err = f.stock.UpdateComment(f.ctx, "missing", "x")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	exits, err := f.stock.ListMovements(f.ctx, store.MovementFilter{Type: models.MovementTypeExit})
	require.NoError(t, err)
	assert.Len(t, exits, 2)

	forRice, err := f.stock.ListMovements(f.ctx, store.MovementFilter{ProductID: rice.ID})
	require.NoError(t, err)
	assert.Len(t, forRice, 2)

	stats, err := f.stock.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TodayEntries)
	assert.Equal(t, 2, stats.TodayExits)
	assert.Equal(t, 1, stats.MonthEntries)
	assert.Equal(t, 2, stats.MonthExits)
	assert.True(t, f.mr.Exists("cache:"+stockStatsKey))

	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, oil.ID, 1, models.ReasonOther))
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("cache:"+stockStatsKey))
}

func TestStatusFollowsEveryMovement(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Eggs", 12, 10, 100, 80, nil)

	steps := []*RecordMovementRequest{
		movement(models.MovementTypeExit, p.ID, 2, models.ReasonSale),
		movement(models.MovementTypeExit, p.ID, 10, models.ReasonLoss),
		movement(models.MovementTypeEntry, p.ID, 1, models.ReasonOther),
		movement(models.MovementTypeEntry, p.ID, 10, models.ReasonPurchase),
	}
	want := []string{models.StockStatusLow, models.StockStatusOut, models.StockStatusLow, models.StockStatusOK}

	for i, step := range steps {
		_, err := f.stock.RecordMovement(f.ctx, seller, step)
		require.NoError(t, err)
		product := f.reloadProduct(p.ID)
		assertStatusDerived(t, product)
		assert.Equal(t, want[i], product.Status, "step %d", i)
	}
}

func TestEntryCannotOverflowStock(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	p := f.product("Sand", 10, 2, 100, 80, nil)

	var ve *ValidationError
	_, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, math.MaxInt, models.ReasonOther))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)

	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, models.MaxQuantity, models.ReasonOther))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)
	assert.Equal(t, 10, f.reloadProduct(p.ID).Quantity)

	out, err := f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeExit, p.ID, 5, models.ReasonLoss))
	require.NoError(t, err)
	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, p.ID, models.MaxQuantity-5, models.ReasonOther))
	require.NoError(t, err)
	assert.Equal(t, models.MaxQuantity, f.reloadProduct(p.ID).Quantity)

	// Putting the lost units back would go past the ceiling
	err = f.stock.DeleteMovement(f.ctx, out.ID)
	require.ErrorAs(t, err, &ve)
	product := f.reloadProduct(p.ID)
	assert.Equal(t, models.MaxQuantity, product.Quantity)
	assertStatusDerived(t, product)
}
