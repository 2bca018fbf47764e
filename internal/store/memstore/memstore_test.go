package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxRestoresOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &models.Product{ID: "p1", Name: "Soap", Threshold: 10}
	p.SetQuantity(8)
	require.NoError(t, s.CreateProduct(ctx, p))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetProductForUpdate(ctx, "p1")
		require.NoError(t, err)
		got.SetQuantity(0)
		require.NoError(t, tx.UpdateProductStock(ctx, got, 8))
		require.NoError(t, tx.CreateClient(ctx, &models.Client{ID: "c1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)
	assert.Equal(t, models.StockStatusLow, got.Status)

	_, err = s.GetClient(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProductStockConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &models.Product{ID: "p1", Threshold: 10}
	p.SetQuantity(20)
	require.NoError(t, s.CreateProduct(ctx, p))

	p.SetQuantity(5)
	assert.ErrorIs(t, s.UpdateProductStock(ctx, p, 19), store.ErrStockConflict)
	assert.NoError(t, s.UpdateProductStock(ctx, p, 20))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	sale := &models.Sale{ID: "s1", SaleNumber: "VNT-2026-0001", Items: []models.SaleItem{{ProductID: "p1", Quantity: 2}}}
	require.NoError(t, s.CreateSale(ctx, sale))

	got, err := s.GetSale(ctx, "s1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := s.GetSale(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)

	assert.ErrorIs(t, s.CreateSale(ctx, &models.Sale{ID: "s2", SaleNumber: "VNT-2026-0001"}), store.ErrDuplicate)
}

func TestListSalesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	due := base.AddDate(0, 0, 7)

	require.NoError(t, s.CreateSale(ctx, &models.Sale{ID: "a", SaleNumber: "VNT-2026-0001", ClientID: "c1",
		ClientName: "Awa", PaymentStatus: models.PaymentStatusPaid, CreatedAt: base}))
	require.NoError(t, s.CreateSale(ctx, &models.Sale{ID: "b", SaleNumber: "VNT-2026-0002", ClientID: "c2",
		ClientName: "Jean", PaymentStatus: models.PaymentStatusPartial, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.CreateSale(ctx, &models.Sale{ID: "c", SaleNumber: "VNT-2026-0003", ClientID: "c1",
		ClientName: "Awa", PaymentStatus: models.PaymentStatusUnpaid, DueDate: &due, CreatedAt: base.Add(2 * time.Hour)}))

	all, err := s.ListSales(ctx, store.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	open, err := s.ListSales(ctx, store.SaleFilter{
		PaymentStatuses: []string{models.PaymentStatusPartial, models.PaymentStatusUnpaid},
		OrderByDueDate:  true,
	})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "c", open[0].ID)

	awa, err := s.ListSales(ctx, store.SaleFilter{Search: "awa"})
	require.NoError(t, err)
	assert.Len(t, awa, 2)

	from := base.Add(30 * time.Minute)
	later, err := s.ListSales(ctx, store.SaleFilter{From: &from, ClientID: "c1"})
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "c", later[0].ID)
}

func TestSequencesArePerYear(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, _ := s.NextSaleSequence(ctx, 2025)
	assert.Equal(t, 1, n)
	n, _ = s.NextSaleSequence(ctx, 2025)
	assert.Equal(t, 2, n)
	n, _ = s.NextSaleSequence(ctx, 2026)
	assert.Equal(t, 1, n)
}

func TestNotifications(t *testing.T) {
	s := New()
	ctx := context.Background()
	pid := "p1"
	now := time.Now()

	require.NoError(t, s.CreateNotification(ctx, &models.Notification{ID: "n1", Type: models.NotificationStockLow, ProductID: &pid, CreatedAt: now}))
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{ID: "n2", Type: models.NotificationSale, CreatedAt: now.Add(time.Second)}))

	has, err := s.HasUnreadNotification(ctx, models.NotificationStockLow, pid)
	require.NoError(t, err)
	assert.True(t, has)

	n, err := s.MarkNotificationRead(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, n.Read)

	has, _ = s.HasUnreadNotification(ctx, models.NotificationStockLow, pid)
	assert.False(t, has)

	count, _ := s.CountUnreadNotifications(ctx)
	assert.Equal(t, 1, count)

	list, err := s.ListNotifications(ctx, false, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n2", list[0].ID)

	require.NoError(t, s.MarkAllNotificationsRead(ctx))
	count, _ = s.CountUnreadNotifications(ctx)
	assert.Zero(t, count)
}
