package service

import (
	"errors"
	"testing"
	"time"

	"gestistock/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportScenario struct {
	f      *fixture
	rice   *models.Product
	cement *models.Product
	soap   *models.Product
	ndiaye *models.Client
	mbarga *models.Client
}

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2026, month, day, hour, 0, 0, 0, time.Local)
}

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// newReportScenario records a quarter of activity and leaves the clock on 15 March, 18:00:
//
//	Jan 10  sale      Ndiaye  rice x2              10000
//	Jan 20  purchase  cement x2 at 5000
//	Mar 13  sale      Mbarga  rice x3, cement x1   21000
//	Mar 15  purchase  rice x10 at 4000, loss rice x1
//	Mar 15  sale      Ndiaye  rice x5              25000
//	Mar 15  sale      Mbarga  rice x1 (cancelled)   5000
func newReportScenario(t *testing.T) *reportScenario {
	f := newFixture(t, DefaultPolicy())
	sup := f.supplier("Sodicam")
	sc := &reportScenario{
		f:      f,
		rice:   f.product("Rice 50kg", 40, 5, 5000, 4000, &sup.ID),
		cement: f.product("Cement", 4, 5, 6000, 5000, nil),
		soap:   f.product("Soap", 0, 2, 500, 300, nil),
		ndiaye: f.client("Boutique Ndiaye", 0),
		mbarga: f.client("Chantier Mbarga", 0),
	}
	sc.cement.Category = models.CategoryHardware
	require.NoError(t, f.repo.UpdateProduct(f.ctx, sc.cement))

	sell := func(when time.Time, clientID string, items ...SaleItemRequest) *models.Sale {
		f.sales.now = clock(when)
		sale, err := f.sales.CreateSale(f.ctx, seller, saleRequest(clientID, items...))
		require.NoError(t, err)
		return sale
	}
	move := func(when time.Time, req *RecordMovementRequest) {
		f.stock.now = clock(when)
		_, err := f.stock.RecordMovement(f.ctx, seller, req)
		require.NoError(t, err)
	}

	sell(at(time.January, 10, 9), sc.ndiaye.ID, SaleItemRequest{ProductID: sc.rice.ID, Quantity: 2})
	move(at(time.January, 20, 9), movement(models.MovementTypeEntry, sc.cement.ID, 2, models.ReasonPurchase))
	sell(at(time.March, 13, 9), sc.mbarga.ID,
		SaleItemRequest{ProductID: sc.rice.ID, Quantity: 3},
		SaleItemRequest{ProductID: sc.cement.ID, Quantity: 1})
	move(at(time.March, 15, 8), movement(models.MovementTypeEntry, sc.rice.ID, 10, models.ReasonPurchase))
	move(at(time.March, 15, 8), movement(models.MovementTypeExit, sc.rice.ID, 1, models.ReasonLoss))
	sell(at(time.March, 15, 9), sc.ndiaye.ID, SaleItemRequest{ProductID: sc.rice.ID, Quantity: 5})
	cancelled := sell(at(time.March, 15, 11), sc.mbarga.ID, SaleItemRequest{ProductID: sc.rice.ID, Quantity: 1})

	status := models.SaleStatusCancelled
	_, err := f.sales.UpdateSale(f.ctx, cancelled.ID, &UpdateSaleRequest{Status: &status})
	require.NoError(t, err)

	f.reports.now = clock(at(time.March, 15, 18))
	return sc
}

func TestDashboard(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	d, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)

	o := d.Overview
	assert.Equal(t, 3, o.TotalProducts)
	// rice 38 x 4000 + cement 5 x 5000
	assertDecimal(t, 177000, o.StockValue)
	assert.Equal(t, 1, o.TodaySalesCount)
	assertDecimal(t, 25000, o.TodaySalesTotal)
	assert.Equal(t, 2, o.MonthSalesCount)
	assertDecimal(t, 46000, o.MonthRevenue)
	assert.Equal(t, 2, o.ActiveClients)
	assert.Equal(t, 0, o.VIPClients)
	assert.Equal(t, 2, o.LowStockAlerts)
	assert.Equal(t, 1, o.TodayEntries)
	assert.Equal(t, 1, o.TodayExits)
	assert.Equal(t, 1, o.MonthEntries)
	assert.Equal(t, 1, o.MonthExits)
	assert.Equal(t, 1, o.ActiveSuppliers)
	assert.Equal(t, 1, o.TotalSuppliers)

	require.Len(t, d.Last7Days, 7)
	assert.Equal(t, "2026-03-09", d.Last7Days[0].Date)
	assert.Equal(t, "2026-03-15", d.Last7Days[6].Date)
	assert.Equal(t, 1, d.Last7Days[4].Sales)
	assertDecimal(t, 21000, d.Last7Days[4].Revenue)
	assert.Equal(t, 1, d.Last7Days[6].Sales)
	assertDecimal(t, 25000, d.Last7Days[6].Revenue)
	assert.Equal(t, 0, d.Last7Days[5].Sales)

	require.Len(t, d.CategorySales, len(models.Categories))
	assert.Equal(t, models.CategoryFood, d.CategorySales[0].Category)
	assertDecimal(t, 50000, d.CategorySales[0].Revenue)
	assert.Equal(t, 2, d.CategorySales[0].Products)
	assert.Equal(t, models.CategoryHardware, d.CategorySales[1].Category)
	assertDecimal(t, 6000, d.CategorySales[1].Revenue)
	assertDecimal(t, 0, d.CategorySales[2].Revenue)

	require.Len(t, d.TopProducts, 2)
	assert.Equal(t, sc.rice.ID, d.TopProducts[0].ProductID)
	assert.Equal(t, 10, d.TopProducts[0].Quantity)
	assertDecimal(t, 50000, d.TopProducts[0].Revenue)
	assert.Equal(t, sc.cement.ID, d.TopProducts[1].ProductID)

	require.Len(t, d.RecentSales, 4)
	assert.Equal(t, models.SaleStatusCancelled, d.RecentSales[0].Status)

	require.Len(t, d.LowStock, 2)
	assert.Equal(t, sc.soap.ID, d.LowStock[0].ID)
	assert.Equal(t, sc.cement.ID, d.LowStock[1].ID)
}

func TestDashboardIsCachedUntilStockOrSalesChange(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	d, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Overview.ActiveClients)

	// written straight to the store, so nothing invalidates the cache
	f.client("Quincaillerie Fotso", 0)
	d, err = f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Overview.ActiveClients)
	assertDecimal(t, 177000, d.Overview.StockValue)

	f.stock.now = clock(at(time.March, 15, 12))
	_, err = f.stock.RecordMovement(f.ctx, seller, movement(models.MovementTypeEntry, sc.soap.ID, 10, models.ReasonProduction))
	require.NoError(t, err)

	d, err = f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Overview.ActiveClients)
	assertDecimal(t, 180000, d.Overview.StockValue)
	assert.Equal(t, 2, d.Overview.TodayEntries)
	assert.Equal(t, 1, d.Overview.LowStockAlerts)
}

func TestMonthlyReport(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	report, err := f.reports.Monthly(f.ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2026, report.Year)
	require.Len(t, report.Months, 12)

	jan, feb, mar := report.Months[0], report.Months[1], report.Months[2]
	assertDecimal(t, 10000, jan.Sales)
	assertDecimal(t, 10000, jan.Purchases)
	assertDecimal(t, 0, jan.Profit)
	assertDecimal(t, 0, feb.Sales)
	assertDecimal(t, 46000, mar.Sales)
	assertDecimal(t, 40000, mar.Purchases)
	assertDecimal(t, 6000, mar.Profit)

	empty, err := f.reports.Monthly(f.ctx, 2025)
	require.NoError(t, err)
	for _, m := range empty.Months {
		assertDecimal(t, 0, m.Sales)
		assertDecimal(t, 0, m.Purchases)
	}
}

func TestDailyReport(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	report, err := f.reports.Daily(f.ctx, at(time.March, 15, 7))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", report.Date)
	assert.Equal(t, 2, report.SalesCount)
	assert.Len(t, report.Sales, 2)
	assertDecimal(t, 25000, report.SalesTotal)
	assert.Equal(t, 1, report.Entries)
	assert.Equal(t, 1, report.Exits)
	assert.Len(t, report.Movements, 2)

	quiet, err := f.reports.Daily(f.ctx, at(time.March, 14, 7))
	require.NoError(t, err)
	assert.Equal(t, 0, quiet.SalesCount)
	assert.Empty(t, quiet.Movements)
}

func TestProductAndCategoryReports(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	rows, err := f.reports.Products(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Cement", "Rice 50kg", "Soap"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})

	rice := rows[1]
	assert.Equal(t, 38, rice.CurrentStock)
	assert.Equal(t, "Sodicam", rice.SupplierName)
	assert.Equal(t, 10, rice.TotalSold)
	assertDecimal(t, 50000, rice.Revenue)
	assert.Equal(t, 10, rice.Entries)
	assert.Equal(t, 1, rice.Exits)

	cement := rows[0]
	assert.Empty(t, cement.SupplierName)
	assert.Equal(t, 1, cement.TotalSold)
	assert.Equal(t, 2, cement.Entries)
	assert.Equal(t, models.StockStatusLow, cement.Status)

	categories, err := f.reports.Categories(f.ctx)
	require.NoError(t, err)
	require.Len(t, categories, len(models.Categories))

	food := categories[0]
	assert.Equal(t, 2, food.ProductCount)
	assert.Equal(t, 38, food.TotalStock)
	assertDecimal(t, 190000, food.TotalValue)
	assert.Equal(t, 10, food.TotalSold)
	assertDecimal(t, 50000, food.Revenue)

	hardware := categories[1]
	assert.Equal(t, 1, hardware.ProductCount)
	assertDecimal(t, 30000, hardware.TotalValue)
	assertDecimal(t, 6000, hardware.Revenue)

	assert.Equal(t, 0, categories[2].ProductCount)
}

func TestClientReports(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	clients, err := f.reports.Clients(f.ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, sc.ndiaye.ID, clients[0].ID)
	assert.True(t, clients[0].TotalPurchases.GreaterThan(clients[1].TotalPurchases))

	history, err := f.reports.ClientSales(f.ctx, sc.mbarga.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.mbarga.Name, history.Client.Name)
	assert.Equal(t, 2, history.SalesCount)
	assertDecimal(t, 21000, history.TotalSpent)
	require.Len(t, history.Sales, 2)
	assert.Equal(t, models.SaleStatusCancelled, history.Sales[0].Status)

	_, err = f.reports.ClientSales(f.ctx, uuid.New().String())
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf), "got %v", err)
}

func TestInventoryReport(t *testing.T) {
	sc := newReportScenario(t)
	f := sc.f

	report, err := f.reports.Inventory(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.TotalProducts)
	assert.Equal(t, 43, report.Summary.TotalItems)
	assertDecimal(t, 177000, report.Summary.TotalValue)
	assert.Equal(t, 1, report.Summary.LowStockCount)
	assert.Equal(t, 1, report.Summary.OutOfStockCount)
	require.Len(t, report.Products, 3)
	assert.Equal(t, sc.cement.ID, report.Products[0].ID)
	assert.Equal(t, sc.soap.ID, report.Products[2].ID)
}

func TestReportsOnEmptyStore(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	d, err := f.reports.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Overview.TotalProducts)
	assertDecimal(t, 0, d.Overview.StockValue)
	assert.Len(t, d.Last7Days, 7)
	assert.Empty(t, d.TopProducts)
	assert.NotNil(t, d.RecentSales)
	assert.NotNil(t, d.LowStock)

	inv, err := f.reports.Inventory(f.ctx)
	require.NoError(t, err)
	assertDecimal(t, 0, inv.Summary.TotalValue)
	assert.Empty(t, inv.Products)
}
