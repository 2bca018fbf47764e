package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/redisclient"
	"gestistock/internal/store"
	"gestistock/internal/util"

	"github.com/shopspring/decimal"
)

const (
	dashboardKey = "stats:dashboard"

	topProductsLimit       = 5
	recentSalesLimit       = 5
	dashboardLowStockLimit = 10
	trendDays              = 7
)

// ReportService builds the dashboard and the read-only reports. Revenue
// figures only count completed sales.
type ReportService struct {
	repo  store.Repository
	cache statsCache
	now   func() time.Time
}

// NewReportService creates a new report service. redis may be nil.
func NewReportService(repo store.Repository, redis *redisclient.Client, policy Policy) *ReportService {
	return &ReportService{
		repo:  repo,
		cache: statsCache{redis: redis, ttl: policy.StatsCacheTTL},
		now:   time.Now,
	}
}

// DashboardOverview holds the headline counters
type DashboardOverview struct {
	TotalProducts   int             `json:"total_products"`
	StockValue      decimal.Decimal `json:"stock_value"`
	TodaySalesCount int             `json:"today_sales_count"`
	TodaySalesTotal decimal.Decimal `json:"today_sales_total"`
	MonthSalesCount int             `json:"month_sales_count"`
	MonthRevenue    decimal.Decimal `json:"month_revenue"`
	ActiveClients   int             `json:"active_clients"`
	VIPClients      int             `json:"vip_clients"`
	LowStockAlerts  int             `json:"low_stock_alerts"`
	TodayEntries    int             `json:"today_entries"`
	TodayExits      int             `json:"today_exits"`
	MonthEntries    int             `json:"month_entries"`
	MonthExits      int             `json:"month_exits"`
	ActiveSuppliers int             `json:"active_suppliers"`
	TotalSuppliers  int             `json:"total_suppliers"`
}

// DayRevenue is one point of the sales trend
type DayRevenue struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// CategorySales is the revenue of one product category
type CategorySales struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Products int             `json:"products"`
}

// ProductSales is a product ranked by units sold
type ProductSales struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Dashboard is the home screen summary
type Dashboard struct {
	Overview      DashboardOverview `json:"overview"`
	Last7Days     []DayRevenue      `json:"last_7_days"`
	CategorySales []CategorySales   `json:"category_sales"`
	TopProducts   []ProductSales    `json:"top_products"`
	RecentSales   []models.Sale     `json:"recent_sales"`
	LowStock      []models.Product  `json:"low_stock"`
}

// Dashboard computes the home screen summary. It is cached like the other stats.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Dashboard")
	defer span.End()

	var d Dashboard
	err := s.cache.load(ctx, dashboardKey, &d, func() error {
		var err error
		d, err = s.buildDashboard(ctx)
		return err
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return &d, nil
}

func (s *ReportService) buildDashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	today := startOfDay(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	products, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to list products: %w", err)
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to list sales: %w", err)
	}
	clients, err := s.repo.ListClients(ctx, store.ClientFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to list clients: %w", err)
	}
	suppliers, err := s.repo.ListSuppliers(ctx, store.SupplierFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to list suppliers: %w", err)
	}
	movements, err := s.repo.ListMovements(ctx, store.MovementFilter{From: &month})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to list movements: %w", err)
	}

	o := DashboardOverview{
		TotalProducts:   len(products),
		StockValue:      decimal.Zero,
		TodaySalesTotal: decimal.Zero,
		MonthRevenue:    decimal.Zero,
		TotalSuppliers:  len(suppliers),
	}
	d := Dashboard{
		RecentSales: []models.Sale{},
		LowStock:    []models.Product{},
	}

	for _, p := range products {
		o.StockValue = o.StockValue.Add(stockValue(p, p.BuyPrice))
		if p.Status != models.StockStatusOK {
			o.LowStockAlerts++
		}
	}
	d.LowStock = lowStockFirst(products, dashboardLowStockLimit)

	// sales come newest first
	for i, sale := range sales {
		if i < recentSalesLimit {
			d.RecentSales = append(d.RecentSales, sale)
		}
		if sale.Status != models.SaleStatusCompleted {
			continue
		}
		if !sale.CreatedAt.Before(month) {
			o.MonthSalesCount++
			o.MonthRevenue = o.MonthRevenue.Add(sale.Total)
		}
		if !sale.CreatedAt.Before(today) {
			o.TodaySalesCount++
			o.TodaySalesTotal = o.TodaySalesTotal.Add(sale.Total)
		}
	}

	for _, c := range clients {
		switch c.Status {
		case models.ClientStatusActive:
			o.ActiveClients++
		case models.ClientStatusVIP:
			o.VIPClients++
		}
	}
	for _, sp := range suppliers {
		if sp.Status == models.SupplierStatusActive {
			o.ActiveSuppliers++
		}
	}
	for _, m := range movements {
		isToday := !m.CreatedAt.Before(today)
		switch m.Type {
		case models.MovementTypeEntry:
			o.MonthEntries++
			if isToday {
				o.TodayEntries++
			}
		case models.MovementTypeExit:
			o.MonthExits++
			if isToday {
				o.TodayExits++
			}
		}
	}

	d.Overview = o
	d.Last7Days = dailyTrend(sales, today, trendDays)
	d.CategorySales = categorySales(products, sales)
	d.TopProducts = topProducts(products, sales, topProductsLimit)
	return d, nil
}

// MonthSummary compares sales and purchases for one month
type MonthSummary struct {
	Month     int             `json:"month"`
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
	Profit    decimal.Decimal `json:"profit"`
}

// MonthlyReport covers the twelve months of a year
type MonthlyReport struct {
	Year   int            `json:"year"`
	Months []MonthSummary `json:"months"`
}

// Monthly sums completed sales and purchase entries per month. Purchases are
// valued at the product's current buy price; entries of deleted products count as zero.
func (s *ReportService) Monthly(ctx context.Context, year int) (*MonthlyReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Monthly")
	defer span.End()

	loc := s.now().Location()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(1, 0, 0).Add(-time.Nanosecond)

	sales, err := s.repo.ListSales(ctx, store.SaleFilter{Status: models.SaleStatusCompleted, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	entries, err := s.repo.ListMovements(ctx, store.MovementFilter{Type: models.MovementTypeEntry, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	buyPrices, err := s.buyPrices(ctx)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{Year: year, Months: make([]MonthSummary, 12)}
	for i := range report.Months {
		report.Months[i] = MonthSummary{Month: i + 1, Sales: decimal.Zero, Purchases: decimal.Zero}
	}
	for _, sale := range sales {
		m := &report.Months[sale.CreatedAt.In(loc).Month()-1]
		m.Sales = m.Sales.Add(sale.Total)
	}
	for _, e := range entries {
		if e.Reason != models.ReasonPurchase {
			continue
		}
		price, ok := buyPrices[e.ProductID]
		if !ok {
			continue
		}
		m := &report.Months[e.CreatedAt.In(loc).Month()-1]
		m.Purchases = m.Purchases.Add(price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	for i := range report.Months {
		report.Months[i].Profit = report.Months[i].Sales.Sub(report.Months[i].Purchases)
	}
	return report, nil
}

// DailyReport lists what happened on one day
type DailyReport struct {
	Date       string                 `json:"date"`
	SalesCount int                    `json:"sales_count"`
	SalesTotal decimal.Decimal        `json:"sales_total"`
	Sales      []models.Sale          `json:"sales"`
	Entries    int                    `json:"entries"`
	Exits      int                    `json:"exits"`
	Movements  []models.StockMovement `json:"movements"`
}

// Daily lists the sales and movements recorded on day. Every sale of the day
// is listed; the total only counts completed ones.
func (s *ReportService) Daily(ctx context.Context, day time.Time) (*DailyReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Daily")
	defer span.End()

	from := startOfDay(day)
	to := from.AddDate(0, 0, 1).Add(-time.Nanosecond)

	sales, err := s.repo.ListSales(ctx, store.SaleFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	movements, err := s.repo.ListMovements(ctx, store.MovementFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	report := &DailyReport{
		Date:       from.Format("2006-01-02"),
		SalesCount: len(sales),
		SalesTotal: decimal.Zero,
		Sales:      sales,
		Movements:  movements,
	}
	for _, sale := range sales {
		if sale.Status == models.SaleStatusCompleted {
			report.SalesTotal = report.SalesTotal.Add(sale.Total)
		}
	}
	for _, m := range movements {
		if m.Type == models.MovementTypeEntry {
			report.Entries++
		} else {
			report.Exits++
		}
	}
	return report, nil
}

// ProductReportRow summarizes one product's sales and movements
type ProductReportRow struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	CurrentStock int             `json:"current_stock"`
	Unit         string          `json:"unit"`
	BuyPrice     decimal.Decimal `json:"buy_price"`
	SellPrice    decimal.Decimal `json:"sell_price"`
	SupplierName string          `json:"supplier_name,omitempty"`
	Status       string          `json:"status"`
	TotalSold    int             `json:"total_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Entries      int             `json:"entries"`
	Exits        int             `json:"exits"`
}

// Products reports units sold, revenue and movement volumes per product, by name
func (s *ReportService) Products(ctx context.Context) ([]ProductReportRow, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Products")
	defer span.End()

	products, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{Status: models.SaleStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	movements, err := s.repo.ListMovements(ctx, store.MovementFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	suppliers, err := s.repo.ListSuppliers(ctx, store.SupplierFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	supplierNames := make(map[string]string, len(suppliers))
	for _, sp := range suppliers {
		supplierNames[sp.ID] = sp.Name
	}
	sold := soldByProduct(sales)

	rows := make(map[string]*ProductReportRow, len(products))
	out := make([]ProductReportRow, 0, len(products))
	for _, p := range sortedByName(products) {
		row := ProductReportRow{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     p.Category,
			CurrentStock: p.Quantity,
			Unit:         p.Unit,
			BuyPrice:     p.BuyPrice,
			SellPrice:    p.SellPrice,
			Status:       p.Status,
			Revenue:      decimal.Zero,
		}
		if p.SupplierID != nil {
			row.SupplierName = supplierNames[*p.SupplierID]
		}
		if ps, ok := sold[p.ID]; ok {
			row.TotalSold = ps.Quantity
			row.Revenue = ps.Revenue
		}
		out = append(out, row)
	}
	for i := range out {
		rows[out[i].ProductID] = &out[i]
	}
	for _, m := range movements {
		row, ok := rows[m.ProductID]
		if !ok {
			continue
		}
		if m.Type == models.MovementTypeEntry {
			row.Entries += m.Quantity
		} else {
			row.Exits += m.Quantity
		}
	}
	return out, nil
}

// CategoryReportRow summarizes one product category
type CategoryReportRow struct {
	Category     string          `json:"category"`
	ProductCount int             `json:"product_count"`
	TotalStock   int             `json:"total_stock"`
	TotalValue   decimal.Decimal `json:"total_value"`
	TotalSold    int             `json:"total_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// Categories reports stock and sales per category. Stock is valued at sell price.
func (s *ReportService) Categories(ctx context.Context) ([]CategoryReportRow, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Categories")
	defer span.End()

	products, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{Status: models.SaleStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	sold := soldByProduct(sales)

	rows := make(map[string]*CategoryReportRow, len(models.Categories))
	out := make([]CategoryReportRow, len(models.Categories))
	for i, category := range models.Categories {
		out[i] = CategoryReportRow{Category: category, TotalValue: decimal.Zero, Revenue: decimal.Zero}
		rows[category] = &out[i]
	}
	for _, p := range products {
		row, ok := rows[p.Category]
		if !ok {
			continue
		}
		row.ProductCount++
		row.TotalStock += p.Quantity
		row.TotalValue = row.TotalValue.Add(stockValue(p, p.SellPrice))
		if ps, ok := sold[p.ID]; ok {
			row.TotalSold += ps.Quantity
			row.Revenue = row.Revenue.Add(ps.Revenue)
		}
	}
	return out, nil
}

// Clients ranks clients by total purchases, biggest first
func (s *ReportService) Clients(ctx context.Context) ([]models.Client, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Clients")
	defer span.End()

	clients, err := s.repo.ListClients(ctx, store.ClientFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].TotalPurchases.GreaterThan(clients[j].TotalPurchases)
	})
	return clients, nil
}

// ClientSalesReport is the purchase history of one client
type ClientSalesReport struct {
	Client     *models.Client  `json:"client"`
	SalesCount int             `json:"sales_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Sales      []models.Sale   `json:"sales"`
}

// ClientSales lists a client's sales, newest first. TotalSpent counts completed sales.
func (s *ReportService) ClientSales(ctx context.Context, clientID string) (*ClientSalesReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.ClientSales")
	defer span.End()

	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return nil, notFound(err, "client", clientID)
	}
	sales, err := s.repo.ListSales(ctx, store.SaleFilter{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	report := &ClientSalesReport{Client: client, SalesCount: len(sales), TotalSpent: decimal.Zero, Sales: sales}
	for _, sale := range sales {
		if sale.Status == models.SaleStatusCompleted {
			report.TotalSpent = report.TotalSpent.Add(sale.Total)
		}
	}
	return report, nil
}

// InventorySummary totals the inventory valuation
type InventorySummary struct {
	TotalProducts   int             `json:"total_products"`
	TotalItems      int             `json:"total_items"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
}

// InventoryReport values the stock at buy price
type InventoryReport struct {
	Summary  InventorySummary `json:"summary"`
	Products []models.Product `json:"products"`
}

// Inventory values every product at its buy price, products sorted by name
func (s *ReportService) Inventory(ctx context.Context) (*InventoryReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Inventory")
	defer span.End()

	products, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	report := &InventoryReport{
		Summary:  InventorySummary{TotalProducts: len(products), TotalValue: decimal.Zero},
		Products: sortedByName(products),
	}
	for _, p := range products {
		report.Summary.TotalItems += p.Quantity
		report.Summary.TotalValue = report.Summary.TotalValue.Add(stockValue(p, p.BuyPrice))
		switch p.Status {
		case models.StockStatusLow:
			report.Summary.LowStockCount++
		case models.StockStatusOut:
			report.Summary.OutOfStockCount++
		}
	}
	return report, nil
}

func (s *ReportService) buyPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	products, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	prices := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.BuyPrice
	}
	return prices, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func stockValue(p models.Product, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// soldByProduct sums quantities and line totals per product
func soldByProduct(sales []models.Sale) map[string]*ProductSales {
	sold := make(map[string]*ProductSales)
	for _, sale := range sales {
		if sale.Status != models.SaleStatusCompleted {
			continue
		}
		for _, item := range sale.Items {
			ps, ok := sold[item.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: item.ProductID, Name: item.ProductName, Revenue: decimal.Zero}
				sold[item.ProductID] = ps
			}
			ps.Quantity += item.Quantity
			ps.Revenue = ps.Revenue.Add(item.Total)
		}
	}
	return sold
}

// dailyTrend buckets completed sales into the days ending today, oldest first
func dailyTrend(sales []models.Sale, today time.Time, days int) []DayRevenue {
	trend := make([]DayRevenue, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		trend[i] = DayRevenue{Date: day, Revenue: decimal.Zero}
		index[day] = i
	}
	for _, sale := range sales {
		if sale.Status != models.SaleStatusCompleted {
			continue
		}
		i, ok := index[sale.CreatedAt.In(today.Location()).Format("2006-01-02")]
		if !ok {
			continue
		}
		trend[i].Sales++
		trend[i].Revenue = trend[i].Revenue.Add(sale.Total)
	}
	return trend
}

func categorySales(products []models.Product, sales []models.Sale) []CategorySales {
	categoryOf := make(map[string]string, len(products))
	out := make([]CategorySales, len(models.Categories))
	rows := make(map[string]*CategorySales, len(models.Categories))
	for i, category := range models.Categories {
		out[i] = CategorySales{Category: category, Revenue: decimal.Zero}
		rows[category] = &out[i]
	}
	for _, p := range products {
		categoryOf[p.ID] = p.Category
		if row, ok := rows[p.Category]; ok {
			row.Products++
		}
	}
	for id, ps := range soldByProduct(sales) {
		if row, ok := rows[categoryOf[id]]; ok {
			row.Revenue = row.Revenue.Add(ps.Revenue)
		}
	}
	return out
}

// topProducts ranks products still in the catalog by units sold
func topProducts(products []models.Product, sales []models.Sale, limit int) []ProductSales {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	ranked := make([]ProductSales, 0, len(products))
	for id, ps := range soldByProduct(sales) {
		name, ok := names[id]
		if !ok {
			continue
		}
		ps.Name = name
		ranked = append(ranked, *ps)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// lowStockFirst returns up to limit products that are low or out, lowest quantity first
func lowStockFirst(products []models.Product, limit int) []models.Product {
	out := make([]models.Product, 0, limit)
	for _, p := range products {
		if p.Status != models.StockStatusOK {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortedByName(products []models.Product) []models.Product {
	out := append([]models.Product(nil), products...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
