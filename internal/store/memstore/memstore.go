// Package memstore is an in-process implementation of store.Repository used
// by tests and by the server when DATABASE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gestistock/internal/models"
	"gestistock/internal/store"
)

type data struct {
	products      []models.Product
	clients       []models.Client
	suppliers     []models.Supplier
	sales         []models.Sale
	movements     []models.StockMovement
	notifications []models.Notification
	sequences     map[int]int
}

func (d *data) clone() *data {
	c := &data{
		products:      append([]models.Product(nil), d.products...),
		clients:       append([]models.Client(nil), d.clients...),
		suppliers:     append([]models.Supplier(nil), d.suppliers...),
		sales:         make([]models.Sale, len(d.sales)),
		movements:     append([]models.StockMovement(nil), d.movements...),
		notifications: append([]models.Notification(nil), d.notifications...),
		sequences:     make(map[int]int, len(d.sequences)),
	}
	for i := range d.sales {
		c.sales[i] = copySale(d.sales[i])
	}
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store keeps every record in memory. Transactions are serialized and
// restored from a snapshot when fn fails.
type Store struct {
	*view
	mu sync.Mutex
}

// New creates an empty store
func New() *Store {
	s := &Store{}
	s.view = &view{d: &data{sequences: map[int]int{}}}
	s.view.lock = func() func() {
		s.mu.Lock()
		return s.mu.Unlock
	}
	return s
}

// WithTx runs fn with exclusive access, discarding its writes if it returns an error
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.view.d.clone()
	tx := &view{d: s.view.d, lock: noLock}
	if err := fn(ctx, tx); err != nil {
		s.view.d = snapshot
		return err
	}
	return nil
}

// Close is a no-op kept for parity with the SQL store
func (s *Store) Close() error { return nil }

func noLock() func() { return func() {} }

// view implements store.Tx over a data set
type view struct {
	d    *data
	lock func() func()
}

func copySale(s models.Sale) models.Sale {
	s.Items = append([]models.SaleItem{}, s.Items...)
	s.Payments = append([]models.Payment{}, s.Payments...)
	return s
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// newestFirst walks records from the most recently inserted and sorts them by creation time
func newestFirst[T any](records []T, keep func(T) bool, createdAt func(T) time.Time) []T {
	out := []T{}
	for i := len(records) - 1; i >= 0; i-- {
		if keep(records[i]) {
			out = append(out, records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).After(createdAt(out[j]))
	})
	return out
}

func (v *view) productIndex(id string) int {
	for i := range v.d.products {
		if v.d.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	defer v.lock()()
	i := v.productIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	p := v.d.products[i]
	return &p, nil
}

func (v *view) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	return v.GetProduct(ctx, id)
}

func (v *view) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	defer v.lock()()
	out := newestFirst(v.d.products, func(p models.Product) bool {
		if !matches(filter.Search, p.Name, p.Category) {
			return false
		}
		if filter.Category != "" && p.Category != filter.Category {
			return false
		}
		return len(filter.Statuses) == 0 || contains(filter.Statuses, p.Status)
	}, func(p models.Product) time.Time { return p.CreatedAt })
	if filter.SortByQuantity {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	}
	return out, nil
}

func (v *view) CreateProduct(ctx context.Context, product *models.Product) error {
	defer v.lock()()
	v.d.products = append(v.d.products, *product)
	return nil
}

func (v *view) UpdateProduct(ctx context.Context, product *models.Product) error {
	defer v.lock()()
	i := v.productIndex(product.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.products[i] = *product
	return nil
}

func (v *view) UpdateProductStock(ctx context.Context, product *models.Product, previous int) error {
	defer v.lock()()
	i := v.productIndex(product.ID)
	if i < 0 || v.d.products[i].Quantity != previous {
		return store.ErrStockConflict
	}
	stored := &v.d.products[i]
	stored.Quantity = product.Quantity
	stored.Status = product.Status
	stored.UpdatedAt = product.UpdatedAt
	return nil
}

func (v *view) DeleteProduct(ctx context.Context, id string) error {
	defer v.lock()()
	i := v.productIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.products = append(v.d.products[:i], v.d.products[i+1:]...)
	return nil
}

func (v *view) clientIndex(id string) int {
	for i := range v.d.clients {
		if v.d.clients[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) GetClient(ctx context.Context, id string) (*models.Client, error) {
	defer v.lock()()
	i := v.clientIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	c := v.d.clients[i]
	return &c, nil
}

func (v *view) GetClientForUpdate(ctx context.Context, id string) (*models.Client, error) {
	return v.GetClient(ctx, id)
}

func (v *view) ListClients(ctx context.Context, filter store.ClientFilter) ([]models.Client, error) {
	defer v.lock()()
	return newestFirst(v.d.clients, func(c models.Client) bool {
		return matches(filter.Search, c.Name, c.Phone) && (filter.Status == "" || c.Status == filter.Status)
	}, func(c models.Client) time.Time { return c.CreatedAt }), nil
}

func (v *view) CreateClient(ctx context.Context, client *models.Client) error {
	defer v.lock()()
	v.d.clients = append(v.d.clients, *client)
	return nil
}

func (v *view) UpdateClient(ctx context.Context, client *models.Client) error {
	defer v.lock()()
	i := v.clientIndex(client.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.clients[i] = *client
	return nil
}

func (v *view) DeleteClient(ctx context.Context, id string) error {
	defer v.lock()()
	i := v.clientIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.clients = append(v.d.clients[:i], v.d.clients[i+1:]...)
	return nil
}

func (v *view) supplierIndex(id string) int {
	for i := range v.d.suppliers {
		if v.d.suppliers[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	defer v.lock()()
	i := v.supplierIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	s := v.d.suppliers[i]
	return &s, nil
}

func (v *view) GetSupplierForUpdate(ctx context.Context, id string) (*models.Supplier, error) {
	return v.GetSupplier(ctx, id)
}

func (v *view) ListSuppliers(ctx context.Context, filter store.SupplierFilter) ([]models.Supplier, error) {
	defer v.lock()()
	return newestFirst(v.d.suppliers, func(s models.Supplier) bool {
		return matches(filter.Search, s.Name, s.Contact) && (filter.Status == "" || s.Status == filter.Status)
	}, func(s models.Supplier) time.Time { return s.CreatedAt }), nil
}

func (v *view) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	defer v.lock()()
	v.d.suppliers = append(v.d.suppliers, *supplier)
	return nil
}

func (v *view) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	defer v.lock()()
	i := v.supplierIndex(supplier.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.suppliers[i] = *supplier
	return nil
}

func (v *view) DeleteSupplier(ctx context.Context, id string) error {
	defer v.lock()()
	i := v.supplierIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.suppliers = append(v.d.suppliers[:i], v.d.suppliers[i+1:]...)
	for j := range v.d.products {
		if p := &v.d.products[j]; p.SupplierID != nil && *p.SupplierID == id {
			p.SupplierID = nil
		}
	}
	return nil
}

func (v *view) saleIndex(id string) int {
	for i := range v.d.sales {
		if v.d.sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	defer v.lock()()
	i := v.saleIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	s := copySale(v.d.sales[i])
	return &s, nil
}

func (v *view) GetSaleForUpdate(ctx context.Context, id string) (*models.Sale, error) {
	return v.GetSale(ctx, id)
}

func (v *view) ListSales(ctx context.Context, filter store.SaleFilter) ([]models.Sale, error) {
	defer v.lock()()
	out := newestFirst(v.d.sales, func(s models.Sale) bool {
		if !matches(filter.Search, s.SaleNumber, s.ClientName) {
			return false
		}
		if filter.Status != "" && s.Status != filter.Status {
			return false
		}
		if len(filter.PaymentStatuses) > 0 && !contains(filter.PaymentStatuses, s.PaymentStatus) {
			return false
		}
		if filter.ClientID != "" && s.ClientID != filter.ClientID {
			return false
		}
		return inRange(s.CreatedAt, filter.From, filter.To)
	}, func(s models.Sale) time.Time { return s.CreatedAt })

	if filter.OrderByDueDate {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].DueDate, out[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	}
	for i := range out {
		out[i] = copySale(out[i])
	}
	return out, nil
}

func (v *view) CreateSale(ctx context.Context, sale *models.Sale) error {
	defer v.lock()()
	for _, s := range v.d.sales {
		if s.SaleNumber == sale.SaleNumber {
			return store.ErrDuplicate
		}
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
		sale.Items[i].Position = i
	}
	for i := range sale.Payments {
		sale.Payments[i].SaleID = sale.ID
		sale.Payments[i].Position = i
	}
	v.d.sales = append(v.d.sales, copySale(*sale))
	return nil
}

func (v *view) UpdateSale(ctx context.Context, sale *models.Sale) error {
	defer v.lock()()
	i := v.saleIndex(sale.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	stored := &v.d.sales[i]
	stored.AmountPaid = sale.AmountPaid
	stored.AmountDue = sale.AmountDue
	stored.PaymentStatus = sale.PaymentStatus
	stored.Status = sale.Status
	stored.DueDate = sale.DueDate
	stored.Notes = sale.Notes
	stored.UpdatedAt = sale.UpdatedAt
	return nil
}

func (v *view) AddPayment(ctx context.Context, saleID string, payment *models.Payment) error {
	defer v.lock()()
	i := v.saleIndex(saleID)
	if i < 0 {
		return store.ErrNotFound
	}
	payment.SaleID = saleID
	payment.Position = len(v.d.sales[i].Payments)
	v.d.sales[i].Payments = append(v.d.sales[i].Payments, *payment)
	return nil
}

func (v *view) DeleteSale(ctx context.Context, id string) error {
	defer v.lock()()
	i := v.saleIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.sales = append(v.d.sales[:i], v.d.sales[i+1:]...)
	return nil
}

func (v *view) NextSaleSequence(ctx context.Context, year int) (int, error) {
	defer v.lock()()
	v.d.sequences[year]++
	return v.d.sequences[year], nil
}

func (v *view) movementIndex(id string) int {
	for i := range v.d.movements {
		if v.d.movements[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) GetMovement(ctx context.Context, id string) (*models.StockMovement, error) {
	defer v.lock()()
	i := v.movementIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	m := v.d.movements[i]
	return &m, nil
}

func (v *view) ListMovements(ctx context.Context, filter store.MovementFilter) ([]models.StockMovement, error) {
	defer v.lock()()
	return newestFirst(v.d.movements, func(m models.StockMovement) bool {
		if !matches(filter.Search, m.ProductName, m.UserName, m.Reason) {
			return false
		}
		if filter.Type != "" && m.Type != filter.Type {
			return false
		}
		if filter.ProductID != "" && m.ProductID != filter.ProductID {
			return false
		}
		return inRange(m.CreatedAt, filter.From, filter.To)
	}, func(m models.StockMovement) time.Time { return m.CreatedAt }), nil
}

func (v *view) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	defer v.lock()()
	v.d.movements = append(v.d.movements, *movement)
	return nil
}

func (v *view) UpdateMovementComment(ctx context.Context, id, comment string) error {
	defer v.lock()()
	i := v.movementIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.movements[i].Comment = comment
	return nil
}

func (v *view) DeleteMovement(ctx context.Context, id string) error {
	defer v.lock()()
	i := v.movementIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.movements = append(v.d.movements[:i], v.d.movements[i+1:]...)
	return nil
}

func (v *view) notificationIndex(id string) int {
	for i := range v.d.notifications {
		if v.d.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) CreateNotification(ctx context.Context, n *models.Notification) error {
	defer v.lock()()
	v.d.notifications = append(v.d.notifications, *n)
	return nil
}

func (v *view) HasUnreadNotification(ctx context.Context, notificationType, productID string) (bool, error) {
	defer v.lock()()
	for _, n := range v.d.notifications {
		if !n.Read && n.Type == notificationType && n.ProductID != nil && *n.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	defer v.lock()()
	out := newestFirst(v.d.notifications, func(n models.Notification) bool {
		return !unreadOnly || !n.Read
	}, func(n models.Notification) time.Time { return n.CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *view) CountUnreadNotifications(ctx context.Context) (int, error) {
	defer v.lock()()
	count := 0
	for _, n := range v.d.notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (v *view) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	defer v.lock()()
	i := v.notificationIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	v.d.notifications[i].Read = true
	n := v.d.notifications[i]
	return &n, nil
}

func (v *view) MarkAllNotificationsRead(ctx context.Context) error {
	defer v.lock()()
	for i := range v.d.notifications {
		v.d.notifications[i].Read = true
	}
	return nil
}

func (v *view) DeleteNotification(ctx context.Context, id string) error {
	defer v.lock()()
	i := v.notificationIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	v.d.notifications = append(v.d.notifications[:i], v.d.notifications[i+1:]...)
	return nil
}
