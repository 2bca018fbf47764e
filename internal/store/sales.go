package store

import (
	"context"
	"errors"

	"gestistock/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const saleColumns = `id, sale_number, client_id, client_name, subtotal, tax, total, amount_paid,
	amount_due, payment_status, status, due_date, user_id, user_name, notes, created_at, updated_at`

const saleItemColumns = `sale_id, position, product_id, product_name, quantity, unit, price, total`

const paymentColumns = `sale_id, position, amount, method, paid_at, user_id, user_name, notes`

// GetSale retrieves a sale with its items and payments
func (q *Queries) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	return q.getSale(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1", id)
}

// GetSaleForUpdate retrieves a sale and locks its header row
func (q *Queries) GetSaleForUpdate(ctx context.Context, id string) (*models.Sale, error) {
	return q.getSale(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1 FOR UPDATE", id)
}

func (q *Queries) getSale(ctx context.Context, query, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := q.getOne(ctx, &sale, query, id); err != nil {
		return nil, err
	}
	sales := []models.Sale{sale}
	if err := q.loadSaleLines(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// ListSales retrieves sales matching the filter, newest first unless ordered by due date
func (q *Queries) ListSales(ctx context.Context, filter SaleFilter) ([]models.Sale, error) {
	var w where
	if filter.Search != "" {
		w.add("(sale_number ILIKE ? OR client_name ILIKE ?)", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if len(filter.PaymentStatuses) > 0 {
		w.add("payment_status IN (?)", filter.PaymentStatuses)
	}
	if filter.ClientID != "" {
		w.add("client_id = ?", filter.ClientID)
	}
	w.addTimeRange("created_at", filter.From, filter.To)

	order := "ORDER BY created_at DESC"
	if filter.OrderByDueDate {
		order = "ORDER BY due_date ASC NULLS LAST, created_at DESC"
	}

	query, args, err := w.build("SELECT "+saleColumns+" FROM sales", order)
	if err != nil {
		return nil, err
	}
	sales := []models.Sale{}
	if err := q.q.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, err
	}
	if err := q.loadSaleLines(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// loadSaleLines fills items and payments for a batch of sales
func (q *Queries) loadSaleLines(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]string, len(sales))
	index := make(map[string]int, len(sales))
	for i := range sales {
		ids[i] = sales[i].ID
		index[sales[i].ID] = i
		sales[i].Items = []models.SaleItem{}
		sales[i].Payments = []models.Payment{}
	}

	query, args, err := sqlx.In("SELECT "+saleItemColumns+" FROM sale_items WHERE sale_id IN (?) ORDER BY sale_id, position", ids)
	if err != nil {
		return err
	}
	var items []models.SaleItem
	if err := q.q.SelectContext(ctx, &items, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return err
	}
	for _, item := range items {
		i := index[item.SaleID]
		sales[i].Items = append(sales[i].Items, item)
	}

	query, args, err = sqlx.In("SELECT "+paymentColumns+" FROM sale_payments WHERE sale_id IN (?) ORDER BY sale_id, position", ids)
	if err != nil {
		return err
	}
	var payments []models.Payment
	if err := q.q.SelectContext(ctx, &payments, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return err
	}
	for _, p := range payments {
		i := index[p.SaleID]
		sales[i].Payments = append(sales[i].Payments, p)
	}
	return nil
}

// CreateSale inserts the sale header, its items and its initial payments
func (q *Queries) CreateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (id, sale_number, client_id, client_name, subtotal, tax, total, amount_paid,
			amount_due, payment_status, status, due_date, user_id, user_name, notes, created_at, updated_at)
		VALUES (:id, :sale_number, :client_id, :client_name, :subtotal, :tax, :total, :amount_paid,
			:amount_due, :payment_status, :status, :due_date, :user_id, :user_name, :notes, :created_at, :updated_at)`

	if _, err := q.q.NamedExecContext(ctx, query, sale); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		item.Position = i
		_, err := q.q.NamedExecContext(ctx, `
			INSERT INTO sale_items (`+saleItemColumns+`)
			VALUES (:sale_id, :position, :product_id, :product_name, :quantity, :unit, :price, :total)`, item)
		if err != nil {
			return err
		}
	}

	for i := range sale.Payments {
		if err := q.insertPayment(ctx, sale.ID, i, &sale.Payments[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSale writes the mutable header fields of a sale
func (q *Queries) UpdateSale(ctx context.Context, sale *models.Sale) error {
	return q.execOne(ctx, `
		UPDATE sales SET amount_paid = $1, amount_due = $2, payment_status = $3, status = $4,
			due_date = $5, notes = $6, updated_at = $7
		WHERE id = $8`,
		sale.AmountPaid, sale.AmountDue, sale.PaymentStatus, sale.Status,
		sale.DueDate, sale.Notes, sale.UpdatedAt, sale.ID)
}

// AddPayment appends a payment after the existing ones
func (q *Queries) AddPayment(ctx context.Context, saleID string, payment *models.Payment) error {
	var position int
	err := q.q.GetContext(ctx, &position,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM sale_payments WHERE sale_id = $1", saleID)
	if err != nil {
		return err
	}
	return q.insertPayment(ctx, saleID, position, payment)
}

func (q *Queries) insertPayment(ctx context.Context, saleID string, position int, payment *models.Payment) error {
	payment.SaleID = saleID
	payment.Position = position
	_, err := q.q.NamedExecContext(ctx, `
		INSERT INTO sale_payments (`+paymentColumns+`)
		VALUES (:sale_id, :position, :amount, :method, :paid_at, :user_id, :user_name, :notes)`, payment)
	return err
}

// DeleteSale removes a sale; items and payments cascade
func (q *Queries) DeleteSale(ctx context.Context, id string) error {
	return q.execOne(ctx, "DELETE FROM sales WHERE id = $1", id)
}

// NextSaleSequence atomically increments and returns the sale counter for a year
func (q *Queries) NextSaleSequence(ctx context.Context, year int) (int, error) {
	var next int
	err := q.q.GetContext(ctx, &next, `
		INSERT INTO sale_sequences (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = sale_sequences.last_value + 1
		RETURNING last_value`, year)
	return next, err
}
