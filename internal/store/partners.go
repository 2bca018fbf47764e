package store

import (
	"context"

	"gestistock/internal/models"
)

const clientColumns = `id, name, phone, address, email, total_purchases, last_purchase, status,
	created_at, updated_at`

const supplierColumns = `id, name, phone, address, email, contact, total_value, last_delivery,
	status, created_at, updated_at`

// GetClient retrieves a client by ID
func (q *Queries) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := q.getOne(ctx, &client, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &client, nil
}

// GetClientForUpdate retrieves a client and locks its row
func (q *Queries) GetClientForUpdate(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := q.getOne(ctx, &client, "SELECT "+clientColumns+" FROM clients WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &client, nil
}

// ListClients retrieves clients matching the filter
func (q *Queries) ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error) {
	var w where
	if filter.Search != "" {
		w.add("(name ILIKE ? OR phone ILIKE ?)", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	query, args, err := w.build("SELECT "+clientColumns+" FROM clients", "ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	clients := []models.Client{}
	err = q.q.SelectContext(ctx, &clients, query, args...)
	return clients, err
}

// CreateClient inserts a new client
func (q *Queries) CreateClient(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (id, name, phone, address, email, total_purchases, last_purchase, status,
			created_at, updated_at)
		VALUES (:id, :name, :phone, :address, :email, :total_purchases, :last_purchase, :status,
			:created_at, :updated_at)`

	_, err := q.q.NamedExecContext(ctx, query, client)
	return err
}

// UpdateClient writes every mutable client field
func (q *Queries) UpdateClient(ctx context.Context, client *models.Client) error {
	return q.execOne(ctx, `
		UPDATE clients SET name = $1, phone = $2, address = $3, email = $4, total_purchases = $5,
			last_purchase = $6, status = $7, updated_at = $8
		WHERE id = $9`,
		client.Name, client.Phone, client.Address, client.Email, client.TotalPurchases,
		client.LastPurchase, client.Status, client.UpdatedAt, client.ID)
}

// DeleteClient removes a client
func (q *Queries) DeleteClient(ctx context.Context, id string) error {
	return q.execOne(ctx, "DELETE FROM clients WHERE id = $1", id)
}

// GetSupplier retrieves a supplier by ID
func (q *Queries) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := q.getOne(ctx, &supplier, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &supplier, nil
}

// GetSupplierForUpdate retrieves a supplier and locks its row
func (q *Queries) GetSupplierForUpdate(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := q.getOne(ctx, &supplier, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &supplier, nil
}

// ListSuppliers retrieves suppliers matching the filter
func (q *Queries) ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error) {
	var w where
	if filter.Search != "" {
		w.add("(name ILIKE ? OR contact ILIKE ?)", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	query, args, err := w.build("SELECT "+supplierColumns+" FROM suppliers", "ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	suppliers := []models.Supplier{}
	err = q.q.SelectContext(ctx, &suppliers, query, args...)
	return suppliers, err
}

// CreateSupplier inserts a new supplier
func (q *Queries) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, phone, address, email, contact, total_value, last_delivery,
			status, created_at, updated_at)
		VALUES (:id, :name, :phone, :address, :email, :contact, :total_value, :last_delivery,
			:status, :created_at, :updated_at)`

	_, err := q.q.NamedExecContext(ctx, query, supplier)
	return err
}

// UpdateSupplier writes every mutable supplier field
func (q *Queries) UpdateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return q.execOne(ctx, `
		UPDATE suppliers SET name = $1, phone = $2, address = $3, email = $4, contact = $5,
			total_value = $6, last_delivery = $7, status = $8, updated_at = $9
		WHERE id = $10`,
		supplier.Name, supplier.Phone, supplier.Address, supplier.Email, supplier.Contact,
		supplier.TotalValue, supplier.LastDelivery, supplier.Status, supplier.UpdatedAt, supplier.ID)
}

// DeleteSupplier removes a supplier
func (q *Queries) DeleteSupplier(ctx context.Context, id string) error {
	return q.execOne(ctx, "DELETE FROM suppliers WHERE id = $1", id)
}
