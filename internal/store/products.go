package store

import (
	"context"

	"gestistock/internal/models"
)

const productColumns = `id, name, category, quantity, unit, buy_price, sell_price, threshold,
	supplier_id, status, description, created_at, updated_at`

// GetProduct retrieves a product by ID
func (q *Queries) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := q.getOne(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductForUpdate retrieves a product and locks its row until the transaction ends
func (q *Queries) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := q.getOne(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves products matching the filter
func (q *Queries) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var w where
	if filter.Search != "" {
		w.add("(name ILIKE ? OR category ILIKE ?)", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if len(filter.Statuses) > 0 {
		w.add("status IN (?)", filter.Statuses)
	}
	order := "ORDER BY created_at DESC"
	if filter.SortByQuantity {
		order = "ORDER BY quantity ASC"
	}

	query, args, err := w.build("SELECT "+productColumns+" FROM products", order)
	if err != nil {
		return nil, err
	}
	products := []models.Product{}
	err = q.q.SelectContext(ctx, &products, query, args...)
	return products, err
}

// CreateProduct inserts a new product
func (q *Queries) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, category, quantity, unit, buy_price, sell_price, threshold,
			supplier_id, status, description, created_at, updated_at)
		VALUES (:id, :name, :category, :quantity, :unit, :buy_price, :sell_price, :threshold,
			:supplier_id, :status, :description, :created_at, :updated_at)`

	_, err := q.q.NamedExecContext(ctx, query, product)
	return err
}

// UpdateProduct writes every mutable product field
func (q *Queries) UpdateProduct(ctx context.Context, product *models.Product) error {
	return q.execOne(ctx, `
		UPDATE products SET name = $1, category = $2, quantity = $3, unit = $4, buy_price = $5,
			sell_price = $6, threshold = $7, supplier_id = $8, status = $9, description = $10,
			updated_at = $11
		WHERE id = $12`,
		product.Name, product.Category, product.Quantity, product.Unit, product.BuyPrice,
		product.SellPrice, product.Threshold, product.SupplierID, product.Status, product.Description,
		product.UpdatedAt, product.ID)
}

// UpdateProductStock sets quantity and status only if the stored quantity is still previous
func (q *Queries) UpdateProductStock(ctx context.Context, product *models.Product, previous int) error {
	err := q.execOne(ctx, `
		UPDATE products SET quantity = $1, status = $2, updated_at = $3
		WHERE id = $4 AND quantity = $5`,
		product.Quantity, product.Status, product.UpdatedAt, product.ID, previous)
	if err == ErrNotFound {
		return ErrStockConflict
	}
	return err
}

// DeleteProduct removes a product
func (q *Queries) DeleteProduct(ctx context.Context, id string) error {
	return q.execOne(ctx, "DELETE FROM products WHERE id = $1", id)
}
