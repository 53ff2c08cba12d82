package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_promo/internal/models"
)

// productColumns lists the product columns this service reads. The products
// table is owned by the catalog, so SELECT * is avoided.
const productColumns = `id, name, price, deleted_at, created_at, updated_at`

// ProductRepository handles data access for products.
type ProductRepository struct {
	db sqlx.ExtContext
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db sqlx.ExtContext) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns a single product by id, including soft-deleted ones.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	var p models.Product
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDForUpdate returns a product and locks its row. Must run inside a transaction.
func (r *ProductRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	var p models.Product
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveIDs returns the ids of all non-deleted products.
func (r *ProductRepository) ListActiveIDs(ctx context.Context) ([]int, error) {
	const q = `SELECT id FROM products WHERE deleted_at IS NULL ORDER BY id`
	ids := []int{}
	if err := sqlx.SelectContext(ctx, r.db, &ids, q); err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdatePrice sets the product price and returns the updated row.
func (r *ProductRepository) UpdatePrice(ctx context.Context, id int, price decimal.Decimal) (*models.Product, error) {
	const q = `UPDATE products SET price = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + productColumns
	var p models.Product
	if err := sqlx.GetContext(ctx, r.db, &p, q, id, price); err != nil {
		return nil, err
	}
	return &p, nil
}
