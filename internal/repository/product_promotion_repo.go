package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_promo/internal/models"
)

// ProductPromotionRepository handles data access for product/promotion links.
type ProductPromotionRepository struct {
	db sqlx.ExtContext
}

// NewProductPromotionRepository creates a new ProductPromotionRepository.
func NewProductPromotionRepository(db sqlx.ExtContext) *ProductPromotionRepository {
	return &ProductPromotionRepository{db: db}
}

// Upsert inserts the link or accumulates its discount amount on conflict.
// xmax is zero only for freshly inserted tuples.
func (r *ProductPromotionRepository) Upsert(ctx context.Context, link *models.ProductPromotion) (bool, error) {
	const q = `
        INSERT INTO product_promotions (product_id, promo_id, discount_amount)
        VALUES ($1, $2, $3)
        ON CONFLICT (product_id, promo_id) DO UPDATE SET
            discount_amount = product_promotions.discount_amount + EXCLUDED.discount_amount
        RETURNING discount_amount, applied_at, (xmax = 0) AS created`

	var created bool
	err := r.db.QueryRowxContext(ctx, q, link.ProductID, link.PromotionID, link.DiscountAmount).
		Scan(&link.DiscountAmount, &link.AppliedAt, &created)
	if err != nil {
		return false, mapWriteError(err)
	}
	return created, nil
}

// Get returns one link.
func (r *ProductPromotionRepository) Get(ctx context.Context, productID, promoID int) (*models.ProductPromotion, error) {
	const q = `
        SELECT product_id, promo_id, discount_amount, applied_at
        FROM product_promotions
        WHERE product_id = $1 AND promo_id = $2`
	var pp models.ProductPromotion
	if err := sqlx.GetContext(ctx, r.db, &pp, q, productID, promoID); err != nil {
		return nil, err
	}
	return &pp, nil
}

// Delete removes one link. It returns sql.ErrNoRows when the link does not exist.
func (r *ProductPromotionRepository) Delete(ctx context.Context, productID, promoID int) error {
	const q = `DELETE FROM product_promotions WHERE product_id = $1 AND promo_id = $2`
	res, err := r.db.ExecContext(ctx, q, productID, promoID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByProduct returns the links of a product joined with their promotions,
// oldest application first.
func (r *ProductPromotionRepository) ListByProduct(ctx context.Context, productID int) ([]models.AppliedPromotion, error) {
	const q = `
        SELECT
            pp.product_id, pp.promo_id, pp.discount_amount, pp.applied_at,
            p.id AS "promo.id",
            p.name AS "promo.name",
            p.type AS "promo.type",
            p.value AS "promo.value",
            p.product_id AS "promo.product_id",
            p.start_date AS "promo.start_date",
            p.end_date AS "promo.end_date",
            p.deleted_at AS "promo.deleted_at",
            p.created_at AS "promo.created_at",
            p.updated_at AS "promo.updated_at"
        FROM product_promotions pp
        JOIN promotions p ON p.id = pp.promo_id
        WHERE pp.product_id = $1
        ORDER BY pp.applied_at, pp.promo_id`

	list := []models.AppliedPromotion{}
	if err := sqlx.SelectContext(ctx, r.db, &list, q, productID); err != nil {
		return nil, err
	}
	return list, nil
}
