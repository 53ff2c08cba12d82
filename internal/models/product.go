package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the slice of the shared catalog product that promotions act on.
// Price is mutated in place when a promotion is applied.
type Product struct {
	ID        int             `db:"id" json:"product_id"`
	Name      string          `db:"name" json:"product_name"`
	Price     decimal.Decimal `db:"price" json:"product_price"`
	DeletedAt *time.Time      `db:"deleted_at" json:"deleted_at"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductPromotion links a product to a promotion applied to it.
// DiscountAmount is the total amount taken off the price by this promotion,
// which is what an unapply adds back.
type ProductPromotion struct {
	ProductID      int             `db:"product_id" json:"product_id"`
	PromotionID    int             `db:"promo_id" json:"promo_id"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	AppliedAt      time.Time       `db:"applied_at" json:"applied_at"`
}

// AppliedPromotion is an association row together with the promotion it points at.
type AppliedPromotion struct {
	ProductPromotion
	Promo Promotion `db:"promo" json:"promo"`
}

// ProductWithPromotions is a product and every promotion currently applied to it.
type ProductWithPromotions struct {
	Product
	ProductPromos []AppliedPromotion `json:"product_promos"`
}
