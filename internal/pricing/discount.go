// Package pricing computes discounted prices for promotions.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_promo/internal/models"
)

// PriceScale is the number of decimal places prices are stored with.
const PriceScale = 2

var hundred = decimal.NewFromInt(100)

// ApplyDiscount returns the price after applying a promotion of the given type and value.
//
//	Discount: price - price*value/100, rounded half away from zero to PriceScale places
//	Sales:    price - value
//
// The result is not floored at zero.
func ApplyDiscount(price decimal.Decimal, promoType models.PromotionType, value int) decimal.Decimal {
	v := decimal.NewFromInt(int64(value))
	if promoType == models.PromotionTypeDiscount {
		off := price.Mul(v).Div(hundred)
		return price.Sub(off).Round(PriceScale)
	}
	return price.Sub(v)
}

// DiscountAmount is the amount ApplyDiscount takes off price.
func DiscountAmount(price decimal.Decimal, promoType models.PromotionType, value int) decimal.Decimal {
	return price.Sub(ApplyDiscount(price, promoType, value))
}
