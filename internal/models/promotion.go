package models

import "time"

// PromotionType enumerates the supported discount strategies.
type PromotionType string

const (
	// PromotionTypeDiscount takes Value percent off the price.
	PromotionTypeDiscount PromotionType = "Discount"
	// PromotionTypeSales takes a flat Value off the price.
	PromotionTypeSales PromotionType = "Sales"
)

// Valid reports whether t is one of the known promotion types.
func (t PromotionType) Valid() bool {
	return t == PromotionTypeDiscount || t == PromotionTypeSales
}

// Promotion represents a discount rule applicable to one or all products.
// A non-nil DeletedAt marks the promotion as soft-deleted.
type Promotion struct {
	ID        int           `db:"id" json:"promo_id"`
	Name      string        `db:"name" json:"promo_name"`
	Type      PromotionType `db:"type" json:"promo_type"`
	Value     int           `db:"value" json:"promo_value"`
	ProductID *int          `db:"product_id" json:"product_id"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   time.Time     `db:"end_date" json:"end_date"`
	DeletedAt *time.Time    `db:"deleted_at" json:"deleted_at"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// IsDeleted reports whether the promotion has been soft-deleted.
func (p *Promotion) IsDeleted() bool {
	return p.DeletedAt != nil
}

// PromotionPatch is a partial update. Only fields whose Set flag is true are written.
// ProductID distinguishes "absent" (Set=false) from "clear" (Set=true, Value=nil).
type PromotionPatch struct {
	Name      Optional[string]        `json:"promo_name"`
	Type      Optional[PromotionType] `json:"promo_type"`
	Value     Optional[int]           `json:"promo_value"`
	ProductID Optional[*int]          `json:"product_id"`
	StartDate Optional[time.Time]     `json:"start_date"`
	EndDate   Optional[time.Time]     `json:"end_date"`
}

// Empty reports whether the patch carries no field at all.
func (p *PromotionPatch) Empty() bool {
	return !p.Name.Set && !p.Type.Set && !p.Value.Set && !p.ProductID.Set && !p.StartDate.Set && !p.EndDate.Set
}

// Apply writes every set field of the patch onto promo.
// NulledField returns the JSON name of the first field that was sent as null
// but has no null representation, or "" when there is none. Only product_id
// may be cleared with null.
func (p *PromotionPatch) NulledField() string {
	switch {
	case p.Name.Null:
		return "promo_name"
	case p.Type.Null:
		return "promo_type"
	case p.Value.Null:
		return "promo_value"
	case p.StartDate.Null:
		return "start_date"
	case p.EndDate.Null:
		return "end_date"
	}
	return ""
}

func (p *PromotionPatch) Apply(promo *Promotion) {
	if p.Name.Set {
		promo.Name = p.Name.Value
	}
	if p.Type.Set {
		promo.Type = p.Type.Value
	}
	if p.Value.Set {
		promo.Value = p.Value.Value
	}
	if p.ProductID.Set {
		promo.ProductID = p.ProductID.Value
	}
	if p.StartDate.Set {
		promo.StartDate = p.StartDate.Value
	}
	if p.EndDate.Set {
		promo.EndDate = p.EndDate.Value
	}
}

// PageMeta describes one page of a paginated listing.
type PageMeta struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
}

// PromotionPage is one page of active promotions.
type PromotionPage struct {
	Data []Promotion `json:"data"`
	Meta PageMeta    `json:"meta"`
}
