// Package memory is an in-process implementation of repository.Store.
// It backs STORE_DRIVER=memory and the service and handler tests.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_promo/internal/models"
	"github.com/GTDGit/gtd_promo/internal/repository"
)

type pairKey struct {
	productID int
	promoID   int
}

type state struct {
	promotions    map[int]models.Promotion
	products      map[int]models.Product
	links         map[pairKey]models.ProductPromotion
	nextPromoID   int
	nextProductID int
}

func (s *state) clone() *state {
	c := &state{
		promotions:    make(map[int]models.Promotion, len(s.promotions)),
		products:      make(map[int]models.Product, len(s.products)),
		links:         make(map[pairKey]models.ProductPromotion, len(s.links)),
		nextPromoID:   s.nextPromoID,
		nextProductID: s.nextProductID,
	}
	for k, v := range s.promotions {
		c.promotions[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	return c
}

// Store keeps everything in maps guarded by one mutex. A transaction holds the
// mutex for its whole duration and restores a snapshot on failure.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		mu: &sync.Mutex{},
		data: &state{
			promotions:    map[int]models.Promotion{},
			products:      map[int]models.Product{},
			links:         map[pairKey]models.ProductPromotion{},
			nextPromoID:   1,
			nextProductID: 1,
		},
		now: time.Now,
	}
}

// AddProduct stores a product, assigning an id when p.ID is zero.
// Products are owned by the catalog, so this is the only way to create them here.
func (s *Store) AddProduct(p models.Product) models.Product {
	unlock := s.lock()
	defer unlock()

	if p.ID == 0 {
		p.ID = s.data.nextProductID
	}
	if p.ID >= s.data.nextProductID {
		s.data.nextProductID = p.ID + 1
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.data.products[p.ID] = p
	return p
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Promotions returns the promotion store.
func (s *Store) Promotions() repository.PromotionStore { return promotionStore{s} }

// Products returns the product store.
func (s *Store) Products() repository.ProductStore { return productStore{s} }

// ProductPromotions returns the association store.
func (s *Store) ProductPromotions() repository.ProductPromotionStore { return linkStore{s} }

// WithinTx runs fn with exclusive access and rolls back on error.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

type promotionStore struct{ s *Store }

func (r promotionStore) Create(ctx context.Context, promo *models.Promotion) error {
	unlock := r.s.lock()
	defer unlock()

	if promo.ProductID != nil {
		if _, ok := r.s.data.products[*promo.ProductID]; !ok {
			return fmt.Errorf("%w: promotions_product_id_fkey", repository.ErrForeignKey)
		}
	}
	now := r.s.now()
	promo.ID = r.s.data.nextPromoID
	promo.CreatedAt, promo.UpdatedAt = now, now
	r.s.data.nextPromoID++
	r.s.data.promotions[promo.ID] = *promo
	return nil
}

func (r promotionStore) GetByID(ctx context.Context, id int) (*models.Promotion, error) {
	unlock := r.s.lock()
	defer unlock()

	p, ok := r.s.data.promotions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r promotionStore) GetActiveByID(ctx context.Context, id int) (*models.Promotion, error) {
	unlock := r.s.lock()
	defer unlock()

	p, ok := r.s.data.promotions[id]
	if !ok || p.IsDeleted() {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r promotionStore) ListActive(ctx context.Context, offset, limit int) ([]models.Promotion, int, error) {
	unlock := r.s.lock()
	defer unlock()

	active := make([]models.Promotion, 0, len(r.s.data.promotions))
	for _, p := range r.s.data.promotions {
		if !p.IsDeleted() {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	total := len(active)
	if offset < 0 {
		return nil, 0, fmt.Errorf("OFFSET must not be negative")
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return active[offset:end], total, nil
}

func (r promotionStore) Update(ctx context.Context, id int, patch *models.PromotionPatch) (*models.Promotion, error) {
	unlock := r.s.lock()
	defer unlock()

	p, ok := r.s.data.promotions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch == nil || patch.Empty() {
		return &p, nil
	}
	if patch.ProductID.Set && patch.ProductID.Value != nil {
		if _, ok := r.s.data.products[*patch.ProductID.Value]; !ok {
			return nil, fmt.Errorf("%w: promotions_product_id_fkey", repository.ErrForeignKey)
		}
	}
	patch.Apply(&p)
	p.UpdatedAt = r.s.now()
	r.s.data.promotions[id] = p
	return &p, nil
}

func (r promotionStore) SoftDelete(ctx context.Context, id int) (*models.Promotion, error) {
	unlock := r.s.lock()
	defer unlock()

	p, ok := r.s.data.promotions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	now := r.s.now()
	p.DeletedAt = &now
	p.UpdatedAt = now
	r.s.data.promotions[id] = p
	return &p, nil
}

type productStore struct{ s *Store }

func (r productStore) GetByID(ctx context.Context, id int) (*models.Product, error) {
	unlock := r.s.lock()
	defer unlock()

	p, ok := r.s.data.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

// GetByIDForUpdate relies on the transaction holding the store mutex.
func (r productStore) GetByIDForUpdate(ctx context.Context, id int) (*models.Product, error) {
	return r.GetByID(ctx, id)
}

func (r productStore) ListActiveIDs(ctx context.Context) ([]int, error) {
	unlock := r.s.lock()
	defer unlock()

	ids := make([]int, 0, len(r.s.data.products))
	for id, p := range r.s.data.products {
		if p.DeletedAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r productStore) UpdatePrice(ctx context.Context, id int, price decimal.Decimal) (*models.Product, error) {
	unlock := r.s.lock()
	defer unlock()

	p, ok := r.s.data.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	p.Price = price
	p.UpdatedAt = r.s.now()
	r.s.data.products[id] = p
	return &p, nil
}

type linkStore struct{ s *Store }

func (r linkStore) Upsert(ctx context.Context, link *models.ProductPromotion) (bool, error) {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.data.products[link.ProductID]; !ok {
		return false, fmt.Errorf("%w: product_promotions_product_id_fkey", repository.ErrForeignKey)
	}
	if _, ok := r.s.data.promotions[link.PromotionID]; !ok {
		return false, fmt.Errorf("%w: product_promotions_promo_id_fkey", repository.ErrForeignKey)
	}

	key := pairKey{link.ProductID, link.PromotionID}
	existing, ok := r.s.data.links[key]
	if ok {
		existing.DiscountAmount = existing.DiscountAmount.Add(link.DiscountAmount)
		r.s.data.links[key] = existing
		*link = existing
		return false, nil
	}

	link.AppliedAt = r.s.now()
	r.s.data.links[key] = *link
	return true, nil
}

func (r linkStore) Get(ctx context.Context, productID, promoID int) (*models.ProductPromotion, error) {
	unlock := r.s.lock()
	defer unlock()

	pp, ok := r.s.data.links[pairKey{productID, promoID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &pp, nil
}

func (r linkStore) Delete(ctx context.Context, productID, promoID int) error {
	unlock := r.s.lock()
	defer unlock()

	key := pairKey{productID, promoID}
	if _, ok := r.s.data.links[key]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.data.links, key)
	return nil
}

func (r linkStore) ListByProduct(ctx context.Context, productID int) ([]models.AppliedPromotion, error) {
	unlock := r.s.lock()
	defer unlock()

	list := []models.AppliedPromotion{}
	for key, pp := range r.s.data.links {
		if key.productID != productID {
			continue
		}
		list = append(list, models.AppliedPromotion{
			ProductPromotion: pp,
			Promo:            r.s.data.promotions[key.promoID],
		})
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].AppliedAt.Equal(list[j].AppliedAt) {
			return list[i].AppliedAt.Before(list[j].AppliedAt)
		}
		return list[i].PromotionID < list[j].PromotionID
	})
	return list, nil
}
