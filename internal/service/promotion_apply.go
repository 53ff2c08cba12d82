package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/GTDGit/gtd_promo/internal/events"
	"github.com/GTDGit/gtd_promo/internal/metrics"
	"github.com/GTDGit/gtd_promo/internal/models"
	"github.com/GTDGit/gtd_promo/internal/pricing"
	"github.com/GTDGit/gtd_promo/internal/repository"
	"github.com/GTDGit/gtd_promo/internal/utils"
)

// ProductFailure reports a product the global apply could not update.
type ProductFailure struct {
	ProductID int    `json:"productId"`
	Error     string `json:"error"`
}

// GlobalApplyResult is the outcome of ApplyPromoGlobally.
type GlobalApplyResult struct {
	Message     string           `json:"message"`
	PromotionID int              `json:"promotionId"`
	Total       int              `json:"total"`
	Applied     []int            `json:"applied"`
	Failed      []ProductFailure `json:"failed"`
}

// Partial reports whether at least one product failed.
func (r *GlobalApplyResult) Partial() bool {
	return len(r.Failed) > 0
}

// ApplyPromoToProduct discounts one product's price by the promotion and
// records the association. Both lookups ignore soft-delete flags.
func (s *PromotionService) ApplyPromoToProduct(ctx context.Context, productID, promoID int) (*models.ProductWithPromotions, error) {
	promo, err := s.store.Promotions().GetByID(ctx, promoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: promotion %d not found", utils.ErrNotFound, promoID)
		}
		return nil, err
	}
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d not found", utils.ErrNotFound, productID)
		}
		return nil, err
	}

	var result *models.ProductWithPromotions
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		product, err := s.applyToProduct(ctx, tx, promo, productID)
		if err != nil {
			return err
		}
		links, err := tx.ProductPromotions().ListByProduct(ctx, productID)
		if err != nil {
			return err
		}
		result = &models.ProductWithPromotions{Product: *product, ProductPromos: links}
		return nil
	})
	if err != nil {
		s.metrics.ApplyFailed(metrics.ScopeProduct)
		return nil, err
	}

	log.Info().
		Int("promotion_id", promoID).
		Int("product_id", productID).
		Str("new_price", result.Price.StringFixed(pricing.PriceScale)).
		Msg("Promotion applied to product")
	s.metrics.Applied(metrics.ScopeProduct, string(promo.Type))
	s.publish(ctx, appliedEvent(events.EventPromotionApplied, promoID, &result.Product, s.now()))
	return result, nil
}

// ApplyPromoGlobally applies the promotion to every active product. Each
// product is updated in its own transaction; a failure on one product does not
// stop the others and is reported in the result.
func (s *PromotionService) ApplyPromoGlobally(ctx context.Context, promoID int) (*GlobalApplyResult, error) {
	promo, err := s.store.Promotions().GetByID(ctx, promoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: promotion %d not found", utils.ErrNotFound, promoID)
		}
		return nil, err
	}

	ids, err := s.store.Products().ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &GlobalApplyResult{
		PromotionID: promoID,
		Total:       len(ids),
		Applied:     []int{},
		Failed:      []ProductFailure{},
	}
	var (
		mu   sync.Mutex
		evts []events.PromotionEvent
	)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.GlobalWorkers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			product, err := s.applyOne(ctx, promo, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Int("promotion_id", promoID).Int("product_id", id).Msg("Failed to apply promotion to product")
				s.metrics.ApplyFailed(metrics.ScopeGlobal)
				result.Failed = append(result.Failed, ProductFailure{ProductID: id, Error: err.Error()})
				return nil
			}
			s.metrics.Applied(metrics.ScopeGlobal, string(promo.Type))
			result.Applied = append(result.Applied, id)
			evts = append(evts, appliedEvent(events.EventPromotionApplied, promoID, product, s.now()))
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(result.Applied)
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].ProductID < result.Failed[j].ProductID })

	if result.Partial() {
		result.Message = fmt.Sprintf("Promo applied to %d of %d products", len(result.Applied), result.Total)
	} else {
		result.Message = "Promo applied to all products successfully"
	}

	s.metrics.ObserveGlobalApply(time.Since(start))
	log.Info().
		Int("promotion_id", promoID).
		Int("applied", len(result.Applied)).
		Int("failed", len(result.Failed)).
		Dur("duration", time.Since(start)).
		Msg("Global promotion apply finished")
	s.publish(ctx, evts...)
	return result, nil
}

func (s *PromotionService) applyOne(ctx context.Context, promo *models.Promotion, productID int) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var product *models.Product
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		p, err := s.applyToProduct(ctx, tx, promo, productID)
		product = p
		return err
	})
	return product, err
}

// applyToProduct is the per-product step. It must run inside tx.
func (s *PromotionService) applyToProduct(ctx context.Context, tx repository.Store, promo *models.Promotion, productID int) (*models.Product, error) {
	product, err := tx.Products().GetByIDForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d not found", utils.ErrNotFound, productID)
		}
		return nil, err
	}

	if s.cfg.RejectReapply {
		_, err := tx.ProductPromotions().Get(ctx, productID, promo.ID)
		if err == nil {
			return nil, fmt.Errorf("%w: promotion %d is already applied to product %d", utils.ErrConflict, promo.ID, productID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	off := pricing.DiscountAmount(product.Price, promo.Type, promo.Value)
	updated, err := tx.Products().UpdatePrice(ctx, productID, product.Price.Sub(off))
	if err != nil {
		return nil, err
	}

	link := &models.ProductPromotion{
		ProductID:      productID,
		PromotionID:    promo.ID,
		DiscountAmount: off,
	}
	if _, err := tx.ProductPromotions().Upsert(ctx, link); err != nil {
		return nil, err
	}
	return updated, nil
}

// UnapplyPromoFromProduct removes a promotion from a product and adds back the
// amount it took off the price.
func (s *PromotionService) UnapplyPromoFromProduct(ctx context.Context, productID, promoID int) (*models.ProductWithPromotions, error) {
	var result *models.ProductWithPromotions
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		product, err := tx.Products().GetByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: product %d not found", utils.ErrNotFound, productID)
			}
			return err
		}

		link, err := tx.ProductPromotions().Get(ctx, productID, promoID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: promotion %d is not applied to product %d", utils.ErrNotFound, promoID, productID)
			}
			return err
		}

		updated, err := tx.Products().UpdatePrice(ctx, productID, product.Price.Add(link.DiscountAmount))
		if err != nil {
			return err
		}
		if err := tx.ProductPromotions().Delete(ctx, productID, promoID); err != nil {
			return err
		}

		links, err := tx.ProductPromotions().ListByProduct(ctx, productID)
		if err != nil {
			return err
		}
		result = &models.ProductWithPromotions{Product: *updated, ProductPromos: links}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("promotion_id", promoID).
		Int("product_id", productID).
		Str("new_price", result.Price.StringFixed(pricing.PriceScale)).
		Msg("Promotion removed from product")
	s.metrics.Unapplied()
	s.publish(ctx, appliedEvent(events.EventPromotionUnapplied, promoID, &result.Product, s.now()))
	return result, nil
}

// GetProductPromotions returns a product with the promotions applied to it.
func (s *PromotionService) GetProductPromotions(ctx context.Context, productID int) (*models.ProductWithPromotions, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d not found", utils.ErrNotFound, productID)
		}
		return nil, err
	}
	links, err := s.store.ProductPromotions().ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &models.ProductWithPromotions{Product: *product, ProductPromos: links}, nil
}

func appliedEvent(kind events.EventType, promoID int, product *models.Product, at time.Time) events.PromotionEvent {
	productID := product.ID
	price := product.Price
	return events.PromotionEvent{
		Event:       kind,
		PromotionID: promoID,
		ProductID:   &productID,
		NewPrice:    &price,
		Timestamp:   at,
	}
}
