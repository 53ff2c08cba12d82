package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_promo/internal/config"
	"github.com/GTDGit/gtd_promo/internal/events"
	"github.com/GTDGit/gtd_promo/internal/metrics"
	"github.com/GTDGit/gtd_promo/internal/models"
	"github.com/GTDGit/gtd_promo/internal/repository"
	"github.com/GTDGit/gtd_promo/internal/utils"
)

// PromotionCache is the read-through cache for active promotions.
// Set must drop the write when Invalidate ran after Version returned version.
type PromotionCache interface {
	Get(ctx context.Context, id int) (*models.Promotion, error)
	Version(ctx context.Context, id int) (int64, error)
	Set(ctx context.Context, p *models.Promotion, version int64) error
	Invalidate(ctx context.Context, id int) error
}

// PromotionService handles promotion CRUD and discount application.
type PromotionService struct {
	store     repository.Store
	cfg       config.PromotionConfig
	cache     PromotionCache
	publisher events.Publisher
	metrics   *metrics.PromotionMetrics
	now       func() time.Time
}

// NewPromotionService constructs a PromotionService. Cache, publisher and
// metrics are optional and can be wired with the Set* methods.
func NewPromotionService(store repository.Store, cfg config.PromotionConfig) *PromotionService {
	if cfg.MaxPageLimit < 1 {
		cfg.MaxPageLimit = 10
	}
	if cfg.GlobalWorkers < 1 {
		cfg.GlobalWorkers = 1
	}
	return &PromotionService{
		store:     store,
		cfg:       cfg,
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
}

// SetCache wires the promotion cache.
func (s *PromotionService) SetCache(c PromotionCache) {
	s.cache = c
}

// SetPublisher wires the event publisher.
func (s *PromotionService) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// SetMetrics wires the metrics collector.
func (s *PromotionService) SetMetrics(m *metrics.PromotionMetrics) {
	s.metrics = m
}

// CreatePromotionRequest represents the request to create a promotion.
type CreatePromotionRequest struct {
	Name      string               `json:"promo_name"`
	Type      models.PromotionType `json:"promo_type"`
	Value     int                  `json:"promo_value"`
	ProductID *int                 `json:"product_id"`
	StartDate *time.Time           `json:"start_date"`
	EndDate   *time.Time           `json:"end_date"`
}

// CreatePromotion validates and stores a new promotion.
//
// Omitted dates both default to the creation instant, so a promotion created
// without dates has start == end.
func (s *PromotionService) CreatePromotion(ctx context.Context, req *CreatePromotionRequest) (*models.Promotion, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: promo_name is required", utils.ErrValidation)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: promo_type must be %q or %q", utils.ErrValidation, models.PromotionTypeDiscount, models.PromotionTypeSales)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, fmt.Errorf("%w: end date cannot be before the start date", utils.ErrValidation)
	}

	now := s.now()
	promo := &models.Promotion{
		Name:      req.Name,
		Type:      req.Type,
		Value:     req.Value,
		StartDate: now,
		EndDate:   now,
	}
	if req.ProductID != nil && *req.ProductID != 0 {
		id := *req.ProductID
		promo.ProductID = &id
	}
	if req.StartDate != nil {
		promo.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		promo.EndDate = *req.EndDate
	}

	if err := s.store.Promotions().Create(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, fmt.Errorf("%w: product %d does not exist", utils.ErrValidation, *promo.ProductID)
		}
		return nil, err
	}

	log.Info().Int("promotion_id", promo.ID).Str("type", string(promo.Type)).Int("value", promo.Value).Msg("Promotion created")
	s.metrics.Created()
	s.publish(ctx, events.PromotionEvent{Event: events.EventPromotionCreated, PromotionID: promo.ID, Timestamp: now})
	return promo, nil
}

// ListPromotions returns one page of active promotions. The effective page
// size is min(limit, MaxPageLimit). Callers must pass page >= 1 and limit >= 1.
func (s *PromotionService) ListPromotions(ctx context.Context, page, limit int) (*models.PromotionPage, error) {
	limit = min(limit, s.cfg.MaxPageLimit)
	skip := (page - 1) * limit

	promos, total, err := s.store.Promotions().ListActive(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &models.PromotionPage{
		Data: promos,
		Meta: models.PageMeta{
			CurrentPage:  page,
			ItemsPerPage: limit,
			TotalPages:   totalPages,
			TotalItems:   total,
		},
	}, nil
}

// GetPromotion returns an active promotion.
func (s *PromotionService) GetPromotion(ctx context.Context, id int) (*models.Promotion, error) {
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, id); err == nil {
			return p, nil
		}
		// Taken before the store read so a concurrent delete voids the fill.
		v, err := s.cache.Version(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int("promotion_id", id).Msg("Failed to read promotion cache version")
		} else {
			version, cacheable = v, true
		}
	}

	promo, err := s.store.Promotions().GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: promotion %d not found or has been deleted", utils.ErrNotFound, id)
		}
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, promo, version); err != nil {
			log.Warn().Err(err).Int("promotion_id", id).Msg("Failed to cache promotion")
		}
	}
	return promo, nil
}

// UpdatePromotion applies a partial update by id. Date ordering is not
// re-checked here and soft-deleted promotions can still be updated.
// Null is accepted for product_id only.
func (s *PromotionService) UpdatePromotion(ctx context.Context, id int, patch *models.PromotionPatch) (*models.Promotion, error) {
	if field := patch.NulledField(); field != "" {
		return nil, fmt.Errorf("%w: %s cannot be null", utils.ErrValidation, field)
	}
	if patch.Type.Set && !patch.Type.Value.Valid() {
		return nil, fmt.Errorf("%w: promo_type must be %q or %q", utils.ErrValidation, models.PromotionTypeDiscount, models.PromotionTypeSales)
	}
	if patch.ProductID.Set && patch.ProductID.Value != nil && *patch.ProductID.Value == 0 {
		patch.ProductID.Value = nil
	}

	promo, err := s.store.Promotions().Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: promotion %d not found", utils.ErrNotFound, id)
		}
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, fmt.Errorf("%w: product %d does not exist", utils.ErrValidation, *patch.ProductID.Value)
		}
		return nil, err
	}

	s.invalidate(ctx, id)
	log.Info().Int("promotion_id", id).Msg("Promotion updated")
	s.publish(ctx, events.PromotionEvent{Event: events.EventPromotionUpdated, PromotionID: id, Timestamp: s.now()})
	return promo, nil
}

// DeletePromotion soft-deletes a promotion and returns it. The row stays
// readable by id but is excluded from listings and GetPromotion.
func (s *PromotionService) DeletePromotion(ctx context.Context, id int) (*models.Promotion, error) {
	promo, err := s.store.Promotions().SoftDelete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: promotion %d not found", utils.ErrNotFound, id)
		}
		return nil, err
	}

	s.invalidate(ctx, id)
	log.Info().Int("promotion_id", id).Msg("Promotion deleted")
	s.metrics.Deleted()
	s.publish(ctx, events.PromotionEvent{Event: events.EventPromotionDeleted, PromotionID: id, Timestamp: s.now()})
	return promo, nil
}

func (s *PromotionService) invalidate(ctx context.Context, id int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Int("promotion_id", id).Msg("Failed to invalidate cached promotion")
	}
}

// publish delivers events after the change is committed. Failures are logged
// and never undo the change.
func (s *PromotionService) publish(ctx context.Context, evts ...events.PromotionEvent) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		log.Error().Err(err).Str("event", string(evts[0].Event)).Int("count", len(evts)).Msg("Failed to publish promotion events")
	}
}
