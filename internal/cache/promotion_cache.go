package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_promo/internal/models"
)

// PromotionCache caches active promotions by id. Soft-deleted promotions are
// never stored, so a hit is always an active promotion.
//
// Each id also has a version counter that Invalidate bumps. A reader takes the
// version before loading from the store and passes it to Set, which writes only
// if no invalidation happened in between.
type PromotionCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewPromotionCache creates a new PromotionCache.
func NewPromotionCache(redis *RedisClient, ttl time.Duration) *PromotionCache {
	return &PromotionCache{
		redis: redis,
		ttl:   ttl,
	}
}

func (c *PromotionCache) key(id int) string {
	return fmt.Sprintf("promo:active:%d", id)
}

func (c *PromotionCache) versionKey(id int) string {
	return fmt.Sprintf("promo:ver:%d", id)
}

// Version returns the current invalidation version of a promotion.
func (c *PromotionCache) Version(ctx context.Context, id int) (int64, error) {
	return c.redis.Counter(ctx, c.versionKey(id))
}

// Get returns the cached promotion or ErrMiss.
func (c *PromotionCache) Get(ctx context.Context, id int) (*models.Promotion, error) {
	raw, err := c.redis.Get(ctx, c.key(id))
	if err != nil {
		return nil, err
	}

	var p models.Promotion
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal promotion: %w", err)
	}
	return &p, nil
}

// Set stores an active promotion read at version. Deleted promotions and
// promotions invalidated since version are ignored.
func (c *PromotionCache) Set(ctx context.Context, p *models.Promotion, version int64) error {
	if p.IsDeleted() {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal promotion: %w", err)
	}
	_, err = c.redis.SetIfCounter(ctx, c.versionKey(p.ID), version, c.key(p.ID), string(data), c.ttl)
	return err
}

// Invalidate drops the cached promotion and bumps its version.
func (c *PromotionCache) Invalidate(ctx context.Context, id int) error {
	return c.redis.IncrAndDelete(ctx, c.versionKey(id), c.key(id))
}
