package events

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a promotion lifecycle event.
type EventType string

const (
	EventPromotionCreated   EventType = "promotion.created"
	EventPromotionUpdated   EventType = "promotion.updated"
	EventPromotionDeleted   EventType = "promotion.deleted"
	EventPromotionApplied   EventType = "promotion.applied"
	EventPromotionUnapplied EventType = "promotion.unapplied"
)

// PromotionEvent is published after a promotion change has been committed.
// Product fields are only set for applied/unapplied events.
type PromotionEvent struct {
	Event       EventType        `json:"event"`
	PromotionID int              `json:"promoId"`
	ProductID   *int             `json:"productId,omitempty"`
	NewPrice    *decimal.Decimal `json:"newPrice,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Publisher delivers promotion events.
type Publisher interface {
	Publish(ctx context.Context, events ...PromotionEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ...PromotionEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// MultiPublisher fans events out to several publishers. Every publisher is
// attempted and the errors are joined.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, events ...PromotionEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
