package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Apply scopes used as label values.
const (
	ScopeProduct = "product"
	ScopeGlobal  = "global"
)

// PromotionMetrics holds the promotion service metrics.
// A nil *PromotionMetrics is valid and records nothing.
type PromotionMetrics struct {
	PromotionsCreatedTotal   prometheus.Counter
	PromotionsDeletedTotal   prometheus.Counter
	PromotionsAppliedTotal   *prometheus.CounterVec
	PromotionsUnappliedTotal prometheus.Counter
	ApplyFailuresTotal       *prometheus.CounterVec
	GlobalApplyDuration      prometheus.Histogram
}

// NewPromotionMetrics registers the metrics on reg.
func NewPromotionMetrics(reg prometheus.Registerer) *PromotionMetrics {
	factory := promauto.With(reg)
	return &PromotionMetrics{
		PromotionsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "promotions_created_total",
			Help: "Number of promotions created",
		}),
		PromotionsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "promotions_deleted_total",
			Help: "Number of promotions soft-deleted",
		}),
		PromotionsAppliedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promotions_applied_total",
			Help: "Number of product price updates made by applying a promotion",
		}, []string{"scope", "promo_type"}),
		PromotionsUnappliedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "promotions_unapplied_total",
			Help: "Number of promotions removed from a product",
		}),
		ApplyFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promotion_apply_failures_total",
			Help: "Number of failed per-product promotion applications",
		}, []string{"scope"}),
		GlobalApplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "promotion_global_apply_duration_seconds",
			Help:    "Duration of applying a promotion to all products",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// Created counts a newly created promotion.
func (m *PromotionMetrics) Created() {
	if m == nil {
		return
	}
	m.PromotionsCreatedTotal.Inc()
}

// Deleted counts a soft-deleted promotion.
func (m *PromotionMetrics) Deleted() {
	if m == nil {
		return
	}
	m.PromotionsDeletedTotal.Inc()
}

// Applied counts a successful apply. scope is ScopeProduct or ScopeGlobal.
func (m *PromotionMetrics) Applied(scope, promoType string) {
	if m == nil {
		return
	}
	m.PromotionsAppliedTotal.WithLabelValues(scope, promoType).Inc()
}

// Unapplied counts a promotion removed from a product.
func (m *PromotionMetrics) Unapplied() {
	if m == nil {
		return
	}
	m.PromotionsUnappliedTotal.Inc()
}

// ApplyFailed counts a product the promotion could not be applied to.
func (m *PromotionMetrics) ApplyFailed(scope string) {
	if m == nil {
		return
	}
	m.ApplyFailuresTotal.WithLabelValues(scope).Inc()
}

// ObserveGlobalApply records how long a global apply took.
func (m *PromotionMetrics) ObserveGlobalApply(d time.Duration) {
	if m == nil {
		return
	}
	m.GlobalApplyDuration.Observe(d.Seconds())
}
