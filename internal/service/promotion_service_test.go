package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_promo/internal/cache"
	"github.com/GTDGit/gtd_promo/internal/config"
	"github.com/GTDGit/gtd_promo/internal/events"
	"github.com/GTDGit/gtd_promo/internal/models"
	"github.com/GTDGit/gtd_promo/internal/repository"
	"github.com/GTDGit/gtd_promo/internal/repository/memory"
	"github.com/GTDGit/gtd_promo/internal/utils"
)

func newTestService(t *testing.T) (*PromotionService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewPromotionService(store, config.PromotionConfig{MaxPageLimit: 10, GlobalWorkers: 3})
	return svc, store
}

func createPromo(t *testing.T, svc *PromotionService, typ models.PromotionType, value int) *models.Promotion {
	t.Helper()
	p, err := svc.CreatePromotion(context.Background(), &CreatePromotionRequest{Name: "Promo", Type: typ, Value: value})
	require.NoError(t, err)
	return p
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreatePromotionDateOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		end     time.Time
		wantErr bool
	}{
		{"end before start", start.Add(-time.Hour), true},
		{"end equals start", start, false},
		{"end after start", start.Add(24 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := tt.end
			p, err := svc.CreatePromotion(ctx, &CreatePromotionRequest{
				Name:      "Spring",
				Type:      models.PromotionTypeDiscount,
				Value:     10,
				StartDate: &start,
				EndDate:   &end,
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, p.StartDate.Equal(start))
			assert.True(t, p.EndDate.Equal(end))
		})
	}
}

func TestCreatePromotionDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	zero := 0
	p, err := svc.CreatePromotion(context.Background(), &CreatePromotionRequest{
		Name:      "Default dates",
		Type:      models.PromotionTypeSales,
		Value:     5,
		ProductID: &zero,
	})
	require.NoError(t, err)
	assert.Nil(t, p.ProductID)
	assert.True(t, p.StartDate.Equal(fixed))
	assert.True(t, p.EndDate.Equal(fixed))
}

func TestCreatePromotionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePromotion(ctx, &CreatePromotionRequest{Name: "", Type: models.PromotionTypeSales})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = svc.CreatePromotion(ctx, &CreatePromotionRequest{Name: "X", Type: "Bogus"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	missing := 42
	_, err = svc.CreatePromotion(ctx, &CreatePromotionRequest{Name: "X", Type: models.PromotionTypeSales, ProductID: &missing})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestListPromotionsCapsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		createPromo(t, svc, models.PromotionTypeSales, i)
	}

	for _, limit := range []int{1, 5, 10, 11, 100} {
		page, err := svc.ListPromotions(ctx, 1, limit)
		require.NoError(t, err)
		want := min(limit, 10)
		assert.Len(t, page.Data, want)
		assert.Equal(t, want, page.Meta.ItemsPerPage)
		assert.Equal(t, 25, page.Meta.TotalItems)
		assert.Equal(t, (25+want-1)/want, page.Meta.TotalPages)
	}

	page, err := svc.ListPromotions(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, 3, page.Meta.CurrentPage)
	assert.Equal(t, 21, page.Data[0].ID)
}

func TestSoftDeletedPromotionIsHidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	keep := createPromo(t, svc, models.PromotionTypeSales, 1)
	gone := createPromo(t, svc, models.PromotionTypeSales, 2)

	deleted, err := svc.DeletePromotion(ctx, gone.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())

	page, err := svc.ListPromotions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, keep.ID, page.Data[0].ID)
	assert.Equal(t, 1, page.Meta.TotalItems)

	_, err = svc.GetPromotion(ctx, gone.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = svc.DeletePromotion(ctx, 999)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestUpdatePromotion(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Tea", Price: price("10")})
	promo := createPromo(t, svc, models.PromotionTypeSales, 3)

	t.Run("only set fields change", func(t *testing.T) {
		pid := product.ID
		got, err := svc.UpdatePromotion(ctx, promo.ID, &models.PromotionPatch{
			Value:     models.Some(0),
			ProductID: models.Some(&pid),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Value)
		assert.Equal(t, "Promo", got.Name)
		require.NotNil(t, got.ProductID)
		assert.Equal(t, product.ID, *got.ProductID)
	})

	t.Run("null product clears it", func(t *testing.T) {
		got, err := svc.UpdatePromotion(ctx, promo.ID, &models.PromotionPatch{ProductID: models.Some[*int](nil)})
		require.NoError(t, err)
		assert.Nil(t, got.ProductID)
	})

	t.Run("date order is not rechecked", func(t *testing.T) {
		got, err := svc.UpdatePromotion(ctx, promo.ID, &models.PromotionPatch{EndDate: models.Some(promo.StartDate.Add(-time.Hour))})
		require.NoError(t, err)
		assert.True(t, got.EndDate.Before(got.StartDate))
	})

	t.Run("null on required fields", func(t *testing.T) {
		for _, body := range []string{
			`{"start_date":null,"promo_name":null}`,
			`{"promo_type":null}`,
			`{"promo_value":null}`,
			`{"end_date":null}`,
		} {
			var patch models.PromotionPatch
			require.NoError(t, json.Unmarshal([]byte(body), &patch))
			_, err := svc.UpdatePromotion(ctx, promo.ID, &patch)
			assert.ErrorIs(t, err, utils.ErrValidation, body)
		}

		current, err := svc.GetPromotion(ctx, promo.ID)
		require.NoError(t, err)
		assert.Equal(t, "Promo", current.Name)
		assert.True(t, current.StartDate.Equal(promo.StartDate))
		assert.Equal(t, models.PromotionTypeSales, current.Type)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := svc.UpdatePromotion(ctx, promo.ID, &models.PromotionPatch{Type: models.Some[models.PromotionType]("Other")})
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("missing promotion", func(t *testing.T) {
		_, err := svc.UpdatePromotion(ctx, 999, &models.PromotionPatch{Name: models.Some("x")})
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})
}

func TestApplyPromoToProductFormulas(t *testing.T) {
	tests := []struct {
		name  string
		typ   models.PromotionType
		value int
		price string
		want  string
	}{
		{"percentage", models.PromotionTypeDiscount, 20, "200", "160"},
		{"flat", models.PromotionTypeSales, 20, "200", "180"},
		{"percentage rounds", models.PromotionTypeDiscount, 15, "9.99", "8.49"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			product := store.AddProduct(models.Product{Name: "Item", Price: price(tt.price)})
			promo := createPromo(t, svc, tt.typ, tt.value)

			got, err := svc.ApplyPromoToProduct(context.Background(), product.ID, promo.ID)
			require.NoError(t, err)
			assert.True(t, got.Price.Equal(price(tt.want)), "got %s", got.Price)
			require.Len(t, got.ProductPromos, 1)
			assert.Equal(t, promo.ID, got.ProductPromos[0].PromotionID)
			assert.True(t, got.ProductPromos[0].DiscountAmount.Equal(price(tt.price).Sub(price(tt.want))))
		})
	}
}

func TestApplySamePairTwiceKeepsOneRow(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("100")})
	promo := createPromo(t, svc, models.PromotionTypeDiscount, 10)

	_, err := svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	require.NoError(t, err)
	got, err := svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	require.NoError(t, err)

	assert.True(t, got.Price.Equal(price("81")))
	require.Len(t, got.ProductPromos, 1)
	assert.True(t, got.ProductPromos[0].DiscountAmount.Equal(price("19")))
}

func TestApplyRejectReapply(t *testing.T) {
	store := memory.NewStore()
	svc := NewPromotionService(store, config.PromotionConfig{MaxPageLimit: 10, GlobalWorkers: 1, RejectReapply: true})
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("100")})
	promo := createPromo(t, svc, models.PromotionTypeSales, 10)

	_, err := svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	require.NoError(t, err)

	_, err = svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	assert.ErrorIs(t, err, utils.ErrConflict)

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, current.Price.Equal(price("90")))
}

func TestApplyMissingIDsWritesNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("50")})
	promo := createPromo(t, svc, models.PromotionTypeSales, 5)

	_, err := svc.ApplyPromoToProduct(ctx, product.ID, 999)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.ApplyPromoToProduct(ctx, 999, promo.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.ApplyPromoGlobally(ctx, 999)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, current.Price.Equal(price("50")))
	links, err := store.ProductPromotions().ListByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestApplyIgnoresSoftDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("50")})
	promo := createPromo(t, svc, models.PromotionTypeSales, 5)
	_, err := svc.DeletePromotion(ctx, promo.ID)
	require.NoError(t, err)

	got, err := svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price("45")))
}

func TestApplyPromoGlobally(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	const n = 7
	for i := 0; i < n; i++ {
		store.AddProduct(models.Product{Name: "Item", Price: price("100")})
	}
	deletedAt := time.Now()
	skipped := store.AddProduct(models.Product{Name: "Gone", Price: price("100"), DeletedAt: &deletedAt})
	promo := createPromo(t, svc, models.PromotionTypeDiscount, 25)

	res, err := svc.ApplyPromoGlobally(ctx, promo.ID)
	require.NoError(t, err)
	assert.False(t, res.Partial())
	assert.Equal(t, "Promo applied to all products successfully", res.Message)
	assert.Equal(t, n, res.Total)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, res.Applied)
	assert.Empty(t, res.Failed)

	for id := 1; id <= n; id++ {
		p, err := store.Products().GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, p.Price.Equal(price("75")))
		links, err := store.ProductPromotions().ListByProduct(ctx, id)
		require.NoError(t, err)
		assert.Len(t, links, 1)
	}

	p, err := store.Products().GetByID(ctx, skipped.ID)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(price("100")))
}

// failingStore fails price updates for the listed products.
type failingStore struct {
	repository.Store
	fail map[int]bool
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&failingStore{Store: tx, fail: s.fail})
	})
}

func (s *failingStore) Products() repository.ProductStore {
	return failingProducts{ProductStore: s.Store.Products(), fail: s.fail}
}

type failingProducts struct {
	repository.ProductStore
	fail map[int]bool
}

func (p failingProducts) UpdatePrice(ctx context.Context, id int, v decimal.Decimal) (*models.Product, error) {
	if p.fail[id] {
		return nil, errors.New("induced failure")
	}
	return p.ProductStore.UpdatePrice(ctx, id, v)
}

func TestApplyPromoGloballyReportsPartialFailure(t *testing.T) {
	mem := memory.NewStore()
	for i := 0; i < 4; i++ {
		mem.AddProduct(models.Product{Name: "Item", Price: price("10")})
	}
	store := &failingStore{Store: mem, fail: map[int]bool{2: true, 4: true}}
	svc := NewPromotionService(store, config.PromotionConfig{MaxPageLimit: 10, GlobalWorkers: 2})
	ctx := context.Background()
	promo := createPromo(t, svc, models.PromotionTypeSales, 1)

	res, err := svc.ApplyPromoGlobally(ctx, promo.ID)
	require.NoError(t, err)
	assert.True(t, res.Partial())
	assert.Equal(t, "Promo applied to 2 of 4 products", res.Message)
	assert.Equal(t, []int{1, 3}, res.Applied)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 2, res.Failed[0].ProductID)
	assert.Equal(t, "induced failure", res.Failed[0].Error)

	for id, want := range map[int]string{1: "9", 2: "10", 3: "9", 4: "10"} {
		p, err := mem.Products().GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, p.Price.Equal(price(want)), "product %d price %s", id, p.Price)
		links, err := mem.ProductPromotions().ListByProduct(ctx, id)
		require.NoError(t, err)
		if want == "10" {
			assert.Empty(t, links)
		} else {
			assert.Len(t, links, 1)
		}
	}
}

func TestApplyPromoGloballyCancelled(t *testing.T) {
	svc, store := newTestService(t)
	store.AddProduct(models.Product{Name: "Item", Price: price("10")})
	promo := createPromo(t, svc, models.PromotionTypeSales, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.ApplyPromoGlobally(ctx, promo.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, context.Canceled.Error(), res.Failed[0].Error)
}

func TestUnapplyRestoresPrice(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("9.99")})
	pct := createPromo(t, svc, models.PromotionTypeDiscount, 15)
	flat := createPromo(t, svc, models.PromotionTypeSales, 2)

	_, err := svc.ApplyPromoToProduct(ctx, product.ID, pct.ID)
	require.NoError(t, err)
	_, err = svc.ApplyPromoToProduct(ctx, product.ID, flat.ID)
	require.NoError(t, err)

	got, err := svc.UnapplyPromoFromProduct(ctx, product.ID, pct.ID)
	require.NoError(t, err)
	// 9.99 - 1.50 - 2 + 1.50
	assert.True(t, got.Price.Equal(price("7.99")), "got %s", got.Price)
	require.Len(t, got.ProductPromos, 1)
	assert.Equal(t, flat.ID, got.ProductPromos[0].PromotionID)

	got, err = svc.UnapplyPromoFromProduct(ctx, product.ID, flat.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price("9.99")))
	assert.Empty(t, got.ProductPromos)

	_, err = svc.UnapplyPromoFromProduct(ctx, product.ID, flat.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.UnapplyPromoFromProduct(ctx, 999, flat.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestGetProductPromotions(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("10")})
	promo := createPromo(t, svc, models.PromotionTypeSales, 1)
	_, err := svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	require.NoError(t, err)

	got, err := svc.GetProductPromotions(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Item", got.Name)
	require.Len(t, got.ProductPromos, 1)
	assert.Equal(t, promo.ID, got.ProductPromos[0].Promo.ID)

	_, err = svc.GetProductPromotions(ctx, 999)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

type recordingPublisher struct {
	events []events.PromotionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.PromotionEvent) error {
	p.events = append(p.events, evts...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestEventsArePublishedAndFailuresIgnored(t *testing.T) {
	svc, store := newTestService(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc.SetPublisher(pub)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("10")})

	promo := createPromo(t, svc, models.PromotionTypeSales, 1)
	_, err := svc.ApplyPromoToProduct(ctx, product.ID, promo.ID)
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.EventPromotionCreated, pub.events[0].Event)
	assert.Equal(t, events.EventPromotionApplied, pub.events[1].Event)
	require.NotNil(t, pub.events[1].ProductID)
	assert.Equal(t, product.ID, *pub.events[1].ProductID)
	assert.True(t, pub.events[1].NewPrice.Equal(price("9")))
}

type mapCache struct {
	items    map[int]models.Promotion
	versions map[int]int64
	hits     int
}

func (c *mapCache) Get(_ context.Context, id int) (*models.Promotion, error) {
	p, ok := c.items[id]
	if !ok {
		return nil, errors.New("miss")
	}
	c.hits++
	return &p, nil
}

func (c *mapCache) Version(_ context.Context, id int) (int64, error) {
	return c.versions[id], nil
}

func (c *mapCache) Set(_ context.Context, p *models.Promotion, version int64) error {
	if c.versions[p.ID] == version {
		c.items[p.ID] = *p
	}
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, id int) error {
	c.versions[id]++
	delete(c.items, id)
	return nil
}

func TestGetPromotionReadThroughCache(t *testing.T) {
	svc, _ := newTestService(t)
	mc := &mapCache{items: map[int]models.Promotion{}, versions: map[int]int64{}}
	svc.SetCache(mc)
	ctx := context.Background()
	promo := createPromo(t, svc, models.PromotionTypeSales, 1)

	_, err := svc.GetPromotion(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, mc.hits)
	_, err = svc.GetPromotion(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.hits)

	_, err = svc.DeletePromotion(ctx, promo.ID)
	require.NoError(t, err)
	_, err = svc.GetPromotion(ctx, promo.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

// deletingStore soft-deletes a promotion right after GetActiveByID has read it.
type deletingStore struct {
	repository.Store
	afterRead func(id int)
}

func (s *deletingStore) Promotions() repository.PromotionStore {
	return deletingPromotions{PromotionStore: s.Store.Promotions(), afterRead: s.afterRead}
}

type deletingPromotions struct {
	repository.PromotionStore
	afterRead func(id int)
}

func (p deletingPromotions) GetActiveByID(ctx context.Context, id int) (*models.Promotion, error) {
	promo, err := p.PromotionStore.GetActiveByID(ctx, id)
	if err == nil && p.afterRead != nil {
		p.afterRead(id)
	}
	return promo, err
}

func TestGetPromotionDeleteDuringCacheFill(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mem := memory.NewStore()
	store := &deletingStore{Store: mem}
	svc := NewPromotionService(store, config.PromotionConfig{MaxPageLimit: 10, GlobalWorkers: 1})
	svc.SetCache(cache.NewPromotionCache(cache.NewRedisClientFrom(client), time.Minute))
	ctx := context.Background()
	promo := createPromo(t, svc, models.PromotionTypeSales, 1)

	var once sync.Once
	store.afterRead = func(id int) {
		once.Do(func() {
			_, err := svc.DeletePromotion(ctx, id)
			require.NoError(t, err)
		})
	}

	got, err := svc.GetPromotion(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, promo.ID, got.ID)

	_, err = svc.GetPromotion(ctx, promo.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.False(t, mr.Exists("promo:active:1"))
}

func TestConcurrentApplyOnOneProductLosesNoUpdate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	product := store.AddProduct(models.Product{Name: "Item", Price: price("1000")})

	const n = 20
	promos := make([]*models.Promotion, n)
	for i := range promos {
		promos[i] = createPromo(t, svc, models.PromotionTypeSales, 10)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, promo := range promos {
		wg.Add(1)
		go func(i, promoID int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyPromoToProduct(ctx, product.ID, promoID)
		}(i, promo.ID)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	current, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, current.Price.Equal(price("800")), "got %s", current.Price)
	links, err := store.ProductPromotions().ListByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, links, n)
}
