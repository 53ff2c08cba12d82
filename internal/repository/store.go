package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_promo/internal/models"
)

// ErrForeignKey is returned when a write references a row that does not exist.
var ErrForeignKey = errors.New("referenced row does not exist")

// Lookups return sql.ErrNoRows when the requested row does not exist.

// PromotionStore is the data access contract for promotions.
type PromotionStore interface {
	Create(ctx context.Context, promo *models.Promotion) error
	// GetByID ignores the soft-delete flag.
	GetByID(ctx context.Context, id int) (*models.Promotion, error)
	GetActiveByID(ctx context.Context, id int) (*models.Promotion, error)
	// ListActive returns one page of non-deleted promotions and the total
	// number of non-deleted promotions, read consistently.
	ListActive(ctx context.Context, offset, limit int) ([]models.Promotion, int, error)
	Update(ctx context.Context, id int, patch *models.PromotionPatch) (*models.Promotion, error)
	SoftDelete(ctx context.Context, id int) (*models.Promotion, error)
}

// ProductStore is the read/update view over the shared products table.
type ProductStore interface {
	GetByID(ctx context.Context, id int) (*models.Product, error)
	// GetByIDForUpdate locks the product row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int) (*models.Product, error)
	ListActiveIDs(ctx context.Context) ([]int, error)
	UpdatePrice(ctx context.Context, id int, price decimal.Decimal) (*models.Product, error)
}

// ProductPromotionStore manages product to promotion associations.
type ProductPromotionStore interface {
	// Upsert inserts the link or, when it already exists, adds link.DiscountAmount
	// to the stored amount. It reports whether a new row was created and fills
	// link with the stored values.
	Upsert(ctx context.Context, link *models.ProductPromotion) (bool, error)
	Get(ctx context.Context, productID, promoID int) (*models.ProductPromotion, error)
	Delete(ctx context.Context, productID, promoID int) error
	ListByProduct(ctx context.Context, productID int) ([]models.AppliedPromotion, error)
}

// Store groups the stores and runs units of work.
type Store interface {
	Promotions() PromotionStore
	Products() ProductStore
	ProductPromotions() ProductPromotionStore
	// WithinTx runs fn in a single transaction. Stores obtained from tx share it.
	// The transaction is committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// PostgresStore implements Store on top of sqlx.
type PostgresStore struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, ext: db}
}

// Promotions returns the promotion repository bound to this store.
func (s *PostgresStore) Promotions() PromotionStore {
	return &PromotionRepository{db: s.ext, root: s.root()}
}

// Products returns the product repository bound to this store.
func (s *PostgresStore) Products() ProductStore {
	return &ProductRepository{db: s.ext}
}

// ProductPromotions returns the association repository bound to this store.
func (s *PostgresStore) ProductPromotions() ProductPromotionStore {
	return &ProductPromotionRepository{db: s.ext}
}

// WithinTx runs fn inside a transaction. Nested calls join the outer transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var committed bool
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		}
	}()

	if err := fn(&PostgresStore{db: s.db, ext: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// root returns the pool when the store is not inside a transaction.
func (s *PostgresStore) root() *sqlx.DB {
	if s.tx != nil {
		return nil
	}
	return s.db
}

// mapWriteError converts driver errors the services care about.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return fmt.Errorf("%w: %s", ErrForeignKey, pqErr.Constraint)
	}
	return err
}
