package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_promo/internal/models"
)

// PromotionRepository handles data access for promotions.
type PromotionRepository struct {
	db   sqlx.ExtContext
	root *sqlx.DB // nil when bound to a transaction
}

// NewPromotionRepository creates a new PromotionRepository outside any transaction.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db, root: db}
}

// Create inserts a promotion and fills its generated fields.
func (r *PromotionRepository) Create(ctx context.Context, promo *models.Promotion) error {
	const q = `
        INSERT INTO promotions (name, type, value, product_id, start_date, end_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, q,
		promo.Name,
		promo.Type,
		promo.Value,
		promo.ProductID,
		promo.StartDate,
		promo.EndDate,
	).Scan(&promo.ID, &promo.CreatedAt, &promo.UpdatedAt)
	return mapWriteError(err)
}

// GetByID returns a promotion by id, including soft-deleted ones.
func (r *PromotionRepository) GetByID(ctx context.Context, id int) (*models.Promotion, error) {
	const q = `SELECT * FROM promotions WHERE id = $1 LIMIT 1`
	var p models.Promotion
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveByID returns a promotion by id unless it has been soft-deleted.
func (r *PromotionRepository) GetActiveByID(ctx context.Context, id int) (*models.Promotion, error) {
	const q = `SELECT * FROM promotions WHERE id = $1 AND deleted_at IS NULL LIMIT 1`
	var p models.Promotion
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns one page of non-deleted promotions with the total count.
// Outside a transaction both reads run in one read-only repeatable-read
// transaction so the count matches the page.
func (r *PromotionRepository) ListActive(ctx context.Context, offset, limit int) ([]models.Promotion, int, error) {
	if r.root == nil {
		return listActive(ctx, r.db, offset, limit)
	}

	tx, err := r.root.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("Failed to rollback list transaction")
		}
	}()

	promos, total, err := listActive(ctx, tx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

func listActive(ctx context.Context, q sqlx.QueryerContext, offset, limit int) ([]models.Promotion, int, error) {
	const listQuery = `
        SELECT * FROM promotions
        WHERE deleted_at IS NULL
        ORDER BY id
        LIMIT $1 OFFSET $2`
	const countQuery = `SELECT COUNT(1) FROM promotions WHERE deleted_at IS NULL`

	promos := []models.Promotion{}
	if err := sqlx.SelectContext(ctx, q, &promos, listQuery, limit, offset); err != nil {
		return nil, 0, err
	}
	var total int
	if err := sqlx.GetContext(ctx, q, &total, countQuery); err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

// Update writes the fields set in patch. Soft-deleted promotions are updated too.
// An empty patch returns the current row unchanged.
func (r *PromotionRepository) Update(ctx context.Context, id int, patch *models.PromotionPatch) (*models.Promotion, error) {
	if patch == nil || patch.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name.Set {
		add("name", patch.Name.Value)
	}
	if patch.Type.Set {
		add("type", patch.Type.Value)
	}
	if patch.Value.Set {
		add("value", patch.Value.Value)
	}
	if patch.ProductID.Set {
		add("product_id", patch.ProductID.Value)
	}
	if patch.StartDate.Set {
		add("start_date", patch.StartDate.Value)
	}
	if patch.EndDate.Set {
		add("end_date", patch.EndDate.Value)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE promotions SET %s WHERE id = $%d RETURNING *`, strings.Join(sets, ", "), len(args))

	var p models.Promotion
	if err := sqlx.GetContext(ctx, r.db, &p, q, args...); err != nil {
		return nil, mapWriteError(err)
	}
	return &p, nil
}

// SoftDelete stamps deleted_at with the current time and returns the row.
func (r *PromotionRepository) SoftDelete(ctx context.Context, id int) (*models.Promotion, error) {
	const q = `UPDATE promotions SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 RETURNING *`
	var p models.Promotion
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}
