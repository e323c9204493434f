package products

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/pkg/pagination"
	"github.com/parasol-ins/parasol/pkg/query"
	"github.com/parasol-ins/parasol/pkg/repository"
)

const returning = `id, name, category, premium_drops, payout_drops,
		short_description, coverage_summary, description_md, active,
		created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a product repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "products"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Product], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "ShortDescription", "CoverageSummary")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Product, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProduct)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Product, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO products(name, category, premium_drops, payout_drops,
			short_description, coverage_summary, description_md)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, returning)

	args := []any{
		cmd.Name, cmd.Category, cmd.PremiumDrops, cmd.PayoutDrops,
		cmd.ShortDescription, cmd.CoverageSummary, cmd.DescriptionMd,
	}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Product, error) {
		return repository.QueryOne(ctx, tx, q, args, scanProduct)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("product created", "id", p.ID, "name", p.Name, "payout_drops", p.PayoutDrops)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Product, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		UPDATE products
		SET name = $1, category = $2, premium_drops = $3, payout_drops = $4,
			short_description = $5, coverage_summary = $6, description_md = $7,
			updated_at = now()
		WHERE id = $8
		RETURNING %s`, returning)

	args := []any{
		cmd.Name, cmd.Category, cmd.PremiumDrops, cmd.PayoutDrops,
		cmd.ShortDescription, cmd.CoverageSummary, cmd.DescriptionMd, id,
	}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Product, error) {
		return repository.QueryOne(ctx, tx, q, args, scanProduct)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("product updated", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM products WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("product deleted", "id", id)
	return nil
}

func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.setActive(ctx, id, true)
}

func (r *repo) Deactivate(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.setActive(ctx, id, false)
}

func (r *repo) setActive(ctx context.Context, id uuid.UUID, active bool) (*Product, error) {
	q := fmt.Sprintf(`
		UPDATE products SET active = $1, updated_at = now()
		WHERE id = $2
		RETURNING %s`, returning)

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Product, error) {
		return repository.QueryOne(ctx, tx, q, []any{active, id}, scanProduct)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("product availability changed", "id", p.ID, "name", p.Name, "active", p.Active)
	return &p, nil
}
