package policies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/pkg/pagination"
	"github.com/parasol-ins/parasol/pkg/query"
	"github.com/parasol-ins/parasol/pkg/repository"
)

type repo struct {
	db         *sql.DB
	gateway    Gateway
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a policy repository implementing the System interface.
func New(
	db *sql.DB,
	gateway Gateway,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		gateway:    gateway,
		logger:     logger.With("system", "policies"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Policy], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("UserID", &userID).
		WhereSearch(page.Search, "ProductName", "Category")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count policies: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPolicy)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID, userID string) (*Policy, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ID", &id).
		WhereEquals("UserID", &userID).
		BuildSingleOrNull()

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPolicy)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Purchase(ctx context.Context, userID, session string, cmd PurchaseCommand) (*Policy, error) {
	var (
		payoutDrops int64
		active      bool
	)

	err := r.db.QueryRowContext(
		ctx,
		"SELECT payout_drops, active FROM products WHERE id = $1",
		cmd.ProductID,
	).Scan(&payoutDrops, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}
	if !active {
		return nil, ErrProductInactive
	}

	escrowID, err := r.gateway.Create(ctx, session, payoutDrops)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	q := `
		INSERT INTO policies(id, user_id, product_id, escrow_id)
		VALUES ($1, $2, $3, $4)`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, q, id, userID, cmd.ProductID, escrowID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		if _, cancelErr := r.gateway.Cancel(ctx, session, escrowID); cancelErr != nil {
			r.logger.Warn("compensating escrow cancel failed",
				"escrow_id", escrowID, "error", cancelErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("policy purchased",
		"id", id, "user_id", userID,
		"product_id", cmd.ProductID, "escrow_id", escrowID)

	return r.Find(ctx, id, userID)
}

func (r *repo) Cancel(ctx context.Context, id uuid.UUID, userID, session string) (*Policy, error) {
	current, err := r.Find(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusActive {
		return nil, ErrNotCancellable
	}

	if _, err := r.gateway.Cancel(ctx, session, current.EscrowID); err != nil {
		return nil, err
	}

	// Guarded update: a concurrent transition leaves zero rows.
	err = repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE policies SET status = $1, updated_at = now()
		 WHERE id = $2 AND user_id = $3 AND status = $4`,
		StatusCancelled, id, userID, StatusActive,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotCancellable, ErrDuplicate)
	}

	r.logger.Info("policy cancelled", "id", id, "escrow_id", current.EscrowID)
	return r.Find(ctx, id, userID)
}

func (r *repo) PayoutTerms(ctx context.Context, id uuid.UUID, userID string) (*PayoutTerms, error) {
	q := `
		SELECT po.escrow_id, pr.payout_drops, pr.description_md
		FROM policies po
		INNER JOIN products pr ON po.product_id = pr.id
		WHERE po.id = $1 AND po.user_id = $2 AND po.status = $3`

	var terms PayoutTerms
	err := r.db.QueryRowContext(ctx, q, id, userID, StatusActive).
		Scan(&terms.EscrowID, &terms.PayoutDrops, &terms.DescriptionMd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve payout terms: %w", err)
	}
	return &terms, nil
}
