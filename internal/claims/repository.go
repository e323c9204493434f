package claims

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parasol-ins/parasol/pkg/pagination"
	"github.com/parasol-ins/parasol/pkg/query"
	"github.com/parasol-ins/parasol/pkg/repository"
	"github.com/parasol-ins/parasol/pkg/storage"
)

// sweepConcurrency bounds parallel gateway calls during a reconciliation pass.
const sweepConcurrency = 4

type repo struct {
	db         *sql.DB
	storage    storage.System
	evaluator  Evaluator
	gateway    Gateway
	policies   PolicyResolver
	threshold  float64
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a claim repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	eval Evaluator,
	gateway Gateway,
	resolver PolicyResolver,
	threshold float64,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		evaluator:  eval,
		gateway:    gateway,
		policies:   resolver,
		threshold:  threshold,
		logger:     logger.With("system", "claims"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64, operators []string) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize, operators)
}

func (r *repo) List(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Claim], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("UserID", &userID).
		WhereSearch(page.Search, "Details", "ProductName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count claims: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID, userID string) (*Claim, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ID", &id).
		WhereEquals("UserID", &userID).
		BuildSingleOrNull()

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

// findAny loads a claim without owner scoping, for internal settlement paths.
func (r *repo) findAny(ctx context.Context, id uuid.UUID) (*Claim, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) EvidenceOwner(ctx context.Context, key string) (string, error) {
	q := `
		SELECT po.user_id
		FROM claims c
		INNER JOIN policies po ON c.policy_id = po.id
		WHERE c.evidence_url = $1`

	var owner string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve evidence owner: %w", err)
	}
	return owner, nil
}

func (r *repo) Create(ctx context.Context, userID string, cmd CreateCommand) (*Claim, error) {
	incident, err := cmd.Validate()
	if err != nil {
		return nil, err
	}

	terms, err := r.policies.PayoutTerms(ctx, cmd.PolicyID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyNotFound, err)
	}

	id := uuid.New()
	key := buildEvidenceKey(id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload evidence blob: %w", err)
	}

	q := `
		INSERT INTO claims(id, policy_id, incident_date, details, evidence_url,
			evidence_pages, payout_drops_snapshot, product_description_md)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertArgs := []any{
		id,
		cmd.PolicyID,
		incident,
		cmd.Details,
		key,
		cmd.Pages,
		terms.PayoutDrops,
		terms.DescriptionMd,
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, q, insertArgs...); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("claim submitted",
		"id", id, "policy_id", cmd.PolicyID,
		"payout_drops", terms.PayoutDrops, "evidence_url", key)

	return r.Find(ctx, id, userID)
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, from, to Status, fields map[string]any) error {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sb strings.Builder
	sb.WriteString("UPDATE claims SET status = $1, updated_at = now()")
	args := []any{to}

	for _, col := range cols {
		args = append(args, fields[col])
		fmt.Fprintf(&sb, ", %s = $%d", col, len(args))
	}

	args = append(args, id)
	fmt.Fprintf(&sb, " WHERE id = $%d", len(args))
	args = append(args, from)
	fmt.Fprintf(&sb, " AND status = $%d", len(args))

	if err := repository.ExecExpectOne(ctx, r.db, sb.String(), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStaleTransition
		}
		return fmt.Errorf("transition claim: %w", err)
	}

	r.logger.Info("claim transitioned", "id", id, "from", from, "to", to)
	return nil
}

func (r *repo) Evaluate(ctx context.Context, session string, id uuid.UUID, userID string) (*Claim, error) {
	c, err := r.Find(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusSubmitted {
		return c, ErrAlreadyEvaluated
	}

	verdict, err := r.evaluator.Evaluate(ctx, c.ID, c.EvidenceURL)
	if err != nil {
		// Fail closed: the claim stays SUBMITTED and evaluation can be retried.
		return c, fmt.Errorf("%w: %v", ErrEvaluationUnavailable, err)
	}

	target, reason := MapVerdict(verdict, r.threshold)

	fields := map[string]any{
		"ai_decision":     string(verdict.Decision),
		"ai_raw":          string(verdict.Raw),
		"rejected_reason": reason,
	}

	if err := r.Transition(ctx, id, StatusSubmitted, target, fields); err != nil {
		return c, err
	}

	switch target {
	case StatusApproved:
		current, err := r.findAny(ctx, id)
		if err != nil {
			return nil, err
		}
		paid, err := r.settle(ctx, session, current)
		if err != nil {
			return current, err
		}
		return paid, nil
	case StatusRejected:
		if _, err := r.gateway.Cancel(ctx, session, c.EscrowID); err != nil {
			r.logger.Warn("escrow cancel after rejection failed",
				"claim_id", id, "escrow_id", c.EscrowID, "error", err)
		}
	}

	return r.Find(ctx, id, userID)
}

func (r *repo) Payout(ctx context.Context, session string, id uuid.UUID, userID string) (*Claim, error) {
	c, err := r.Find(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return r.settle(ctx, session, c)
}

// settle finishes the policy escrow for an APPROVED claim and records the
// payout. The APPROVED→PAID transition is guarded, so a racing settle
// loses with ErrStaleTransition and the escrow gateway's idempotency by
// escrow id keeps funds from moving twice.
func (r *repo) settle(ctx context.Context, session string, c *Claim) (*Claim, error) {
	switch c.Status {
	case StatusApproved:
	case StatusPaid:
		return c, ErrAlreadyPaid
	default:
		return c, ErrNotPayable
	}

	receipt, err := r.gateway.Finish(ctx, session, c.EscrowID)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	fields := map[string]any{
		"payout_tx_hash": receipt.TxHash,
		"payout_at":      time.Now().UTC(),
		"payout_meta":    string(receipt.Raw),
	}

	if err := r.Transition(ctx, c.ID, StatusApproved, StatusPaid, fields); err != nil {
		return c, err
	}

	r.logger.Info("claim paid",
		"id", c.ID, "escrow_id", c.EscrowID,
		"tx_hash", receipt.TxHash, "payout_drops", c.PayoutDropsSnapshot)

	return r.findAny(ctx, c.ID)
}

func (r *repo) Sweep(ctx context.Context, session string) (*SweepResult, error) {
	status := string(StatusApproved)
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("Status", &status).
		Build()

	approved, err := repository.QueryMany(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("query approved claims: %w", err)
	}

	var mu sync.Mutex
	result := SweepResult{Attempted: len(approved)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, c := range approved {
		g.Go(func() error {
			if _, err := r.settle(gctx, session, &c); err != nil {
				r.logger.Warn("sweep payout failed", "claim_id", c.ID, "error", err)
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.Paid++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("payout sweep complete",
		"attempted", result.Attempted, "paid", result.Paid, "failed", result.Failed)

	return &result, nil
}

func buildEvidenceKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("evidence/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "evidence"
	}
	return url.PathEscape(base)
}
