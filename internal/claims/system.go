package claims

import (
	"context"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/internal/escrow"
	"github.com/parasol-ins/parasol/internal/evaluator"
	"github.com/parasol-ins/parasol/internal/policies"
	"github.com/parasol-ins/parasol/pkg/pagination"
)

// Evaluator scores claim evidence. Implemented by evaluator.Client.
type Evaluator interface {
	Evaluate(ctx context.Context, claimID uuid.UUID, evidenceURL string) (*evaluator.Verdict, error)
}

// Gateway settles claim escrows. Implemented by escrow.Client.
type Gateway interface {
	Finish(ctx context.Context, session, escrowID string) (*escrow.Receipt, error)
	Cancel(ctx context.Context, session, escrowID string) (*escrow.Receipt, error)
}

// PolicyResolver supplies the payout terms a claim freezes at submission.
// Implemented by the policies System.
type PolicyResolver interface {
	PayoutTerms(ctx context.Context, id uuid.UUID, userID string) (*policies.PayoutTerms, error)
}

// System defines the public contract for claim domain operations.
// Reads and mutations are scoped to the owning user; Sweep operates
// across owners and is reserved for operational callers.
type System interface {
	Handler(maxUploadSize int64, operators []string) *Handler

	List(
		ctx context.Context,
		userID string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Claim], error)

	Find(ctx context.Context, id uuid.UUID, userID string) (*Claim, error)
	Create(ctx context.Context, userID string, cmd CreateCommand) (*Claim, error)

	// EvidenceOwner resolves the subject owning the claim that references
	// the given evidence key. Returns ErrNotFound when no claim does.
	EvidenceOwner(ctx context.Context, key string) (string, error)

	// Evaluate runs automated evaluation on a SUBMITTED claim and applies
	// the resulting transition. An APPROVED outcome immediately attempts
	// payout; a REJECTED outcome cancels the policy escrow best-effort.
	Evaluate(ctx context.Context, session string, id uuid.UUID, userID string) (*Claim, error)

	// Payout settles an APPROVED claim against its policy escrow and
	// transitions it to PAID.
	Payout(ctx context.Context, session string, id uuid.UUID, userID string) (*Claim, error)

	// Transition performs the guarded status move. It is the only writer
	// of claim status; zero matched rows yields ErrStaleTransition.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, fields map[string]any) error

	// Sweep retries payout for every APPROVED claim.
	Sweep(ctx context.Context, session string) (*SweepResult, error)
}
