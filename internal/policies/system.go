package policies

import (
	"context"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/internal/escrow"
	"github.com/parasol-ins/parasol/pkg/pagination"
)

// Gateway is the escrow surface policies depend on. Purchase locks the
// product payout into a new escrow; Cancel releases it back to the insurer.
type Gateway interface {
	Create(ctx context.Context, session string, amountDrops int64) (string, error)
	Cancel(ctx context.Context, session, escrowID string) (*escrow.Receipt, error)
}

// System defines the public contract for policy domain operations.
// All read and mutate operations are scoped to the owning user.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		userID string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Policy], error)

	Find(ctx context.Context, id uuid.UUID, userID string) (*Policy, error)
	Purchase(ctx context.Context, userID, session string, cmd PurchaseCommand) (*Policy, error)
	Cancel(ctx context.Context, id uuid.UUID, userID, session string) (*Policy, error)

	// PayoutTerms resolves the escrow and payout amount for an active
	// policy. Claims snapshot these values at submission.
	PayoutTerms(ctx context.Context, id uuid.UUID, userID string) (*PayoutTerms, error)
}
