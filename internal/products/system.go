package products

import (
	"context"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/pkg/pagination"
)

// System defines the public contract for product catalog operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Product], error)

	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	Create(ctx context.Context, cmd CreateCommand) (*Product, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Product, error)
}
