package api

import (
	"github.com/parasol-ins/parasol/internal/claims"
	"github.com/parasol-ins/parasol/internal/policies"
	"github.com/parasol-ins/parasol/internal/products"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Products products.System
	Policies policies.System
	Claims   claims.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	productsSystem := products.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	policiesSystem := policies.New(
		runtime.Database.Connection(),
		runtime.Escrow,
		runtime.Logger,
		runtime.Pagination,
	)

	claimsSystem := claims.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Evaluator,
		runtime.Escrow,
		policiesSystem,
		runtime.Threshold,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Products: productsSystem,
		Policies: policiesSystem,
		Claims:   claimsSystem,
	}
}
