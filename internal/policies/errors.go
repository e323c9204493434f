package policies

import (
	"errors"
	"net/http"

	"github.com/parasol-ins/parasol/internal/escrow"
)

// Domain errors for policy operations.
var (
	ErrNotFound        = errors.New("policy not found")
	ErrDuplicate       = errors.New("policy already exists")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product not available for purchase")
	ErrNotCancellable  = errors.New("policy not cancellable in its current state")
)

// MapHTTPStatus maps policy domain errors to appropriate HTTP status codes.
// Escrow gateway failures surface as 502 since the fault lies upstream.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProductInactive):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrOperationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
