package products

import (
	"errors"
	"net/http"
)

// Domain errors for product operations.
var (
	ErrNotFound       = errors.New("product not found")
	ErrDuplicate      = errors.New("product already exists")
	ErrNameRequired   = errors.New("product name required")
	ErrInvalidPayout  = errors.New("payout_drops must be positive")
	ErrInvalidPremium = errors.New("premium_drops must not be negative")
)

// MapHTTPStatus maps product domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidPayout) ||
		errors.Is(err, ErrInvalidPremium) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
