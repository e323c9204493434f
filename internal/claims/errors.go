package claims

import (
	"errors"
	"net/http"
)

// Domain errors for claim operations.
var (
	ErrNotFound       = errors.New("claim not found")
	ErrDuplicate      = errors.New("claim already exists")
	ErrPolicyNotFound = errors.New("policy not found or not active")

	ErrDetailsRequired     = errors.New("incident details required")
	ErrInvalidIncidentDate = errors.New("incident date must be YYYY-MM-DD or RFC 3339")
	ErrFutureIncident      = errors.New("incident date cannot be in the future")
	ErrEvidenceRequired    = errors.New("evidence file required")
	ErrUnsupportedEvidence = errors.New("evidence must be PDF, PNG, or JPEG")
	ErrFileTooLarge        = errors.New("evidence file too large")

	// ErrEvaluationUnavailable indicates the evaluation partner could not
	// be reached or returned garbage. The claim remains SUBMITTED.
	ErrEvaluationUnavailable = errors.New("evidence evaluation unavailable")

	// ErrPayoutFailed indicates the escrow gateway rejected or failed the
	// finish operation. The claim remains APPROVED and payout can be retried.
	ErrPayoutFailed = errors.New("escrow payout failed")

	// ErrStaleTransition indicates a concurrent writer moved the claim
	// first; the guarded update matched zero rows.
	ErrStaleTransition = errors.New("claim state changed concurrently")

	// ErrOperatorRequired indicates a cross-owner operation was attempted
	// by a subject outside the configured operator list.
	ErrOperatorRequired = errors.New("operator access required")

	ErrNotPayable       = errors.New("claim not approved for payout")
	ErrAlreadyEvaluated = errors.New("claim already evaluated")
	ErrAlreadyPaid      = errors.New("claim already paid")
)

// MapHTTPStatus maps claim domain errors to appropriate HTTP status codes.
// Partner failures surface as 502: the request was valid but an upstream
// dependency failed, and the claim state reflects that nothing settled.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPolicyNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDetailsRequired),
		errors.Is(err, ErrInvalidIncidentDate),
		errors.Is(err, ErrFutureIncident),
		errors.Is(err, ErrEvidenceRequired),
		errors.Is(err, ErrUnsupportedEvidence):
		return http.StatusBadRequest
	case errors.Is(err, ErrEvaluationUnavailable), errors.Is(err, ErrPayoutFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrStaleTransition),
		errors.Is(err, ErrNotPayable),
		errors.Is(err, ErrAlreadyEvaluated),
		errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
