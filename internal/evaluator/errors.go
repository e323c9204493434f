package evaluator

import "errors"

var (
	// ErrUnavailable indicates the evaluation service could not produce a
	// verdict (network failure, timeout, or non-2xx response). Claims must
	// remain in their current status when this is returned.
	ErrUnavailable = errors.New("evaluation service unavailable")

	// ErrMalformedResponse indicates a 2xx response whose body could not be
	// decoded. Treated as a definitive service fault, not a verdict.
	ErrMalformedResponse = errors.New("malformed evaluation response")
)
