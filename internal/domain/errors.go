package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")

	// Admission errors are returned to the caller of Dispatch.
	ErrDuplicateMessage  = errors.New("duplicate message")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrAllProvidersFailed is the terminal delivery failure. Dispatch reports it
	// inside a failed Result instead of returning it.
	ErrAllProvidersFailed = errors.New("all providers failed")
)
