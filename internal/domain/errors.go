package domain

import "errors"

var (
	// ErrInvalidInput marks a review that cannot be classified (empty or
	// whitespace-only text). Recovered per review; the batch continues.
	ErrInvalidInput = errors.New("invalid review input")

	// ErrModelUnavailable means a classifier backend failed to load or
	// crashed mid-inference. Fatal for the whole pipeline instance;
	// never downgraded to a default label.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrClassificationTimeout marks a review whose inference exceeded
	// its budget. Only that review fails; the batch continues.
	ErrClassificationTimeout = errors.New("classification timeout")
)
