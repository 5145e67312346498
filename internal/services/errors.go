package services

import "errors"

// Sentinel errors shared across the scoring services. Callers discriminate
// with errors.Is after unwrapping.
var (
	// ErrModelNotFitted is returned when a scoring call arrives before any
	// successful fit. The caller triggers exactly one synchronous rebuild.
	ErrModelNotFitted = errors.New("model not fitted")

	// ErrUpstreamUnavailable wraps document-store or encoder failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidInput marks malformed user or item identifiers.
	ErrInvalidInput = errors.New("invalid input")
)
