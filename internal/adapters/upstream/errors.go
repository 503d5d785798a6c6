package upstream

import "errors"

// Sentinel kinds for upstream errors.
var (
	// ErrUpstream marks a call that produced no upstream response.
	ErrUpstream = errors.New("upstream unreachable")

	// ErrResponseTooLarge marks an upstream body over the configured cap.
	// It is always reported together with ErrUpstream.
	ErrResponseTooLarge = errors.New("upstream response too large")
)
