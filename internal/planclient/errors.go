package planclient

import "errors"

// Sentinel kinds for plan client errors.
var (
	// ErrSubmit means neither submission strategy was accepted.
	ErrSubmit = errors.New("plan submission failed")
	// ErrPlan means a plan file could not be turned into JSON.
	ErrPlan = errors.New("invalid plan")
)
