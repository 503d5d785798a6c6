package service

import "errors"

// Sentinel errors for service lifecycle.
var (
	ErrNoForwarder = errors.New("no upstream forwarder configured")
	ErrListen      = errors.New("listen failed")
)
