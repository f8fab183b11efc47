package device

import "errors"

// Sentinel errors for device package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrUnknownBackend indicates a selector naming no registered backend.
	ErrUnknownBackend = errors.New("unknown audio backend")

	// ErrNilRegistry indicates a manager constructed without a backend
	// registry.
	ErrNilRegistry = errors.New("backend registry cannot be nil")

	// ErrNilFactory indicates a backend registered with a nil factory.
	ErrNilFactory = errors.New("backend factory cannot be nil")
)
