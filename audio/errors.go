package audio

import "errors"

// Sentinel errors for audio package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrFrameTooShort indicates a packet too small to carry a header.
	ErrFrameTooShort = errors.New("frame too short")

	// ErrBadSequence indicates the sequence varint is truncated or malformed.
	ErrBadSequence = errors.New("malformed sequence number")

	// ErrNoSinkProvider indicates a source was configured without a way to
	// reach the render sink.
	ErrNoSinkProvider = errors.New("sink provider cannot be nil")

	// ErrInvalidLossProbability indicates a loss probability outside [0, 1].
	ErrInvalidLossProbability = errors.New("loss probability must be in [0, 1]")

	// ErrInvalidMaxDelay indicates a negative maximum delay.
	ErrInvalidMaxDelay = errors.New("max delay must not be negative")
)
