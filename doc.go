// Package voicecore implements the real-time audio delivery core of a
// voice-communication client.
//
// The package ties together three concerns, each living in its own
// subpackage:
//
//   - audio: jitter-buffered and pass-through frame sources delivering
//     encoded frames to the render mixer in timing-correct order
//   - device: lifecycle management of the shared capture and render
//     devices, with synchronous teardown guarantees against background
//     callback goroutines
//   - codec: the registry resolving negotiated bitstream versions to
//     decoders (the delivery path itself only forwards opaque payloads)
//
// The root package provides configuration loading and the Core facade
// that wires the three together. Time and randomness are injectable so
// tests can drive timing-sensitive paths deterministically; degraded
// conditions on the real-time path (no render device, malformed frames)
// degrade to silent no-ops rather than errors.
package voicecore
