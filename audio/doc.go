// Package audio implements the frame delivery core for voicecore.
//
// This package provides the jitter-buffered and pass-through audio sources
// that carry encoded frames from a capture path to the render mixer. It
// sits on the boundary between real-time audio callback goroutines and the
// control goroutine:
//   - Sink, SinkProvider, TimeProvider and Uniform are interfaces, all
//     injectable
//   - Locks are short-held and per-source, never held across I/O
//   - Degraded conditions on the hot path are absorbed as silent no-ops
//
// The delivery pipeline:
//
//	Encoded frame → Source.AddFrame → JitterBuffer (loss + delay simulation)
//	             → Source.FetchFrames (mixer tick) → Sink.AddFrameToBuffer
//
// A Source in direct mode (recording) bypasses the buffer entirely and
// forwards each frame to the sink as it arrives.
package audio
