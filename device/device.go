package device

import "github.com/opd-ai/voicecore/audio"

// Priority is the scheduling priority a device's callback goroutine asks
// for when started. Render runs at least as high as capture: an underrun
// on playback is more audible than one extra buffered capture frame.
type Priority int

const (
	// PriorityNormal is ordinary scheduling.
	PriorityNormal Priority = iota
	// PriorityHigh is the capture callback tier.
	PriorityHigh
	// PriorityHighest is the render callback tier.
	PriorityHighest
)

// String returns a human-readable name for the priority tier.
func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	default:
		return "unknown"
	}
}

// Device is one direction of audio hardware access, owned by a backend.
//
// Start launches the backend's callback goroutine at the requested
// priority. Close tears the backend down and is always invoked
// synchronously on the goroutine running the stop operation, never from a
// callback; backends may take driver-global locks in Close and rely on
// this.
type Device interface {
	Start(p Priority) error
	Close() error
}

// CaptureDevice produces encoded frames from the local microphone path.
type CaptureDevice interface {
	Device
}

// RenderDevice plays mixed audio and owns the per-source mixer buffers
// that drained frames land in.
type RenderDevice interface {
	Device
	audio.Sink
}
