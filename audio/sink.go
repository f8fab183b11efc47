package audio

// Sink is the render-side mixer endpoint that consumes drained frames.
//
// Implementations are expected to keep one buffer per source, mix from
// those buffers on their own schedule, and tolerate concurrent calls:
// sources deliver from whichever goroutine drives them.
type Sink interface {
	// AddFrameToBuffer queues one frame on the sink's per-source buffer.
	// An empty packet with sequence 0 primes the buffer ahead of real
	// data so playback resumes without an audible gap.
	AddFrameToBuffer(src *Source, packet []byte, seq int64, msgType MessageType)

	// RemoveBuffer discards any buffer state held for the source.
	RemoveBuffer(src *Source)
}

// SinkProvider hands out a strong reference to the currently active render
// sink. The sink may change or disappear between calls, so sources
// re-acquire it on every delivery.
//
// AcquireSink returns the sink plus a release function that must be called
// once delivery is complete; holding the reference for the duration of the
// call keeps the sink alive against concurrent teardown. When no sink is
// active both return values are nil.
type SinkProvider interface {
	AcquireSink() (Sink, func())
}

// SinkProviderFunc adapts a plain function to the SinkProvider interface.
type SinkProviderFunc func() (Sink, func())

// AcquireSink calls f.
func (f SinkProviderFunc) AcquireSink() (Sink, func()) {
	return f()
}
