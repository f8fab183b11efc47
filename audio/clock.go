package audio

import "time"

// TimeProvider is an interface for reading the current time.
// This allows injecting a mock time provider for deterministic testing
// of scheduling and stall detection.
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time
}

// RealTimeProvider implements TimeProvider using the actual system time.
type RealTimeProvider struct{}

// Now returns the current system time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// getTimeProvider returns the provided TimeProvider if non-nil,
// otherwise a RealTimeProvider.
func getTimeProvider(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return RealTimeProvider{}
}
