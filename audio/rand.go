package audio

import "math/rand"

// Uniform is a source of uniformly distributed values in [0, 1).
// Loss and delay decisions draw from it, so injecting a seeded
// implementation makes both fully deterministic in tests.
type Uniform interface {
	// Float64 returns the next value in [0, 1).
	Float64() float64
}

// systemUniform draws from the shared math/rand generator.
type systemUniform struct{}

func (systemUniform) Float64() float64 {
	return rand.Float64()
}

// getUniform returns the provided Uniform if non-nil, otherwise the
// process-wide generator.
func getUniform(u Uniform) Uniform {
	if u != nil {
		return u
	}
	return systemUniform{}
}
