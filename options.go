package voicecore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Options contains configuration options for creating a Core instance.
type Options struct {
	// LossProbability is the chance in [0, 1] that the loopback source
	// discards an added frame, simulating network loss.
	LossProbability float64 `yaml:"loss_probability"`

	// MaxDelayMs bounds the loopback source's uniform random scheduling
	// delay, in milliseconds.
	MaxDelayMs float64 `yaml:"max_delay_ms"`

	// InputDevice selects the capture backend, as "backend" or
	// "backend:device". Empty leaves capture disabled.
	InputDevice string `yaml:"input_device"`

	// OutputDevice selects the render backend. Empty leaves playback
	// disabled.
	OutputDevice string `yaml:"output_device"`

	// DisableLegacyCodecs refuses every codec other than Opus.
	DisableLegacyCodecs bool `yaml:"disable_legacy_codecs"`
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		LossProbability: 0,
		MaxDelayMs:      10,
	}
}

// LoadOptions reads the YAML configuration file at path and returns a
// validated Options. It is a convenience wrapper around
// LoadOptionsFromReader.
func LoadOptions(path string) (*Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("options: open %q: %w", path, err)
	}
	defer f.Close()

	opts, err := LoadOptionsFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("options: parse %q: %w", path, err)
	}
	return opts, nil
}

// LoadOptionsFromReader decodes YAML options from r and validates the
// result. Useful in tests where configs are constructed from string
// literals. Fields absent from the document keep their defaults.
func LoadOptionsFromReader(r io.Reader) (*Options, error) {
	opts := NewOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil {
		return nil, fmt.Errorf("options: decode yaml: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks that the options contain a coherent set of values,
// returning a joined error listing every failure found.
func (o *Options) Validate() error {
	var errs []error

	if o.LossProbability < 0 || o.LossProbability > 1 {
		errs = append(errs, fmt.Errorf("loss_probability %v is invalid; must be in [0, 1]", o.LossProbability))
	}
	if o.MaxDelayMs < 0 {
		errs = append(errs, fmt.Errorf("max_delay_ms %v is invalid; must not be negative", o.MaxDelayMs))
	}

	return errors.Join(errs...)
}
