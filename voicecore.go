package voicecore

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/voicecore/audio"
	"github.com/opd-ai/voicecore/codec"
	"github.com/opd-ai/voicecore/device"
)

// Core is the assembled audio delivery core: the device lifecycle
// manager, the codec registry and the loopback source, wired together
// from one set of Options.
//
// Core instances are independent of each other; nothing is ambient
// process state, so tests can run isolated cores side by side.
type Core struct {
	options  *Options
	codecs   *codec.Registry
	devices  *device.Manager
	loopback *audio.Source
}

// New creates a Core from options, resolving device selectors through
// backends. A nil options uses defaults.
func New(options *Options, backends *device.Registry) (*Core, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("voicecore: %w", err)
	}

	devices, err := device.NewManager(backends)
	if err != nil {
		return nil, fmt.Errorf("voicecore: %w", err)
	}

	codecs := codec.NewRegistry(codec.Config{
		DisableLegacy: options.DisableLegacyCodecs,
	})

	loopback, err := audio.NewLoopbackSource(audio.SourceConfig{
		LossProbability: options.LossProbability,
		MaxDelay:        options.MaxDelayMs,
		Sinks:           devices,
	})
	if err != nil {
		return nil, fmt.Errorf("voicecore: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":         "New",
		"loss_probability": options.LossProbability,
		"max_delay_ms":     options.MaxDelayMs,
		"legacy_disabled":  options.DisableLegacyCodecs,
	}).Info("Voicecore assembled")

	return &Core{
		options:  options,
		codecs:   codecs,
		devices:  devices,
		loopback: loopback,
	}, nil
}

// Devices returns the device lifecycle manager.
func (c *Core) Devices() *device.Manager {
	return c.devices
}

// Codecs returns the codec registry.
func (c *Core) Codecs() *codec.Registry {
	return c.codecs
}

// Loopback returns the self-echo source. Capture paths feed it via
// AddFrame; the mixer tick drives its FetchFrames.
func (c *Core) Loopback() *audio.Source {
	return c.loopback
}

// NewRecordingSource creates a local-recorder source delivering through
// this core's render device.
func (c *Core) NewRecordingSource(name string) (*audio.Source, error) {
	return audio.NewRecordingSource(audio.SourceConfig{
		Name:  name,
		Sinks: c.devices,
	})
}

// Start brings up capture and render devices from the configured
// selectors. A direction with an empty selector stays disabled without
// error.
func (c *Core) Start() error {
	var errIn, errOut error
	if c.options.InputDevice != "" {
		errIn = c.devices.StartInput(c.options.InputDevice)
	}
	if c.options.OutputDevice != "" {
		errOut = c.devices.StartOutput(c.options.OutputDevice)
	}
	return errors.Join(errIn, errOut)
}

// Stop retires both devices synchronously. See device.Manager.Stop for
// the teardown contract.
func (c *Core) Stop() {
	c.devices.Stop()
}

// Close stops the devices and tears down the codec registry. The Core is
// unusable afterwards.
func (c *Core) Close() error {
	c.devices.Stop()
	return c.codecs.Close()
}
