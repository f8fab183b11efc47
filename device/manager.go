package device

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/voicecore/audio"
)

// Manager owns the process's active capture and render device handles and
// coordinates their start/stop transitions against background callback
// goroutines.
//
// Each direction lives in its own Slot; the manager is the only writer
// (install on start, clear on stop), while the frame-delivery path and
// UI/status code are readers that briefly acquire references. Managers are
// plain instances rather than ambient globals so tests can run isolated
// pairs side by side.
type Manager struct {
	registry *Registry

	capture Slot[CaptureDevice]
	render  Slot[RenderDevice]
}

// NewManager creates a manager resolving selectors through registry.
func NewManager(registry *Registry) (*Manager, error) {
	if registry == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewManager",
			"error":    ErrNilRegistry.Error(),
		}).Error("Registry validation failed")
		return nil, ErrNilRegistry
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewManager",
	}).Info("Device lifecycle manager created")

	return &Manager{registry: registry}, nil
}

// StartInput resolves selector to a capture device, installs it as the
// active capture handle and starts its callback goroutine. Any previously
// active capture device is stopped first, so its teardown completes before
// the new handle exists. A selector that fails to resolve leaves no handle
// installed; capture stays silently disabled and the error reports why.
func (m *Manager) StartInput(selector string) error {
	m.StopInput()

	dev, err := m.registry.NewCapture(selector)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.StartInput",
			"selector": selector,
			"error":    err.Error(),
		}).Warn("Capture backend unavailable, input disabled")
		return fmt.Errorf("start input %q: %w", selector, err)
	}

	m.capture.Install(dev, closeDevice[CaptureDevice]("capture"))

	if err := dev.Start(PriorityHigh); err != nil {
		m.StopInput()
		logrus.WithFields(logrus.Fields{
			"function": "Manager.StartInput",
			"selector": selector,
			"error":    err.Error(),
		}).Warn("Capture device failed to start, input disabled")
		return fmt.Errorf("start input %q: %w", selector, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.StartInput",
		"selector": selector,
		"priority": PriorityHigh.String(),
	}).Info("Capture device started")

	return nil
}

// StartOutput resolves selector to a render device, installs it as the
// active render handle and starts its callback goroutine at the highest
// priority tier. Behavior mirrors StartInput.
func (m *Manager) StartOutput(selector string) error {
	m.StopOutput()

	dev, err := m.registry.NewRender(selector)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.StartOutput",
			"selector": selector,
			"error":    err.Error(),
		}).Warn("Render backend unavailable, output disabled")
		return fmt.Errorf("start output %q: %w", selector, err)
	}

	m.render.Install(dev, closeDevice[RenderDevice]("render"))

	if err := dev.Start(PriorityHighest); err != nil {
		m.StopOutput()
		logrus.WithFields(logrus.Fields{
			"function": "Manager.StartOutput",
			"selector": selector,
			"error":    err.Error(),
		}).Warn("Render device failed to start, output disabled")
		return fmt.Errorf("start output %q: %w", selector, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.StartOutput",
		"selector": selector,
		"priority": PriorityHighest.String(),
	}).Info("Render device started")

	return nil
}

// StopInput retires the active capture device, if any.
//
// It takes a local reference, clears the process-wide handle so no new
// references can be taken, spins until the local reference is the sole
// survivor, then releases it, running the device's Close synchronously on
// this goroutine. A no-op when no capture device is active. Must not be
// called from a device callback goroutine.
func (m *Manager) StopInput() {
	ref := m.capture.Clear()
	if ref == nil {
		return
	}

	ref.WaitSoleOwner()
	ref.Release()

	logrus.WithFields(logrus.Fields{
		"function": "Manager.StopInput",
	}).Info("Capture device stopped")
}

// StopOutput retires the active render device, if any. Behavior mirrors
// StopInput.
func (m *Manager) StopOutput() {
	ref := m.render.Clear()
	if ref == nil {
		return
	}

	ref.WaitSoleOwner()
	ref.Release()

	logrus.WithFields(logrus.Fields{
		"function": "Manager.StopOutput",
	}).Info("Render device stopped")
}

// Start brings up both directions: capture from inputSelector, render from
// outputSelector. Either direction failing leaves that direction disabled
// without affecting the other; the returned error reports both.
func (m *Manager) Start(inputSelector, outputSelector string) error {
	errIn := m.StartInput(inputSelector)
	errOut := m.StartOutput(outputSelector)
	return errors.Join(errIn, errOut)
}

// Stop retires both directions as a single synchronized step: local
// references to both handles are taken and both process-wide handles
// cleared before the wait begins, and neither reference is released until
// both are sole survivors. Backends coupled through the same physical
// device therefore never observe the other direction already destroyed
// mid-callback. Must not be called from a device callback goroutine.
func (m *Manager) Stop() {
	ai := m.capture.Clear()
	ao := m.render.Clear()
	if ai == nil && ao == nil {
		return
	}

	for (ai != nil && !ai.Unique()) || (ao != nil && !ao.Unique()) {
		runtime.Gosched()
	}

	if ai != nil {
		ai.Release()
	}
	if ao != nil {
		ao.Release()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.Stop",
		"capture":  ai != nil,
		"render":   ao != nil,
	}).Info("Audio devices stopped")
}

// AcquireInput returns a strong reference to the active capture device,
// or nil when capture is not running. The caller must Release it.
func (m *Manager) AcquireInput() *Ref[CaptureDevice] {
	return m.capture.Acquire()
}

// AcquireOutput returns a strong reference to the active render device,
// or nil when playback is not running. The caller must Release it.
func (m *Manager) AcquireOutput() *Ref[RenderDevice] {
	return m.render.Acquire()
}

// AcquireSink implements audio.SinkProvider against the render slot.
// Delivery paths hold the returned release for the duration of their sink
// calls, which is what Stop's sole-owner wait synchronizes on.
func (m *Manager) AcquireSink() (audio.Sink, func()) {
	ref := m.render.Acquire()
	if ref == nil {
		return nil, nil
	}
	return ref.Value(), ref.Release
}

// closeDevice adapts Device.Close into a Slot close function, logging
// rather than propagating failures: the stop path has no caller left to
// report to.
func closeDevice[D Device](direction string) func(D) {
	return func(d D) {
		if err := d.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "closeDevice",
				"direction": direction,
				"error":     err.Error(),
			}).Warn("Device close reported an error")
		}
	}
}
