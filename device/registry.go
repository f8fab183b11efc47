package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// CaptureFactory constructs a capture device from the backend-specific
// part of a selector.
type CaptureFactory func(selector string) (CaptureDevice, error)

// RenderFactory constructs a render device from the backend-specific part
// of a selector.
type RenderFactory func(selector string) (RenderDevice, error)

// Registry resolves opaque device selectors to concrete device instances.
//
// Backends register themselves under a name; a selector is either that
// name alone or "name:rest", where rest is passed through to the factory
// (a card index, a sink name, whatever the backend understands). The
// registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	capture map[string]CaptureFactory
	render  map[string]RenderFactory
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		capture: make(map[string]CaptureFactory),
		render:  make(map[string]RenderFactory),
	}
}

// RegisterCapture registers a capture backend under name, replacing any
// previous registration.
func (r *Registry) RegisterCapture(name string, f CaptureFactory) error {
	if f == nil {
		return ErrNilFactory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = f

	logrus.WithFields(logrus.Fields{
		"function": "Registry.RegisterCapture",
		"backend":  name,
	}).Debug("Capture backend registered")
	return nil
}

// RegisterRender registers a render backend under name, replacing any
// previous registration.
func (r *Registry) RegisterRender(name string, f RenderFactory) error {
	if f == nil {
		return ErrNilFactory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.render[name] = f

	logrus.WithFields(logrus.Fields{
		"function": "Registry.RegisterRender",
		"backend":  name,
	}).Debug("Render backend registered")
	return nil
}

// NewCapture resolves selector to a capture device instance.
func (r *Registry) NewCapture(selector string) (CaptureDevice, error) {
	name, rest := splitSelector(selector)

	r.mu.RLock()
	f, ok := r.capture[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture %q", ErrUnknownBackend, name)
	}
	return f(rest)
}

// NewRender resolves selector to a render device instance.
func (r *Registry) NewRender(selector string) (RenderDevice, error) {
	name, rest := splitSelector(selector)

	r.mu.RLock()
	f, ok := r.render[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: render %q", ErrUnknownBackend, name)
	}
	return f(rest)
}

// splitSelector separates "name:rest" into its backend name and the
// backend-specific remainder.
func splitSelector(selector string) (name, rest string) {
	name, rest, _ = strings.Cut(selector, ":")
	return name, rest
}
