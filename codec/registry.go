package codec

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sentinel errors for codec registry operations.
var (
	// ErrLegacyDisabled indicates the legacy-codec kill switch refused a
	// registration.
	ErrLegacyDisabled = errors.New("legacy codecs are disabled")

	// ErrVersionRegistered indicates a codec already exists for the
	// bitstream version.
	ErrVersionRegistered = errors.New("bitstream version already registered")

	// ErrUnknownVersion indicates no codec is registered for the
	// bitstream version.
	ErrUnknownVersion = errors.New("no codec for bitstream version")
)

// Codec is one negotiable audio codec.
type Codec interface {
	// BitstreamVersion identifies the codec's bitstream in negotiation.
	BitstreamVersion() int32

	// Name returns a human-readable codec name.
	Name() string

	// Decode decodes one encoded frame into out, reporting whether the
	// frame was stereo.
	Decode(in, out []byte) (stereo bool, err error)

	// Close releases codec resources.
	Close() error
}

// Config controls registry construction.
type Config struct {
	// DisableLegacy refuses registration of every codec other than Opus.
	// The kill switch for old bitstreams.
	DisableLegacy bool
}

// Registry maps bitstream versions to codecs. Safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	codecs        map[int32]Codec
	disableLegacy bool
}

// NewRegistry builds a registry and attempts to register the built-in
// Opus codec. Opus failing to initialize is reported in the log and
// leaves a usable, empty registry rather than failing construction:
// the client degrades to forwarding without local decode.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		codecs:        make(map[int32]Codec),
		disableLegacy: cfg.DisableLegacy,
	}

	oc := NewOpusCodec()
	if err := r.Register(oc); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewRegistry",
			"error":    err.Error(),
		}).Error("Failed to register Opus, it will not be available for decoding audio")
	} else {
		oc.Report()
	}

	if cfg.DisableLegacy {
		logrus.WithFields(logrus.Fields{
			"function": "NewRegistry",
		}).Info("Legacy codec kill switch active")
	}

	return r
}

// Register adds a codec under its bitstream version. Legacy codecs are
// refused when the kill switch is active.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disableLegacy && c.BitstreamVersion() != BitstreamOpus {
		return ErrLegacyDisabled
	}
	if _, exists := r.codecs[c.BitstreamVersion()]; exists {
		return ErrVersionRegistered
	}
	r.codecs[c.BitstreamVersion()] = c

	logrus.WithFields(logrus.Fields{
		"function":          "Registry.Register",
		"codec":             c.Name(),
		"bitstream_version": c.BitstreamVersion(),
	}).Info("Codec registered")

	return nil
}

// Lookup returns the codec registered for the bitstream version.
func (r *Registry) Lookup(version int32) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codecs[version]
	if !ok {
		return nil, ErrUnknownVersion
	}
	return c, nil
}

// Opus returns the built-in Opus codec, or nil if it failed to register.
func (r *Registry) Opus() Codec {
	c, err := r.Lookup(BitstreamOpus)
	if err != nil {
		return nil
	}
	return c
}

// Versions returns every registered bitstream version.
func (r *Registry) Versions() []int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]int32, 0, len(r.codecs))
	for v := range r.codecs {
		versions = append(versions, v)
	}
	return versions
}

// Close tears down every registered codec and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for v, c := range r.codecs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.codecs, v)
	}
	return errors.Join(errs...)
}
