package codec

import (
	"fmt"
	"sync"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// BitstreamOpus identifies the Opus codec in negotiation. Opus has no
// incompatible bitstream revisions, so a single fixed tag suffices.
const BitstreamOpus int32 = 0x4F505553 // "OPUS"

// OpusCodec wraps the pure Go Opus decoder behind the Codec interface.
//
// The decoder is stateful across frames, so concurrent Decode calls are
// serialized; one codec instance serves one stream well and the registry
// hands the same instance to everyone.
type OpusCodec struct {
	mu  sync.Mutex
	dec opus.Decoder
}

// NewOpusCodec creates the Opus codec.
func NewOpusCodec() *OpusCodec {
	return &OpusCodec{dec: opus.NewDecoder()}
}

// BitstreamVersion returns the Opus negotiation tag.
func (c *OpusCodec) BitstreamVersion() int32 {
	return BitstreamOpus
}

// Name returns "opus".
func (c *OpusCodec) Name() string {
	return "opus"
}

// Decode decodes one Opus frame into out.
func (c *OpusCodec) Decode(in, out []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, stereo, err := c.dec.Decode(in, out)
	if err != nil {
		return false, fmt.Errorf("opus decode failed: %w", err)
	}
	return stereo, nil
}

// Close releases decoder resources. The pure Go decoder holds none.
func (c *OpusCodec) Close() error {
	return nil
}

// Report logs the codec's availability, in the spirit of backends
// announcing themselves at startup.
func (c *OpusCodec) Report() {
	logrus.WithFields(logrus.Fields{
		"function":          "OpusCodec.Report",
		"codec":             c.Name(),
		"bitstream_version": fmt.Sprintf("0x%08X", uint32(c.BitstreamVersion())),
	}).Info("Opus codec available")
}
