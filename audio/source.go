package audio

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DeliveryMode selects how a source moves frames to the render sink.
type DeliveryMode uint8

const (
	// DeliveryJittered buffers frames with simulated loss and delay
	// before pacing them out. Used by the loopback (self-echo) source and
	// shaped like real network jitter handling.
	DeliveryJittered DeliveryMode = iota

	// DeliveryDirect forwards each frame to the sink as it arrives, with
	// no loss simulation and no delay. Used by the local recorder.
	DeliveryDirect
)

// TalkState describes a source's current speech activity.
type TalkState uint8

const (
	// TalkStatePassive indicates the source is not speaking.
	TalkStatePassive TalkState = iota
	// TalkStateTalking indicates the source is actively speaking.
	TalkStateTalking
	// TalkStateWhispering indicates directed speech to a whisper target.
	TalkStateWhispering
	// TalkStateShouting indicates speech to a linked channel tree.
	TalkStateShouting
)

// Channel is the conversation channel a source currently sits in.
type Channel struct {
	ID   uint32
	Name string
}

// SourceConfig carries everything needed to construct a Source.
type SourceConfig struct {
	// Name is the display name; defaults depend on the constructor.
	Name string
	// Session is the server-assigned session identifier.
	Session uint32
	// LocalID is the client-local participant identifier.
	LocalID uint32

	// LossProbability is the chance in [0, 1] that an added frame is
	// discarded before scheduling. Only meaningful for jittered delivery.
	LossProbability float64
	// MaxDelay bounds the uniform random scheduling delay, in
	// milliseconds. Only meaningful for jittered delivery.
	MaxDelay float64

	// Sinks supplies the current render sink on each delivery. Required.
	Sinks SinkProvider

	// Clock overrides the time source for deterministic testing.
	Clock TimeProvider
	// Rand overrides the random source for deterministic testing.
	Rand Uniform
}

// Source is one audio participant feeding frames toward the render mixer.
//
// The two variants share this one concrete type: a loopback source runs
// jittered delivery through its JitterBuffer, a recording source runs
// direct pass-through. Identity is fixed at construction; the activity
// state bundle is owned by session logic and read by the UI, and is not
// accessed by the delivery path. Only the embedded buffer's pending
// collection and stall timer see multi-goroutine access.
type Source struct {
	name    string
	session uint32
	localID uint32
	mode    DeliveryMode

	// Activity state, maintained by session logic.
	Muted        bool
	Deafened     bool
	Suppressed   bool
	LocalMuted   bool
	LocalIgnored bool
	SelfDeafened bool
	Talk         TalkState
	Channel      *Channel // nil while in no channel

	lossProbability float64
	maxDelay        float64
	rng             Uniform
	sinks           SinkProvider
	buffer          *JitterBuffer

	closeOnce sync.Once
}

// NewLoopbackSource creates the synthetic self-echo participant. Frames it
// accepts pass through loss and delay simulation before reaching the sink.
func NewLoopbackSource(cfg SourceConfig) (*Source, error) {
	if cfg.Name == "" {
		cfg.Name = "Loopy"
	}
	return newSource(cfg, DeliveryJittered)
}

// NewRecordingSource creates the local recorder participant. Frames it
// accepts bypass the jitter machinery entirely.
func NewRecordingSource(cfg SourceConfig) (*Source, error) {
	if cfg.Name == "" {
		cfg.Name = "Recorder"
	}
	return newSource(cfg, DeliveryDirect)
}

func newSource(cfg SourceConfig, mode DeliveryMode) (*Source, error) {
	if cfg.Sinks == nil {
		logrus.WithFields(logrus.Fields{
			"function": "newSource",
			"name":     cfg.Name,
			"error":    ErrNoSinkProvider.Error(),
		}).Error("Source validation failed")
		return nil, ErrNoSinkProvider
	}
	if cfg.LossProbability < 0 || cfg.LossProbability > 1 {
		return nil, ErrInvalidLossProbability
	}
	if cfg.MaxDelay < 0 {
		return nil, ErrInvalidMaxDelay
	}

	s := &Source{
		name:            cfg.Name,
		session:         cfg.Session,
		localID:         cfg.LocalID,
		mode:            mode,
		Talk:            TalkStatePassive,
		lossProbability: cfg.LossProbability,
		maxDelay:        cfg.MaxDelay,
		rng:             getUniform(cfg.Rand),
		sinks:           cfg.Sinks,
		buffer:          NewJitterBuffer(cfg.Clock),
	}

	logrus.WithFields(logrus.Fields{
		"function":         "newSource",
		"name":             s.name,
		"session":          s.session,
		"local_id":         s.localID,
		"mode":             mode,
		"loss_probability": s.lossProbability,
		"max_delay_ms":     s.maxDelay,
	}).Info("Audio source created")

	return s, nil
}

// Name returns the display name.
func (s *Source) Name() string { return s.name }

// Session returns the server-assigned session identifier.
func (s *Source) Session() uint32 { return s.session }

// LocalID returns the client-local participant identifier.
func (s *Source) LocalID() uint32 { return s.localID }

// Mode returns the source's delivery mode.
func (s *Source) Mode() DeliveryMode { return s.mode }

// Buffer returns the source's jitter buffer.
func (s *Source) Buffer() *JitterBuffer { return s.buffer }

// AddFrame accepts one encoded wire packet from the capture path.
//
// In jittered mode the frame may be discarded by simulated loss, and
// otherwise lands in the pending collection with a drawn delay; if the
// consumer has stalled the frame is scheduled immediately and an empty
// priming frame goes straight to the sink so the mixer's buffer is warm
// before the real data arrives. In direct mode the frame is forwarded to
// the sink at once. All degraded conditions (loss, absent sink, short
// packet) are silent no-ops; AddFrame never blocks on I/O.
func (s *Source) AddFrame(packet []byte) {
	if len(packet) == 0 {
		return
	}

	if s.mode == DeliveryDirect {
		s.addFrameDirect(packet)
		return
	}

	if s.rng.Float64() < s.lossProbability {
		logrus.WithFields(logrus.Fields{
			"function": "Source.AddFrame",
			"name":     s.name,
		}).Debug("Drop")
		return
	}

	s.buffer.Schedule(packet, func() float64 {
		return s.rng.Float64() * s.maxDelay
	})

	// Re-check outside the buffer's critical section; time may have
	// advanced since the scheduling decision.
	if s.buffer.Stalled() {
		s.primeSink(packet)
	}
}

// primeSink pushes an empty frame with sequence 0 to the sink so its
// per-source buffer exists before real data arrives after silence.
func (s *Source) primeSink(packet []byte) {
	sink, release := s.sinks.AcquireSink()
	if sink == nil {
		return
	}
	defer release()

	sink.AddFrameToBuffer(s, nil, 0, MessageTypeOf(packet[0]))

	logrus.WithFields(logrus.Fields{
		"function": "Source.primeSink",
		"name":     s.name,
		"msg_type": MessageTypeOf(packet[0]).String(),
	}).Debug("Sink primed after stall")
}

// addFrameDirect forwards one packet straight to the current sink,
// dropping it silently when no sink is active.
func (s *Source) addFrameDirect(packet []byte) {
	sink, release := s.sinks.AcquireSink()
	if sink == nil {
		return
	}
	defer release()

	frame, err := ParseFrame(packet)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Source.addFrameDirect",
			"name":     s.name,
			"error":    err.Error(),
		}).Warn("Discarding malformed frame")
		return
	}

	sink.AddFrameToBuffer(s, frame.Packet(), frame.Sequence, frame.Type())
}

// FetchFrames drains every pending frame whose simulated arrival time has
// elapsed and delivers each to the current render sink in arrival order.
//
// The playback mixer invokes this on its periodic tick. When no sink is
// active the call returns immediately and pending entries survive for a
// later pass; when the buffer is empty nothing happens. The sink reference
// is held for the duration of the drain so concurrent device teardown
// waits for delivery to finish.
func (s *Source) FetchFrames() {
	sink, release := s.sinks.AcquireSink()
	if sink == nil {
		return
	}
	defer release()

	s.buffer.Drain(func(packet []byte) {
		frame, err := ParseFrame(packet)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Source.FetchFrames",
				"name":     s.name,
				"error":    err.Error(),
			}).Warn("Discarding malformed frame")
			return
		}
		sink.AddFrameToBuffer(s, frame.Packet(), frame.Sequence, frame.Type())
	})
}

// Close deactivates the source. A recording source additionally instructs
// the current sink, if any, to discard its buffer state; this runs exactly
// once and holds a sink reference for the duration of the call so it
// cannot race the sink's own teardown.
func (s *Source) Close() {
	s.closeOnce.Do(func() {
		if s.mode != DeliveryDirect {
			return
		}
		sink, release := s.sinks.AcquireSink()
		if sink == nil {
			return
		}
		defer release()
		sink.RemoveBuffer(s)

		logrus.WithFields(logrus.Fields{
			"function": "Source.Close",
			"name":     s.name,
		}).Info("Recording source buffer removed from sink")
	})
}
