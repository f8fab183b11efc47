package audio

// MessageType identifies the kind of payload carried by a frame.
// It occupies the top 3 bits of the frame's flags byte; the remaining
// 5 bits are reserved for flags (e.g. a whisper target).
type MessageType uint8

const (
	// MessageVoiceCELTAlpha carries CELT alpha-bitstream audio.
	MessageVoiceCELTAlpha MessageType = 0
	// MessagePing is a transport keepalive probe.
	MessagePing MessageType = 1
	// MessageVoiceSpeex carries Speex audio.
	MessageVoiceSpeex MessageType = 2
	// MessageVoiceCELTBeta carries CELT beta-bitstream audio.
	MessageVoiceCELTBeta MessageType = 3
	// MessageVoiceOpus carries Opus audio.
	MessageVoiceOpus MessageType = 4
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case MessageVoiceCELTAlpha:
		return "celt-alpha"
	case MessagePing:
		return "ping"
	case MessageVoiceSpeex:
		return "speex"
	case MessageVoiceCELTBeta:
		return "celt-beta"
	case MessageVoiceOpus:
		return "opus"
	default:
		return "unknown"
	}
}

// MessageTypeOf extracts the message type from a frame's flags byte.
func MessageTypeOf(flags byte) MessageType {
	return MessageType((flags >> 5) & 0x7)
}

// Frame is one encoded audio packet with its header parsed out.
//
// A wire packet is laid out as one flags byte (message type in the top
// 3 bits), a varint sequence number, then the opaque encoded payload.
// Frames are immutable once constructed; ownership transfers to whichever
// buffer currently holds the frame.
type Frame struct {
	// Flags is the packet's first byte, message type and flag bits.
	Flags byte

	// Sequence is the decoded frame sequence number.
	Sequence int64

	// Payload is the opaque encoded audio following the sequence varint.
	// The codec registry interprets it; this package never does.
	Payload []byte
}

// Type returns the message type encoded in the flags byte.
func (f Frame) Type() MessageType {
	return MessageTypeOf(f.Flags)
}

// Packet reassembles the form the render sink consumes: the flags byte
// reattached directly to the payload, with the sequence varint stripped
// (the sink receives the sequence as a separate argument).
func (f Frame) Packet() []byte {
	out := make([]byte, 0, len(f.Payload)+1)
	out = append(out, f.Flags)
	out = append(out, f.Payload...)
	return out
}

// ParseFrame decodes a wire packet into a Frame.
//
// Returns ErrFrameTooShort if the packet cannot hold a flags byte and
// ErrBadSequence if the sequence varint is truncated or malformed.
func ParseFrame(packet []byte) (Frame, error) {
	if len(packet) < 1 {
		return Frame{}, ErrFrameTooShort
	}

	seq, n, err := readVarint(packet[1:])
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Flags:    packet[0],
		Sequence: seq,
		Payload:  packet[1+n:],
	}, nil
}

// AppendFrame encodes flags, sequence and payload into wire form,
// appending to dst. It is the inverse of ParseFrame and exists mainly so
// capture paths and tests can build well-formed packets.
func AppendFrame(dst []byte, flags byte, seq int64, payload []byte) []byte {
	dst = append(dst, flags)
	dst = appendVarint(dst, seq)
	return append(dst, payload...)
}

// readVarint decodes one variable-length integer from data, returning the
// value and the number of bytes consumed. The encoding is the standard
// voice-packet varint: a prefix byte selects between 1–4 byte positive
// forms, full 32/64-bit forms, and two negative forms (a 2-bit inline one
// and a recursive bit-inverted one).
func readVarint(data []byte) (int64, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrBadSequence
	}

	b := data[0]
	switch {
	case b&0x80 == 0x00:
		return int64(b & 0x7F), 1, nil

	case b&0xC0 == 0x80:
		if len(data) < 2 {
			return 0, 0, ErrBadSequence
		}
		return int64(b&0x3F)<<8 | int64(data[1]), 2, nil

	case b&0xF0 == 0xF0:
		switch b & 0xFC {
		case 0xF0:
			if len(data) < 5 {
				return 0, 0, ErrBadSequence
			}
			v := int64(data[1])<<24 | int64(data[2])<<16 | int64(data[3])<<8 | int64(data[4])
			return v, 5, nil
		case 0xF4:
			if len(data) < 9 {
				return 0, 0, ErrBadSequence
			}
			var v uint64
			for _, x := range data[1:9] {
				v = v<<8 | uint64(x)
			}
			return int64(v), 9, nil
		case 0xF8:
			v, n, err := readVarint(data[1:])
			if err != nil {
				return 0, 0, err
			}
			return ^v, n + 1, nil
		default: // 0xFC
			return ^int64(b & 0x03), 1, nil
		}

	case b&0xF0 == 0xE0:
		if len(data) < 4 {
			return 0, 0, ErrBadSequence
		}
		return int64(b&0x0F)<<24 | int64(data[1])<<16 | int64(data[2])<<8 | int64(data[3]), 4, nil

	default: // b&0xE0 == 0xC0
		if len(data) < 3 {
			return 0, 0, ErrBadSequence
		}
		return int64(b&0x1F)<<16 | int64(data[1])<<8 | int64(data[2]), 3, nil
	}
}

// appendVarint encodes v in the shortest varint form, appending to dst.
func appendVarint(dst []byte, v int64) []byte {
	i := uint64(v)

	if i&0x8000000000000000 != 0 && ^i < 0x100000000 {
		// Negative with a small magnitude: invert and flag.
		i = ^i
		if i <= 0x3 {
			return append(dst, 0xFC|byte(i))
		}
		dst = append(dst, 0xF8)
		return appendVarint(dst, int64(i))
	}

	switch {
	case i < 0x80:
		return append(dst, byte(i))
	case i < 0x4000:
		return append(dst, 0x80|byte(i>>8), byte(i))
	case i < 0x200000:
		return append(dst, 0xC0|byte(i>>16), byte(i>>8), byte(i))
	case i < 0x10000000:
		return append(dst, 0xE0|byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
	case i < 0x100000000:
		return append(dst, 0xF0, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
	default:
		return append(dst, 0xF4,
			byte(i>>56), byte(i>>48), byte(i>>40), byte(i>>32),
			byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
	}
}
