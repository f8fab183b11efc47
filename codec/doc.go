// Package codec maintains the registry of audio codecs available to the
// client.
//
// The delivery core forwards opaque encoded payloads and never decodes
// them itself; this package is where a negotiated bitstream version turns
// into an actual decoder. Opus is always attempted at startup. Legacy
// codecs register separately and a configuration kill switch can refuse
// them entirely, leaving Opus-only operation.
package codec
