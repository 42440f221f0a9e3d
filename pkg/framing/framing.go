// Package framing combines the COBS byte-stuffing codec with a CRC-8
// integrity check to produce the self-delimiting wire format the TCP
// transport streams over a reconnecting socket.
//
// This mirrors the layering the teacher project (gocanopen) uses for its
// internal/fifo + internal/crc pair feeding the SDO block-transfer CRC,
// generalized here to a full-frame CRC instead of a block-transfer one.
package framing

import (
	"github.com/idscan-io/idscan-driver/internal/cobs"
	"github.com/idscan-io/idscan-driver/internal/crc"
)

// Encode appends a CRC-8 byte to payload and COBS byte-stuffs the result,
// framed with leading and trailing 0x00 delimiters.
func Encode(payload []byte) []byte {
	stream := make([]byte, len(payload)+1)
	copy(stream, payload)
	stream[len(payload)] = crc.Of(payload)
	return cobs.Encode(stream)
}

// Decoder is a streaming frame extractor: feed it arbitrary chunks of
// bytes read off the wire, get back zero or more verified payloads
// (CRC byte stripped). Frames that fail CRC verification are dropped;
// no error is returned to the caller, matching the "locally
// dropped, recoverable" error policy of §7.
type Decoder struct {
	inner cobs.Decoder
}

// Decode feeds data and returns the payloads of every complete,
// CRC-valid frame found.
func (d *Decoder) Decode(data []byte) [][]byte {
	bodies := d.inner.Decode(data)
	var out [][]byte
	for _, body := range bodies {
		if len(body) == 0 {
			// An empty inner frame (two adjacent delimiters, e.g. one
			// frame's trailing delimiter followed by the next frame's
			// leading one) has no CRC byte to check; skip it silently
			// per §4.1.
			continue
		}
		payload := body[:len(body)-1]
		want := body[len(body)-1]
		if crc.Of(payload) != want {
			continue
		}
		out = append(out, payload)
	}
	return out
}

// Reset drops any buffered, not-yet-delimited bytes.
func (d *Decoder) Reset() { d.inner.Reset() }

// BufferSize reports the number of bytes currently buffered awaiting a
// closing delimiter.
func (d *Decoder) BufferSize() int { return d.inner.BufferSize() }
