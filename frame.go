package idscan

import (
	"encoding/binary"
	"fmt"
)

// MaxPayloadLen is the maximum number of data bytes a CanFrame may carry,
// per the CAN 2.0 data length code.
const MaxPayloadLen = 8

// CanFrame is an immutable CAN frame: an identifier plus 0..8 data bytes.
// Construct with NewCanFrame; the zero value is not meaningful.
type CanFrame struct {
	id   CanId
	data []byte
}

// NewCanFrame constructs a CanFrame, copying data so the frame is
// independent of the caller's buffer. Fails if len(data) > 8.
func NewCanFrame(id CanId, data []byte) (CanFrame, error) {
	if len(data) > MaxPayloadLen {
		return CanFrame{}, fmt.Errorf("%w: got %d bytes", ErrFrameTooLong, len(data))
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return CanFrame{id: id, data: buf}, nil
}

// Id returns the frame's CAN identifier.
func (f CanFrame) Id() CanId { return f.id }

// Data returns the frame's payload. The returned slice must not be
// mutated by the caller.
func (f CanFrame) Data() []byte { return f.data }

// Len returns the number of payload bytes, always 0..8.
func (f CanFrame) Len() uint8 { return uint8(len(f.data)) }

// Marshal serializes the frame to the transport wire format used over the
// TCP+COBS channel: [Length:1][Id:2 or 4 BE][Data:Length]. The id width is
// 4 bytes when the frame is extended, 2 bytes otherwise, signaled by the
// high bit of the first id byte.
func (f CanFrame) Marshal() []byte {
	raw := f.id.Raw()
	if f.id.Extended {
		buf := make([]byte, 1+4+len(f.data))
		buf[0] = byte(len(f.data))
		binary.BigEndian.PutUint32(buf[1:5], raw)
		copy(buf[5:], f.data)
		return buf
	}
	buf := make([]byte, 1+2+len(f.data))
	buf[0] = byte(len(f.data))
	binary.BigEndian.PutUint16(buf[1:3], uint16(raw))
	copy(buf[3:], f.data)
	return buf
}

// UnmarshalCanFrame decodes the wire format produced by Marshal. The
// first byte is the length, which gates how many data bytes follow; the
// high bit of the first id byte (the second byte) selects the id width.
func UnmarshalCanFrame(buf []byte) (CanFrame, error) {
	if len(buf) < 2 {
		return CanFrame{}, fmt.Errorf("%w: buffer too short (%d bytes)", ErrFrameInvalid, len(buf))
	}
	length := buf[0]
	if length > MaxPayloadLen {
		return CanFrame{}, fmt.Errorf("%w: length %d exceeds %d", ErrFrameInvalid, length, MaxPayloadLen)
	}
	extended := buf[1]&0x80 != 0
	idWidth := 2
	if extended {
		idWidth = 4
	}
	want := 1 + idWidth + int(length)
	if len(buf) < want {
		return CanFrame{}, fmt.Errorf("%w: buffer too short for declared length", ErrFrameInvalid)
	}
	var raw uint32
	if extended {
		raw = binary.BigEndian.Uint32(buf[1:5])
	} else {
		raw = uint32(binary.BigEndian.Uint16(buf[1:3]))
	}
	id := CanIdFromRaw(raw)
	return NewCanFrame(id, buf[1+idWidth:want])
}
