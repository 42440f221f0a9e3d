package idscan

import "fmt"

// MessageType is the closed IDS-CAN application message type enumeration.
// Broadcast types are transported on a standard (11-bit) CanId; point to
// point types are transported on an extended (29-bit) CanId.
type MessageType uint8

const (
	MsgNetwork       MessageType = 0
	MsgCircuitId     MessageType = 1
	MsgDeviceId      MessageType = 2
	MsgDeviceStatus  MessageType = 3
	MsgProductStatus MessageType = 6
	MsgTime          MessageType = 7

	MsgRequest     MessageType = 128
	MsgResponse    MessageType = 129
	MsgCommand     MessageType = 130
	MsgExtStatus   MessageType = 131
	MsgTextConsole MessageType = 132

	// msgUnknown is the sentinel an unrecognized numeric type decodes
	// to; the dispatcher drops frames carrying it silently.
	msgUnknown MessageType = 0xFF
)

var broadcastTypes = map[MessageType]bool{
	MsgNetwork:       true,
	MsgCircuitId:     true,
	MsgDeviceId:      true,
	MsgDeviceStatus:  true,
	MsgProductStatus: true,
	MsgTime:          true,
}

var pointToPointTypes = map[MessageType]bool{
	MsgRequest:     true,
	MsgResponse:    true,
	MsgCommand:     true,
	MsgExtStatus:   true,
	MsgTextConsole: true,
}

// IsBroadcast reports whether t is transported on a standard (11-bit) id.
func (t MessageType) IsBroadcast() bool {
	return broadcastTypes[t]
}

// IsPointToPoint reports whether t is transported on an extended (29-bit) id.
func (t MessageType) IsPointToPoint() bool {
	return pointToPointTypes[t]
}

// IsKnown reports whether t is one of the enumerated message types.
func (t MessageType) IsKnown() bool {
	return t.IsBroadcast() || t.IsPointToPoint()
}

func messageTypeFromValue(v uint8) MessageType {
	t := MessageType(v)
	if t.IsKnown() {
		return t
	}
	return msgUnknown
}

func (t MessageType) String() string {
	switch t {
	case MsgNetwork:
		return "NETWORK"
	case MsgCircuitId:
		return "CIRCUIT_ID"
	case MsgDeviceId:
		return "DEVICE_ID"
	case MsgDeviceStatus:
		return "DEVICE_STATUS"
	case MsgProductStatus:
		return "PRODUCT_STATUS"
	case MsgTime:
		return "TIME"
	case MsgRequest:
		return "REQUEST"
	case MsgResponse:
		return "RESPONSE"
	case MsgCommand:
		return "COMMAND"
	case MsgExtStatus:
		return "EXT_STATUS"
	case MsgTextConsole:
		return "TEXT_CONSOLE"
	default:
		return "UNKNOWN"
	}
}

// IdsMessage is the decoded application-layer message carried by a
// CanFrame: a message type, source/target addresses, a one-byte message
// sub-code, and a payload of up to 8 bytes.
//
// Invariant: Type.IsBroadcast() <=> Target == Broadcast. For broadcast
// messages MsgData is always zero.
type IdsMessage struct {
	Type    MessageType
	Src     Addr
	Tgt     Addr
	MsgData uint8
	Payload []byte
}

// NewIdsMessage validates and constructs an IdsMessage, enforcing the
// broadcast/target invariant and the 8-byte payload bound.
func NewIdsMessage(t MessageType, src, tgt Addr, msgData uint8, payload []byte) (IdsMessage, error) {
	if len(payload) > MaxPayloadLen {
		return IdsMessage{}, fmt.Errorf("%w: got %d bytes", ErrFrameTooLong, len(payload))
	}
	if !t.IsKnown() {
		return IdsMessage{}, fmt.Errorf("%w: type %d", ErrUnknownMessageType, uint8(t))
	}
	isBroadcastTgt := tgt == Broadcast
	if t.IsBroadcast() != isBroadcastTgt {
		return IdsMessage{}, ErrBroadcastMismatch
	}
	if t.IsBroadcast() {
		msgData = 0
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return IdsMessage{Type: t, Src: src, Tgt: tgt, MsgData: msgData, Payload: buf}, nil
}

// Encode packs the message into a CanFrame per §4.2:
//
// Broadcast (standard 11-bit id): id = (type << 8) | src.
//
// Point-to-point (extended 29-bit id):
//
//	id = ((type & 0x1C) << 24) | (src << 18) | ((type & 0x03) << 16) | (tgt << 8) | msgData
//
// which places the type's upper bits at 28..26, the source at 25..18, the
// type's lower bits at 17..16, the target at 15..8 and msgData at 7..0.
func (m IdsMessage) Encode() (CanFrame, error) {
	if m.Type.IsBroadcast() {
		raw := (uint32(m.Type) << 8) | uint32(m.Src)
		return NewCanFrame(StandardId(raw), m.Payload)
	}
	raw := ((uint32(m.Type) & 0x1C) << 24) |
		(uint32(m.Src) << 18) |
		((uint32(m.Type) & 0x03) << 16) |
		(uint32(m.Tgt) << 8) |
		uint32(m.MsgData)
	return NewCanFrame(ExtendedId(raw), m.Payload)
}

// DecodeIdsMessage is the inverse of Encode. Frames whose type does not
// resolve to a known MessageType decode with Type == msgUnknown; callers
// (the dispatcher) must drop these silently per §3.
func DecodeIdsMessage(f CanFrame) IdsMessage {
	id := f.Id()
	if !id.Extended {
		raw := id.Value
		t := messageTypeFromValue(uint8(raw >> 8))
		src := Addr(raw & 0xFF)
		return IdsMessage{Type: t, Src: src, Tgt: Broadcast, MsgData: 0, Payload: f.Data()}
	}
	raw := id.Value
	typeUpper := uint8((raw >> 24) & 0x1C)
	typeLower := uint8((raw >> 16) & 0x03)
	t := messageTypeFromValue(0x80 | typeUpper | typeLower)
	src := Addr((raw >> 18) & 0xFF)
	tgt := Addr((raw >> 8) & 0xFF)
	msgData := uint8(raw & 0xFF)
	return IdsMessage{Type: t, Src: src, Tgt: tgt, MsgData: msgData, Payload: f.Data()}
}
