package idscan

import "errors"

// Sentinel errors shared across transport, session and frame decoding.
// This mirrors the teacher's flat CANopenError taxonomy (bus.go) rather
// than a layered error-framework: a small set of sentinels, wrapped with
// fmt.Errorf("%w", ...) for context at the call site.
var (
	// ErrDisconnected is returned by Send when the transport is not
	// currently connected to its underlying channel.
	ErrDisconnected = errors.New("idscan: transport disconnected")

	// ErrFrameTooLong is returned when a CanFrame is constructed or
	// decoded with a payload longer than 8 bytes.
	ErrFrameTooLong = errors.New("idscan: frame payload exceeds 8 bytes")

	// ErrFrameInvalid covers CRC failure, malformed COBS framing, or an
	// undecodable wire frame.
	ErrFrameInvalid = errors.New("idscan: invalid frame")

	// ErrUnknownMessageType is returned when an IdsMessage's numeric type
	// does not match any known MessageType.
	ErrUnknownMessageType = errors.New("idscan: unknown message type")

	// ErrBroadcastMismatch is returned when an IdsMessage is constructed
	// with a broadcast/point-to-point type and target that disagree
	// (invariant: type.IsBroadcast() <=> tgt == Broadcast).
	ErrBroadcastMismatch = errors.New("idscan: message type / target broadcast mismatch")

	// ErrSessionOpenFailed surfaces a handshake step timeout or a
	// non-zero RESPONSE during REQUEST_SEED/TRANSMIT_KEY to the caller
	// of an outbound command.
	ErrSessionOpenFailed = errors.New("idscan: session open failed")

	// ErrSessionBusy is returned when a second handshake is attempted
	// while one is already outstanding for the same target, and by a
	// HEARTBEAT attempted on a session that is not open.
	ErrSessionBusy = errors.New("idscan: handshake already in progress")

	// ErrConfigInvalid covers out-of-range or missing configuration
	// fields detected at bridge initialization.
	ErrConfigInvalid = errors.New("idscan: invalid configuration")
)

// IdsErrorCode is a protocol-level RESPONSE error/abort code (§7).
type IdsErrorCode uint8

const (
	IdsErrConditionsNotCorrect IdsErrorCode = 0x09
	IdsErrBusy                 IdsErrorCode = 0x0B
	IdsErrSeedNotRequested     IdsErrorCode = 0x0C
	IdsErrKeyNotCorrect        IdsErrorCode = 0x0D
	IdsErrSessionNotOpen       IdsErrorCode = 0x0E
	IdsErrTimeout              IdsErrorCode = 0x0F
)

var idsErrorNames = map[IdsErrorCode]string{
	IdsErrConditionsNotCorrect: "conditions not correct",
	IdsErrBusy:                 "busy",
	IdsErrSeedNotRequested:     "seed not requested",
	IdsErrKeyNotCorrect:        "key not correct",
	IdsErrSessionNotOpen:       "session not open",
	IdsErrTimeout:              "timeout",
}

func (c IdsErrorCode) Error() string {
	if name, ok := idsErrorNames[c]; ok {
		return name
	}
	return "unknown response error code"
}
