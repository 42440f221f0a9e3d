package idscan

// Addr is an 8-bit IDS-CAN device address. The value 0 is reserved for
// broadcast / "no address".
type Addr uint8

// Broadcast is the reserved address used for NETWORK and other broadcast
// message types; it is never a valid unicast target.
const Broadcast Addr = 0

// IsBroadcast reports whether a is the broadcast address.
func (a Addr) IsBroadcast() bool {
	return a == Broadcast
}

// IsUnicast reports whether a is a valid, assignable unicast address
// (1..254). 0 (broadcast) and 255 are never valid unicast addresses.
func (a Addr) IsUnicast() bool {
	return a >= 1 && a <= 254
}
