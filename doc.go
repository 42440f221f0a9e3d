// Package idscan implements the wire-level primitives of the IDS-CAN
// application protocol: addresses, CAN identifiers and frames, message
// types, and the IdsMessage encoding used by devices on a recreational
// vehicle CAN bus.
//
// Transport implementations, the session state machine, command encoders,
// device status decoders, discovery and routing live in the sub-packages
// under pkg/.
package idscan
