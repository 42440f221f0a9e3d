package idscan

import "context"

// FrameHandler receives every CanFrame decoded off a Transport's reader.
// Implementations are invoked on the reader goroutine and must not block.
type FrameHandler interface {
	HandleFrame(frame CanFrame)
}

// FrameHandlerFunc adapts a plain function to FrameHandler.
type FrameHandlerFunc func(frame CanFrame)

func (f FrameHandlerFunc) HandleFrame(frame CanFrame) { f(frame) }

// Transport is the uniform contract shared by the TCP+COBS and SocketCAN
// variants: connect, serialized send, a single inbound handler, and a
// permanent close. Implementations own their own reconnect policy.
type Transport interface {
	// Connect establishes the underlying channel. Transient failures are
	// recoverable; the caller may retry.
	Connect(ctx context.Context) error

	// Send serializes and transmits frame. Fails with ErrDisconnected if
	// the transport is not currently connected.
	Send(frame CanFrame) error

	// SetHandler installs the callback invoked for each inbound frame.
	// Must be called before Connect; it is not safe to change concurrently
	// with a running reader.
	SetHandler(handler FrameHandler)

	// IsConnected reports the current connection state.
	IsConnected() bool

	// Close tears the transport down permanently and joins its reader.
	// After Close returns, IsConnected is false and no further handler
	// callbacks are invoked.
	Close() error
}
