// Package socketcan implements idscan.Transport over a raw Linux
// SocketCAN interface, wrapping github.com/brutella/can the same way the
// teacher canopen driver does.
package socketcan

import (
	"context"
	"sync"

	sockcan "github.com/brutella/can"
	idscan "github.com/idscan-io/idscan-driver"
	log "github.com/sirupsen/logrus"
)

// Transport is a Linux SocketCAN idscan.Transport. It accepts every 11-
// and 29-bit frame on the interface; no filter is installed.
type Transport struct {
	ifName string

	mu        sync.Mutex
	bus       *sockcan.Bus
	connected bool
	handler   idscan.FrameHandler
}

// New constructs a SocketCAN transport bound to the named interface (e.g.
// "can0"). Connect opens and binds the underlying raw socket.
func New(ifName string) *Transport {
	return &Transport{ifName: ifName}
}

// SetHandler installs the inbound frame callback. Must be called before
// Connect.
func (t *Transport) SetHandler(handler idscan.FrameHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect opens the interface, configures a blocking read with no
// filters, and starts publishing received frames to the handler.
func (t *Transport) Connect(ctx context.Context) error {
	bus, err := sockcan.NewBusForInterfaceWithName(t.ifName)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.bus = bus
	t.connected = true
	t.mu.Unlock()

	bus.Subscribe(t)
	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			log.Warnf("socketcan: %s publish loop ended: %v", t.ifName, err)
			t.mu.Lock()
			t.connected = false
			t.mu.Unlock()
		}
	}()

	log.Infof("socketcan: connected to %s", t.ifName)
	return nil
}

// Handle implements brutella/can's frame-receive callback. It converts
// the raw frame to a CanFrame and forwards it to the installed handler.
// Decode errors (oversized DLC) are dropped at debug level.
func (t *Transport) Handle(frame sockcan.Frame) {
	if int(frame.Length) > idscan.MaxPayloadLen {
		log.Debugf("socketcan: dropping malformed frame on %s: DLC %d exceeds %d", t.ifName, frame.Length, idscan.MaxPayloadLen)
		return
	}
	id := idscan.CanIdFromRaw(frame.ID)
	f, err := idscan.NewCanFrame(id, frame.Data[:frame.Length])
	if err != nil {
		log.Debugf("socketcan: dropping malformed frame on %s: %v", t.ifName, err)
		return
	}

	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler.HandleFrame(f)
	}
}

// Send transmits a CanFrame, converting it to the raw SocketCAN wire
// format; the Id's extended-flag bit maps directly onto brutella/can's ID
// field, mirroring the same CAN_EFF_FLAG convention the rest of the stack
// uses internally.
func (t *Transport) Send(frame idscan.CanFrame) error {
	t.mu.Lock()
	bus, connected := t.bus, t.connected
	t.mu.Unlock()
	if !connected || bus == nil {
		return idscan.ErrDisconnected
	}

	var data [8]byte
	copy(data[:], frame.Data())

	out := sockcan.Frame{
		ID:     frame.Id().Raw(),
		Length: uint8(frame.Len()),
		Flags:  0,
		Data:   data,
	}
	if err := bus.Publish(out); err != nil {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return err
	}
	return nil
}

// IsConnected reports whether the publish loop is currently running.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Close disconnects the underlying bus. After Close, IsConnected is false
// and no further handler callbacks occur.
func (t *Transport) Close() error {
	t.mu.Lock()
	bus := t.bus
	t.connected = false
	t.mu.Unlock()
	if bus == nil {
		return nil
	}
	return bus.Disconnect()
}
