// Package discovery tracks every device address observed on the bus and
// drives the address-sweep / re-probe schedule that resolves each one to
// a DEVICE_ID.
package discovery

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"time"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/idscan-io/idscan-driver/pkg/command"
	log "github.com/sirupsen/logrus"
)

const (
	sweepStep       = 10 * time.Millisecond
	reprobeDelay    = 3 * time.Second
	minReprobeGap   = 5 * time.Second
	sweepStart      = 1
	sweepEnd        = 254
)

// Sender is the outbound path discovery needs from the bridge; satisfied
// by the same send-handle every other subscriber shares.
type Sender interface {
	Send(frame idscan.CanFrame) error
}

// DiscoveredDevice is a resolved entry published to the host once per
// logical existence.
type DiscoveredDevice struct {
	BridgeID       string
	Addr           idscan.Addr
	DeviceType     idscan.DeviceType
	DeviceTypeName string
	FunctionName   uint16
	DeviceName     string
	Instance       uint8
	Capabilities   *byte
	LastSeen       time.Time
}

// Sink receives a DiscoveredDevice the first time its identity resolves.
type Sink interface {
	Publish(DiscoveredDevice)
}

type entry struct {
	addr         idscan.Addr
	identified   bool
	published    bool
	device       DiscoveredDevice
	lastSeen     time.Time
	lastRequest  time.Time
}

// Registry records every source address seen on the bus and the DEVICE_ID
// sweep/re-probe state for each.
type Registry struct {
	bridgeID string
	src      idscan.Addr
	sender   Sender
	sink     Sink

	mu      sync.Mutex
	entries map[idscan.Addr]*entry
}

// NewRegistry constructs an empty Registry. bridgeID identifies this
// controller instance in published records; src is the local controller
// address used to address outbound REQUEST_DEVICE_ID frames.
func NewRegistry(bridgeID string, src idscan.Addr, sender Sender, sink Sink) *Registry {
	return &Registry{
		bridgeID: bridgeID,
		src:      src,
		sender:   sender,
		sink:     sink,
		entries:  make(map[idscan.Addr]*entry),
	}
}

// Observe records that addr was seen in an inbound message. On first
// observation it requests the address's DEVICE_ID.
func (r *Registry) Observe(addr idscan.Addr) {
	if addr.IsBroadcast() {
		return
	}
	r.mu.Lock()
	e, ok := r.entries[addr]
	if !ok {
		e = &entry{addr: addr}
		r.entries[addr] = e
		r.mu.Unlock()
		r.requestDeviceID(addr)
		return
	}
	e.lastSeen = time.Now()
	r.mu.Unlock()
}

// HandleDeviceID decodes a DEVICE_ID payload from src and, if valid,
// records and publishes the resolved device.
func (r *Registry) HandleDeviceID(src idscan.Addr, payload []byte) {
	if len(payload) < 7 {
		return
	}
	deviceType := idscan.DeviceType(payload[3])
	functionName := binary.BigEndian.Uint16(payload[4:6])
	if functionName == 0 {
		log.Debugf("discovery: address %d discarded (function_name=0)", src)
		return
	}
	instance := payload[6] >> 4

	var capabilities *byte
	if len(payload) >= 8 {
		c := payload[7]
		capabilities = &c
	}

	dev := DiscoveredDevice{
		BridgeID:       r.bridgeID,
		Addr:           src,
		DeviceType:     deviceType,
		DeviceTypeName: deviceType.Name(),
		FunctionName:   functionName,
		DeviceName:     "device_" + addrString(src),
		Instance:       instance,
		Capabilities:   capabilities,
		LastSeen:       time.Now(),
	}

	r.mu.Lock()
	e, ok := r.entries[src]
	if !ok {
		e = &entry{addr: src}
		r.entries[src] = e
	}
	e.identified = true
	e.device = dev
	e.lastSeen = dev.LastSeen
	shouldPublish := deviceType.IsKnown() && !e.published
	if shouldPublish {
		e.published = true
	}
	r.mu.Unlock()

	if shouldPublish && r.sink != nil {
		r.sink.Publish(dev)
	}
}

// Lookup returns the currently known device for addr, if any.
func (r *Registry) Lookup(addr idscan.Addr) (DiscoveredDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[addr]
	if !ok || !e.identified {
		return DiscoveredDevice{}, false
	}
	return e.device, true
}

// Sweep probes addresses 1..254 with REQUEST_DEVICE_ID, staggered by
// sweepStep, then repeats re-probes for unresolved addresses on the
// reprobeDelay/minReprobeGap schedule until ctx is cancelled.
func (r *Registry) Sweep(ctx context.Context) {
	for addr := sweepStart; addr <= sweepEnd; addr++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(sweepStep):
			r.requestDeviceID(idscan.Addr(addr))
		}
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(reprobeDelay):
	}

	ticker := time.NewTicker(minReprobeGap)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reprobeUnidentified()
		}
	}
}

func (r *Registry) reprobeUnidentified() {
	now := time.Now()
	var targets []idscan.Addr
	r.mu.Lock()
	for addr, e := range r.entries {
		if !e.identified && now.Sub(e.lastRequest) >= minReprobeGap {
			targets = append(targets, addr)
		}
	}
	r.mu.Unlock()
	for _, addr := range targets {
		r.requestDeviceID(addr)
	}
}

func (r *Registry) requestDeviceID(addr idscan.Addr) {
	msg, err := command.RequestDeviceID(r.src, addr)
	if err != nil {
		log.Debugf("discovery: skipping request to %d: %v", addr, err)
		return
	}
	frame, err := msg.Encode()
	if err != nil {
		return
	}
	if err := r.sender.Send(frame); err != nil {
		log.Debugf("discovery: send to %d failed: %v", addr, err)
		return
	}

	r.mu.Lock()
	e, ok := r.entries[addr]
	if !ok {
		e = &entry{addr: addr}
		r.entries[addr] = e
	}
	e.lastRequest = time.Now()
	r.mu.Unlock()
}

func addrString(a idscan.Addr) string {
	return strconv.Itoa(int(a))
}
