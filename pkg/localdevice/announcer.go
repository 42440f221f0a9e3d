// Package localdevice implements the controller's own periodic NETWORK
// presence broadcast.
package localdevice

import (
	"sync"
	"time"

	idscan "github.com/idscan-io/idscan-driver"
	log "github.com/sirupsen/logrus"
)

const (
	broadcastPeriod   = 1000 * time.Millisecond
	protocolVersion   = 8
	networkStatusByte = 0
)

// Sender is the outbound path the announcer needs from the bridge.
type Sender interface {
	Send(frame idscan.CanFrame) error
}

// Announcer periodically broadcasts this controller's NETWORK presence.
// Suspend and Resume pause and re-enable the broadcasts; the Announcer
// does not watch the transport's connection state itself, and a
// broadcast attempted while the transport is disconnected fails in Send
// and is logged at debug level.
type Announcer struct {
	sender Sender
	src    idscan.Addr
	mac    [6]byte

	mu        sync.Mutex
	suspended bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	doneCh    chan struct{}
}

// NewAnnouncer constructs an Announcer for the given source address and
// MAC, starting in the resumed state.
func NewAnnouncer(sender Sender, src idscan.Addr, mac [6]byte) *Announcer {
	return &Announcer{
		sender: sender,
		src:    src,
		mac:    mac,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run drives the broadcast loop until Stop is called. Intended to run on
// its own goroutine for the life of the bridge.
func (a *Announcer) Run() {
	defer close(a.doneCh)
	ticker := time.NewTicker(broadcastPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.broadcastOnce()
		}
	}
}

// Suspend stops outbound broadcasts without tearing down the goroutine.
func (a *Announcer) Suspend() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspended = true
}

// Resume re-enables broadcasts after Suspend.
func (a *Announcer) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspended = false
}

// Stop permanently halts the broadcast loop and waits for Run to return.
func (a *Announcer) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	<-a.doneCh
}

func (a *Announcer) broadcastOnce() {
	a.mu.Lock()
	suspended := a.suspended
	a.mu.Unlock()
	if suspended {
		return
	}

	payload := []byte{
		networkStatusByte, protocolVersion,
		a.mac[0], a.mac[1], a.mac[2], a.mac[3], a.mac[4], a.mac[5],
	}
	msg, err := idscan.NewIdsMessage(idscan.MsgNetwork, a.src, idscan.Broadcast, 0, payload)
	if err != nil {
		log.Warnf("localdevice: failed to build NETWORK broadcast: %v", err)
		return
	}
	frame, err := msg.Encode()
	if err != nil {
		log.Warnf("localdevice: failed to encode NETWORK broadcast: %v", err)
		return
	}
	if err := a.sender.Send(frame); err != nil {
		log.Debugf("localdevice: NETWORK broadcast send failed: %v", err)
	}
}
