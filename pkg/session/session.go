// Package session implements the authenticated seed/key handshake that
// gates commands to an IDS-CAN device: one Manager per (local source,
// target) pair, sharing the bridge's outbound send path.
package session

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/idscan-io/idscan-driver/pkg/cipher"
	log "github.com/sirupsen/logrus"
)

// State is a position in the handshake state machine.
type State int

const (
	Closed State = iota
	SeedRequested
	KeyTransmitted
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case SeedRequested:
		return "seed_requested"
	case KeyTransmitted:
		return "key_transmitted"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// msg_data values for the handshake's control messages.
const (
	mdRequestSeed = 0x42
	mdTransmitKey = 0x43
	mdHeartbeat   = 0x44
	mdEnd         = 0x45
)

const defaultSessionID uint16 = 4

// Defaults per the protocol's timeout table.
const (
	DefaultIdleTimeout      = 5 * time.Second
	DefaultHandshakeTimeout = 3 * time.Second
	idleCheckInterval       = 1 * time.Second
	heartbeatDivisor        = 3
)

// Sender is the outbound path a Manager needs from the transport. It is
// satisfied by the bridge's frame-send handle; Manager never holds a
// back-pointer to anything more than this.
type Sender interface {
	Send(frame idscan.CanFrame) error
}

// Manager drives one target device's handshake and idle lifecycle.
type Manager struct {
	sender Sender
	src    idscan.Addr
	target idscan.Addr

	idleTimeout      time.Duration
	handshakeTimeout time.Duration

	mu            sync.Mutex
	state         State
	sessionID     uint16
	seed          uint32
	lastActivity  time.Time
	handshakeBusy bool

	pending chan idscan.IdsMessage

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager constructs a Manager in the Closed state and starts its idle
// monitor. Callers must call Close when the target is no longer in use.
func NewManager(sender Sender, src, target idscan.Addr) *Manager {
	m := &Manager{
		sender:           sender,
		src:              src,
		target:           target,
		idleTimeout:      DefaultIdleTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		sessionID:        defaultSessionID,
		pending:          make(chan idscan.IdsMessage, 1),
		stopCh:           make(chan struct{}),
	}
	go m.idleMonitor()
	go m.heartbeatLoop()
	return m
}

// SetTimeouts overrides the idle and handshake timeouts; intended for tests.
func (m *Manager) SetTimeouts(idle, handshake time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTimeout = idle
	m.handshakeTimeout = handshake
}

// State returns the current handshake state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOpen reports whether the session is currently authenticated.
func (m *Manager) IsOpen() bool {
	return m.State() == Open
}

// Open drives the handshake to completion if not already Open. It is safe
// to call repeatedly; an already-open session is a no-op.
func (m *Manager) Open(ctx context.Context) error {
	if m.IsOpen() {
		return nil
	}

	m.mu.Lock()
	if m.handshakeBusy {
		m.mu.Unlock()
		return idscan.ErrSessionBusy
	}
	m.handshakeBusy = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.handshakeBusy = false
		m.mu.Unlock()
	}()

	sid := m.sessionIDBytes()
	if err := m.request(mdRequestSeed, sid, SeedRequested); err != nil {
		return idscan.ErrSessionOpenFailed
	}

	resp, err := m.wait(ctx)
	if err != nil {
		m.toClosed()
		return err
	}
	if len(resp.Payload) < 6 {
		m.toClosed()
		return idscan.ErrSessionOpenFailed
	}
	seed := binary.BigEndian.Uint32(resp.Payload[2:6])

	key := cipher.Encrypt(seed)
	keyPayload := append(sid, byte(key>>24), byte(key>>16), byte(key>>8), byte(key))
	if err := m.request(mdTransmitKey, keyPayload, KeyTransmitted); err != nil {
		return idscan.ErrSessionOpenFailed
	}

	resp, err = m.wait(ctx)
	if err != nil {
		m.toClosed()
		return err
	}
	if len(resp.Payload) >= 3 {
		code := idscan.IdsErrorCode(resp.Payload[2])
		log.Warnf("session: key rejected by target %d: %s", m.target, code)
		m.toClosed()
		return idscan.ErrSessionOpenFailed
	}

	m.mu.Lock()
	m.state = Open
	m.seed = seed
	m.lastActivity = time.Now()
	m.mu.Unlock()
	return nil
}

// Heartbeat sends a HEARTBEAT and, on any non-zero error response, closes
// the session per the error policy.
func (m *Manager) Heartbeat() error {
	if !m.IsOpen() {
		return idscan.ErrSessionBusy
	}
	sid := m.sessionIDBytes()
	msg, err := idscan.NewIdsMessage(idscan.MsgRequest, m.src, m.target, mdHeartbeat, sid)
	if err != nil {
		return err
	}
	frame, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := m.sender.Send(frame); err != nil {
		return err
	}
	m.touch()
	return nil
}

// RefreshActivity refreshes last_activity for an Open session. Callers use
// it to report any successful send to the target, or any status received
// from it, per the protocol's activity-tracking rule; it is a no-op on a
// session that is not Open.
func (m *Manager) RefreshActivity() {
	if !m.IsOpen() {
		return
	}
	m.touch()
}

// HandleResponse feeds a RESPONSE addressed to this local source and
// originating from this target into the state machine. Seed and key
// responses are queued for the handshake step waiting in Open without
// checking the current state; one that arrives while another is still
// queued is dropped. Other msg_data values are ignored.
func (m *Manager) HandleResponse(msg idscan.IdsMessage) {
	if msg.Type != idscan.MsgResponse || msg.Src != m.target {
		return
	}

	switch msg.MsgData {
	case mdRequestSeed, mdTransmitKey:
		select {
		case m.pending <- msg:
		default:
			log.Debugf("session: dropped unexpected response for target %d msg_data=0x%02x", m.target, msg.MsgData)
		}
	case mdHeartbeat:
		if len(msg.Payload) >= 3 && msg.Payload[2] != 0 {
			log.Warnf("session: heartbeat rejected by target %d, code=0x%02x", m.target, msg.Payload[2])
			m.toClosed()
			return
		}
		m.touch()
	default:
		log.Debugf("session: response for target %d ignored in state %s", m.target, m.State())
	}
}

// Close issues a best-effort END request and transitions to Closed without
// waiting for a response.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })

	if m.IsOpen() {
		sid := m.sessionIDBytes()
		if msg, err := idscan.NewIdsMessage(idscan.MsgRequest, m.src, m.target, mdEnd, sid); err == nil {
			if frame, err := msg.Encode(); err == nil {
				_ = m.sender.Send(frame)
			}
		}
	}
	m.toClosed()
	return nil
}

func (m *Manager) request(msgData uint8, payload []byte, next State) error {
	msg, err := idscan.NewIdsMessage(idscan.MsgRequest, m.src, m.target, msgData, payload)
	if err != nil {
		return err
	}
	frame, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := m.sender.Send(frame); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	return nil
}

func (m *Manager) wait(ctx context.Context) (idscan.IdsMessage, error) {
	select {
	case msg := <-m.pending:
		return msg, nil
	case <-time.After(m.handshakeTimeout):
		return idscan.IdsMessage{}, idscan.ErrSessionOpenFailed
	case <-ctx.Done():
		return idscan.IdsMessage{}, ctx.Err()
	}
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

func (m *Manager) toClosed() {
	m.mu.Lock()
	m.state = Closed
	m.seed = 0
	m.mu.Unlock()
}

func (m *Manager) sessionIDBytes() []byte {
	m.mu.Lock()
	sid := m.sessionID
	m.mu.Unlock()
	return []byte{byte(sid >> 8), byte(sid)}
}

// heartbeatLoop sends a HEARTBEAT at a sub-idle interval while the session
// is Open, per the protocol's Open -> HEARTBEAT keep-alive loop. It ticks
// faster than idleTimeout so an active session never idles closed between
// beats.
func (m *Manager) heartbeatLoop() {
	for {
		m.mu.Lock()
		tick := m.idleTimeout / heartbeatDivisor
		m.mu.Unlock()
		if tick > idleCheckInterval {
			tick = idleCheckInterval
		}
		if tick <= 0 {
			tick = idleCheckInterval
		}

		select {
		case <-m.stopCh:
			return
		case <-time.After(tick):
			if m.IsOpen() {
				if err := m.Heartbeat(); err != nil {
					log.Debugf("session: heartbeat to target %d failed: %v", m.target, err)
				}
			}
		}
	}
}

// idleMonitor polls for idle expiry at a fraction of the configured idle
// timeout, so SetTimeouts (used by tests with sub-second timeouts) gets
// responsive expiry instead of waiting on a fixed 1 s tick.
func (m *Manager) idleMonitor() {
	for {
		m.mu.Lock()
		tick := m.idleTimeout / 5
		m.mu.Unlock()
		if tick > idleCheckInterval {
			tick = idleCheckInterval
		}
		if tick <= 0 {
			tick = idleCheckInterval
		}

		select {
		case <-m.stopCh:
			return
		case <-time.After(tick):
			m.mu.Lock()
			if m.state == Open && time.Since(m.lastActivity) > m.idleTimeout {
				m.state = Closed
				m.seed = 0
				log.Debugf("session: target %d expired after idle timeout", m.target)
			}
			m.mu.Unlock()
		}
	}
}
