// Package bridge ties the transport, router, sessions, discovery, and
// local-device announcer together into the single object a host embeds,
// modeled on the teacher driver's Network facade.
package bridge

import (
	"context"
	"strconv"
	"sync"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/idscan-io/idscan-driver/pkg/command"
	"github.com/idscan-io/idscan-driver/pkg/config"
	"github.com/idscan-io/idscan-driver/pkg/discovery"
	"github.com/idscan-io/idscan-driver/pkg/localdevice"
	"github.com/idscan-io/idscan-driver/pkg/router"
	"github.com/idscan-io/idscan-driver/pkg/session"
	"github.com/idscan-io/idscan-driver/pkg/transport/socketcan"
	"github.com/idscan-io/idscan-driver/pkg/transport/tcp"
	log "github.com/sirupsen/logrus"
)

// Bridge is the top-level object a host constructs: one Transport, one
// Router, a DeviceRegistry, a per-target SessionManager pool, and a
// NETWORK announcer for this controller's own presence.
type Bridge struct {
	cfg       config.BridgeConfig
	bridgeID  string
	transport idscan.Transport
	router    *router.Router
	registry  *discovery.Registry
	announcer *localdevice.Announcer

	mu       sync.Mutex
	sessions map[idscan.Addr]*session.Manager

	sweepCancel context.CancelFunc
}

// senderAdapter exposes Bridge's Send as the small Sender interface each
// subpackage depends on, without handing those packages the Bridge itself.
type senderAdapter struct{ b *Bridge }

func (s senderAdapter) Send(frame idscan.CanFrame) error { return s.b.transport.Send(frame) }

// New validates cfg, constructs the appropriate Transport variant, and
// wires Router, Registry, and Announcer around it. The bridge is not yet
// connected; call Connect to bring it online.
func New(cfg config.BridgeConfig, bridgeID string, mac [6]byte) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Bridge{
		cfg:      cfg,
		bridgeID: bridgeID,
		sessions: make(map[idscan.Addr]*session.Manager),
	}

	switch cfg.ConnectionType {
	case config.ConnectionTCP:
		b.transport = tcp.New(cfg.IPAddress + ":" + strconv.Itoa(cfg.Port))
	case config.ConnectionSocketCAN:
		b.transport = socketcan.New(cfg.CanInterface)
	}

	src := idscan.Addr(cfg.SourceAddress)
	sender := senderAdapter{b}
	b.registry = discovery.NewRegistry(bridgeID, src, sender, nil)
	b.router = router.New(src, b.registry, sessionResolver{b})
	b.announcer = localdevice.NewAnnouncer(sender, src, mac)
	b.transport.SetHandler(b.router)
	return b, nil
}

// SetDiscoverySink installs the host's discovery publish callback.
func (b *Bridge) SetDiscoverySink(sink discovery.Sink) {
	src := idscan.Addr(b.cfg.SourceAddress)
	b.registry = discovery.NewRegistry(b.bridgeID, src, senderAdapter{b}, sink)
	b.router = router.New(src, b.registry, sessionResolver{b})
	b.transport.SetHandler(b.router)
}

// Subscribe registers sub for every routed message whose source address
// is addr.
func (b *Bridge) Subscribe(addr idscan.Addr, sub router.Subscriber) {
	b.router.Subscribe(addr, sub)
}

// Connect brings the bridge online: connects the transport, starts the
// NETWORK announcer and the discovery sweep.
func (b *Bridge) Connect(ctx context.Context) error {
	if err := b.transport.Connect(ctx); err != nil {
		return err
	}
	go b.announcer.Run()

	sweepCtx, cancel := context.WithCancel(ctx)
	b.sweepCancel = cancel
	go b.registry.Sweep(sweepCtx)
	return nil
}

// Close tears the bridge down: stops the announcer, cancels the
// discovery sweep, closes every open session, and closes the transport.
func (b *Bridge) Close() error {
	if b.sweepCancel != nil {
		b.sweepCancel()
	}
	b.announcer.Stop()

	b.mu.Lock()
	sessions := make([]*session.Manager, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}

	return b.transport.Close()
}

// Session returns (creating lazily if needed) the SessionManager for target.
func (b *Bridge) Session(target idscan.Addr) *session.Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[target]
	if !ok {
		s = session.NewManager(senderAdapter{b}, idscan.Addr(b.cfg.SourceAddress), target)
		b.sessions[target] = s
	}
	return s
}

// SendCommand opens (if needed) the session for target and sends the
// already-built COMMAND payload.
func (b *Bridge) SendCommand(ctx context.Context, target idscan.Addr, payload []byte) error {
	s := b.Session(target)
	if err := s.Open(ctx); err != nil {
		return err
	}
	msg, err := idscan.NewIdsMessage(idscan.MsgCommand, idscan.Addr(b.cfg.SourceAddress), target, 0, payload)
	if err != nil {
		return err
	}
	frame, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := b.transport.Send(frame); err != nil {
		return err
	}
	s.RefreshActivity()
	return nil
}

// RequestDeviceStatus sends a REQUEST_DEVICE_STATUS to target.
func (b *Bridge) RequestDeviceStatus(target idscan.Addr) error {
	msg, err := command.RequestDeviceStatus(idscan.Addr(b.cfg.SourceAddress), target)
	if err != nil {
		return err
	}
	frame, err := msg.Encode()
	if err != nil {
		return err
	}
	return b.transport.Send(frame)
}

// sessionResolver adapts Bridge's session map to router.Sessions.
type sessionResolver struct{ b *Bridge }

func (r sessionResolver) Session(target idscan.Addr) (router.SessionHandler, bool) {
	r.b.mu.Lock()
	s, ok := r.b.sessions[target]
	r.b.mu.Unlock()
	if !ok {
		log.Debugf("bridge: no session yet for target %d", target)
		return nil, false
	}
	return s, true
}
