// Package router dispatches decoded inbound frames to the registry,
// per-address subscribers, and the session for the frame's originating
// target, per the bridge's routing rules. It never propagates decode or
// routing failures back to the transport's reader.
package router

import (
	"sync"

	idscan "github.com/idscan-io/idscan-driver"
	log "github.com/sirupsen/logrus"
)

// Registry is the subset of discovery.Registry the router depends on.
type Registry interface {
	Observe(addr idscan.Addr)
	HandleDeviceID(src idscan.Addr, payload []byte)
}

// SessionHandler is the subset of session.Manager the router depends on.
type SessionHandler interface {
	HandleResponse(msg idscan.IdsMessage)
	RefreshActivity()
}

// Sessions resolves the SessionHandler responsible for a given target
// address, if one exists.
type Sessions interface {
	Session(target idscan.Addr) (SessionHandler, bool)
}

// Subscriber receives every routed IdsMessage for the address(es) it is
// registered against.
type Subscriber interface {
	HandleMessage(msg idscan.IdsMessage)
}

// Router is the dispatcher: FrameHandler for a Transport, fanning decoded
// frames out to the Registry, Sessions, and per-address Subscribers.
type Router struct {
	src      idscan.Addr
	registry Registry
	sessions Sessions

	mu          sync.Mutex
	subscribers map[idscan.Addr][]Subscriber
}

// New constructs a Router. registry and sessions may be nil in tests that
// only exercise subscriber fan-out.
func New(src idscan.Addr, registry Registry, sessions Sessions) *Router {
	return &Router{
		src:         src,
		registry:    registry,
		sessions:    sessions,
		subscribers: make(map[idscan.Addr][]Subscriber),
	}
}

// Subscribe registers sub to receive every routed message whose source
// address is addr.
func (r *Router) Subscribe(addr idscan.Addr, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[addr] = append(r.subscribers[addr], sub)
}

// HandleFrame implements idscan.FrameHandler. It decodes the frame and
// dispatches per §4.8's routing table:
//   - DEVICE_STATUS, DEVICE_ID, NETWORK and other broadcasts: registry + subscribers.
//   - RESPONSE addressed to us: the originating target's SessionManager.
//   - COMMAND addressed to us: ignored (we are never a device).
//   - TEXT_CONSOLE, PRODUCT_STATUS: ignored by default.
func (r *Router) HandleFrame(frame idscan.CanFrame) {
	msg := idscan.DecodeIdsMessage(frame)
	if !msg.Type.IsKnown() {
		log.Debugf("router: dropping frame with unknown message type, id=%s", frame.Id())
		return
	}

	if msg.Type.IsBroadcast() {
		r.routeBroadcast(msg)
		return
	}

	if msg.Tgt != r.src {
		return
	}

	switch msg.Type {
	case idscan.MsgResponse:
		r.routeResponse(msg)
	case idscan.MsgCommand:
		log.Debugf("router: ignoring COMMAND from %d, we are never a device", msg.Src)
	case idscan.MsgTextConsole, idscan.MsgExtStatus:
		log.Tracef("router: ignoring %s from %d", msg.Type, msg.Src)
	default:
		log.Debugf("router: unhandled point-to-point type %s from %d", msg.Type, msg.Src)
	}
}

func (r *Router) routeBroadcast(msg idscan.IdsMessage) {
	if r.registry != nil {
		r.registry.Observe(msg.Src)
		if msg.Type == idscan.MsgDeviceId {
			r.registry.HandleDeviceID(msg.Src, msg.Payload)
		}
	}
	if msg.Type == idscan.MsgDeviceStatus {
		r.refreshSessionActivity(msg.Src)
	}
	if msg.Type == idscan.MsgProductStatus {
		log.Tracef("router: ignoring PRODUCT_STATUS from %d", msg.Src)
		return
	}
	r.notifySubscribers(msg)
}

func (r *Router) refreshSessionActivity(target idscan.Addr) {
	if r.sessions == nil {
		return
	}
	if session, ok := r.sessions.Session(target); ok {
		session.RefreshActivity()
	}
}

func (r *Router) routeResponse(msg idscan.IdsMessage) {
	if r.sessions == nil {
		return
	}
	session, ok := r.sessions.Session(msg.Src)
	if !ok {
		log.Debugf("router: no session for RESPONSE from %d", msg.Src)
		return
	}
	session.HandleResponse(msg)
}

func (r *Router) notifySubscribers(msg idscan.IdsMessage) {
	r.mu.Lock()
	subs := append([]Subscriber(nil), r.subscribers[msg.Src]...)
	r.mu.Unlock()
	for _, sub := range subs {
		sub.HandleMessage(msg)
	}
}
