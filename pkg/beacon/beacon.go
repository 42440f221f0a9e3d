// Package beacon listens for the IDS gateway's UDP presence beacon and
// caches the most recently seen endpoint for each advertised gateway name.
package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	// Port is the fixed UDP port IDS gateways beacon on.
	Port = 47664

	expectedMfg     = "IDS"
	expectedProduct = "CAN_TO_ETHERNET_GATEWAY"

	// Freshness is how long a received beacon is considered valid.
	Freshness = 5 * time.Second

	readBufferSize = 2048
)

// payload is the JSON shape of a beacon datagram.
type payload struct {
	Mfg     string `json:"mfg"`
	Product string `json:"product"`
	Name    string `json:"name"`
	Port    string `json:"port"`
}

// Endpoint is an advertised gateway's address, resolved from a beacon's
// source IP and its declared port field.
type Endpoint struct {
	Name     string
	IP       net.IP
	Port     string
	LastSeen time.Time
}

// Cache tracks the most recently observed Endpoint per gateway name,
// expiring entries older than Freshness.
type Cache struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
}

func newCache() *Cache {
	return &Cache{endpoints: make(map[string]Endpoint)}
}

// Lookup returns the endpoint for name if it was seen within Freshness.
func (c *Cache) Lookup(name string) (Endpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.endpoints[name]
	if !ok || time.Since(e.LastSeen) > Freshness {
		return Endpoint{}, false
	}
	return e, true
}

func (c *Cache) record(e Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoints[e.Name] = e
}

// Listener receives and parses gateway beacons on Port, populating a Cache.
type Listener struct {
	Cache *Cache

	conn *net.UDPConn
}

// listenConfig enables SO_REUSEADDR via golang.org/x/sys/unix so multiple
// bridge instances on one host can each observe the gateway beacon.
var listenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	},
}

// NewListener binds the beacon port and returns a Listener ready for Run.
func NewListener(ctx context.Context) (*Listener, error) {
	pc, err := listenConfig.ListenPacket(ctx, "udp", fmt.Sprintf(":%d", Port))
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, errNotUDP
	}
	return &Listener{Cache: newCache(), conn: conn}, nil
}

// Run reads datagrams until ctx is cancelled or Close is called.
func (l *Listener) Run(ctx context.Context) {
	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = l.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Debugf("beacon: read error: %v", err)
			return
		}
		l.handleDatagram(buf[:n], addr)
	}
}

func (l *Listener) handleDatagram(data []byte, addr *net.UDPAddr) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Tracef("beacon: discarding malformed datagram from %s: %v", addr, err)
		return
	}
	if p.Mfg != expectedMfg || p.Product != expectedProduct {
		log.Tracef("beacon: ignoring non-IDS beacon from %s (mfg=%q)", addr, p.Mfg)
		return
	}
	l.Cache.record(Endpoint{
		Name:     p.Name,
		IP:       addr.IP,
		Port:     p.Port,
		LastSeen: time.Now(),
	})
}

// Close releases the beacon socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

var errNotUDP = udpTypeError{}

type udpTypeError struct{}

func (udpTypeError) Error() string { return "beacon: packet connection is not UDP" }
