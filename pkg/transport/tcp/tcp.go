// Package tcp implements idscan.Transport over a TCP+COBS stream: a
// single reconnecting reader goroutine, mutex-serialized writes, and the
// streaming framing.Decoder feeding decoded frames to the handler.
package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/idscan-io/idscan-driver/pkg/framing"
	log "github.com/sirupsen/logrus"
)

const (
	readTimeout      = 1 * time.Second
	reconnectBackoff = 2 * time.Second
	readerJoinWait   = 1 * time.Second
)

// Transport is a TCP+COBS idscan.Transport.
type Transport struct {
	addr string

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	handler   idscan.FrameHandler

	decoder framing.Decoder

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// New constructs a TCP transport targeting addr ("host:port").
func New(addr string) *Transport {
	return &Transport{
		addr:   addr,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// SetHandler installs the inbound frame callback. Must be called before
// Connect.
func (t *Transport) SetHandler(handler idscan.FrameHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect dials the target once and starts the reconnecting reader
// goroutine. A failed initial dial is recoverable: the reader's own
// reconnect loop will keep retrying.
func (t *Transport) Connect(ctx context.Context) error {
	t.dial()
	go t.readLoop(ctx)
	return nil
}

func (t *Transport) dial() error {
	conn, err := net.DialTimeout("tcp", t.addr, reconnectBackoff)
	if err != nil {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetNoDelay(true)
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.decoder.Reset()
	t.mu.Unlock()
	log.Infof("tcp: connected to %s", t.addr)
	return nil
}

func (t *Transport) readLoop(ctx context.Context) {
	defer close(t.doneCh)
	buf := make([]byte, 4096)

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		t.mu.Lock()
		conn, connected := t.conn, t.connected
		t.mu.Unlock()

		if !connected || conn == nil {
			select {
			case <-t.stopCh:
				return
			case <-time.After(reconnectBackoff):
			}
			t.dial()
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Debugf("tcp: read error from %s: %v", t.addr, err)
			t.mu.Lock()
			t.connected = false
			t.mu.Unlock()
			continue
		}

		t.mu.Lock()
		frames := t.decoder.Decode(buf[:n])
		handler := t.handler
		t.mu.Unlock()

		for _, body := range frames {
			f, err := idscan.UnmarshalCanFrame(body)
			if err != nil {
				log.Debugf("tcp: dropping malformed frame: %v", err)
				continue
			}
			if handler != nil {
				handler.HandleFrame(f)
			}
		}
	}
}

// Send serializes and writes frame. Fails with ErrDisconnected if not
// currently connected; a write failure marks the transport disconnected.
func (t *Transport) Send(frame idscan.CanFrame) error {
	t.mu.Lock()
	conn, connected := t.conn, t.connected
	t.mu.Unlock()
	if !connected || conn == nil {
		return idscan.ErrDisconnected
	}

	encoded := framing.Encode(frame.Marshal())
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := conn.Write(encoded); err != nil {
		t.connected = false
		return err
	}
	return nil
}

// IsConnected reports the current connection state.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Close tears the transport down permanently, closing the socket and
// joining the reader with a bounded timeout.
func (t *Transport) Close() error {
	t.stopOnce.Do(func() { close(t.stopCh) })

	t.mu.Lock()
	conn := t.conn
	t.connected = false
	t.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	select {
	case <-t.doneCh:
	case <-time.After(readerJoinWait):
	}
	return nil
}
