package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/idscan-io/idscan-driver/pkg/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingHandler struct {
	frames chan idscan.CanFrame
}

func (h *capturingHandler) HandleFrame(f idscan.CanFrame) {
	h.frames <- f
}

func TestTransportReceivesFramedBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverConnCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			serverConnCh <- conn
		}
	}()

	tr := New(ln.Addr().String())
	handler := &capturingHandler{frames: make(chan idscan.CanFrame, 1)}
	tr.SetHandler(handler)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	serverConn := <-serverConnCh
	defer serverConn.Close()

	msg, err := idscan.NewIdsMessage(idscan.MsgDeviceStatus, 92, idscan.Broadcast, 0, []byte{0x01})
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	_, err = serverConn.Write(framing.Encode(frame.Marshal()))
	require.NoError(t, err)

	select {
	case got := <-handler.frames:
		assert.Equal(t, frame.Id(), got.Id())
		assert.Equal(t, frame.Data(), got.Data())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded frame")
	}
}

func TestSendFailsWhenDisconnected(t *testing.T) {
	tr := New("127.0.0.1:1")
	frame, err := idscan.NewCanFrame(idscan.StandardId(1), nil)
	require.NoError(t, err)
	err = tr.Send(frame)
	require.ErrorIs(t, err, idscan.ErrDisconnected)
}

func TestCloseMarksDisconnected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	tr := New(ln.Addr().String())
	require.NoError(t, tr.Connect(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
}
