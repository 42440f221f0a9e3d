package router

import (
	"sync"
	"testing"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu        sync.Mutex
	observed  []idscan.Addr
	deviceIDs map[idscan.Addr][]byte
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{deviceIDs: make(map[idscan.Addr][]byte)}
}

func (f *fakeRegistry) Observe(addr idscan.Addr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, addr)
}

func (f *fakeRegistry) HandleDeviceID(src idscan.Addr, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceIDs[src] = payload
}

type fakeSession struct {
	mu       sync.Mutex
	received []idscan.IdsMessage
	touched  int
}

func (s *fakeSession) HandleResponse(msg idscan.IdsMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, msg)
}

func (s *fakeSession) RefreshActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched++
}

type fakeSessions struct {
	sessions map[idscan.Addr]SessionHandler
}

func (f *fakeSessions) Session(target idscan.Addr) (SessionHandler, bool) {
	s, ok := f.sessions[target]
	return s, ok
}

type fakeSubscriber struct {
	mu       sync.Mutex
	received []idscan.IdsMessage
}

func (s *fakeSubscriber) HandleMessage(msg idscan.IdsMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, msg)
}

func TestDeviceStatusRoutesToRegistryAndSubscriber(t *testing.T) {
	reg := newFakeRegistry()
	r := New(1, reg, nil)
	sub := &fakeSubscriber{}
	r.Subscribe(92, sub)

	msg, err := idscan.NewIdsMessage(idscan.MsgDeviceStatus, 92, idscan.Broadcast, 0, []byte{0x01})
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	r.HandleFrame(frame)

	assert.Equal(t, []idscan.Addr{92}, reg.observed)
	require.Len(t, sub.received, 1)
	assert.Equal(t, idscan.MsgDeviceStatus, sub.received[0].Type)
}

func TestDeviceStatusRefreshesMatchingSessionActivity(t *testing.T) {
	reg := newFakeRegistry()
	sess := &fakeSession{}
	sessions := &fakeSessions{sessions: map[idscan.Addr]SessionHandler{92: sess}}
	r := New(1, reg, sessions)

	msg, err := idscan.NewIdsMessage(idscan.MsgDeviceStatus, 92, idscan.Broadcast, 0, []byte{0x01})
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	r.HandleFrame(frame)
	assert.Equal(t, 1, sess.touched)
}

func TestDeviceIDRoutesToRegistry(t *testing.T) {
	reg := newFakeRegistry()
	r := New(1, reg, nil)

	payload := []byte{0, 0, 0, 0x14, 0, 1, 0}
	msg, err := idscan.NewIdsMessage(idscan.MsgDeviceId, 92, idscan.Broadcast, 0, payload)
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	r.HandleFrame(frame)
	assert.Equal(t, payload, reg.deviceIDs[92])
}

func TestResponseRoutesToMatchingSession(t *testing.T) {
	sess := &fakeSession{}
	sessions := &fakeSessions{sessions: map[idscan.Addr]SessionHandler{92: sess}}
	r := New(1, nil, sessions)

	msg, err := idscan.NewIdsMessage(idscan.MsgResponse, 92, 1, 0x42, []byte{0, 4, 1, 2, 3, 4})
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	r.HandleFrame(frame)
	require.Len(t, sess.received, 1)
	assert.EqualValues(t, 0x42, sess.received[0].MsgData)
}

func TestResponseNotAddressedToUsIsIgnored(t *testing.T) {
	sess := &fakeSession{}
	sessions := &fakeSessions{sessions: map[idscan.Addr]SessionHandler{92: sess}}
	r := New(1, nil, sessions)

	msg, err := idscan.NewIdsMessage(idscan.MsgResponse, 92, 2, 0x42, []byte{0, 4})
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	r.HandleFrame(frame)
	assert.Empty(t, sess.received)
}

func TestCommandAddressedToUsIsIgnored(t *testing.T) {
	r := New(1, nil, nil)
	msg, err := idscan.NewIdsMessage(idscan.MsgCommand, 2, 1, 0, []byte{1})
	require.NoError(t, err)
	frame, err := msg.Encode()
	require.NoError(t, err)

	assert.NotPanics(t, func() { r.HandleFrame(frame) })
}
