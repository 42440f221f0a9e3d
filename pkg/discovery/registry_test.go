package discovery

import (
	"sync"
	"testing"

	idscan "github.com/idscan-io/idscan-driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []idscan.CanFrame
}

func (f *fakeSender) Send(frame idscan.CanFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSink struct {
	mu        sync.Mutex
	published []DiscoveredDevice
}

func (s *fakeSink) Publish(d DiscoveredDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, d)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func TestObserveNewAddressRequestsDeviceID(t *testing.T) {
	sender := &fakeSender{}
	r := NewRegistry("bridge-1", 1, sender, nil)
	r.Observe(92)
	assert.Equal(t, 1, sender.count())
	r.Observe(92)
	assert.Equal(t, 1, sender.count(), "re-observation of a known address should not re-request")
}

func TestObserveIgnoresBroadcast(t *testing.T) {
	sender := &fakeSender{}
	r := NewRegistry("bridge-1", 1, sender, nil)
	r.Observe(idscan.Broadcast)
	assert.Equal(t, 0, sender.count())
}

func TestHandleDeviceIDPublishesKnownType(t *testing.T) {
	sender := &fakeSender{}
	sink := &fakeSink{}
	r := NewRegistry("bridge-1", 1, sender, sink)

	payload := []byte{0, 0, 0, byte(idscan.DeviceDimmableLight), 0x00, 0x2A, 0x10, 0x03}
	r.HandleDeviceID(92, payload)

	require.Equal(t, 1, sink.count())
	dev, ok := r.Lookup(92)
	require.True(t, ok)
	assert.Equal(t, idscan.DeviceDimmableLight, dev.DeviceType)
	assert.EqualValues(t, 0x2A, dev.FunctionName)
	assert.EqualValues(t, 1, dev.Instance)
	require.NotNil(t, dev.Capabilities)
	assert.EqualValues(t, 0x03, *dev.Capabilities)
	assert.Equal(t, "device_92", dev.DeviceName)
}

func TestHandleDeviceIDDiscardsZeroFunctionName(t *testing.T) {
	sender := &fakeSender{}
	sink := &fakeSink{}
	r := NewRegistry("bridge-1", 1, sender, sink)

	payload := []byte{0, 0, 0, byte(idscan.DeviceDimmableLight), 0x00, 0x00, 0x00}
	r.HandleDeviceID(92, payload)

	assert.Equal(t, 0, sink.count())
	_, ok := r.Lookup(92)
	assert.False(t, ok)
}

func TestHandleDeviceIDUnknownTypeNotPublished(t *testing.T) {
	sender := &fakeSender{}
	sink := &fakeSink{}
	r := NewRegistry("bridge-1", 1, sender, sink)

	payload := []byte{0, 0, 0, 0x7F, 0x00, 0x01, 0x00}
	r.HandleDeviceID(92, payload)

	assert.Equal(t, 0, sink.count())
	dev, ok := r.Lookup(92)
	require.True(t, ok, "unknown types are still remembered")
	assert.False(t, dev.DeviceType.IsKnown())
}

func TestHandleDeviceIDPublishesOnlyOnce(t *testing.T) {
	sender := &fakeSender{}
	sink := &fakeSink{}
	r := NewRegistry("bridge-1", 1, sender, sink)
	payload := []byte{0, 0, 0, byte(idscan.DeviceTankSensor), 0x00, 0x01, 0x00}
	r.HandleDeviceID(92, payload)
	r.HandleDeviceID(92, payload)
	assert.Equal(t, 1, sink.count())
}
