package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeDimmableLightStatusFull(t *testing.T) {
	payload := []byte{0x01, 127, 0x00, 0x00, 0x00, 0x0A, 0x00, 0x14}
	s := DecodeDimmableLightStatus(payload)
	assert.Equal(t, LightDimmer, s.Mode)
	assert.EqualValues(t, 10, s.CycleT1)
	assert.EqualValues(t, 20, s.CycleT2)
}

func TestDecodeDimmableLightStatusPartial(t *testing.T) {
	s := DecodeDimmableLightStatus([]byte{0x02})
	assert.Equal(t, LightBlink, s.Mode)
	assert.Zero(t, s.CycleT1)

	s4 := DecodeDimmableLightStatus([]byte{0x02, 255, 5, 0})
	assert.Equal(t, 100, s4.MaxBrightnessPct)
	assert.EqualValues(t, 5, s4.Duration)
}

func TestDecodeLatchingRelayType1(t *testing.T) {
	s := DecodeLatchingRelayType1Status(0x01)
	assert.True(t, s.On)
	assert.False(t, s.Faulted)

	s2 := DecodeLatchingRelayType1Status(0x40)
	assert.False(t, s2.On)
	assert.True(t, s2.Faulted)
}

func TestDecodeLatchingRelayType2Faulted(t *testing.T) {
	payload := []byte{0x21, 255, 0xFF, 0xFF, 0x00, 0x05}
	s := DecodeLatchingRelayType2Status(payload, CapabilityPositionBit1)
	assert.Equal(t, 1, s.State)
	assert.True(t, s.OutputDisabled)
	assert.False(t, s.PositionKnown)
	assert.False(t, s.CurrentDrawKnown)
	assert.EqualValues(t, 5, s.DtcReason)
	assert.True(t, s.Faulted)
}

func TestDecodeLatchingRelayType2PositionAndCurrent(t *testing.T) {
	payload := []byte{0x00, 42, 0x01, 0x80, 0x00, 0x00}
	s := DecodeLatchingRelayType2Status(payload, CapabilityPositionBit2)
	assert.True(t, s.PositionKnown)
	assert.Equal(t, 42, s.Position)
	assert.True(t, s.CurrentDrawKnown)
	assert.InDelta(t, 1.5, s.CurrentDrawAmps, 0.001)
	assert.False(t, s.Faulted)
}

func TestDecodeLatchingRelayType2PositionHiddenWithoutCapability(t *testing.T) {
	payload := []byte{0x00, 42, 0xFF, 0xFF, 0x00, 0x00}
	s := DecodeLatchingRelayType2Status(payload, 0)
	assert.False(t, s.PositionKnown)
}

func TestDecodeTankSensorStatusClamped(t *testing.T) {
	s := DecodeTankSensorStatus([]byte{150})
	assert.Equal(t, 100, s.LevelPct)

	s2 := DecodeTankSensorStatus([]byte{42})
	assert.Equal(t, 42, s2.LevelPct)
}
