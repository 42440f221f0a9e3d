// Package device decodes DEVICE_STATUS payloads into per-family structs.
package device

// DimmableLightStatus mirrors the COMMAND payload layout; short status
// payloads are decoded as far as the available bytes reach.
type DimmableLightStatus struct {
	Mode                 int
	MaxBrightnessPct     int
	Duration             byte
	CurrentBrightnessPct int
	CycleT1              uint16
	CycleT2              uint16
}

func byteToPercent(b byte) int {
	return (int(b) * 100) / 255
}

// DecodeDimmableLightStatus decodes a DEVICE_STATUS payload of 1, 4, or 8
// bytes for a dimmable light, filling in only the fields the payload
// length reaches.
func DecodeDimmableLightStatus(payload []byte) DimmableLightStatus {
	var s DimmableLightStatus
	if len(payload) >= 1 {
		s.Mode = int(payload[0])
	}
	if len(payload) >= 4 {
		s.MaxBrightnessPct = byteToPercent(payload[1])
		s.Duration = payload[2]
		s.CurrentBrightnessPct = byteToPercent(payload[3])
	}
	if len(payload) >= 8 {
		s.CycleT1 = uint16(payload[4])<<8 | uint16(payload[5])
		s.CycleT2 = uint16(payload[6])<<8 | uint16(payload[7])
	}
	return s
}

// LatchingRelayType1Status is the 1-byte status of the simpler relay family.
type LatchingRelayType1Status struct {
	On      bool
	Faulted bool
}

// DecodeLatchingRelayType1Status decodes the single status byte.
func DecodeLatchingRelayType1Status(b byte) LatchingRelayType1Status {
	return LatchingRelayType1Status{
		On:      b&0x01 != 0,
		Faulted: b&0x40 != 0,
	}
}

const unsupportedCurrentDraw = 0xFFFF
const unknownPosition = 255

// LatchingRelayType2Status is the 6-byte status of the richer relay family.
type LatchingRelayType2Status struct {
	State            int
	OutputDisabled   bool
	Position         int
	PositionKnown    bool
	CurrentDrawAmps  float64
	CurrentDrawKnown bool
	DtcReason        uint16
	Faulted          bool
}

// relay type2 capability bits advertising that a position reading exists.
const (
	CapabilityPositionBit1 = 1 << 1
	CapabilityPositionBit2 = 1 << 2
)

// DecodeLatchingRelayType2Status decodes the 6-byte status payload.
// capabilities is the device's advertised capability byte from DEVICE_ID;
// position is only reported if capabilities advertises it.
func DecodeLatchingRelayType2Status(payload []byte, capabilities byte) LatchingRelayType2Status {
	var s LatchingRelayType2Status
	if len(payload) < 6 {
		return s
	}
	s.State = int(payload[0] & 0x0F)
	s.OutputDisabled = payload[0]&0x20 != 0

	hasPosition := capabilities&(CapabilityPositionBit1|CapabilityPositionBit2) != 0
	if hasPosition && payload[1] != unknownPosition {
		s.Position = int(payload[1])
		s.PositionKnown = true
	}

	current := uint16(payload[2])<<8 | uint16(payload[3])
	if current != unsupportedCurrentDraw {
		s.CurrentDrawAmps = float64(current) / 256.0
		s.CurrentDrawKnown = true
	}

	s.DtcReason = uint16(payload[4])<<8 | uint16(payload[5])
	s.Faulted = s.OutputDisabled && s.DtcReason != 0
	return s
}

// TankSensorStatus is the decoded level reading of a tank sensor.
type TankSensorStatus struct {
	LevelPct int
}

// DecodeTankSensorStatus decodes byte 0 of a tank sensor's DEVICE_STATUS,
// clamping the level to 0..100.
func DecodeTankSensorStatus(payload []byte) TankSensorStatus {
	if len(payload) < 1 {
		return TankSensorStatus{}
	}
	level := int(payload[0])
	if level > 100 {
		level = 100
	}
	return TankSensorStatus{LevelPct: level}
}
