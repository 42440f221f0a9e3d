// Package command builds outbound COMMAND and discovery-request payloads
// for the device families IDS-CAN defines.
package command

import idscan "github.com/idscan-io/idscan-driver"

// Dimmable light modes.
const (
	LightOff = iota
	LightDimmer
	LightBlink
	LightSwell
)

const (
	mdRequestDeviceID     = 0x00
	mdRequestDeviceStatus = 0x01
)

// percentToByte scales 0..100 to 0..255, clamping out-of-range input.
func percentToByte(pct int) byte {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return byte((pct * 255) / 100)
}

// DimmableLightCommand builds the 8-byte COMMAND payload for a dimmable
// light: [mode][maxBrightness][duration][currentBrightness][cycleT1 hi/lo][cycleT2 hi/lo].
func DimmableLightCommand(mode int, maxBrightnessPct int, duration byte, currentBrightnessPct int, cycleT1, cycleT2 uint16) []byte {
	return []byte{
		byte(mode),
		percentToByte(maxBrightnessPct),
		duration,
		percentToByte(currentBrightnessPct),
		byte(cycleT1 >> 8), byte(cycleT1),
		byte(cycleT2 >> 8), byte(cycleT2),
	}
}

// SetLightOn builds the COMMAND payload to switch a dimmable light on at
// the given brightness percentage.
func SetLightOn(brightnessPct int) []byte {
	return DimmableLightCommand(LightDimmer, brightnessPct, 0, 0, 0, 0)
}

// SetLightOff builds the COMMAND payload to switch a dimmable light off.
func SetLightOff() []byte {
	return DimmableLightCommand(LightOff, 0, 0, 0, 0, 0)
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// HVACCommand builds the 3-byte COMMAND payload for an HVAC device.
func HVACCommand(heatMode, heatSource, fanMode int, lowTrip, highTrip byte) []byte {
	b0 := byte(clamp(heatMode, 7)) |
		byte(clamp(heatSource, 3)<<4) |
		byte(clamp(fanMode, 3)<<6)
	return []byte{b0, lowTrip, highTrip}
}

// RequestDeviceID builds a REQUEST-type message requesting the target's
// DEVICE_ID.
func RequestDeviceID(src, target idscan.Addr) (idscan.IdsMessage, error) {
	return idscan.NewIdsMessage(idscan.MsgRequest, src, target, mdRequestDeviceID, nil)
}

// RequestDeviceStatus builds a REQUEST-type message requesting the
// target's DEVICE_STATUS.
func RequestDeviceStatus(src, target idscan.Addr) (idscan.IdsMessage, error) {
	return idscan.NewIdsMessage(idscan.MsgRequest, src, target, mdRequestDeviceStatus, nil)
}
