package idscan

// DeviceType is the closed (partial) device type enumeration carried in
// byte 3 of a DEVICE_ID payload.
type DeviceType uint8

const (
	DeviceLatchingRelay       DeviceType = 0x03
	DeviceTankSensor          DeviceType = 0x0A
	DeviceRGBLight            DeviceType = 0x0D
	DeviceHVACControl         DeviceType = 0x10
	DeviceDimmableLight       DeviceType = 0x14
	DeviceLatchingRelayType2  DeviceType = 0x1E
	DeviceMomentaryHBridge    DeviceType = 0x1F
	DeviceMomentaryHBridgeT2  DeviceType = 0x20
	DeviceUnknown             DeviceType = 0xFF
)

var deviceTypeNames = map[DeviceType]string{
	DeviceLatchingRelay:      "LATCHING_RELAY",
	DeviceTankSensor:         "TANK_SENSOR",
	DeviceRGBLight:           "RGB_LIGHT",
	DeviceHVACControl:        "HVAC_CONTROL",
	DeviceDimmableLight:      "DIMMABLE_LIGHT",
	DeviceLatchingRelayType2: "LATCHING_RELAY_TYPE_2",
	DeviceMomentaryHBridge:   "MOMENTARY_H_BRIDGE",
	DeviceMomentaryHBridgeT2: "MOMENTARY_H_BRIDGE_T2",
	DeviceUnknown:            "UNKNOWN",
}

// Name returns the human-readable device type name, "UNKNOWN" for any
// value not in the enumeration.
func (t DeviceType) Name() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKnown reports whether t is one of the enumerated device types.
func (t DeviceType) IsKnown() bool {
	_, ok := deviceTypeNames[t]
	return ok && t != DeviceUnknown
}

func (t DeviceType) String() string { return t.Name() }
