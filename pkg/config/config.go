// Package config validates and loads the bridge's configuration surface:
// connection type, TCP/SocketCAN parameters, and the local controller's
// source address.
package config

import (
	"fmt"

	idscan "github.com/idscan-io/idscan-driver"
	"gopkg.in/ini.v1"
)

// ConnectionType selects which Transport variant the bridge constructs.
type ConnectionType string

const (
	ConnectionTCP       ConnectionType = "tcp"
	ConnectionSocketCAN ConnectionType = "socketcan"
)

// BridgeConfig is the full configuration surface passed in by the host.
type BridgeConfig struct {
	ConnectionType ConnectionType
	IPAddress      string
	Port           int
	CanInterface   string
	SourceAddress  uint8
	Verbose        bool
}

// Validate enforces the invariants in §6: source out of range, port out
// of range, or an empty CAN interface are configuration errors that keep
// the bridge offline until corrected.
func (c BridgeConfig) Validate() error {
	switch c.ConnectionType {
	case ConnectionTCP:
		if c.IPAddress == "" {
			return fmt.Errorf("%w: tcp connection requires an ip_address", idscan.ErrConfigInvalid)
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", idscan.ErrConfigInvalid, c.Port)
		}
	case ConnectionSocketCAN:
		if c.CanInterface == "" {
			return fmt.Errorf("%w: socketcan connection requires a can_interface", idscan.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown connection_type %q", idscan.ErrConfigInvalid, c.ConnectionType)
	}
	if !idscan.Addr(c.SourceAddress).IsUnicast() {
		return fmt.Errorf("%w: source_address must be 1..254", idscan.ErrConfigInvalid)
	}
	return nil
}

// Load reads a BridgeConfig from an INI file at path, in the
// [bridge] section, using gopkg.in/ini.v1 the way the rest of the stack
// parses structured config files.
func Load(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	file, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}

	section := file.Section("bridge")
	cfg.ConnectionType = ConnectionType(section.Key("connection_type").MustString(string(ConnectionTCP)))
	cfg.IPAddress = section.Key("ip_address").String()
	cfg.Port = section.Key("port").MustInt(0)
	cfg.CanInterface = section.Key("can_interface").MustString("can0")
	cfg.SourceAddress = uint8(section.Key("source_address").MustInt(1))
	cfg.Verbose = section.Key("verbose").MustBool(false)
	return cfg, nil
}
