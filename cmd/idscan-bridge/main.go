package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/idscan-io/idscan-driver/pkg/bridge"
	"github.com/idscan-io/idscan-driver/pkg/config"
	log "github.com/sirupsen/logrus"
)

const defaultSourceAddress = 1

func main() {
	configPath := flag.String("c", "", "optional ini config file")
	connectionType := flag.String("t", string(config.ConnectionTCP), "connection type: tcp, socketcan")
	ipAddress := flag.String("ip", "", "gateway ip address (tcp)")
	port := flag.Int("port", 0, "gateway port (tcp)")
	canInterface := flag.String("i", "can0", "socketcan interface e.g. can0,vcan0")
	sourceAddress := flag.Int("src", defaultSourceAddress, "local controller source address")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	cfg := config.BridgeConfig{
		ConnectionType: config.ConnectionType(*connectionType),
		IPAddress:      *ipAddress,
		Port:           *port,
		CanInterface:   *canInterface,
		SourceAddress:  uint8(*sourceAddress),
		Verbose:        *verbose,
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Printf("error loading config file %v: %v\n", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	b, err := bridge.New(cfg, "idscan-bridge", localMAC())
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	if err := b.Connect(ctx); err != nil {
		log.Errorf("failed to connect: %v", err)
		os.Exit(1)
	}
	log.Infof("idscan-bridge online, connection=%s src=%d", cfg.ConnectionType, cfg.SourceAddress)

	<-ctx.Done()
	if err := b.Close(); err != nil {
		log.Warnf("error during shutdown: %v", err)
	}
}

func localMAC() [6]byte {
	ifaces, err := net.Interfaces()
	if err != nil {
		return [6]byte{}
	}
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) == 6 {
			var mac [6]byte
			copy(mac[:], iface.HardwareAddr)
			return mac
		}
	}
	return [6]byte{}
}
