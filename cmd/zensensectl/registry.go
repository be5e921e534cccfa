package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
	"go.viam.com/zensense/transport/canbus"
	"go.viam.com/zensense/transport/serialio"
)

// registryConfig wraps the transport.Registry every command shares, built
// once in main's Before hook from global flags.
type registryConfig struct {
	registry *transport.Registry
}

// newRegistryConfig always registers the real serial family, and
// additionally registers a single-sensor CAN family when --can-iface is
// set — btle is left unregistered here since it has no generic, dependency-
// free Connector to wire against a CLI flag (see transport/btle's doc
// comment).
func newRegistryConfig(c *cli.Context, logger logging.Logger) (*registryConfig, error) {
	reg := transport.NewRegistry()
	reg.Register(serialio.NewFamily(logger.Named("serial")))

	if iface := c.String("can-iface"); iface != "" {
		txID, err := parseHexID(c.String("can-tx-id"))
		if err != nil {
			return nil, fmt.Errorf("--can-tx-id: %w", err)
		}
		rxID, err := parseHexID(c.String("can-rx-id"))
		if err != nil {
			return nil, fmt.Errorf("--can-rx-id: %w", err)
		}
		cfg := canbus.BusConfig{Ifname: iface, TxID: txID, RxID: rxID}
		reg.Register(canbus.NewFamily(canbus.DefaultBitrate, logger.Named("can"), cfg))
	}

	return &registryConfig{registry: reg}, nil
}

func parseHexID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
