// Command zensensectl is a small operator CLI over the session package:
// discover sensors, stream their data to stdout, and flip a property on a
// running sensor.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"go.viam.com/zensense/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "zensensectl:", err)
		os.Exit(1)
	}
}

// appState is stashed in cli.Context.App.Metadata by Before and fetched
// back out in each command's Action.
type appState struct {
	logger   logging.Logger
	registry *registryConfig
}

func newApp() *cli.App {
	app := &cli.App{
		Name:  "zensensectl",
		Usage: "discover, connect to, and stream data from zensense sensors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn, or error",
			},
			&cli.StringFlag{
				Name:  "can-iface",
				Usage: "also register a CAN-attached sensor on this interface (e.g. can0)",
			},
			&cli.StringFlag{
				Name:  "can-tx-id",
				Value: "0x100",
				Usage: "host->sensor CAN arbitration id (hex), used with --can-iface",
			},
			&cli.StringFlag{
				Name:  "can-rx-id",
				Value: "0x101",
				Usage: "sensor->host CAN arbitration id (hex), used with --can-iface",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := zapcore.ParseLevel(c.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			logger := logging.New(level)

			regCfg, err := newRegistryConfig(c, logger)
			if err != nil {
				return err
			}

			c.App.Metadata = map[string]interface{}{
				"state": &appState{logger: logger, registry: regCfg},
			}
			return nil
		},
		Commands: []*cli.Command{
			discoverCommand,
			streamCommand,
			setCommand,
		},
	}
	return app
}

func stateFrom(c *cli.Context) *appState {
	return c.App.Metadata["state"].(*appState)
}
