package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"go.viam.com/zensense/session"
)

var discoverCommand = &cli.Command{
	Name:  "discover",
	Usage: "list sensors visible across every registered transport",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 5 * time.Second,
			Usage: "how long to wait for discovery to finish",
		},
	},
	Action: func(c *cli.Context) error {
		state := stateFrom(c)
		mgr := session.NewManager(state.registry.registry, state.logger)
		client := session.NewClient(mgr, state.logger, 0)
		defer client.Close()

		ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
		defer cancel()

		client.ListSensorsAsync(ctx)

		found := 0
		for {
			ev, err := client.WaitForNextEvent(ctx)
			if err != nil {
				return fmt.Errorf("discovery: %w", err)
			}
			switch ev.Kind {
			case session.EventSensorFound:
				found++
				d := ev.Found
				fmt.Fprintf(c.App.Writer, "found  io_type=%s identifier=%s name=%s\n", d.IOType, d.Identifier, d.Name)
			case session.EventListingProgress:
				if ev.Progress >= 1.0 {
					fmt.Fprintf(c.App.Writer, "done   %d sensor(s) found\n", found)
					return nil
				}
			}
		}
	},
}
