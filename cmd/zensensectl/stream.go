package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"go.viam.com/zensense/session"
)

var streamCommand = &cli.Command{
	Name:  "stream",
	Usage: "connect to a sensor and print its data frames until --duration elapses",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "io-type", Required: true, Usage: "transport family (serial, can)"},
		&cli.StringFlag{Name: "identifier", Required: true, Usage: "transport-specific device identifier"},
		&cli.UintFlag{Name: "baud", Usage: "initial baud/bitrate; 0 uses the transport's default"},
		&cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "how long to stream before disconnecting"},
	},
	Action: func(c *cli.Context) error {
		state := stateFrom(c)
		mgr := session.NewManager(state.registry.registry, state.logger)
		client := session.NewClient(mgr, state.logger, 0)
		defer client.Close()

		obtainCtx, cancel := context.WithTimeout(c.Context, 10*time.Second)
		sensor, err := client.ObtainSensorByName(obtainCtx, c.String("io-type"), c.String("identifier"), uint32(c.Uint("baud")))
		cancel()
		if err != nil {
			return fmt.Errorf("obtain sensor: %w", err)
		}
		defer sensor.Release()

		for _, handle := range sensor.Components() {
			if err := sensor.SetBool(c.Context, handle, session.PropKeyStreamData, true); err != nil {
				return fmt.Errorf("enable streaming on component %d: %w", handle, err)
			}
		}
		defer func() {
			for _, handle := range sensor.Components() {
				_ = sensor.SetBool(context.Background(), handle, session.PropKeyStreamData, false)
			}
		}()

		streamCtx, cancel := context.WithTimeout(c.Context, c.Duration("duration"))
		defer cancel()

		for {
			ev, err := client.WaitForNextEvent(streamCtx)
			if err != nil {
				fmt.Fprintf(c.App.Writer, "stopped: %v\n", err)
				return nil
			}
			printDataEvent(c, ev)
		}
	},
}

func printDataEvent(c *cli.Context, ev session.Event) {
	switch ev.Kind {
	case session.EventIMUData:
		d := ev.IMU
		fmt.Fprintf(c.App.Writer, "imu  frame=%d t=%.3f acc=%v gyro1=%v quat=%v\n",
			d.FrameCount, d.Timestamp, d.AccCalib, d.Gyro1Raw, d.Quaternion)
	case session.EventGNSSData:
		d := ev.GNSS
		fmt.Fprintf(c.App.Writer, "gnss frame=%d lat=%.6f lon=%.6f alt=%.2f sats=%d\n",
			d.FrameCount, d.Latitude, d.Longitude, d.AltitudeMeters, d.SatellitesInUse)
	case session.EventPropertyChanged:
		fmt.Fprintf(c.App.Writer, "prop component=%d key=%d value=%v\n", ev.Component, ev.PropertyChanged.Key, ev.PropertyChanged.Value)
	}
}
