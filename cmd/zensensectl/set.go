package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"go.viam.com/zensense/session"
)

var componentNames = map[string]session.ComponentType{
	"imu":  session.ComponentIMUv0,
	"gnss": session.ComponentGNSS,
}

var propertyKeys = map[string]uint16{
	"stream_data":   session.PropKeyStreamData,
	"output_bitset": session.PropKeyOutputBitset,
	"low_precision": session.PropKeyLowPrecision,
}

var setCommand = &cli.Command{
	Name:  "set",
	Usage: "write a property on a running sensor's component",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "io-type", Required: true, Usage: "transport family (serial, can)"},
		&cli.StringFlag{Name: "identifier", Required: true, Usage: "transport-specific device identifier"},
		&cli.UintFlag{Name: "baud", Usage: "initial baud/bitrate; 0 uses the transport's default"},
		&cli.StringFlag{Name: "component", Required: true, Usage: "imu or gnss; the IMU variant (v0/IG1) is whatever the sensor negotiated"},
		&cli.StringFlag{Name: "key", Required: true, Usage: "stream_data, output_bitset, or low_precision"},
		&cli.BoolFlag{Name: "bool", Usage: "value for a bool property (stream_data, low_precision)"},
		&cli.UintFlag{Name: "int", Usage: "value for an int property (output_bitset)"},
	},
	Action: func(c *cli.Context) error {
		componentType, ok := componentNames[c.String("component")]
		if !ok {
			return fmt.Errorf("unknown --component %q: want imu or gnss", c.String("component"))
		}
		key, ok := propertyKeys[c.String("key")]
		if !ok {
			return fmt.Errorf("unknown --key %q: want stream_data, output_bitset, or low_precision", c.String("key"))
		}

		state := stateFrom(c)
		mgr := session.NewManager(state.registry.registry, state.logger)
		client := session.NewClient(mgr, state.logger, 0)
		defer client.Close()

		ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
		defer cancel()

		sensor, err := client.ObtainSensorByName(ctx, c.String("io-type"), c.String("identifier"), uint32(c.Uint("baud")))
		if err != nil {
			return fmt.Errorf("obtain sensor: %w", err)
		}

		handle, ok := sensor.AnyComponentOf(componentType)
		if !ok && componentType == session.ComponentIMUv0 {
			handle, ok = sensor.AnyComponentOf(session.ComponentIMUIG1)
		}
		if !ok {
			return fmt.Errorf("sensor has no %s component", c.String("component"))
		}

		if key == session.PropKeyOutputBitset {
			err = sensor.SetInt32(ctx, handle, key, int32(c.Uint("int")))
		} else {
			err = sensor.SetBool(ctx, handle, key, c.Bool("bool"))
		}
		if err != nil {
			return fmt.Errorf("set property: %w", err)
		}

		fmt.Fprintf(c.App.Writer, "ok\n")
		return nil
	},
}
