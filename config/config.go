// Package config holds the connection and session configuration zensense
// validates the way go.viam.com/rdk validates component config: a Validate
// method returning the usual go.viam.com/utils field-required errors.
package config

import (
	"time"

	"go.viam.com/utils"
)

// Connection configures how a single sensor is opened and talked to.
type Connection struct {
	// IOType names the transport family (e.g. "serial", "can", "ble").
	IOType string `json:"io_type"`
	// Identifier is the transport-specific device identifier (port path,
	// CAN node id, BLE address).
	Identifier string `json:"identifier"`
	// BaudRate is the initial baud to try; 0 means "use the transport
	// family's default".
	BaudRate uint32 `json:"baud_rate,omitempty"`
	// Timeout bounds every SendAndWaitFor* turn. Zero means unset:
	// TimeoutOrDefault substitutes DefaultTimeout.
	Timeout time.Duration `json:"timeout,omitempty"`
	// EventQueueCapacity bounds the per-client event queue; zero uses
	// DefaultEventQueueCapacity.
	EventQueueCapacity int `json:"event_queue_capacity,omitempty"`
}

// DefaultTimeout is used when Connection.Timeout is unset.
const DefaultTimeout = 2 * time.Second

// DefaultEventQueueCapacity is used when Connection.EventQueueCapacity is unset.
const DefaultEventQueueCapacity = 256

// Validate checks required fields, the Config.Validate(path) convention
// used across go.viam.com/rdk component configs (see gpsrtkpmtk.Config.Validate).
func (c *Connection) Validate(path string) ([]string, error) {
	if c.IOType == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "io_type")
	}
	if c.Identifier == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "identifier")
	}
	return []string{}, nil
}

// TimeoutOrDefault returns c.Timeout if set, else DefaultTimeout. Timeout
// explicitly set to a negative duration is left as-is for the caller to
// reject; only the zero value is treated as "unset".
func (c *Connection) TimeoutOrDefault() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// QueueCapacityOrDefault returns c.EventQueueCapacity if set, else
// DefaultEventQueueCapacity.
func (c *Connection) QueueCapacityOrDefault() int {
	if c.EventQueueCapacity == 0 {
		return DefaultEventQueueCapacity
	}
	return c.EventQueueCapacity
}
