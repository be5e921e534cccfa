// Package session implements sensor discovery, connection negotiation,
// component construction, per-client event fan-out, and the property-change
// broadcast — the top-level session manager a host application drives.
package session

import (
	"go.viam.com/zensense/decode"
	"go.viam.com/zensense/transport"
)

// SensorHandle is a monotonically increasing token identifying an open
// sensor, allocated by the Manager under its sensor-map mutex.
type SensorHandle uint64

// ComponentHandle is a component's ordinal within its sensor's component
// list — its externally visible identity.
type ComponentHandle int

// ComponentType names one of the three component kinds the core
// constructs.
type ComponentType int

const (
	ComponentIMUv0 ComponentType = iota
	ComponentIMUIG1
	ComponentGNSS
)

// EventKind discriminates the tagged-union Event below.
type EventKind int

const (
	EventIMUData EventKind = iota
	EventGNSSData
	EventSensorFound
	EventListingProgress
	EventPropertyChanged
)

// PropertyChange describes one property-changed notification.
type PropertyChange struct {
	Key   uint16
	Value any
}

// Event is delivered to client event queues. Every event carries the
// originating sensor handle; data events additionally carry the component
// handle. The tagged-union-as-struct-of-nilable-pointers shape keeps one
// concrete Event type instead of an interface per kind, at the cost of
// mostly-nil structs.
type Event struct {
	Kind      EventKind
	Sensor    SensorHandle
	Component ComponentHandle

	IMU             *decode.IMUData
	GNSS            *decode.GNSSData
	Found           *transport.Descriptor
	Progress        float32
	PropertyChanged *PropertyChange
}
