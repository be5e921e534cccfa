// Package transport defines the byte-level boundary between zensense's core
// and concrete link drivers (serial, USB, Bluetooth, CAN). The core depends
// only on Adapter; concrete drivers live in transport/serialio,
// transport/canbus, and transport/btle.
package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Subscriber receives raw bytes pushed by an Adapter's reader goroutine.
// OnBytes may be called with a partial frame, multiple frames, or anything
// in between — the Adapter makes no framing guarantees.
type Subscriber interface {
	OnBytes(data []byte)
}

// Adapter abstracts a single half-duplex (or full-duplex, write-wise) byte
// link to a sensor. Implementations own a reader goroutine that calls the
// registered Subscriber's OnBytes for every read, and guarantee the
// Subscriber is never called again once Close has returned.
type Adapter interface {
	// Send blocks until data has been written, or ctx is done.
	Send(ctx context.Context, data []byte) error

	SetBaud(rate int) error
	Baud() int
	SupportedBauds() []int

	Type() string
	Identifier() string
	Equals(d Descriptor) bool

	// SetSubscriber must be called before the reader goroutine starts
	// delivering bytes; calling it after Close is a no-op.
	SetSubscriber(s Subscriber)

	Close() error
}

// Descriptor identifies a discoverable or already-open sensor. Handle is an
// opaque discovery-time identifier independent of the SensorHandle the
// session package hands out on Obtain.
type Descriptor struct {
	Name       string
	Identifier string
	Serial     string
	IOType     string
	BaudRate   uint32
	Handle     uuid.UUID
}

// Family groups the discovery and construction behavior for one transport
// kind (e.g. "serial", "can", "ble"). The session package iterates over all
// registered Families during discovery and uses the matching Family to
// instantiate an Adapter on Obtain.
type Family interface {
	// IOType names this family, matching Descriptor.IOType.
	IOType() string
	// ListDevices returns the descriptors currently visible to this
	// transport family. Implementations should not block indefinitely;
	// discovery treats a slow family as just another family to iterate.
	ListDevices(ctx context.Context) ([]Descriptor, error)
	// DefaultBaud is used when a caller obtains a sensor without specifying
	// a baud rate.
	DefaultBaud() int
	// Open instantiates an Adapter for the given descriptor.
	Open(ctx context.Context, d Descriptor) (Adapter, error)
}

// Registry holds the transport Families a process has registered, guarded
// by a single mutex per the core's collection-locking policy (short
// critical sections only).
type Registry struct {
	mu       sync.Mutex
	families []Family
}

// NewRegistry returns an empty transport Family registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a Family to the registry. Safe to call concurrently with
// Families.
func (r *Registry) Register(f Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families = append(r.families, f)
}

// Families returns a snapshot of the currently registered Families.
func (r *Registry) Families() []Family {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Family, len(r.families))
	copy(out, r.families)
	return out
}

// ByIOType returns the registered Family matching ioType, if any.
func (r *Registry) ByIOType(ioType string) (Family, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.families {
		if f.IOType() == ioType {
			return f, true
		}
	}
	return nil, false
}
