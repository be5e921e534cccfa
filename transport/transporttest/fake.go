// Package transporttest provides an in-memory transport.Adapter for use in
// comm and session package tests, standing in for a real serial/CAN/BLE
// link.
package transporttest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.viam.com/zensense/transport"
)

// Adapter is a loopback-free, fully in-memory transport.Adapter: writes via
// Send are recorded in Sent, and a test drives the subscriber directly via
// Deliver to simulate inbound bytes.
type Adapter struct {
	mu         sync.Mutex
	subscriber transport.Subscriber
	closed     bool
	baud       int
	bauds      []int
	ioType     string
	identifier string

	// Sent accumulates every buffer passed to Send, in order.
	Sent [][]byte
	// SendErr, if set, is returned by every subsequent Send call.
	SendErr error
}

// New returns a ready-to-use fake Adapter.
func New(ioType, identifier string, bauds []int) *Adapter {
	b := 115200
	if len(bauds) > 0 {
		b = bauds[0]
	}
	return &Adapter{ioType: ioType, identifier: identifier, bauds: bauds, baud: b}
}

func (a *Adapter) Send(ctx context.Context, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.SendErr != nil {
		return a.SendErr
	}
	cp := append([]byte(nil), data...)
	a.Sent = append(a.Sent, cp)
	return nil
}

func (a *Adapter) SetBaud(rate int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.baud = rate
	return nil
}

func (a *Adapter) Baud() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baud
}

func (a *Adapter) SupportedBauds() []int { return a.bauds }
func (a *Adapter) Type() string          { return a.ioType }
func (a *Adapter) Identifier() string    { return a.identifier }

func (a *Adapter) Equals(d transport.Descriptor) bool {
	return d.IOType == a.ioType && d.Identifier == a.identifier
}

func (a *Adapter) SetSubscriber(s transport.Subscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.subscriber = s
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.subscriber = nil
	return nil
}

// Deliver simulates an inbound read, pushing data to the registered
// subscriber exactly as a real reader goroutine would.
func (a *Adapter) Deliver(data []byte) {
	a.mu.Lock()
	sub := a.subscriber
	a.mu.Unlock()
	if sub != nil {
		sub.OnBytes(data)
	}
}

// LastSent returns the most recently sent buffer, or nil if none.
func (a *Adapter) LastSent() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Sent) == 0 {
		return nil
	}
	return a.Sent[len(a.Sent)-1]
}

// NewDescriptor builds a transport.Descriptor matching this Adapter's
// identity, suitable for Manager.Obtain in tests.
func (a *Adapter) NewDescriptor() transport.Descriptor {
	return transport.Descriptor{
		IOType:     a.ioType,
		Identifier: a.identifier,
		BaudRate:   uint32(a.baud),
		Handle:     uuid.New(),
	}
}

// Family is a fake transport.Family backed by a fixed set of Adapters,
// standing in for a real serial/CAN/BLE family in discovery and
// negotiation tests.
type Family struct {
	ioType      string
	defaultBaud int
	descriptors []transport.Descriptor
	adapters    map[string]*Adapter

	// ListErr, if set, is returned by ListDevices instead of the fixed
	// descriptor list.
	ListErr error
}

// NewFamily returns a Family named ioType serving the given adapters, keyed
// by their own Identifier.
func NewFamily(ioType string, defaultBaud int, adapters ...*Adapter) *Family {
	f := &Family{ioType: ioType, defaultBaud: defaultBaud, adapters: make(map[string]*Adapter)}
	for _, a := range adapters {
		d := a.NewDescriptor()
		f.descriptors = append(f.descriptors, d)
		f.adapters[a.Identifier()] = a
	}
	return f
}

func (f *Family) IOType() string { return f.ioType }

func (f *Family) ListDevices(ctx context.Context) ([]transport.Descriptor, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]transport.Descriptor(nil), f.descriptors...), nil
}

func (f *Family) DefaultBaud() int { return f.defaultBaud }

func (f *Family) Open(ctx context.Context, d transport.Descriptor) (transport.Adapter, error) {
	a, ok := f.adapters[d.Identifier]
	if !ok {
		return nil, errNoSuchDevice
	}
	return a, nil
}

var errNoSuchDevice = errors.New("transporttest: no such device")
