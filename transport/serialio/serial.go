// Package serialio implements transport.Adapter and transport.Family over a
// real serial/USB-serial link using go.bug.st/serial.
package serialio

import (
	"context"
	"sync"

	goserial "go.bug.st/serial"
	"go.viam.com/utils"

	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
)

// IOType is this family's transport.Descriptor.IOType value.
const IOType = "serial"

// DefaultBauds lists the rates negotiation retries across, highest first,
// mirroring the sensor firmware's own auto-bauding sequence.
var DefaultBauds = []int{921600, 460800, 230400, 115200, 57600, 38400, 19200, 9600}

// Adapter is a transport.Adapter over one open serial port. A background
// reader goroutine (started by Open) pushes every Read into the registered
// transport.Subscriber until Close, the same cancelCtx/WaitGroup lifecycle
// a background I2C reader would use.
type Adapter struct {
	port goserial.Port
	path string

	cancelCtx  context.Context
	cancelFunc func()

	activeBackgroundWorkers sync.WaitGroup

	mu         sync.Mutex
	subscriber transport.Subscriber
	baud       int
	closed     bool

	logger logging.Logger
}

// Open opens the named serial device at the given initial baud rate and
// starts its background reader.
func Open(path string, baud int, logger logging.Logger) (*Adapter, error) {
	mode := &goserial.Mode{BaudRate: baud}
	port, err := goserial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	a := &Adapter{
		port:       port,
		path:       path,
		baud:       baud,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
		logger:     logger,
	}

	a.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() { a.readLoop(cancelCtx) })

	return a, nil
}

func (a *Adapter) readLoop(ctx context.Context) {
	defer a.activeBackgroundWorkers.Done()
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := a.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warnw("serial read failed", "path", a.path, "error", err)
			return
		}
		if n == 0 {
			continue
		}

		a.mu.Lock()
		sub := a.subscriber
		a.mu.Unlock()
		if sub != nil {
			cp := append([]byte(nil), buf[:n]...)
			sub.OnBytes(cp)
		}
	}
}

// Send implements transport.Adapter.
func (a *Adapter) Send(ctx context.Context, data []byte) error {
	_, err := a.port.Write(data)
	return err
}

// SetBaud implements transport.Adapter.
func (a *Adapter) SetBaud(rate int) error {
	if err := a.port.SetMode(&goserial.Mode{BaudRate: rate}); err != nil {
		return err
	}
	a.mu.Lock()
	a.baud = rate
	a.mu.Unlock()
	return nil
}

// Baud implements transport.Adapter.
func (a *Adapter) Baud() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baud
}

// SupportedBauds implements transport.Adapter.
func (a *Adapter) SupportedBauds() []int { return DefaultBauds }

// Type implements transport.Adapter.
func (a *Adapter) Type() string { return IOType }

// Identifier implements transport.Adapter.
func (a *Adapter) Identifier() string { return a.path }

// Equals implements transport.Adapter.
func (a *Adapter) Equals(d transport.Descriptor) bool {
	return d.IOType == IOType && d.Identifier == a.path
}

// SetSubscriber implements transport.Adapter.
func (a *Adapter) SetSubscriber(s transport.Subscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.subscriber = s
}

// Close stops the reader goroutine and closes the underlying port, waiting
// for the reader to fully exit before returning so a caller can safely
// assume no further Subscriber calls will arrive.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.subscriber = nil
	a.mu.Unlock()

	a.cancelFunc()
	err := a.port.Close()
	a.activeBackgroundWorkers.Wait()
	return err
}

// Family discovers serial ports via goserial.GetPortsList and opens Adapters
// for them.
type Family struct {
	logger logging.Logger
}

// NewFamily returns a Family that logs through logger.
func NewFamily(logger logging.Logger) *Family {
	return &Family{logger: logger}
}

// IOType implements transport.Family.
func (f *Family) IOType() string { return IOType }

// ListDevices implements transport.Family, enumerating the host's serial
// ports.
func (f *Family) ListDevices(ctx context.Context) ([]transport.Descriptor, error) {
	ports, err := goserial.GetPortsList()
	if err != nil {
		return nil, err
	}
	descs := make([]transport.Descriptor, 0, len(ports))
	for _, p := range ports {
		descs = append(descs, transport.Descriptor{
			Name:       p,
			Identifier: p,
			IOType:     IOType,
			BaudRate:   uint32(DefaultBauds[0]),
		})
	}
	return descs, nil
}

// DefaultBaud implements transport.Family.
func (f *Family) DefaultBaud() int { return DefaultBauds[0] }

// Open implements transport.Family.
func (f *Family) Open(ctx context.Context, d transport.Descriptor) (transport.Adapter, error) {
	baud := int(d.BaudRate)
	if baud == 0 {
		baud = f.DefaultBaud()
	}
	return Open(d.Identifier, baud, f.logger)
}
