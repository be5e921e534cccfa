// Package canbus implements transport.Adapter over a CAN bus using
// github.com/notnil/canbus, fragmenting payloads larger than one 8-byte CAN
// datagram and reassembling them on receive via a continuation bit in the
// first data byte.
package canbus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/notnil/canbus"
	"go.viam.com/utils"

	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
)

// IOType is this family's transport.Descriptor.IOType value.
const IOType = "can"

// DefaultBitrate is used when a caller obtains a sensor without specifying
// one; CAN "baud" in transport.Descriptor terms is the bus bitrate.
const DefaultBitrate = 500000

// pollInterval is the poll cadence for the receive loop: a plain ticker
// matching the 1ms cadence the original SensorManager.cpp poll loop uses.
// Each open Adapter runs its own poll goroutine, stopped through its own
// cancelCtx, the same shape as the serial adapter's reader goroutine.
const pollInterval = time.Millisecond

const (
	flagContinuation byte = 1 << 0
	maxChunk              = 7 // one CAN frame: 1 header byte + 7 payload bytes
)

// endpoint is the subset of *canbus.Endpoint this adapter depends on,
// satisfied both by a real bus connection and by canbus.NewLoopbackBus's
// Open() result, the same Endpoint shape the reference CANopen test drives.
type endpoint interface {
	Send(canbus.Frame) error
	Receive() (canbus.Frame, error)
	Close() error
}

// Adapter is a transport.Adapter over one CAN endpoint, addressed by a
// fixed CAN ID pair (one ID for sensor->host, one for host->sensor).
type Adapter struct {
	ep       endpoint
	ifname   string
	txID     uint32
	rxID     uint32
	bitrate  int

	cancelCtx  context.Context
	cancelFunc func()

	activeBackgroundWorkers sync.WaitGroup

	mu         sync.Mutex
	subscriber transport.Subscriber
	closed     bool
	reassembly []byte

	logger logging.Logger
}

// Open connects to ifname (e.g. "can0") and starts the adapter's poll loop.
// txID/rxID split the otherwise-shared CAN arbitration ID space the way
// SensorManager.cpp's sensorLoop addresses one device at a time.
func Open(ifname string, txID, rxID uint32, bitrate int, logger logging.Logger) (*Adapter, error) {
	ep, err := canbus.New(ifname)
	if err != nil {
		return nil, err
	}
	return newAdapter(ep, ifname, txID, rxID, bitrate, logger), nil
}

func newAdapter(ep endpoint, ifname string, txID, rxID uint32, bitrate int, logger logging.Logger) *Adapter {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	a := &Adapter{
		ep:         ep,
		ifname:     ifname,
		txID:       txID,
		rxID:       rxID,
		bitrate:    bitrate,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
		logger:     logger,
	}
	a.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() { a.pollLoop(cancelCtx) })
	return a
}

func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.activeBackgroundWorkers.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f, err := a.ep.Receive()
		if err != nil {
			continue // no frame ready this tick; not a fatal condition
		}
		if f.ID != a.rxID {
			continue
		}
		a.handleFrame(f)
	}
}

func (a *Adapter) handleFrame(f canbus.Frame) {
	if f.Len == 0 {
		return
	}
	header := f.Data[0]
	chunk := append([]byte(nil), f.Data[1:f.Len]...)

	a.mu.Lock()
	a.reassembly = append(a.reassembly, chunk...)
	if header&flagContinuation != 0 {
		a.mu.Unlock()
		return
	}
	complete := a.reassembly
	a.reassembly = nil
	sub := a.subscriber
	a.mu.Unlock()

	if sub != nil && len(complete) > 0 {
		sub.OnBytes(complete)
	}
}

// Send implements transport.Adapter, fragmenting data into consecutive
// 7-byte-payload CAN frames addressed to txID.
func (a *Adapter) Send(ctx context.Context, data []byte) error {
	for offset := 0; offset < len(data) || offset == 0; {
		end := offset + maxChunk
		last := end >= len(data)
		if last {
			end = len(data)
		}
		chunk := data[offset:end]

		var frame canbus.Frame
		frame.ID = a.txID
		frame.Len = uint8(len(chunk) + 1)
		if !last {
			frame.Data[0] = flagContinuation
		}
		copy(frame.Data[1:], chunk)

		if err := a.ep.Send(frame); err != nil {
			return err
		}

		offset = end
		if last {
			break
		}
	}
	return nil
}

// SetBaud sets the adapter's notion of bus bitrate. The bitrate of an
// already-open CAN interface is a kernel/driver-level property this library
// does not expose a setter for, so this only updates the cached value
// negotiation falls back across; a bitrate change on a live bus requires
// reopening the interface.
func (a *Adapter) SetBaud(rate int) error {
	a.mu.Lock()
	a.bitrate = rate
	a.mu.Unlock()
	return nil
}

// Baud implements transport.Adapter.
func (a *Adapter) Baud() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bitrate
}

// SupportedBauds implements transport.Adapter. CAN bitrate is fixed at bus
// bring-up time in practice, so this reports only the currently configured
// rate.
func (a *Adapter) SupportedBauds() []int {
	return []int{a.Baud()}
}

// Type implements transport.Adapter.
func (a *Adapter) Type() string { return IOType }

// Identifier implements transport.Adapter, returning the same
// ifname:txID:rxID encoding Family.ListDevices reports so a descriptor
// round-trips back to the adapter that was opened for it.
func (a *Adapter) Identifier() string {
	return encodeIdentifier(BusConfig{Ifname: a.ifname, TxID: a.txID, RxID: a.rxID})
}

// Equals implements transport.Adapter.
func (a *Adapter) Equals(d transport.Descriptor) bool {
	return d.IOType == IOType && d.Identifier == a.Identifier()
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

// Close implements transport.Adapter.
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
	err := a.ep.Close()
	a.activeBackgroundWorkers.Wait()
	return err
}

// BusConfig names one addressable sensor on a CAN interface: the interface
// name plus the arbitration ID pair it uses for host->sensor (txID from the
// host's perspective) and sensor->host (rxID) frames.
type BusConfig struct {
	Ifname string
	TxID   uint32
	RxID   uint32
}

// encodeIdentifier packs a BusConfig into the single string
// transport.Descriptor.Identifier carries, since CAN interfaces have no
// per-sensor serial number to key discovery on the way serialio keys on a
// device path.
func encodeIdentifier(cfg BusConfig) string {
	return fmt.Sprintf("%s:%#x:%#x", cfg.Ifname, cfg.TxID, cfg.RxID)
}

func decodeIdentifier(identifier string) (BusConfig, error) {
	parts := strings.Split(identifier, ":")
	if len(parts) != 3 {
		return BusConfig{}, fmt.Errorf("canbus: malformed identifier %q", identifier)
	}
	txID, err := strconv.ParseUint(parts[1], 0, 32)
	if err != nil {
		return BusConfig{}, fmt.Errorf("canbus: malformed tx id in %q: %w", identifier, err)
	}
	rxID, err := strconv.ParseUint(parts[2], 0, 32)
	if err != nil {
		return BusConfig{}, fmt.Errorf("canbus: malformed rx id in %q: %w", identifier, err)
	}
	return BusConfig{Ifname: parts[0], TxID: uint32(txID), RxID: uint32(rxID)}, nil
}

// Family discovers the statically configured set of CAN-attached sensors
// given to NewFamily and opens Adapters for them. Unlike serialio's
// Family, CAN buses have no per-device enumeration API analogous to
// GetPortsList: which arbitration IDs are in use on a given interface is
// system configuration, not something the bus itself reports.
type Family struct {
	logger  logging.Logger
	bitrate int
	configs []BusConfig
}

// NewFamily returns a Family that will report configs as discoverable
// sensors and open them at bitrate.
func NewFamily(bitrate int, logger logging.Logger, configs ...BusConfig) *Family {
	return &Family{logger: logger, bitrate: bitrate, configs: configs}
}

// IOType implements transport.Family.
func (f *Family) IOType() string { return IOType }

// ListDevices implements transport.Family.
func (f *Family) ListDevices(ctx context.Context) ([]transport.Descriptor, error) {
	descs := make([]transport.Descriptor, 0, len(f.configs))
	for _, cfg := range f.configs {
		descs = append(descs, transport.Descriptor{
			Name:       cfg.Ifname,
			Identifier: encodeIdentifier(cfg),
			IOType:     IOType,
			BaudRate:   uint32(f.bitrate),
		})
	}
	return descs, nil
}

// DefaultBaud implements transport.Family.
func (f *Family) DefaultBaud() int { return f.bitrate }

// Open implements transport.Family.
func (f *Family) Open(ctx context.Context, d transport.Descriptor) (transport.Adapter, error) {
	cfg, err := decodeIdentifier(d.Identifier)
	if err != nil {
		return nil, err
	}
	bitrate := int(d.BaudRate)
	if bitrate == 0 {
		bitrate = f.bitrate
	}
	return Open(cfg.Ifname, cfg.TxID, cfg.RxID, bitrate, f.logger)
}
