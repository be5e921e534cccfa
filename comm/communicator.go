// Package comm glues the frame codec to a transport.Adapter (Communicator)
// and turns the resulting push-based frame stream into synchronous
// request/reply calls (SyncedCommunicator) — the request/response
// coordinator at the heart of the core.
package comm

import (
	"context"
	"sync/atomic"

	"go.viam.com/zensense/frame"
	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
)

// FrameSubscriber receives fully decoded frames from a Communicator. The
// SyncedCommunicator is always the subscriber in production; tests may
// substitute their own.
type FrameSubscriber interface {
	OnFrame(addr, function uint16, payload []byte)
}

// codecPair bundles a parser and factory so they can be swapped atomically
// as one unit during protocol-version negotiation.
type codecPair struct {
	parser  *frame.Parser
	factory frame.Factory
}

// Communicator owns the codec and the transport, translating between
// logical frames and wire bytes. It is the transport.Subscriber registered
// on the Adapter.
type Communicator struct {
	logger     logging.Logger
	transport  transport.Adapter
	subscriber FrameSubscriber

	codec atomic.Pointer[codecPair]

	// swapping guards SwapCodec itself; only the negotiation caller ever
	// calls SwapCodec, so a plain mutex (via this flag) is enough — see the
	// core design's note that a spinlock is only needed for true
	// sub-microsecond contention, which doesn't apply to the writer side.
	swapping atomic.Bool
}

// NewCommunicator constructs a Communicator with the initial codec variant
// and registers itself as t's subscriber.
func NewCommunicator(t transport.Adapter, variant frame.Variant, subscriber FrameSubscriber, logger logging.Logger) *Communicator {
	c := &Communicator{
		transport:  t,
		subscriber: subscriber,
		logger:     logger,
	}
	c.codec.Store(&codecPair{
		parser:  frame.NewParser(variant),
		factory: frame.Factory{Variant: variant},
	})
	t.SetSubscriber(c)
	return c
}

// Send serializes (addr, function, payload) with the current factory and
// writes it to the transport.
func (c *Communicator) Send(ctx context.Context, addr, function uint16, payload []byte) error {
	cp := c.codec.Load()
	encoded, err := cp.factory.Encode(addr, function, payload)
	if err != nil {
		return err
	}
	return c.transport.Send(ctx, encoded)
}

// SwapCodec atomically replaces the parser and factory with a freshly built
// pair for the new variant — used once, after connection negotiation
// determines the sensor speaks the newer wire layout. Building the new
// parser immutably and swapping the pointer (rather than mutating the
// existing parser in place) avoids any window where the reader goroutine
// could observe a half-updated parser.
func (c *Communicator) SwapCodec(variant frame.Variant) {
	if !c.swapping.CompareAndSwap(false, true) {
		// a call that overlaps an in-flight swap is ignored; the flag is
		// cleared again once a swap finishes.
		return
	}
	defer c.swapping.Store(false)

	c.codec.Store(&codecPair{
		parser:  frame.NewParser(variant),
		factory: frame.Factory{Variant: variant},
	})
}

// OnBytes implements transport.Subscriber. It drives the parser across as
// much of data as is available, dispatching every completed frame to the
// subscriber. On a parse error, it resyncs by dropping exactly one byte from
// the data handed to this call and reparsing everything after it — including
// whatever the failed attempt itself consumed, since a parse error (e.g. a
// bad checksum) means that span was misinterpreted, not genuinely consumed,
// and may still contain a real frame start.
func (c *Communicator) OnBytes(data []byte) {
	for len(data) > 0 {
		cp := c.codec.Load()

		n, err := cp.parser.Feed(data)
		if err != nil {
			c.logger.Debugw("frame parse error, resyncing", "error", err.Error())
			cp.parser.Reset()
			data = data[1:]
			continue
		}
		data = data[n:]

		if cp.parser.Finished() {
			fr := cp.parser.Frame()
			c.dispatch(fr)
			cp.parser.Reset()
		}
	}
}

func (c *Communicator) dispatch(fr frame.Frame) {
	defer func() {
		// A misbehaving subscriber must never take down the reader
		// goroutine; log and discard, per the core design's resolution of
		// "what to do on a subscriber failure".
		if r := recover(); r != nil {
			c.logger.Errorw("frame subscriber panicked, discarding frame", "recovered", r)
		}
	}()
	c.subscriber.OnFrame(fr.Address, fr.Function, fr.Payload)
}
