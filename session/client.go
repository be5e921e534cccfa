package session

import (
	"context"

	"go.uber.org/atomic"

	"go.viam.com/zensense/config"
	"go.viam.com/zensense/internal/eventqueue"
	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
	"go.viam.com/zensense/zerr"
)

// Client is one consumer's view of a Manager: its own bounded event queue
// and discovery subscription, independent of every other Client sharing the
// same Manager. Multiple Clients over one Manager share open sensors but
// never each other's queues — events fan out per client, not broadcast
// into a single shared queue.
type Client struct {
	logger logging.Logger
	mgr    *Manager
	queue  *eventqueue.Queue[Event]

	listening atomic.Bool
	closed    atomic.Bool
}

// NewClient registers a new Client against mgr with the given queue
// capacity (config.DefaultEventQueueCapacity if cap <= 0).
func NewClient(mgr *Manager, logger logging.Logger, queueCapacity int) *Client {
	if queueCapacity <= 0 {
		queueCapacity = config.DefaultEventQueueCapacity
	}
	c := &Client{
		logger: logger,
		mgr:    mgr,
		queue:  eventqueue.New[Event](queueCapacity),
	}
	mgr.registerClient(c, c.queue)
	return c
}

// ListSensorsAsync starts (or joins) a discovery pass; results arrive as
// sensor_found / listing_progress events through WaitForNextEvent and
// PollNextEvent rather than as a synchronous return value.
func (c *Client) ListSensorsAsync(ctx context.Context) {
	if c.closed.Load() {
		return
	}
	c.listening.Store(true)
	c.mgr.beginDiscovery(ctx)
}

// WaitForNextEvent blocks until an event is available, ctx is done, or the
// client is closed. A closed client unblocks every waiter with ErrTerminated
// rather than leaving them parked forever.
func (c *Client) WaitForNextEvent(ctx context.Context) (Event, error) {
	type result struct {
		ev Event
		ok bool
	}
	resCh := make(chan result, 1)
	go func() {
		ev, ok := c.queue.Pop()
		resCh <- result{ev: ev, ok: ok}
	}()

	select {
	case r := <-resCh:
		if !r.ok {
			return Event{}, zerr.New(zerr.KindState, "WaitForNextEvent", zerr.ErrTerminated)
		}
		return r.ev, nil
	case <-ctx.Done():
		return Event{}, zerr.New(zerr.KindTransport, "WaitForNextEvent", ctx.Err())
	}
}

// PollNextEvent returns the next queued event without blocking.
func (c *Client) PollNextEvent() (Event, bool) {
	return c.queue.TryPop()
}

// ObtainSensor opens (or attaches to) the sensor matching d under the given
// connection configuration.
func (c *Client) ObtainSensor(ctx context.Context, d transport.Descriptor, conn config.Connection) (*Sensor, error) {
	if c.closed.Load() {
		return nil, zerr.New(zerr.KindState, "ObtainSensor", zerr.ErrNotInitialized)
	}
	return c.mgr.Obtain(ctx, d, conn)
}

// ObtainSensorByName is a convenience wrapper building a Descriptor from its
// transport coordinates, for callers that already know what they want to
// open rather than discovering it first.
func (c *Client) ObtainSensorByName(ctx context.Context, ioType, identifier string, baud uint32) (*Sensor, error) {
	return c.ObtainSensor(ctx, transport.Descriptor{
		IOType:     ioType,
		Identifier: identifier,
		BaudRate:   baud,
	}, config.Connection{IOType: ioType, Identifier: identifier, BaudRate: baud})
}

// Close detaches the client from its Manager and unblocks any waiter on
// WaitForNextEvent. It does not release any sensor: sensors are shared
// across a Manager's clients and outlive any single Client.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mgr.unregisterClient(c)
	if c.listening.Load() {
		c.mgr.endDiscoverySubscriber()
	}
	c.queue.Close()
	return nil
}
