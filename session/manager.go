package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"go.viam.com/zensense/comm"
	"go.viam.com/zensense/config"
	"go.viam.com/zensense/frame"
	"go.viam.com/zensense/internal/eventqueue"
	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
	"go.viam.com/zensense/zerr"
)

// Manager owns every open sensor and the discovery worker that finds new
// ones. It is not a package-level singleton — callers hold it via the
// Clients they construct with it, the same injected-dependency style as
// go.viam.com/rdk/resource.Dependencies.
type Manager struct {
	logger   logging.Logger
	registry *transport.Registry
	clock    clock.Clock

	sensorsMu  sync.Mutex
	sensors    map[SensorHandle]*Sensor
	nextHandle uint64

	clientsMu sync.Mutex
	clients   map[*Client]*eventqueue.Queue[Event]

	discoveryMu   sync.Mutex
	discoverySubs int
	seen          map[string]transport.Descriptor // keyed by ioType+"/"+identifier
}

// NewManager builds a Manager over the given transport family registry.
func NewManager(registry *transport.Registry, logger logging.Logger) *Manager {
	return &Manager{
		logger:   logger,
		registry: registry,
		clock:    clock.New(),
		sensors:  make(map[SensorHandle]*Sensor),
		clients:  make(map[*Client]*eventqueue.Queue[Event]),
		seen:     make(map[string]transport.Descriptor),
	}
}

func seenKey(d transport.Descriptor) string { return d.IOType + "/" + d.Identifier }

// registerClient adds a client's queue to the fan-out set; unregisterClient
// removes it again on Client.Close.
func (m *Manager) registerClient(c *Client, q *eventqueue.Queue[Event]) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	m.clients[c] = q
}

func (m *Manager) unregisterClient(c *Client) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	delete(m.clients, c)
}

func (m *Manager) broadcast(ev Event) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	for _, q := range m.clients {
		q.Push(ev)
	}
}

// beginDiscovery runs one discovery pass across every registered transport
// family, emitting listing_progress and sensor_found events to every
// registered client in a fixed order: a progress event after each family is
// scanned, then a sensor_found per newly seen descriptor, then a final
// listing_progress{1.0}.
//
// Concurrent callers share one scan: a pass already in flight is joined
// rather than duplicated, a cooperative "activated/quiesces" discovery
// protocol.
func (m *Manager) beginDiscovery(ctx context.Context) {
	m.discoveryMu.Lock()
	m.discoverySubs++
	alreadyRunning := m.discoverySubs > 1
	m.discoveryMu.Unlock()
	if alreadyRunning {
		return
	}

	go func() {
		defer func() {
			m.discoveryMu.Lock()
			m.discoverySubs = 0
			m.discoveryMu.Unlock()
		}()
		m.runDiscoveryPass(ctx)
	}()
}

func (m *Manager) endDiscoverySubscriber() {
	m.discoveryMu.Lock()
	defer m.discoveryMu.Unlock()
	if m.discoverySubs > 0 {
		m.discoverySubs--
	}
}

// familyResult holds one family's listing outcome, gathered concurrently
// but reported to clients in family-registration order so the progress
// fractions stay deterministic regardless of which family's I/O happens to
// finish first.
type familyResult struct {
	descs []transport.Descriptor
	err   error
}

func (m *Manager) runDiscoveryPass(ctx context.Context) {
	families := m.registry.Families()
	n := len(families)
	if n == 0 {
		m.broadcast(Event{Kind: EventListingProgress, Progress: 1.0})
		return
	}

	results := make([]familyResult, n)
	var eg errgroup.Group
	for i, fam := range families {
		i, fam := i, fam
		eg.Go(func() error {
			descs, err := fam.ListDevices(ctx)
			results[i] = familyResult{descs: descs, err: err}
			return nil
		})
	}
	_ = eg.Wait() // per-family errors are carried in results, not fatal to the pass

	var found []transport.Descriptor
	for i, fam := range families {
		res := results[i]
		if res.err != nil {
			m.logger.Warnw("discovery: family listing failed", "io_type", fam.IOType(), "error", res.err)
		}
		for _, d := range res.descs {
			key := seenKey(d)
			m.discoveryMu.Lock()
			_, dup := m.seen[key]
			if !dup {
				m.seen[key] = d
			}
			m.discoveryMu.Unlock()
			if !dup {
				found = append(found, d)
			}
		}

		progress := (float32(i) + 0.5) / float32(n)
		m.broadcast(Event{Kind: EventListingProgress, Progress: progress})
	}

	for _, d := range found {
		desc := d
		m.broadcast(Event{Kind: EventSensorFound, Found: &desc})
	}

	m.broadcast(Event{Kind: EventListingProgress, Progress: 1.0})
}

// Obtain opens (or returns the already-open) sensor matching d.
func (m *Manager) Obtain(ctx context.Context, d transport.Descriptor, conn config.Connection) (*Sensor, error) {
	m.sensorsMu.Lock()
	for _, s := range m.sensors {
		if s.IOType == d.IOType && s.Identifier == d.Identifier {
			m.sensorsMu.Unlock()
			return s, nil
		}
	}
	m.sensorsMu.Unlock()

	fam, ok := m.registry.ByIOType(d.IOType)
	if !ok {
		return nil, zerr.New(zerr.KindSemantic, "Obtain", zerr.ErrWrongIOType)
	}

	baud := int(d.BaudRate)
	if baud == 0 {
		baud = fam.DefaultBaud()
	}

	ad, err := fam.Open(ctx, d)
	if err != nil {
		return nil, zerr.New(zerr.KindTransport, "Obtain", err)
	}

	sensor := &Sensor{
		IOType:     d.IOType,
		Identifier: d.Identifier,
		transport:  ad,
		mgr:        m,
	}

	if err := m.negotiate(ctx, sensor, ad, baud, conn); err != nil {
		_ = ad.Close()
		return nil, err
	}

	m.sensorsMu.Lock()
	m.nextHandle++
	sensor.Handle = SensorHandle(m.nextHandle)
	m.sensors[sensor.Handle] = sensor
	m.sensorsMu.Unlock()

	return sensor, nil
}

// releaseSensor removes s from the sensor map and drains every client
// queue of s's already-enqueued events, the "queue drained of a sensor's
// events on release" invariant: a client must never observe an event for a
// sensor handle it can no longer act on.
func (m *Manager) releaseSensor(s *Sensor) {
	m.sensorsMu.Lock()
	delete(m.sensors, s.Handle)
	m.sensorsMu.Unlock()

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	for _, q := range m.clients {
		q.DropWhere(func(ev Event) bool { return ev.Sensor == s.Handle })
	}
}

// negotiate probes the sensor for its protocol version, falling back across
// the adapter's supported baud rates in decreasing order on no reply, then
// builds the sensor's Communicator/SyncedCommunicator stack (swapping to
// the u16-function codec if the reported version is new enough) and
// constructs its components.
func (m *Manager) negotiate(ctx context.Context, sensor *Sensor, ad transport.Adapter, initialBaud int, conn config.Connection) error {
	bauds := ad.SupportedBauds()
	if len(bauds) == 0 {
		bauds = []int{initialBaud}
	}

	var lastErr error
	for _, baud := range descendingFrom(bauds, initialBaud) {
		if err := ad.SetBaud(baud); err != nil {
			lastErr = err
			continue
		}

		c := comm.NewCommunicator(ad, frame.VariantLP8, sensor, m.logger.Named(fmt.Sprintf("%s/%s", sensor.IOType, sensor.Identifier)))
		synced := comm.NewSyncedCommunicator(c, sensor, m.logger, comm.Config{
			Timeout:  conn.TimeoutOrDefault(),
			Clock:    m.clock,
			AckFunc:  funcAck,
			NackFunc: funcNack,
		})
		sensor.communicator = c
		sensor.synced = synced

		result, err := synced.SendAndWaitForResult(ctx, 0, funcVersionProbe, funcVersionReply, nil, func(b []byte) (any, error) {
			if len(b) < 2 {
				return nil, zerr.New(zerr.KindProtocol, "negotiate", zerr.ErrFrameCorrupt)
			}
			return [2]byte{b[0], b[1]}, nil
		})
		if err != nil {
			lastErr = err
			continue
		}

		raw := result.([2]byte)
		protocolVersion := uint16(raw[0])
		capabilities := raw[1]

		if protocolVersion >= newerProtocolVersion {
			c.SwapCodec(frame.VariantLP16)
		}

		sensor.componentsMu.Lock()
		sensor.components = append(sensor.components, newIMUComponent(protocolVersion))
		if capabilities&capGNSS != 0 {
			sensor.components = append(sensor.components, newGNSSComponent())
		}
		for i, comp := range sensor.components {
			comp.Properties.Observe(propertyObserver{sensor: sensor, component: ComponentHandle(i)})
		}
		sensor.componentsMu.Unlock()

		return nil
	}

	if lastErr == nil {
		lastErr = zerr.ErrUnknownBaudrates
	}
	return zerr.New(zerr.KindTransport, "negotiate", lastErr)
}

// descendingFrom returns bauds sorted with initial first, then the rest in
// decreasing order, so negotiation retries across the supported baud-rate
// list starting from whatever rate the caller (or the family default)
// initially requested.
func descendingFrom(bauds []int, initial int) []int {
	out := make([]int, 0, len(bauds)+1)
	out = append(out, initial)
	sorted := append([]int(nil), bauds...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] > sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	for _, b := range sorted {
		if b != initial {
			out = append(out, b)
		}
	}
	return out
}

// OnFrame implements comm.FrameSubscriber directly on Sensor in negotiate's
// construction of the Communicator — required so the SyncedCommunicator can
// be told apart from the raw frame dispatch the Communicator performs
// before any SyncedCommunicator exists. Before negotiation completes the
// Sensor simply forwards to whatever SyncedCommunicator it currently holds,
// once assigned.
func (s *Sensor) OnFrame(addr, function uint16, payload []byte) {
	if s.synced != nil {
		s.synced.OnFrame(addr, function, payload)
	}
}

// OnDataFrame implements comm.EventSink: the SyncedCommunicator routes
// unsolicited frames here, and Sensor dispatches them to the matching
// component's decoder before fanning the decoded Event out through the
// owning Manager to every client.
func (s *Sensor) OnDataFrame(addr, function uint16, payload []byte) {
	ev, ok := s.routeDataFrame(addr, function, payload)
	if !ok {
		return
	}
	s.mgr.broadcast(ev)
}
