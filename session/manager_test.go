package session

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/zensense/config"
	"go.viam.com/zensense/frame"
	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
	"go.viam.com/zensense/transport/transporttest"
)

func deliverLP8(t *testing.T, ad *transporttest.Adapter, addr, function uint16, payload []byte) {
	t.Helper()
	f := frame.Factory{Variant: frame.VariantLP8}
	encoded, err := f.Encode(addr, function, payload)
	test.That(t, err, test.ShouldBeNil)
	ad.Deliver(encoded)
}

func waitForSent(ad *transporttest.Adapter) bool {
	for i := 0; i < 1000; i++ {
		if len(ad.LastSent()) > 0 {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestObtainNegotiatesAndBuildsIMUOnlyComponents(t *testing.T) {
	ad := transporttest.New("serial", "/dev/fake0", []int{115200})
	fam := transporttest.NewFamily("serial", 115200, ad)
	reg := transport.NewRegistry()
	reg.Register(fam)
	mgr := NewManager(reg, logging.NewTestLogger(t))

	type obtained struct {
		s   *Sensor
		err error
	}
	resCh := make(chan obtained, 1)
	go func() {
		s, err := mgr.Obtain(context.Background(), ad.NewDescriptor(), config.Connection{Timeout: time.Second})
		resCh <- obtained{s, err}
	}()

	test.That(t, waitForSent(ad), test.ShouldBeTrue)
	deliverLP8(t, ad, 0, funcVersionReply, []byte{0, 0}) // legacy version, no GNSS

	r := <-resCh
	test.That(t, r.err, test.ShouldBeNil)
	test.That(t, len(r.s.Components()), test.ShouldEqual, 1)
	handle, ok := r.s.AnyComponentOf(ComponentIMUv0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, handle, test.ShouldEqual, ComponentHandle(0))
}

func TestObtainBuildsIMUIG1AndGNSSWhenCapable(t *testing.T) {
	ad := transporttest.New("serial", "/dev/fake1", []int{115200})
	fam := transporttest.NewFamily("serial", 115200, ad)
	reg := transport.NewRegistry()
	reg.Register(fam)
	mgr := NewManager(reg, logging.NewTestLogger(t))

	type obtained struct {
		s   *Sensor
		err error
	}
	resCh := make(chan obtained, 1)
	go func() {
		s, err := mgr.Obtain(context.Background(), ad.NewDescriptor(), config.Connection{Timeout: time.Second})
		resCh <- obtained{s, err}
	}()

	test.That(t, waitForSent(ad), test.ShouldBeTrue)
	deliverLP8(t, ad, 0, funcVersionReply, []byte{byte(newerProtocolVersion), capGNSS})

	r := <-resCh
	test.That(t, r.err, test.ShouldBeNil)
	test.That(t, len(r.s.Components()), test.ShouldEqual, 2)
	_, hasIMU := r.s.AnyComponentOf(ComponentIMUIG1)
	test.That(t, hasIMU, test.ShouldBeTrue)
	_, hasGNSS := r.s.AnyComponentOf(ComponentGNSS)
	test.That(t, hasGNSS, test.ShouldBeTrue)
}

func TestObtainDedupesByIOTypeAndIdentifier(t *testing.T) {
	ad := transporttest.New("serial", "/dev/fake2", []int{115200})
	fam := transporttest.NewFamily("serial", 115200, ad)
	reg := transport.NewRegistry()
	reg.Register(fam)
	mgr := NewManager(reg, logging.NewTestLogger(t))

	resCh := make(chan *Sensor, 1)
	go func() {
		s, err := mgr.Obtain(context.Background(), ad.NewDescriptor(), config.Connection{Timeout: time.Second})
		test.That(t, err, test.ShouldBeNil)
		resCh <- s
	}()
	test.That(t, waitForSent(ad), test.ShouldBeTrue)
	deliverLP8(t, ad, 0, funcVersionReply, []byte{0, 0})
	first := <-resCh

	second, err := mgr.Obtain(context.Background(), ad.NewDescriptor(), config.Connection{Timeout: time.Second})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldEqual, first)
}

func TestDiscoveryEmitsProgressThenFoundThenCompletion(t *testing.T) {
	adA := transporttest.New("serial", "/dev/a", []int{115200})
	adB := transporttest.New("serial", "/dev/b", []int{115200})
	famSerial := transporttest.NewFamily("serial", 115200, adA)
	famCan := transporttest.NewFamily("can", 500000, adB)
	reg := transport.NewRegistry()
	reg.Register(famSerial)
	reg.Register(famCan)
	mgr := NewManager(reg, logging.NewTestLogger(t))

	client := NewClient(mgr, logging.NewTestLogger(t), 16)
	defer client.Close()

	client.ListSensorsAsync(context.Background())

	var kinds []EventKind
	var progresses []float32
	for i := 0; i < 5; i++ {
		ev, err := client.WaitForNextEvent(context.Background())
		test.That(t, err, test.ShouldBeNil)
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventListingProgress {
			progresses = append(progresses, ev.Progress)
		}
	}

	test.That(t, kinds[0], test.ShouldEqual, EventListingProgress)
	test.That(t, kinds[1], test.ShouldEqual, EventListingProgress)
	test.That(t, kinds[2], test.ShouldEqual, EventSensorFound)
	test.That(t, kinds[3], test.ShouldEqual, EventSensorFound)
	test.That(t, kinds[4], test.ShouldEqual, EventListingProgress)
	test.That(t, progresses[0], test.ShouldAlmostEqual, float32(0.25), 1e-6)
	test.That(t, progresses[1], test.ShouldAlmostEqual, float32(0.75), 1e-6)
	test.That(t, progresses[2], test.ShouldAlmostEqual, float32(1.0), 1e-6)
}

func TestReleaseDrainsSensorEventsFromClientQueues(t *testing.T) {
	ad := transporttest.New("serial", "/dev/fake3", []int{115200})
	fam := transporttest.NewFamily("serial", 115200, ad)
	reg := transport.NewRegistry()
	reg.Register(fam)
	mgr := NewManager(reg, logging.NewTestLogger(t))

	resCh := make(chan *Sensor, 1)
	go func() {
		s, err := mgr.Obtain(context.Background(), ad.NewDescriptor(), config.Connection{Timeout: time.Second})
		test.That(t, err, test.ShouldBeNil)
		resCh <- s
	}()
	test.That(t, waitForSent(ad), test.ShouldBeTrue)
	deliverLP8(t, ad, 0, funcVersionReply, []byte{0, 0})
	sensor := <-resCh

	client := NewClient(mgr, logging.NewTestLogger(t), 16)
	defer client.Close()

	mgr.broadcast(Event{Kind: EventIMUData, Sensor: sensor.Handle})
	test.That(t, sensor.Release(), test.ShouldBeNil)

	_, ok := client.PollNextEvent()
	test.That(t, ok, test.ShouldBeFalse)
}
