package canbus

import (
	"context"
	"testing"
	"time"

	"github.com/notnil/canbus"
	"go.viam.com/test"

	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/transport"
)

type recordingSubscriber struct {
	ch chan []byte
}

func (r *recordingSubscriber) OnBytes(data []byte) {
	cp := append([]byte(nil), data...)
	r.ch <- cp
}

func waitForBytes(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bytes")
		return nil
	}
}

func newLoopbackPair(t *testing.T) (hostEp, sensorEp endpoint) {
	t.Helper()
	bus := canbus.NewLoopbackBus()
	return bus.Open(), bus.Open()
}

func TestSendReceiveSingleFrame(t *testing.T) {
	hostEp, sensorEp := newLoopbackPair(t)

	host := newAdapter(hostEp, "can0", 0x100, 0x101, DefaultBitrate, logging.NewTestLogger(t))
	defer host.Close()
	sensor := newAdapter(sensorEp, "can0", 0x101, 0x100, DefaultBitrate, logging.NewTestLogger(t))
	defer sensor.Close()

	sub := &recordingSubscriber{ch: make(chan []byte, 4)}
	sensor.SetSubscriber(sub)

	payload := []byte{1, 2, 3, 4}
	test.That(t, host.Send(context.Background(), payload), test.ShouldBeNil)

	got := waitForBytes(t, sub.ch)
	test.That(t, got, test.ShouldResemble, payload)
}

func TestSendReceiveFragmentsAcrossMultipleFrames(t *testing.T) {
	hostEp, sensorEp := newLoopbackPair(t)

	host := newAdapter(hostEp, "can0", 0x100, 0x101, DefaultBitrate, logging.NewTestLogger(t))
	defer host.Close()
	sensor := newAdapter(sensorEp, "can0", 0x101, 0x100, DefaultBitrate, logging.NewTestLogger(t))
	defer sensor.Close()

	sub := &recordingSubscriber{ch: make(chan []byte, 4)}
	sensor.SetSubscriber(sub)

	payload := make([]byte, 23) // spans 4 CAN frames at 7 payload bytes each
	for i := range payload {
		payload[i] = byte(i)
	}
	test.That(t, host.Send(context.Background(), payload), test.ShouldBeNil)

	got := waitForBytes(t, sub.ch)
	test.That(t, got, test.ShouldResemble, payload)
}

func TestAdapterIgnoresFramesAddressedToOtherIDs(t *testing.T) {
	hostEp, sensorEp := newLoopbackPair(t)

	sensor := newAdapter(sensorEp, "can0", 0x101, 0x100, DefaultBitrate, logging.NewTestLogger(t))
	defer sensor.Close()

	sub := &recordingSubscriber{ch: make(chan []byte, 4)}
	sensor.SetSubscriber(sub)

	var stray canbus.Frame
	stray.ID = 0x200
	stray.Len = 2
	stray.Data[1] = 0xFF
	test.That(t, hostEp.Send(stray), test.ShouldBeNil)

	select {
	case <-sub.ch:
		t.Fatal("adapter delivered a frame addressed to a different rx id")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEncodeDecodeIdentifierRoundTrips(t *testing.T) {
	cfg := BusConfig{Ifname: "can0", TxID: 0x100, RxID: 0x101}
	decoded, err := decodeIdentifier(encodeIdentifier(cfg))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, cfg)
}

func TestFamilyListDevicesReportsConfiguredSensors(t *testing.T) {
	cfg := BusConfig{Ifname: "can0", TxID: 0x100, RxID: 0x101}
	fam := NewFamily(DefaultBitrate, logging.NewTestLogger(t), cfg)

	descs, err := fam.ListDevices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(descs), test.ShouldEqual, 1)
	test.That(t, descs[0].IOType, test.ShouldEqual, IOType)
	test.That(t, descs[0].Identifier, test.ShouldEqual, encodeIdentifier(cfg))

	var _ transport.Descriptor = descs[0]
}
