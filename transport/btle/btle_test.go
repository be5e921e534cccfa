package btle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.viam.com/test"

	"go.viam.com/zensense/logging"
)

// fakePeripheral is an in-memory GATTPeripheral standing in for a real BLE
// connection, the same role transporttest.Adapter plays for session tests.
type fakePeripheral struct {
	mu      sync.Mutex
	writes  [][]byte
	handler func(data []byte)
	closed  bool
}

func (p *fakePeripheral) WriteCharacteristic(handle uint16, data []byte, noRsp bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), data...)
	p.writes = append(p.writes, cp)
	return nil
}

func (p *fakePeripheral) Subscribe(handle uint16, ind bool, handler func(data []byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
	return nil
}

func (p *fakePeripheral) Unsubscribe(handle uint16, ind bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = nil
	return nil
}

func (p *fakePeripheral) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeripheral) notify(data []byte) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(data)
	}
}

func connectorFor(p *fakePeripheral) Connector {
	return func(ctx context.Context, addr string) (GATTPeripheral, error) {
		return p, nil
	}
}

type recordingSubscriber struct {
	got chan []byte
}

func (r *recordingSubscriber) OnBytes(data []byte) {
	r.got <- append([]byte(nil), data...)
}

func TestSendWritesToTxCharacteristic(t *testing.T) {
	peripheral := &fakePeripheral{}
	chars := Characteristics{Addr: "AA:BB", TxHandle: 0x10, RxHandle: 0x11}
	a, err := Open(context.Background(), connectorFor(peripheral), chars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer a.Close()

	test.That(t, a.Send(context.Background(), []byte{1, 2, 3}), test.ShouldBeNil)
	test.That(t, peripheral.writes, test.ShouldHaveLength, 1)
	test.That(t, peripheral.writes[0], test.ShouldResemble, []byte{1, 2, 3})
}

func TestNotificationsForwardToSubscriber(t *testing.T) {
	peripheral := &fakePeripheral{}
	chars := Characteristics{Addr: "AA:BB", TxHandle: 0x10, RxHandle: 0x11}
	a, err := Open(context.Background(), connectorFor(peripheral), chars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer a.Close()

	sub := &recordingSubscriber{got: make(chan []byte, 1)}
	a.SetSubscriber(sub)

	peripheral.notify([]byte{9, 8, 7})
	test.That(t, <-sub.got, test.ShouldResemble, []byte{9, 8, 7})
}

func TestCloseUnsubscribesAndDisconnects(t *testing.T) {
	peripheral := &fakePeripheral{}
	chars := Characteristics{Addr: "AA:BB", TxHandle: 0x10, RxHandle: 0x11}
	a, err := Open(context.Background(), connectorFor(peripheral), chars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, a.Close(), test.ShouldBeNil)
	test.That(t, peripheral.closed, test.ShouldBeTrue)
	test.That(t, peripheral.handler, test.ShouldBeNil)
}

func TestOpenFailsWhenSubscribeFails(t *testing.T) {
	peripheral := &fakePeripheral{}
	failingConnector := func(ctx context.Context, addr string) (GATTPeripheral, error) {
		return failingSubscribe{peripheral}, nil
	}
	chars := Characteristics{Addr: "AA:BB", TxHandle: 0x10, RxHandle: 0x11}
	_, err := Open(context.Background(), failingConnector, chars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, peripheral.closed, test.ShouldBeTrue)
}

type failingSubscribe struct{ *fakePeripheral }

func (failingSubscribe) Subscribe(handle uint16, ind bool, handler func(data []byte)) error {
	return errors.New("subscribe failed")
}

func TestEncodeDecodeIdentifierRoundTrips(t *testing.T) {
	chars := Characteristics{Addr: "AA:BB:CC", TxHandle: 0x10, RxHandle: 0x11}
	decoded, err := decodeIdentifier(encodeIdentifier(chars))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, chars)
}
