package comm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"go.viam.com/zensense/logging"
	"go.viam.com/zensense/zerr"
)

// EventSink receives frames that did not resolve an open turn — unsolicited
// sensor data, routed onward to the session package's event queues.
type EventSink interface {
	OnDataFrame(addr, function uint16, payload []byte)
}

// Config configures a SyncedCommunicator's timeout and protocol constants.
type Config struct {
	// Timeout bounds every SendAndWaitFor* call. Zero resolves immediately
	// with zerr.ErrIOTimeout, per the core's documented boundary behavior.
	Timeout time.Duration
	// Clock is used for the timeout timer; defaults to the real wall clock.
	// Tests inject a clock.NewMock() for deterministic timeout behavior.
	Clock clock.Clock
	// AckFunc and NackFunc are the protocol's universal positive/negative
	// acknowledgement function codes, recognized regardless of which call
	// is outstanding.
	AckFunc  uint16
	NackFunc uint16
}

type turnState struct {
	expectedReplyFunc uint16
	resultCh          chan turnOutcome
}

type turnOutcome struct {
	payload []byte
	err     error
}

// SyncedCommunicator turns the Communicator's push-based frame arrivals into
// synchronous request/reply calls: at most one request outstanding per
// sensor at a time, enforced by turnMu.
type SyncedCommunicator struct {
	comm      *Communicator
	eventSink EventSink
	logger    logging.Logger
	cfg       Config

	turnMu   sync.Mutex
	openTurn atomic.Pointer[turnState]

	streamData atomic.Bool
}

// NewSyncedCommunicator builds a SyncedCommunicator atop comm, routing
// unsolicited frames to sink. It registers itself as comm's FrameSubscriber
// indirectly — callers must construct comm with this SyncedCommunicator as
// its subscriber (see NewCommunicator).
func NewSyncedCommunicator(comm *Communicator, sink EventSink, logger logging.Logger, cfg Config) *SyncedCommunicator {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &SyncedCommunicator{
		comm:      comm,
		eventSink: sink,
		logger:    logger,
		cfg:       cfg,
	}
}

// StreamData reports the last observed value of the stream_data property,
// cached with eventual-consistency semantics per the core design.
func (s *SyncedCommunicator) StreamData() bool { return s.streamData.Load() }

// SetStreamDataCache updates the cached stream_data value; called whenever a
// setter for that property is observed to succeed.
func (s *SyncedCommunicator) SetStreamDataCache(v bool) { s.streamData.Store(v) }

// SendAndWaitForAck issues a request and blocks until the matching ack,
// nack, timeout, or transport failure.
func (s *SyncedCommunicator) SendAndWaitForAck(ctx context.Context, addr, reqFunc, ackFunc uint16, payload []byte) error {
	_, err := s.call(ctx, addr, reqFunc, ackFunc, payload, nil)
	return err
}

// SendAndWaitForResult issues a request and decodes the typed reply payload
// with decode.
func (s *SyncedCommunicator) SendAndWaitForResult(ctx context.Context, addr, reqFunc, replyFunc uint16, payload []byte, decode func([]byte) (any, error)) (any, error) {
	return s.call(ctx, addr, reqFunc, replyFunc, payload, decode)
}

// SendAndWaitForArray issues a request expecting an array-shaped reply,
// copying the decoded bytes into out and returning the number of bytes
// written. If the reply is larger than out, zerr.ErrBufferTooSmall is
// returned and no partial copy is made.
func (s *SyncedCommunicator) SendAndWaitForArray(ctx context.Context, addr, reqFunc, replyFunc uint16, payload []byte, out []byte) (int, error) {
	result, err := s.call(ctx, addr, reqFunc, replyFunc, payload, func(b []byte) (any, error) {
		if len(b) > len(out) {
			return nil, zerr.New(zerr.KindArgument, "SendAndWaitForArray", zerr.ErrBufferTooSmall)
		}
		return b, nil
	})
	if err != nil {
		return 0, err
	}
	b := result.([]byte)
	n := copy(out, b)
	return n, nil
}

// Publish sends a frame without waiting for any reply — fire and forget.
func (s *SyncedCommunicator) Publish(ctx context.Context, addr, function uint16, payload []byte) error {
	if err := s.comm.Send(ctx, addr, function, payload); err != nil {
		return zerr.New(zerr.KindTransport, "Publish", err)
	}
	return nil
}

// call is the shared body of SendAndWaitForAck/Result/Array: acquire the
// turn lock, transmit, and block until the reply/ack/nack/timeout/transport
// failure resolves it. decode is nil for plain ack waits.
func (s *SyncedCommunicator) call(ctx context.Context, addr, reqFunc, expectedReplyFunc uint16, payload []byte, decode func([]byte) (any, error)) (any, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if s.cfg.Timeout <= 0 {
		return nil, zerr.New(zerr.KindTransport, "SendAndWait", zerr.ErrIOTimeout)
	}

	turn := &turnState{
		expectedReplyFunc: expectedReplyFunc,
		resultCh:          make(chan turnOutcome, 1),
	}
	s.openTurn.Store(turn)
	defer s.openTurn.Store(nil)

	if err := s.comm.Send(ctx, addr, reqFunc, payload); err != nil {
		return nil, zerr.New(zerr.KindTransport, "SendAndWait", err)
	}

	timer := s.cfg.Clock.Timer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case outcome := <-turn.resultCh:
		if outcome.err != nil {
			return nil, outcome.err
		}
		if decode == nil {
			return nil, nil
		}
		return decode(outcome.payload)

	case <-timer.C:
		return nil, zerr.New(zerr.KindTransport, "SendAndWait", zerr.ErrIOTimeout)

	case <-ctx.Done():
		return nil, zerr.New(zerr.KindTransport, "SendAndWait", ctx.Err())
	}
}

// OnFrame implements FrameSubscriber, invoked on the reader goroutine
// outside the turn lock. It classifies the arriving frame per the core
// design: ack/nack resolves an open turn's wait; a matching reply function
// resolves it with payload; anything else is unsolicited data, forwarded to
// the event sink.
func (s *SyncedCommunicator) OnFrame(addr, function uint16, payload []byte) {
	turn := s.openTurn.Load()
	if turn != nil {
		switch {
		case function == s.cfg.NackFunc:
			s.resolve(turn, turnOutcome{err: zerr.New(zerr.KindSemantic, "OnFrame", zerr.ErrNack)})
			return
		case function == s.cfg.AckFunc || function == turn.expectedReplyFunc:
			s.resolve(turn, turnOutcome{payload: payload})
			return
		}
	}

	s.eventSink.OnDataFrame(addr, function, payload)
}

// resolve delivers outcome to turn's channel without blocking — the channel
// is always buffered 1 and only ever written once, but a defensive
// non-blocking send avoids wedging the reader goroutine if a turn was
// somehow already resolved (e.g. concurrently timed out).
func (s *SyncedCommunicator) resolve(turn *turnState, outcome turnOutcome) {
	select {
	case turn.resultCh <- outcome:
	default:
	}
}

// Resolve unblocks any outstanding call with a transport failure — used by
// the session package when a sensor's transport drops.
func (s *SyncedCommunicator) Resolve(err error) {
	if turn := s.openTurn.Load(); turn != nil {
		s.resolve(turn, turnOutcome{err: zerr.New(zerr.KindTransport, "OnTransportClosed", err)})
	}
}

// ConfigClassCall wraps fn with the pause-around-streaming discipline: if
// the cached stream_data is true, disable streaming, run fn, then
// best-effort re-enable it. A failure to re-enable is logged, never
// returned — the primary call's result is authoritative.
func (s *SyncedCommunicator) ConfigClassCall(
	ctx context.Context,
	addr uint16,
	disableFunc, disableAck, enableFunc, enableAck uint16,
	fn func() error,
) error {
	wasStreaming := s.streamData.Load()
	if !wasStreaming {
		return fn()
	}

	if err := s.SendAndWaitForAck(ctx, addr, disableFunc, disableAck, nil); err != nil {
		return multierr.Combine(zerr.New(zerr.KindTransport, "ConfigClassCall.disableStream", err))
	}
	s.streamData.Store(false)

	primaryErr := fn()

	if err := s.SendAndWaitForAck(ctx, addr, enableFunc, enableAck, nil); err != nil {
		s.logger.Warnw("failed to re-enable streaming after config-class call", "error", err)
	} else {
		s.streamData.Store(true)
	}

	return primaryErr
}
