// Package zerr defines the error taxonomy shared across zensense's
// subsystems: Argument, Transport, Protocol, Semantic, and State failures.
package zerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the taxonomy buckets a caller might
// want to branch on (e.g. retry Transport errors, surface Argument errors).
type Kind int

const (
	// KindArgument covers null/invalid handles, wrong property types, buffers too small.
	KindArgument Kind = iota
	// KindTransport covers send/read/init failures, bus-busy, timeouts.
	KindTransport
	// KindProtocol covers corrupt frames, unexpected/unsupported functions, missing acks.
	KindProtocol
	// KindSemantic covers unknown properties/commands, wrong sensor or IO type, nacks.
	KindSemantic
	// KindState covers already-initialized, not-initialized, listing-in-progress.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindSemantic:
		return "semantic"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across zensense's public API.
// Op names the failing operation (e.g. "SendAndWaitForAck"); Err, if set, is
// the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As traverse through it.
func (e *Error) Unwrap() error { return e.Err }

// Is lets sentinel comparisons (errors.Is(err, zerr.ErrIOTimeout)) succeed
// without requiring exact *Error pointer identity: two *Error values match if
// their Kind and wrapped sentinel both match.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind && errors.Is(e.Err, other.Err)
	}
	return errors.Is(e.Err, target)
}

// New constructs an Error wrapping cause (which may be nil for a
// sentinel-only error, or one of the package's predefined sentinels).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Sentinels. Each names a specific case from the taxonomy in the core
// design; wrap one of these as the cause of an *Error so callers can use
// errors.Is regardless of which operation produced it.
var (
	// Argument
	ErrNullHandle     = errors.New("null or invalid handle")
	ErrWrongDataType  = errors.New("wrong data type for property")
	ErrBufferTooSmall = errors.New("buffer too small")

	// Transport
	ErrIOFailed   = errors.New("transport send or read failed")
	ErrIOInit     = errors.New("transport initialization failed")
	ErrBusBusy    = errors.New("bus busy")
	ErrIOTimeout  = errors.New("timed out waiting for reply")
	ErrIOClosed   = errors.New("transport closed")

	// Protocol
	ErrFrameCorrupt         = errors.New("frame corrupt")
	ErrUnexpectedFunction   = errors.New("unexpected function in reply")
	ErrUnsupportedFunction  = errors.New("unsupported function")
	ErrExpectedAckMissing   = errors.New("expected ack missing")
	ErrUnknownBaudrates     = errors.New("no known baud rates to try")

	// Semantic
	ErrUnknownProperty  = errors.New("unknown property")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrWrongSensorType  = errors.New("wrong sensor type")
	ErrWrongIOType      = errors.New("wrong io type")
	ErrUnknownDeviceID  = errors.New("unknown device id")
	ErrNack             = errors.New("nack from firmware")

	// State
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrListingInProgress  = errors.New("listing already in progress")
	ErrTerminated         = errors.New("client terminated")
)
