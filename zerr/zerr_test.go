package zerr

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestErrorUnwrapsToSentinel(t *testing.T) {
	err := New(KindTransport, "Send", ErrIOTimeout)
	test.That(t, errors.Is(err, ErrIOTimeout), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrIOFailed), test.ShouldBeFalse)
}

func TestErrorIsMatchesByKindAndSentinel(t *testing.T) {
	a := New(KindProtocol, "OnFrame", ErrFrameCorrupt)
	b := New(KindProtocol, "Parse", ErrFrameCorrupt)
	c := New(KindTransport, "Send", ErrFrameCorrupt)

	test.That(t, errors.Is(a, b), test.ShouldBeTrue)
	test.That(t, errors.Is(a, c), test.ShouldBeFalse)
}

func TestKindString(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		want string
	}{
		{KindArgument, "argument"},
		{KindTransport, "transport"},
		{KindProtocol, "protocol"},
		{KindSemantic, "semantic"},
		{KindState, "state"},
	} {
		test.That(t, tc.kind.String(), test.ShouldEqual, tc.want)
	}
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := New(KindSemantic, "GetInt32", ErrUnknownProperty)
	test.That(t, err.Error(), test.ShouldContainSubstring, "GetInt32")
	test.That(t, err.Error(), test.ShouldContainSubstring, "semantic")
}
