package decode

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"go.viam.com/test"
)

func putF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func TestDecodeGNSS(t *testing.T) {
	var buf bytes.Buffer
	putU32(&buf, 42)
	putF64(&buf, 37.7749)
	putF64(&buf, -122.4194)
	putF64(&buf, 15.5)
	buf.WriteByte(1) // fix quality
	buf.WriteByte(9) // satellites
	putF32(&buf, 2.5)
	putF64(&buf, 3.2)
	putF64(&buf, 180.0)

	data, err := DecodeGNSS(buf.Bytes())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data.FrameCount, test.ShouldEqual, uint32(42))
	test.That(t, data.Latitude, test.ShouldAlmostEqual, 37.7749, 1e-6)
	test.That(t, data.Longitude, test.ShouldAlmostEqual, -122.4194, 1e-6)
	test.That(t, data.FixQuality, test.ShouldEqual, 1)
	test.That(t, data.SatellitesInUse, test.ShouldEqual, 9)
	test.That(t, data.CourseOverGround, test.ShouldAlmostEqual, 180.0, 1e-6)
}

func TestDecodeGNSSRejectsShortPayload(t *testing.T) {
	_, err := DecodeGNSS([]byte{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}
