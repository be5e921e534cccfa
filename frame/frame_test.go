package frame

import (
	"testing"

	"go.viam.com/test"
)

func feedAll(t *testing.T, p *Parser, data []byte) (Frame, bool) {
	t.Helper()
	for len(data) > 0 {
		n, err := p.Feed(data)
		if err != nil {
			test.That(t, n, test.ShouldBeGreaterThan, 0)
			data = data[n:]
			continue
		}
		data = data[n:]
		if p.Finished() {
			return p.Frame(), true
		}
	}
	return Frame{}, false
}

func TestParseValidFrame(t *testing.T) {
	data := []byte{0x3A, 0x0A, 0x00, 0x0B, 0x00, 0x04, 0x00, 0x01, 0x02, 0x03, 0x04, 0x23, 0x00, 0x0D, 0x0A}

	p := NewParser(VariantLP16)
	fr, ok := feedAll(t, p, data)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fr.Address, test.ShouldEqual, uint16(0x0A))
	test.That(t, fr.Function, test.ShouldEqual, uint16(0x0B))
	test.That(t, fr.Payload, test.ShouldResemble, []byte{0x01, 0x02, 0x03, 0x04})
}

func TestResyncAfterNoise(t *testing.T) {
	valid := []byte{0x3A, 0x0A, 0x00, 0x0B, 0x00, 0x04, 0x00, 0x01, 0x02, 0x03, 0x04, 0x23, 0x00, 0x0D, 0x0A}
	data := append([]byte{0xFF, 0xFF}, valid...)

	p := NewParser(VariantLP16)
	fr, ok := feedAll(t, p, data)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fr.Address, test.ShouldEqual, uint16(0x0A))
	test.That(t, fr.Function, test.ShouldEqual, uint16(0x0B))
	test.That(t, fr.Payload, test.ShouldResemble, []byte{0x01, 0x02, 0x03, 0x04})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 255, 256, 65535} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}

		f := Factory{Variant: VariantLP16}
		encoded, err := f.Encode(7, 42, payload)
		test.That(t, err, test.ShouldBeNil)

		p := NewParser(VariantLP16)
		fr, ok := feedAll(t, p, encoded)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, fr.Address, test.ShouldEqual, uint16(7))
		test.That(t, fr.Function, test.ShouldEqual, uint16(42))
		test.That(t, fr.Payload, test.ShouldResemble, payload)
	}
}

func TestLP8RoundTrip(t *testing.T) {
	f := Factory{Variant: VariantLP8}
	encoded, err := f.Encode(3, 0x12, []byte{9, 8, 7})
	test.That(t, err, test.ShouldBeNil)

	p := NewParser(VariantLP8)
	fr, ok := feedAll(t, p, encoded)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fr.Address, test.ShouldEqual, uint16(3))
	test.That(t, fr.Function, test.ShouldEqual, uint16(0x12))
	test.That(t, fr.Payload, test.ShouldResemble, []byte{9, 8, 7})
}

func TestLP8RejectsFunctionAbove8Bits(t *testing.T) {
	f := Factory{Variant: VariantLP8}
	_, err := f.Encode(0, 0x100, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	f := Factory{Variant: VariantLP16}
	_, err := f.Encode(0, 0, make([]byte, 65536))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEmptyPayloadFrameLength(t *testing.T) {
	f16 := Factory{Variant: VariantLP16}
	encoded, err := f16.Encode(1, 2, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(encoded), test.ShouldEqual, 11)

	f8 := Factory{Variant: VariantLP8}
	encoded8, err := f8.Encode(1, 2, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(encoded8), test.ShouldEqual, 10)
}

func TestChecksumWrapsAt16Bits(t *testing.T) {
	// Force a sum that exceeds 0xFFFF to confirm modulo-2^16 wraparound.
	payload := make([]byte, 65535)
	for i := range payload {
		payload[i] = 0xFF
	}
	got := Checksum(0xFFFF, 0xFFFF, 0xFFFF, payload)

	var want uint16
	want += 0xFFFF
	want += 0xFFFF
	want += 0xFFFF
	for range payload {
		want += 0xFF
	}
	test.That(t, got, test.ShouldEqual, want)
}

func TestPrefixOfFrameIsNotFinished(t *testing.T) {
	full := []byte{0x3A, 0x0A, 0x00, 0x0B, 0x00, 0x04, 0x00, 0x01, 0x02, 0x03, 0x04, 0x23, 0x00, 0x0D, 0x0A}

	for i := 1; i < len(full); i++ {
		p := NewParser(VariantLP16)
		n, err := p.Feed(full[:i])
		test.That(t, err, test.ShouldBeNil)
		test.That(t, n, test.ShouldEqual, i)
		test.That(t, p.Finished(), test.ShouldBeFalse)
	}
}

func TestConcatenatedFramesYieldInOrder(t *testing.T) {
	f := Factory{Variant: VariantLP16}
	a, err := f.Encode(1, 10, []byte("abc"))
	test.That(t, err, test.ShouldBeNil)
	b, err := f.Encode(2, 20, []byte("xy"))
	test.That(t, err, test.ShouldBeNil)
	stream := append(append([]byte{}, a...), b...)

	p := NewParser(VariantLP16)
	var got []Frame
	for len(stream) > 0 {
		n, err := p.Feed(stream)
		test.That(t, err, test.ShouldBeNil)
		stream = stream[n:]
		if p.Finished() {
			got = append(got, p.Frame())
			p.Reset()
		}
	}

	test.That(t, len(got), test.ShouldEqual, 2)
	test.That(t, got[0].Function, test.ShouldEqual, uint16(10))
	test.That(t, got[1].Function, test.ShouldEqual, uint16(20))
}
