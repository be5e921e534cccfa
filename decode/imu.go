// Package decode implements the pure byte-to-Event payload decoders for
// each sensor family component: legacy IMU-v0, the newer bitset-driven
// IMU-IG1 (32-bit float and 16-bit fixed-point variants), and GNSS/NMEA.
// Every decoder here is a pure function — no I/O, no locking — from raw
// frame bytes to a typed data record.
package decode

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"

	"go.viam.com/zensense/zerr"
)

// IMUData is the decoded payload for both IMU-v0 and IMU-IG1 components.
// Fields that a given wire format or output-data bitset doesn't populate
// are left at their zero value.
type IMUData struct {
	FrameCount uint32
	Timestamp  float64

	AccRaw, AccCalib                 r3.Vector
	Gyro1Raw, Gyro2Raw                r3.Vector
	Gyro1BiasCalib, Gyro2BiasCalib     r3.Vector
	Gyro1AlignCalib, Gyro2AlignCalib   r3.Vector
	MagRaw, MagCalib                  r3.Vector
	AngularVelocity                   r3.Vector
	Quaternion                        mgl32.Quat
	Euler                             r3.Vector
	LinearAcc                         r3.Vector
	Pressure, Altitude, Temperature    float32
}

// timestampTick is the IG1's fixed per-frame time step in seconds, used to
// turn the raw frame counter into a timestamp (e.g. frame 123 -> 123 *
// 0.002 seconds).
const timestampTick = 0.002

// DecodeIMUv0 decodes the legacy fixed-layout IMU frame: a u32 frame
// counter followed by acceleration, gyro, magnetometer, and Euler-angle
// 3-vectors, each three IEEE-754 float32s.
func DecodeIMUv0(payload []byte) (IMUData, error) {
	const wantLen = 4 + 4*3*4
	if len(payload) < wantLen {
		return IMUData{}, zerr.New(zerr.KindProtocol, "DecodeIMUv0", zerr.ErrFrameCorrupt)
	}
	r := &byteReader{buf: payload}
	frameCount := r.u32()
	data := IMUData{
		FrameCount: frameCount,
		Timestamp:  float64(frameCount) * timestampTick,
		AccCalib:   r.vec3f32(),
		Gyro1Raw:   r.vec3f32(),
		MagCalib:   r.vec3f32(),
		Euler:      r.vec3f32(),
	}
	return data, r.err
}

// OutputBit names one bit of the IG1's output-data bitset, each enabling
// one field group in the streamed payload, in wire order.
type OutputBit uint32

const (
	BitAccRaw OutputBit = 1 << iota
	BitAccCalib
	BitGyro1Raw
	BitGyro2Raw
	BitGyro1BiasCalib
	BitGyro2BiasCalib
	BitGyro1AlignCalib
	BitGyro2AlignCalib
	BitMagRaw
	BitMagCalib
	BitAngularVelocity
	BitQuaternion
	BitEuler
	BitLinearAcc
	BitPressure
	BitAltitude
)

// BitTemperature is bit 16 — beyond the low 16 bits above, so it gets its
// own named constant rather than extending the iota run.
const BitTemperature OutputBit = 1 << 16

// ig1FieldMultiplier is the int16 fixed-point scale factor applied to each
// field group in the IG1's 16-bit low-precision wire mode. Not recoverable
// from the available reference source (the firmware's exact per-field
// scale table lives outside the retrieved original_source slice); chosen to
// keep each field within its natural physical range at int16 resolution.
const (
	multAcc      = 1000.0
	multGyro     = 10.0
	multMag      = 100.0
	multAngVel   = 100.0
	multQuat     = 10000.0
	multEuler    = 100.0
	multLinAcc   = 1000.0
	multPressure = 100.0
	multAltitude = 100.0
	multTemp     = 100.0
)

// DecodeIMUIG1 decodes an IG1 streaming payload given the output-data
// bitset that was configured through the int32 output_bitset property and whether
// the sensor is in 16-bit low-precision mode. Field order follows the
// bitset's bit order, least-significant first, with bit 16 (temperature)
// always last when present.
func DecodeIMUIG1(bitset uint32, lowPrecision bool, payload []byte) (IMUData, error) {
	r := &byteReader{buf: payload}

	data := IMUData{FrameCount: r.u32()}
	data.Timestamp = float64(data.FrameCount) * timestampTick

	readVec := func(mult float32) r3.Vector {
		if lowPrecision {
			return r.vec3i16(mult)
		}
		return r.vec3f32()
	}
	readScalar := func(mult float32) float32 {
		if lowPrecision {
			return r.i16(mult)
		}
		return r.f32()
	}

	if bitset&uint32(BitAccRaw) != 0 {
		data.AccRaw = readVec(multAcc)
	}
	if bitset&uint32(BitAccCalib) != 0 {
		data.AccCalib = readVec(multAcc)
	}
	if bitset&uint32(BitGyro1Raw) != 0 {
		data.Gyro1Raw = readVec(multGyro)
	}
	if bitset&uint32(BitGyro2Raw) != 0 {
		data.Gyro2Raw = readVec(multGyro)
	}
	if bitset&uint32(BitGyro1BiasCalib) != 0 {
		data.Gyro1BiasCalib = readVec(multGyro)
	}
	if bitset&uint32(BitGyro2BiasCalib) != 0 {
		data.Gyro2BiasCalib = readVec(multGyro)
	}
	if bitset&uint32(BitGyro1AlignCalib) != 0 {
		data.Gyro1AlignCalib = readVec(multGyro)
	}
	if bitset&uint32(BitGyro2AlignCalib) != 0 {
		data.Gyro2AlignCalib = readVec(multGyro)
	}
	if bitset&uint32(BitMagRaw) != 0 {
		data.MagRaw = readVec(multMag)
	}
	if bitset&uint32(BitMagCalib) != 0 {
		data.MagCalib = readVec(multMag)
	}
	if bitset&uint32(BitAngularVelocity) != 0 {
		data.AngularVelocity = readVec(multAngVel)
	}
	if bitset&uint32(BitQuaternion) != 0 {
		if lowPrecision {
			data.Quaternion = mgl32.Quat{
				W: r.i16(multQuat),
				V: mgl32.Vec3{r.i16(multQuat), r.i16(multQuat), r.i16(multQuat)},
			}
		} else {
			data.Quaternion = mgl32.Quat{
				W: r.f32(),
				V: mgl32.Vec3{r.f32(), r.f32(), r.f32()},
			}
		}
	}
	if bitset&uint32(BitEuler) != 0 {
		data.Euler = readVec(multEuler)
	}
	if bitset&uint32(BitLinearAcc) != 0 {
		data.LinearAcc = readVec(multLinAcc)
	}
	if bitset&uint32(BitPressure) != 0 {
		data.Pressure = readScalar(multPressure)
	}
	if bitset&uint32(BitAltitude) != 0 {
		data.Altitude = readScalar(multAltitude)
	}
	if bitset&uint32(BitTemperature) != 0 {
		data.Temperature = readScalar(multTemp)
	}

	if r.err != nil {
		return IMUData{}, r.err
	}
	return data, nil
}

// byteReader sequentially consumes little-endian fields from buf, latching
// the first out-of-range access as a sticky error — callers check r.err
// once at the end rather than after every field.
type byteReader struct {
	buf []byte
	pos int
	err error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.pos+n > len(r.buf) {
		r.err = zerr.New(zerr.KindProtocol, "decode", zerr.ErrFrameCorrupt)
		return make([]byte, n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.take(4))
}

func (r *byteReader) f32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(r.take(4)))
}

func (r *byteReader) i16(multiplier float32) float32 {
	raw := int16(binary.LittleEndian.Uint16(r.take(2)))
	return float32(raw) / multiplier
}

func (r *byteReader) vec3f32() r3.Vector {
	x, y, z := r.f32(), r.f32(), r.f32()
	return r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}
}

func (r *byteReader) vec3i16(multiplier float32) r3.Vector {
	x, y, z := r.i16(multiplier), r.i16(multiplier), r.i16(multiplier)
	return r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}
}
