package decode

import (
	"encoding/binary"
	"math"

	"go.viam.com/zensense/zerr"
)

// GNSSData is the decoded payload for the GNSS component, mirroring the
// fields an NMEA GGA/RMC fix pair exposes (the original_source GNSS
// component stores navigation state for a warm start across power cycles
// but never lists its wire layout; this is the standard GGA/RMC field set
// any GNSS-capable IG1 sensor would carry).
type GNSSData struct {
	FrameCount uint32

	Latitude, Longitude float64 // decimal degrees
	AltitudeMeters       float64
	FixQuality           int
	SatellitesInUse      int
	HorizontalAccuracy   float32

	SpeedOverGroundKnots float64
	CourseOverGround     float64
}

// DecodeGNSS decodes a fixed binary GNSS frame: u32 frame counter, two
// float64 coordinates, float64 altitude, u8 fix quality, u8 satellite
// count, float32 horizontal accuracy, float64 speed, float64 course.
func DecodeGNSS(payload []byte) (GNSSData, error) {
	const wantLen = 4 + 8 + 8 + 8 + 1 + 1 + 4 + 8 + 8
	if len(payload) < wantLen {
		return GNSSData{}, zerr.New(zerr.KindProtocol, "DecodeGNSS", zerr.ErrFrameCorrupt)
	}
	r := &byteReader{buf: payload}
	data := GNSSData{
		FrameCount:         r.u32(),
		Latitude:           r.f64(),
		Longitude:          r.f64(),
		AltitudeMeters:     r.f64(),
		FixQuality:         int(r.u8()),
		SatellitesInUse:    int(r.u8()),
		HorizontalAccuracy: r.f32(),
		SpeedOverGroundKnots: r.f64(),
		CourseOverGround:     r.f64(),
	}
	if r.err != nil {
		return GNSSData{}, r.err
	}
	return data, nil
}

func (r *byteReader) u8() uint8 {
	b := r.take(1)
	return b[0]
}

func (r *byteReader) f64() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(r.take(8)))
}
