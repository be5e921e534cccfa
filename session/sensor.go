package session

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"go.viam.com/zensense/comm"
	"go.viam.com/zensense/decode"
	"go.viam.com/zensense/property"
	"go.viam.com/zensense/transport"
	"go.viam.com/zensense/zerr"
)

// Protocol-level function codes. The concrete wire values of the
// negotiation/ack/nack/stream-control functions are sensor-family constants
// assigned by firmware, not implied by the frame codec itself; these are
// this module's assignment, used consistently by both the encoder and
// decoder sides below.
const (
	funcAck  uint16 = 0x00
	funcNack uint16 = 0x01

	funcVersionProbe uint16 = 0x02
	funcVersionReply uint16 = 0x03

	funcDisableStream uint16 = 0x10
	funcEnableStream  uint16 = 0x11

	funcIMUData  uint16 = 0x20
	funcGNSSData uint16 = 0x21

	funcFirmwareChunk uint16 = 0x30

	// Per-property function codes. Each one serves as both the request
	// function and its own reply/ack function code, the same echo-the-
	// request-function convention LegacyCoreProperties.cpp uses: the sensor
	// doesn't reply with a universal ack for property traffic, it replies
	// with the property's own function.
	funcPropStreamData        uint16 = 0x40
	funcPropOutputBitset      uint16 = 0x41
	funcPropLowPrecision      uint16 = 0x42
	funcPropOrientationOffset uint16 = 0x43
	funcPropSerialNumber      uint16 = 0x44
	funcPropCalibrationBlob   uint16 = 0x45
	funcPropStoreSettings     uint16 = 0x46
	funcPropSampleRate        uint16 = 0x47
)

// capability bits in the version-reply payload's second byte.
const capGNSS = 1 << 0

// newerProtocolVersion is the minimum protocol version that speaks the
// u16-function LP frame layout; below it, the sensor speaks the legacy
// u8-function variant.
const newerProtocolVersion = 1

// firmwareChunkSize bounds how much of an upload's io.Reader is read and
// sent per wire request.
const firmwareChunkSize = 256

// Component is a logical sub-device exposed by a sensor (IMU or GNSS).
type Component struct {
	Type       ComponentType
	Properties *property.Registry

	decode func(function uint16, payload []byte) (Event, error)

	// propFuncs maps a property key to the wire function code that both
	// requests and replies to it, populated by newIMUComponent/
	// newGNSSComponent alongside the matching property.Descriptor.
	propFuncs map[uint16]uint16
}

// decodeEvent dispatches an unsolicited data frame addressed to this
// component to its decoder, producing the Event to enqueue. A decode
// failure is not fatal to the sensor — routeDataFrame drops the frame and
// reports no event.
func (c *Component) decodeEvent(function uint16, payload []byte) (Event, error) {
	return c.decode(function, payload)
}

// resolveProperty validates that key names a registered, non-executable
// property of type want (and, for a write, that it isn't read-only), and
// returns the wire function code to use for the request. It is the single
// gate every Get/Set accessor passes through before touching the wire, so a
// caller's type mistake fails fast instead of after a round trip.
func (c *Component) resolveProperty(key uint16, want property.Type, forWrite bool) (uint16, error) {
	desc, ok := c.Properties.Descriptor(key)
	if !ok {
		return 0, zerr.New(zerr.KindSemantic, "resolveProperty", zerr.ErrUnknownProperty)
	}
	if desc.Executable || desc.Type != want || (forWrite && desc.ReadOnly) {
		return 0, zerr.New(zerr.KindArgument, "resolveProperty", zerr.ErrWrongDataType)
	}
	function, ok := c.propFuncs[key]
	if !ok {
		return 0, zerr.New(zerr.KindSemantic, "resolveProperty", zerr.ErrUnknownProperty)
	}
	return function, nil
}

// resolveCommand validates that key names a registered, executable command
// and returns its wire function code.
func (c *Component) resolveCommand(key uint16) (uint16, error) {
	if err := c.Properties.Execute(key); err != nil {
		return 0, err
	}
	function, ok := c.propFuncs[key]
	if !ok {
		return 0, zerr.New(zerr.KindSemantic, "resolveCommand", zerr.ErrUnknownCommand)
	}
	return function, nil
}

// Sensor is one open sensor: its transport, communicator stack, and
// components. A Sensor owns exactly one Communicator/SyncedCommunicator
// pair and one Transport Adapter.
type Sensor struct {
	Handle     SensorHandle
	IOType     string
	Identifier string

	transport    transport.Adapter
	communicator *comm.Communicator
	synced       *comm.SyncedCommunicator

	componentsMu sync.RWMutex
	components   []*Component

	firmwareWG sync.WaitGroup

	released atomic.Bool

	mgr *Manager
}

// Components returns the sensor's component handles in construction order.
func (s *Sensor) Components() []ComponentHandle {
	s.componentsMu.RLock()
	defer s.componentsMu.RUnlock()
	handles := make([]ComponentHandle, len(s.components))
	for i := range s.components {
		handles[i] = ComponentHandle(i)
	}
	return handles
}

// AnyComponentOf returns the first component of the given type, if any.
func (s *Sensor) AnyComponentOf(t ComponentType) (ComponentHandle, bool) {
	s.componentsMu.RLock()
	defer s.componentsMu.RUnlock()
	for i, c := range s.components {
		if c.Type == t {
			return ComponentHandle(i), true
		}
	}
	return 0, false
}

// component resolves handle to its Component under the read lock.
func (s *Sensor) component(handle ComponentHandle) (*Component, error) {
	s.componentsMu.RLock()
	defer s.componentsMu.RUnlock()
	if int(handle) < 0 || int(handle) >= len(s.components) {
		return nil, zerr.New(zerr.KindArgument, "component", zerr.ErrNullHandle)
	}
	return s.components[handle], nil
}

// Properties returns the property registry of the component at handle.
func (s *Sensor) Properties(handle ComponentHandle) (*property.Registry, error) {
	comp, err := s.component(handle)
	if err != nil {
		return nil, err
	}
	return comp.Properties, nil
}

// GetBool performs a config-class property read: it pauses streaming around
// the call if needed, sends the property's request function, and blocks for
// the matching reply before returning the decoded value. The registry cache
// is not updated by a plain read — only a successful Set notifies observers,
// matching LegacyCoreProperties' getters never calling notifyPropertyChange.
func (s *Sensor) GetBool(ctx context.Context, handle ComponentHandle, key uint16) (bool, error) {
	comp, err := s.component(handle)
	if err != nil {
		return false, err
	}
	function, err := comp.resolveProperty(key, property.TypeBool, false)
	if err != nil {
		return false, err
	}
	var value bool
	err = s.configClass(ctx, func() error {
		result, err := s.synced.SendAndWaitForResult(ctx, 0, function, function, nil, decodeBoolPayload)
		if err != nil {
			return err
		}
		value = result.(bool)
		return nil
	})
	return value, err
}

// SetBool performs a config-class boolean property write: it sends the
// property's request function carrying the new value, blocks for the
// sensor's ack, and only then updates the local cache and notifies
// observers.
func (s *Sensor) SetBool(ctx context.Context, handle ComponentHandle, key uint16, v bool) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveProperty(key, property.TypeBool, true)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		if err := s.synced.SendAndWaitForAck(ctx, 0, function, function, encodeBoolPayload(v)); err != nil {
			return err
		}
		if err := comp.Properties.SetBool(key, v); err != nil {
			return err
		}
		if key == PropKeyStreamData {
			s.synced.SetStreamDataCache(v)
		}
		return nil
	})
}

// GetInt32 performs a config-class int32 property read.
func (s *Sensor) GetInt32(ctx context.Context, handle ComponentHandle, key uint16) (int32, error) {
	comp, err := s.component(handle)
	if err != nil {
		return 0, err
	}
	function, err := comp.resolveProperty(key, property.TypeInt32, false)
	if err != nil {
		return 0, err
	}
	var value int32
	err = s.configClass(ctx, func() error {
		result, err := s.synced.SendAndWaitForResult(ctx, 0, function, function, nil, decodeInt32Payload)
		if err != nil {
			return err
		}
		value = result.(int32)
		return nil
	})
	return value, err
}

// SetInt32 performs a config-class property write, pausing streaming around
// the call, sending the property's request, then updates the local cache.
func (s *Sensor) SetInt32(ctx context.Context, handle ComponentHandle, key uint16, v int32) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveProperty(key, property.TypeInt32, true)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		if err := s.synced.SendAndWaitForAck(ctx, 0, function, function, encodeInt32Payload(v)); err != nil {
			return err
		}
		return comp.Properties.SetInt32(key, v)
	})
}

// GetFloat32 performs a config-class float32 property read.
func (s *Sensor) GetFloat32(ctx context.Context, handle ComponentHandle, key uint16) (float32, error) {
	comp, err := s.component(handle)
	if err != nil {
		return 0, err
	}
	function, err := comp.resolveProperty(key, property.TypeFloat32, false)
	if err != nil {
		return 0, err
	}
	var value float32
	err = s.configClass(ctx, func() error {
		result, err := s.synced.SendAndWaitForResult(ctx, 0, function, function, nil, decodeFloat32Payload)
		if err != nil {
			return err
		}
		value = result.(float32)
		return nil
	})
	return value, err
}

// SetFloat32 performs a config-class float32 property write.
func (s *Sensor) SetFloat32(ctx context.Context, handle ComponentHandle, key uint16, v float32) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveProperty(key, property.TypeFloat32, true)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		if err := s.synced.SendAndWaitForAck(ctx, 0, function, function, encodeFloat32Payload(v)); err != nil {
			return err
		}
		return comp.Properties.SetFloat32(key, v)
	})
}

// GetString performs a config-class string property read.
func (s *Sensor) GetString(ctx context.Context, handle ComponentHandle, key uint16) (string, error) {
	comp, err := s.component(handle)
	if err != nil {
		return "", err
	}
	function, err := comp.resolveProperty(key, property.TypeString, false)
	if err != nil {
		return "", err
	}
	var value string
	err = s.configClass(ctx, func() error {
		result, err := s.synced.SendAndWaitForResult(ctx, 0, function, function, nil, decodeStringPayload)
		if err != nil {
			return err
		}
		value = result.(string)
		return nil
	})
	return value, err
}

// SetString performs a config-class string property write.
func (s *Sensor) SetString(ctx context.Context, handle ComponentHandle, key uint16, v string) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveProperty(key, property.TypeString, true)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		if err := s.synced.SendAndWaitForAck(ctx, 0, function, function, encodeStringPayload(v)); err != nil {
			return err
		}
		return comp.Properties.SetString(key, v)
	})
}

// GetMatrix33 performs a config-class 3x3 matrix property read.
func (s *Sensor) GetMatrix33(ctx context.Context, handle ComponentHandle, key uint16) (mgl32.Mat3, error) {
	comp, err := s.component(handle)
	if err != nil {
		return mgl32.Mat3{}, err
	}
	function, err := comp.resolveProperty(key, property.TypeMatrix33, false)
	if err != nil {
		return mgl32.Mat3{}, err
	}
	var value mgl32.Mat3
	err = s.configClass(ctx, func() error {
		result, err := s.synced.SendAndWaitForResult(ctx, 0, function, function, nil, decodeMatrix33Payload)
		if err != nil {
			return err
		}
		value = result.(mgl32.Mat3)
		return nil
	})
	return value, err
}

// SetMatrix33 performs a config-class 3x3 matrix property write.
func (s *Sensor) SetMatrix33(ctx context.Context, handle ComponentHandle, key uint16, v mgl32.Mat3) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveProperty(key, property.TypeMatrix33, true)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		if err := s.synced.SendAndWaitForAck(ctx, 0, function, function, encodeMatrix33Payload(v)); err != nil {
			return err
		}
		return comp.Properties.SetMatrix33(key, v)
	})
}

// GetArray performs a config-class array property read, copying the decoded
// reply into out and returning the number of bytes written.
func (s *Sensor) GetArray(ctx context.Context, handle ComponentHandle, key uint16, out []byte) (int, error) {
	comp, err := s.component(handle)
	if err != nil {
		return 0, err
	}
	function, err := comp.resolveProperty(key, property.TypeArray, false)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.configClass(ctx, func() error {
		got, err := s.synced.SendAndWaitForArray(ctx, 0, function, function, nil, out)
		if err != nil {
			return err
		}
		n = got
		return nil
	})
	return n, err
}

// SetArray performs a config-class array property write.
func (s *Sensor) SetArray(ctx context.Context, handle ComponentHandle, key uint16, buf []byte) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveProperty(key, property.TypeArray, true)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		if err := s.synced.SendAndWaitForAck(ctx, 0, function, function, buf); err != nil {
			return err
		}
		return comp.Properties.SetArray(key, buf)
	})
}

// Execute invokes a command property: it validates key names a registered
// executable, pausing streaming around the call as any config-class
// operation does, and blocks for the sensor's ack.
func (s *Sensor) Execute(ctx context.Context, handle ComponentHandle, key uint16) error {
	comp, err := s.component(handle)
	if err != nil {
		return err
	}
	function, err := comp.resolveCommand(key)
	if err != nil {
		return err
	}
	return s.configClass(ctx, func() error {
		return s.synced.SendAndWaitForAck(ctx, 0, function, function, nil)
	})
}

func (s *Sensor) configClass(ctx context.Context, fn func() error) error {
	return s.synced.ConfigClassCall(ctx, 0, funcDisableStream, funcAck, funcEnableStream, funcAck, fn)
}

// FirmwareStatus reports upload progress on the channel UpdateFirmwareAsync
// returns. Progress is a 0..1 fraction when the reader's size is knowable
// (it implements io.Seeker), 1 otherwise until Done. Err, if set, is always
// the final value sent before the channel closes.
type FirmwareStatus struct {
	Progress float32
	Done     bool
	Err      error
}

// UpdateFirmwareAsync streams r to the sensor in fixed-size chunks on a
// dedicated goroutine, reporting progress on the returned channel. It never
// returns the transfer error synchronously — a failure arrives as the final
// FirmwareStatus.Err before the channel closes. The caller must drain the
// channel; an upload that blocks on a full, unread channel also blocks
// Release.
func (s *Sensor) UpdateFirmwareAsync(ctx context.Context, r io.Reader) (<-chan FirmwareStatus, error) {
	if s.released.Load() {
		return nil, zerr.New(zerr.KindState, "UpdateFirmwareAsync", zerr.ErrIOClosed)
	}

	statusCh := make(chan FirmwareStatus, 1)
	s.firmwareWG.Add(1)
	go func() {
		defer s.firmwareWG.Done()
		defer close(statusCh)
		s.uploadFirmware(ctx, r, statusCh)
	}()
	return statusCh, nil
}

// uploadFirmware is the body of the upload goroutine UpdateFirmwareAsync
// spawns: read a chunk, send it as a config-class write, report progress,
// repeat until EOF or the first error.
func (s *Sensor) uploadFirmware(ctx context.Context, r io.Reader, statusCh chan<- FirmwareStatus) {
	total := firmwareSize(r)
	var sent int64
	buf := make([]byte, firmwareChunkSize)

	for {
		select {
		case <-ctx.Done():
			statusCh <- FirmwareStatus{Err: ctx.Err()}
			return
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			sendErr := s.configClass(ctx, func() error {
				return s.synced.SendAndWaitForAck(ctx, 0, funcFirmwareChunk, funcAck, chunk)
			})
			if sendErr != nil {
				statusCh <- FirmwareStatus{Err: sendErr}
				return
			}
			sent += int64(n)
			statusCh <- FirmwareStatus{Progress: firmwareProgress(sent, total)}
		}

		if readErr == io.EOF {
			statusCh <- FirmwareStatus{Progress: 1, Done: true}
			return
		}
		if readErr != nil {
			statusCh <- FirmwareStatus{Err: readErr}
			return
		}
	}
}

func firmwareProgress(sent, total int64) float32 {
	if total <= 0 {
		return 1
	}
	return float32(sent) / float32(total)
}

// firmwareSize reports r's total length if it is determinable without
// consuming it (an io.Seeker), 0 otherwise.
func firmwareSize(r io.Reader) int64 {
	seeker, ok := r.(io.Seeker)
	if !ok {
		return 0
	}
	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
		return 0
	}
	return end - cur
}

// routeDataFrame dispatches an unsolicited frame arriving on this sensor to
// the component whose type matches the frame's function, decoding it into
// an Event for the caller (the Manager) to fan out to client queues.
func (s *Sensor) routeDataFrame(addr, function uint16, payload []byte) (Event, bool) {
	s.componentsMu.RLock()
	defer s.componentsMu.RUnlock()
	for i, c := range s.components {
		if function != functionForComponent(c.Type) {
			continue
		}
		ev, err := c.decodeEvent(function, payload)
		if err != nil {
			return Event{}, false
		}
		ev.Sensor = s.Handle
		ev.Component = ComponentHandle(i)
		return ev, true
	}
	return Event{}, false
}

// propertyObserver bridges a single component's property.Registry to the
// Manager's client fan-out, stamping the component handle the registry
// itself has no knowledge of.
type propertyObserver struct {
	sensor    *Sensor
	component ComponentHandle
}

// OnPropertyChanged implements property.Observer.
func (o propertyObserver) OnPropertyChanged(key uint16, value any) {
	o.sensor.mgr.broadcast(Event{
		Kind:            EventPropertyChanged,
		Sensor:          o.sensor.Handle,
		Component:       o.component,
		PropertyChanged: &PropertyChange{Key: key, Value: value},
	})
}

func functionForComponent(t ComponentType) uint16 {
	switch t {
	case ComponentGNSS:
		return funcGNSSData
	default:
		return funcIMUData
	}
}

// Release terminates the sensor: it stops the reader by closing the
// transport, resolves any outstanding turn with ErrIOClosed, waits for any
// in-flight firmware upload to observe the close and finish, and marks the
// sensor released so a second Release call is a no-op error rather than a
// repeat teardown.
func (s *Sensor) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return zerr.New(zerr.KindState, "Release", zerr.ErrAlreadyInitialized)
	}
	s.synced.Resolve(zerr.ErrIOClosed)
	err := s.transport.Close()
	s.firmwareWG.Wait()
	s.mgr.releaseSensor(s)
	return err
}

// newIMUComponent builds the IMU component appropriate for the negotiated
// protocol version: IMU-IG1 if the sensor speaks the newer protocol, IMU-v0
// otherwise. IMU-IG1 carries the richer property set (the legacy v0 wire
// protocol never defined anything beyond stream_data).
func newIMUComponent(protocolVersion uint16) *Component {
	if protocolVersion >= newerProtocolVersion {
		descs := []property.Descriptor{
			{Key: PropKeyOutputBitset, Type: property.TypeInt32},
			{Key: PropKeyLowPrecision, Type: property.TypeBool},
			{Key: PropKeyStreamData, Type: property.TypeBool},
			{Key: PropKeyOrientationOffset, Type: property.TypeMatrix33},
			{Key: PropKeySerialNumber, Type: property.TypeString, ReadOnly: true},
			{Key: PropKeyCalibrationBlob, Type: property.TypeArray},
			{Key: PropKeyStoreSettings, Executable: true},
			{Key: PropKeySampleRate, Type: property.TypeFloat32},
		}
		registry := property.NewRegistry(descs)
		return &Component{
			Type:       ComponentIMUIG1,
			Properties: registry,
			propFuncs: map[uint16]uint16{
				PropKeyOutputBitset:      funcPropOutputBitset,
				PropKeyLowPrecision:      funcPropLowPrecision,
				PropKeyStreamData:        funcPropStreamData,
				PropKeyOrientationOffset: funcPropOrientationOffset,
				PropKeySerialNumber:      funcPropSerialNumber,
				PropKeyCalibrationBlob:   funcPropCalibrationBlob,
				PropKeyStoreSettings:     funcPropStoreSettings,
				PropKeySampleRate:        funcPropSampleRate,
			},
			decode: func(function uint16, payload []byte) (Event, error) {
				bitset, _ := registry.GetInt32(PropKeyOutputBitset)
				lowPrecision, _ := registry.GetBool(PropKeyLowPrecision)
				data, err := decode.DecodeIMUIG1(uint32(bitset), lowPrecision, payload)
				if err != nil {
					return Event{}, err
				}
				return Event{Kind: EventIMUData, IMU: &data}, nil
			},
		}
	}

	descs := []property.Descriptor{
		{Key: PropKeyStreamData, Type: property.TypeBool},
	}
	return &Component{
		Type:       ComponentIMUv0,
		Properties: property.NewRegistry(descs),
		propFuncs: map[uint16]uint16{
			PropKeyStreamData: funcPropStreamData,
		},
		decode: func(function uint16, payload []byte) (Event, error) {
			data, err := decode.DecodeIMUv0(payload)
			if err != nil {
				return Event{}, err
			}
			return Event{Kind: EventIMUData, IMU: &data}, nil
		},
	}
}

func newGNSSComponent() *Component {
	descs := []property.Descriptor{
		{Key: PropKeyStreamData, Type: property.TypeBool},
	}
	return &Component{
		Type:       ComponentGNSS,
		Properties: property.NewRegistry(descs),
		propFuncs: map[uint16]uint16{
			PropKeyStreamData: funcPropStreamData,
		},
		decode: func(function uint16, payload []byte) (Event, error) {
			data, err := decode.DecodeGNSS(payload)
			if err != nil {
				return Event{}, err
			}
			return Event{Kind: EventGNSSData, GNSS: &data}, nil
		},
	}
}

// Well-known property keys, exported so a host application can target the
// Get/Set accessors at a specific property without reaching into a
// component's Properties registry first.
const (
	PropKeyStreamData        uint16 = 1
	PropKeyOutputBitset      uint16 = 2
	PropKeyLowPrecision      uint16 = 3
	PropKeyOrientationOffset uint16 = 4
	PropKeySerialNumber      uint16 = 5
	PropKeyCalibrationBlob   uint16 = 6
	PropKeyStoreSettings     uint16 = 7
	PropKeySampleRate        uint16 = 8
)

// Wire payload encoding for property Get/Set, one pair per accessor type.
// Each follows the frame codec's own byte order (little-endian), matching
// frame.Checksum and decode's IMU/GNSS payload parsing.

func encodeBoolPayload(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBoolPayload(b []byte) (any, error) {
	if len(b) < 1 {
		return nil, zerr.New(zerr.KindProtocol, "decodeBoolPayload", zerr.ErrFrameCorrupt)
	}
	return b[0] != 0, nil
}

func encodeInt32Payload(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func decodeInt32Payload(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, zerr.New(zerr.KindProtocol, "decodeInt32Payload", zerr.ErrFrameCorrupt)
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func encodeFloat32Payload(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

func decodeFloat32Payload(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, zerr.New(zerr.KindProtocol, "decodeFloat32Payload", zerr.ErrFrameCorrupt)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func encodeStringPayload(v string) []byte {
	return []byte(v)
}

func decodeStringPayload(b []byte) (any, error) {
	return string(b), nil
}

func encodeMatrix33Payload(m mgl32.Mat3) []byte {
	buf := make([]byte, 36)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeMatrix33Payload(b []byte) (any, error) {
	if len(b) < 36 {
		return nil, zerr.New(zerr.KindProtocol, "decodeMatrix33Payload", zerr.ErrFrameCorrupt)
	}
	var m mgl32.Mat3
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return m, nil
}
