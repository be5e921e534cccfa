// Package property implements the per-component property registry:
// key-addressed, typed values with read-only and executable flags, cached
// locally and fanned out to observers on change.
package property

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/atomic"

	"go.viam.com/zensense/zerr"
)

// Type identifies a property's wire/value type.
type Type int

const (
	TypeBool Type = iota
	TypeInt32
	TypeUInt64
	TypeFloat32
	TypeString
	TypeMatrix33
	TypeArray
)

// Descriptor describes one property's static shape.
type Descriptor struct {
	Key        uint16
	Type       Type
	ReadOnly   bool
	Executable bool
}

// Observer is notified synchronously, on the turn-holder's goroutine, when a
// setter succeeds for a property other components may cache.
type Observer interface {
	OnPropertyChanged(key uint16, value any)
}

// entry holds one property's descriptor plus its cached value. Scalars are
// cached in atomics so reads never block; the matrix value is guarded by mu,
// matching the core design's "whole-matrix swaps guarded by the turn lock"
// note — callers invoking SetMatrix33 are already holding the owning
// sensor's turn lock, so mu here only protects this entry's own bookkeeping.
type entry struct {
	desc Descriptor

	boolVal   atomic.Bool
	i32Val    atomic.Int32
	u64Val    atomic.Uint64
	f32Val    atomic.Float64 // stored as float64, truncated to float32 on read
	stringVal atomic.String

	mu        sync.Mutex
	matrixVal mgl32.Mat3
	arrayVal  []byte
}

// Registry holds every property descriptor and cached value for one
// component, and the observers to notify on change.
type Registry struct {
	mu        sync.RWMutex
	entries   map[uint16]*entry
	observers []Observer
}

// NewRegistry builds a Registry pre-populated with descs.
func NewRegistry(descs []Descriptor) *Registry {
	r := &Registry{entries: make(map[uint16]*entry, len(descs))}
	for _, d := range descs {
		r.entries[d.Key] = &entry{desc: d}
	}
	return r
}

// Observe registers obs to receive future property-changed notifications.
func (r *Registry) Observe(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

func (r *Registry) lookup(key uint16, want Type, forWrite bool) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return nil, zerr.New(zerr.KindSemantic, "property.lookup", zerr.ErrUnknownProperty)
	}
	if e.desc.Executable {
		return nil, zerr.New(zerr.KindArgument, "property.lookup", zerr.ErrWrongDataType)
	}
	if e.desc.Type != want {
		return nil, zerr.New(zerr.KindArgument, "property.lookup", zerr.ErrWrongDataType)
	}
	if forWrite && e.desc.ReadOnly {
		return nil, zerr.New(zerr.KindArgument, "property.lookup", zerr.ErrWrongDataType)
	}
	return e, nil
}

// Descriptor returns the descriptor for key, if registered.
func (r *Registry) Descriptor(key uint16) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// GetBool returns the cached bool value for key.
func (r *Registry) GetBool(key uint16) (bool, error) {
	e, err := r.lookup(key, TypeBool, false)
	if err != nil {
		return false, err
	}
	return e.boolVal.Load(), nil
}

// SetBool caches v for key and, if the write succeeds, notifies observers.
// Callers (session.Sensor's accessors) perform the actual wire round-trip
// first and only call this once the sensor has acked the new value, so the
// cache never reflects a write the device didn't confirm.
func (r *Registry) SetBool(key uint16, v bool) error {
	e, err := r.lookup(key, TypeBool, true)
	if err != nil {
		return err
	}
	e.boolVal.Store(v)
	r.notify(key, v)
	return nil
}

// GetInt32 returns the cached int32 value for key.
func (r *Registry) GetInt32(key uint16) (int32, error) {
	e, err := r.lookup(key, TypeInt32, false)
	if err != nil {
		return 0, err
	}
	return e.i32Val.Load(), nil
}

// SetInt32 caches v for key and notifies observers.
func (r *Registry) SetInt32(key uint16, v int32) error {
	e, err := r.lookup(key, TypeInt32, true)
	if err != nil {
		return err
	}
	e.i32Val.Store(v)
	r.notify(key, v)
	return nil
}

// GetUInt64 returns the cached uint64 value for key.
func (r *Registry) GetUInt64(key uint16) (uint64, error) {
	e, err := r.lookup(key, TypeUInt64, false)
	if err != nil {
		return 0, err
	}
	return e.u64Val.Load(), nil
}

// SetUInt64 caches v for key and notifies observers.
func (r *Registry) SetUInt64(key uint16, v uint64) error {
	e, err := r.lookup(key, TypeUInt64, true)
	if err != nil {
		return err
	}
	e.u64Val.Store(v)
	r.notify(key, v)
	return nil
}

// GetFloat32 returns the cached float32 value for key.
func (r *Registry) GetFloat32(key uint16) (float32, error) {
	e, err := r.lookup(key, TypeFloat32, false)
	if err != nil {
		return 0, err
	}
	return float32(e.f32Val.Load()), nil
}

// SetFloat32 caches v for key and notifies observers.
func (r *Registry) SetFloat32(key uint16, v float32) error {
	e, err := r.lookup(key, TypeFloat32, true)
	if err != nil {
		return err
	}
	e.f32Val.Store(float64(v))
	r.notify(key, v)
	return nil
}

// GetString returns the cached string value for key.
func (r *Registry) GetString(key uint16) (string, error) {
	e, err := r.lookup(key, TypeString, false)
	if err != nil {
		return "", err
	}
	return e.stringVal.Load(), nil
}

// SetString caches v for key and notifies observers.
func (r *Registry) SetString(key uint16, v string) error {
	e, err := r.lookup(key, TypeString, true)
	if err != nil {
		return err
	}
	e.stringVal.Store(v)
	r.notify(key, v)
	return nil
}

// GetMatrix33 returns the cached 3x3 matrix value for key.
func (r *Registry) GetMatrix33(key uint16) (mgl32.Mat3, error) {
	e, err := r.lookup(key, TypeMatrix33, false)
	if err != nil {
		return mgl32.Mat3{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matrixVal, nil
}

// SetMatrix33 caches v for key and notifies observers. Callers must already
// hold the owning sensor's turn lock, per the core design's lock-order note.
func (r *Registry) SetMatrix33(key uint16, v mgl32.Mat3) error {
	e, err := r.lookup(key, TypeMatrix33, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.matrixVal = v
	e.mu.Unlock()
	r.notify(key, v)
	return nil
}

// GetArray copies the cached array value for key into out, returning the
// number of bytes written. zerr.ErrBufferTooSmall if out is undersized.
func (r *Registry) GetArray(key uint16, out []byte) (int, error) {
	e, err := r.lookup(key, TypeArray, false)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.arrayVal) > len(out) {
		return 0, zerr.New(zerr.KindArgument, "GetArray", zerr.ErrBufferTooSmall)
	}
	return copy(out, e.arrayVal), nil
}

// SetArray caches a copy of buf for key and notifies observers.
func (r *Registry) SetArray(key uint16, buf []byte) error {
	e, err := r.lookup(key, TypeArray, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.arrayVal = append([]byte(nil), buf...)
	e.mu.Unlock()
	r.notify(key, buf)
	return nil
}

// Execute validates key names a registered, executable command property.
// The registry itself has no notion of what executing does — session.Sensor
// resolves the command's wire function and performs the round trip — this
// just enforces the command-vs-property distinction: getters on an
// executable property must fail with wrong-data-type rather than silently
// returning a zero value.
func (r *Registry) Execute(key uint16) error {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return zerr.New(zerr.KindSemantic, "Execute", zerr.ErrUnknownCommand)
	}
	if !e.desc.Executable {
		return zerr.New(zerr.KindArgument, "Execute", zerr.ErrWrongDataType)
	}
	return nil
}

func (r *Registry) notify(key uint16, value any) {
	r.mu.RLock()
	observers := append([]Observer(nil), r.observers...)
	r.mu.RUnlock()
	for _, obs := range observers {
		obs.OnPropertyChanged(key, value)
	}
}
