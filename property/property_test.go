package property

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.viam.com/test"

	"go.viam.com/zensense/zerr"
)

const (
	keyStreamData  uint16 = 1
	keySampleRate  uint16 = 2
	keyOrientation uint16 = 3
	keyReset       uint16 = 4
	keyReadOnlyID  uint16 = 5
	keyBitset      uint16 = 6
)

func newTestRegistry() *Registry {
	return NewRegistry([]Descriptor{
		{Key: keyStreamData, Type: TypeBool},
		{Key: keySampleRate, Type: TypeInt32},
		{Key: keyOrientation, Type: TypeMatrix33},
		{Key: keyReset, Executable: true},
		{Key: keyReadOnlyID, Type: TypeString, ReadOnly: true},
		{Key: keyBitset, Type: TypeUInt64},
	})
}

func TestGetSetUInt64RoundTrip(t *testing.T) {
	r := newTestRegistry()
	test.That(t, r.SetUInt64(keyBitset, 0xDEADBEEF), test.ShouldBeNil)
	v, err := r.GetUInt64(keyBitset)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, uint64(0xDEADBEEF))
}

func TestGetSetBoolRoundTrip(t *testing.T) {
	r := newTestRegistry()
	test.That(t, r.SetBool(keyStreamData, true), test.ShouldBeNil)
	v, err := r.GetBool(keyStreamData)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldBeTrue)
}

func TestUnknownPropertyErrors(t *testing.T) {
	r := newTestRegistry()
	_, err := r.GetBool(999)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, zerr.IsKind(err, zerr.KindSemantic), test.ShouldBeTrue)
}

func TestWrongTypeErrors(t *testing.T) {
	r := newTestRegistry()
	_, err := r.GetInt32(keyStreamData)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestExecutablePropertyRejectsGetters(t *testing.T) {
	r := newTestRegistry()
	_, err := r.GetBool(keyReset)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, r.Execute(keyReset), test.ShouldBeNil)
}

func TestReadOnlyRejectsSet(t *testing.T) {
	r := newTestRegistry()
	err := r.SetString(keyReadOnlyID, "x")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatrixRoundTrip(t *testing.T) {
	r := newTestRegistry()
	m := mgl32.Ident3()
	test.That(t, r.SetMatrix33(keyOrientation, m), test.ShouldBeNil)
	got, err := r.GetMatrix33(keyOrientation)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, m)
}

type recordingObserver struct {
	keys []uint16
}

func (o *recordingObserver) OnPropertyChanged(key uint16, value any) {
	o.keys = append(o.keys, key)
}

func TestSetterNotifiesObservers(t *testing.T) {
	r := newTestRegistry()
	obs := &recordingObserver{}
	r.Observe(obs)

	test.That(t, r.SetInt32(keySampleRate, 100), test.ShouldBeNil)
	test.That(t, len(obs.keys), test.ShouldEqual, 1)
	test.That(t, obs.keys[0], test.ShouldEqual, keySampleRate)
}

func TestArrayTooSmallBuffer(t *testing.T) {
	r := NewRegistry([]Descriptor{{Key: 1, Type: TypeArray}})
	test.That(t, r.SetArray(1, []byte{1, 2, 3, 4}), test.ShouldBeNil)

	out := make([]byte, 2)
	_, err := r.GetArray(1, out)
	test.That(t, err, test.ShouldNotBeNil)
}
