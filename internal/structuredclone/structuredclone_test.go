package structuredclone

import (
	"math/big"
	"testing"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// fakeHeap is a trivial Heap: enough to exercise Deserialize without
// pulling in internal/vm (which would import this package right back,
// were it not for the Heap seam).
type fakeHeap struct {
	table       *object.KindTable
	objectProto *object.Object
}

func newFakeHeap() *fakeHeap {
	t := object.NewKindTable()
	return &fakeHeap{table: t, objectProto: object.New(t, nil)}
}

func (h *fakeHeap) NewObject(proto *object.Object) *object.Object {
	if proto == nil {
		proto = h.objectProto
	}
	return object.New(h.table, proto)
}

func (h *fakeHeap) NewArray(vals []value.Value) *object.Object {
	arr := object.NewWithKind(h.table, object.KindArray, h.objectProto)
	for i, v := range vals {
		arr.DefineOwnProperty(object.StringKey(itoa(i)), object.Property{
			Value: v, Attrs: object.DefaultDataAttributes(),
		})
	}
	return arr
}

func (h *fakeHeap) NewString(s string) value.Value {
	return value.NewString(s)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestSerializeDeserializePrimitives(t *testing.T) {
	cases := []value.Value{
		value.Undefined,
		value.Null,
		value.Bool(true),
		value.Bool(false),
		value.Number(3.5),
		value.Integer32(42),
		value.NewString("hello"),
		value.NewBigInt(big.NewInt(123456789)),
	}
	h := newFakeHeap()
	for _, v := range cases {
		data, err := Serialize(v, nil)
		if err != nil {
			t.Fatalf("Serialize(%v): %v", v, err)
		}
		got, err := Deserialize(data, h)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if got.Kind() != v.Kind() {
			t.Fatalf("kind mismatch: want %v got %v", v.Kind(), got.Kind())
		}
	}
}

func TestSerializeDeserializeObjectRoundTrip(t *testing.T) {
	h := newFakeHeap()
	o := h.NewObject(nil)
	o.DefineOwnProperty(object.StringKey("a"), object.Property{
		Value: value.Integer32(1), Attrs: object.DefaultDataAttributes(),
	})
	o.DefineOwnProperty(object.StringKey("b"), object.Property{
		Value: value.NewString("two"), Attrs: object.DefaultDataAttributes(),
	})

	data, err := Serialize(value.FromRef(value.KindObject, o), nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	got, err := Deserialize(data, h)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	clone, ok := value.As[*object.Object](got)
	if !ok {
		t.Fatalf("expected object, got %v", got.Kind())
	}
	p, found := clone.GetOwnProperty(object.StringKey("a"))
	if !found || p.Value.AsInt32() != 1 {
		t.Fatalf("property a did not round-trip: found=%v val=%v", found, p.Value)
	}
}

func TestSerializeFunctionIsNotCloneable(t *testing.T) {
	h := newFakeHeap()
	native := object.NewNative(h.table, h.objectProto, func(ctx object.CallContext) (value.Value, error) {
		return value.Undefined, nil
	})
	_, err := Serialize(value.FromRef(value.KindObject, native), nil)
	if err == nil {
		t.Fatal("expected error serializing a function")
	}
}

func TestSerializeSkipsAccessorProperties(t *testing.T) {
	h := newFakeHeap()
	o := h.NewObject(nil)
	getter := object.NewNative(h.table, h.objectProto, func(ctx object.CallContext) (value.Value, error) {
		t.Fatal("getter must never be invoked by Serialize")
		return value.Undefined, nil
	})
	o.DefineOwnProperty(object.StringKey("danger"), object.Property{
		Accessor: object.Accessor{Get: value.FromRef(value.KindObject, getter)},
		Attrs:    object.Attributes{Enumerable: true, Accessor: true, Configurable: true},
	})

	data, err := Serialize(value.FromRef(value.KindObject, o), nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data, h)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	clone, _ := value.As[*object.Object](got)
	if _, found := clone.GetOwnProperty(object.StringKey("danger")); found {
		t.Fatal("accessor property should have been skipped, not cloned")
	}
}
