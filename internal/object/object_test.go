package object

import (
	"testing"

	"github.com/termfx/ecmacore/internal/value"
)

func noCall(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	return value.Undefined, nil
}

func TestDefineOwnPropertyThenGetOwnPropertyRoundTrips(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)

	ok, err := o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	if err != nil || !ok {
		t.Fatalf("expected DefineOwnProperty to succeed, got (%v, %v)", ok, err)
	}

	p, found := o.GetOwnProperty(StringKey("x"))
	if !found || p.Value != value.Number(1) {
		t.Fatalf("expected to read back x=1, got (%v, %v)", p, found)
	}
}

func TestDefineOwnPropertyOnNonExtensibleNewKeyFails(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.PreventExtensions()

	ok, err := o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	if err != ErrNotExtensible {
		t.Fatalf("expected ErrNotExtensible, got %v", err)
	}
	if ok {
		t.Error("expected DefineOwnProperty to report not-ok on a non-extensible object")
	}
}

func TestDefineOwnPropertyOnNonExtensibleExistingKeySucceeds(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	o.PreventExtensions()

	ok, err := o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(2), Attrs: DefaultDataAttributes()})
	if err != nil || !ok {
		t.Fatalf("expected updating an existing property on a non-extensible object to succeed, got (%v, %v)", ok, err)
	}
}

func TestHasPropertyWalksPrototypeChain(t *testing.T) {
	table := NewKindTable()
	proto := New(table, nil)
	proto.DefineOwnProperty(StringKey("inherited"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	child := New(table, proto)

	if !child.HasProperty(StringKey("inherited")) {
		t.Error("expected HasProperty to find a property defined on the prototype")
	}
	if child.HasProperty(StringKey("missing")) {
		t.Error("expected HasProperty to report false for a key on neither object")
	}
}

func TestGetWalksPrototypeChainForDataProperty(t *testing.T) {
	table := NewKindTable()
	proto := New(table, nil)
	proto.DefineOwnProperty(StringKey("inherited"), Property{Value: value.Number(42), Attrs: DefaultDataAttributes()})
	child := New(table, proto)
	receiver := value.FromRef(value.KindObject, child)

	got, err := child.Get(StringKey("inherited"), receiver, noCall)
	if err != nil || got != value.Number(42) {
		t.Fatalf("expected to inherit 42, got (%v, %v)", got, err)
	}
}

func TestGetOnMissingKeyReturnsUndefined(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	receiver := value.FromRef(value.KindObject, o)

	got, err := o.Get(StringKey("missing"), receiver, noCall)
	if err != nil || got != value.Undefined {
		t.Fatalf("expected (undefined, nil), got (%v, %v)", got, err)
	}
}

func TestSetOnOwnWritableDataPropertyUpdatesValue(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	receiver := value.FromRef(value.KindObject, o)

	ok, err := o.Set(StringKey("x"), value.Number(2), receiver, noCall)
	if err != nil || !ok {
		t.Fatalf("expected Set to succeed, got (%v, %v)", ok, err)
	}
	p, _ := o.GetOwnProperty(StringKey("x"))
	if p.Value != value.Number(2) {
		t.Errorf("expected x to become 2, got %v", p.Value)
	}
}

func TestSetOnNonWritableDataPropertyFails(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: Attributes{Writable: false, Enumerable: true, Configurable: true}})
	receiver := value.FromRef(value.KindObject, o)

	ok, err := o.Set(StringKey("x"), value.Number(2), receiver, noCall)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected Set to fail against a non-writable data property")
	}
	p, _ := o.GetOwnProperty(StringKey("x"))
	if p.Value != value.Number(1) {
		t.Errorf("expected x to remain 1, got %v", p.Value)
	}
}

func TestSetOnMissingKeyCreatesOwnProperty(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	receiver := value.FromRef(value.KindObject, o)

	ok, err := o.Set(StringKey("x"), value.Number(7), receiver, noCall)
	if err != nil || !ok {
		t.Fatalf("expected Set to create a new own property, got (%v, %v)", ok, err)
	}
	p, found := o.GetOwnProperty(StringKey("x"))
	if !found || p.Value != value.Number(7) {
		t.Errorf("expected x=7, got (%v, %v)", p, found)
	}
}

func TestDeleteOfConfigurablePropertyRemovesIt(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})

	ok, err := o.Delete(StringKey("x"))
	if err != nil || !ok {
		t.Fatalf("expected Delete to succeed, got (%v, %v)", ok, err)
	}
	if _, found := o.GetOwnProperty(StringKey("x")); found {
		t.Error("expected x to no longer be found after Delete")
	}
}

func TestDeleteOfNonConfigurablePropertyFails(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.DefineOwnProperty(StringKey("x"), Property{Value: value.Number(1), Attrs: Attributes{Writable: true, Enumerable: true, Configurable: false}})

	ok, err := o.Delete(StringKey("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected Delete to fail against a non-configurable property")
	}
	if _, found := o.GetOwnProperty(StringKey("x")); !found {
		t.Error("expected x to still be present after a failed Delete")
	}
}

func TestDeleteOfMissingKeyIsNoopTrue(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	ok, err := o.Delete(StringKey("missing"))
	if err != nil || !ok {
		t.Fatalf("expected deleting a never-present key to report (true, nil), got (%v, %v)", ok, err)
	}
}

func TestRepeatedDeletesDemoteToDictionaryMode(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	// Use string-named (non-index) keys so Delete takes the shape path
	// rather than the element-index fast path.
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, n := range names {
		o.DefineOwnProperty(StringKey(n), Property{Value: value.Number(1), Attrs: Attributes{Writable: true, Enumerable: true, Configurable: true}})
	}
	for _, n := range names[:DictionaryDemotionThreshold] {
		ok, err := o.Delete(StringKey(n))
		if err != nil || !ok {
			t.Fatalf("delete of %q failed: (%v, %v)", n, ok, err)
		}
	}
	if !o.Shape().IsDictionary() {
		t.Fatal("expected the object to have demoted to dictionary mode after DictionaryDemotionThreshold deletes")
	}
	remaining := names[DictionaryDemotionThreshold:]
	for _, n := range remaining {
		if _, found := o.GetOwnProperty(StringKey(n)); !found {
			t.Errorf("expected %q to survive the demotion, but it was not found", n)
		}
	}
}

func TestOwnPropertyKeysOrdersIndicesThenStrings(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	o.DefineOwnProperty(StringKey("b"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	o.DefineOwnProperty(StringKey("1"), Property{Value: value.Number(2), Attrs: DefaultDataAttributes()})
	o.DefineOwnProperty(StringKey("a"), Property{Value: value.Number(3), Attrs: DefaultDataAttributes()})

	keys := o.OwnPropertyKeys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d: %v", len(keys), keys)
	}
	if keys[0].Name != "1" {
		t.Errorf("expected the integer-index key first, got %q", keys[0].Name)
	}
	if keys[1].Name != "b" || keys[2].Name != "a" {
		t.Errorf("expected string keys in creation order [b a], got [%q %q]", keys[1].Name, keys[2].Name)
	}
}

func TestSetPrototypeOfRejectsCycle(t *testing.T) {
	table := NewKindTable()
	a := New(table, nil)
	b := New(table, a)

	if a.SetPrototypeOf(b) {
		t.Error("expected SetPrototypeOf to reject a prototype cycle")
	}
}

func TestSetPrototypeOfOnNonExtensibleFails(t *testing.T) {
	table := NewKindTable()
	a := New(table, nil)
	b := New(table, nil)
	a.PreventExtensions()

	if a.SetPrototypeOf(b) {
		t.Error("expected SetPrototypeOf to fail on a non-extensible object")
	}
}

func TestSetPrototypeOfSameValueSucceedsEvenWhenNonExtensible(t *testing.T) {
	table := NewKindTable()
	proto := New(table, nil)
	a := New(table, proto)
	a.PreventExtensions()

	if !a.SetPrototypeOf(proto) {
		t.Error("expected re-setting the same prototype to succeed regardless of extensibility")
	}
}

func TestNativeFunctionIsCallableAndInvokesFunc(t *testing.T) {
	table := NewKindTable()
	called := false
	fn := NewNative(table, nil, func(ctx CallContext) (value.Value, error) {
		called = true
		return value.Number(99), nil
	})

	if !fn.IsCallable() {
		t.Fatal("expected a native function object to be callable")
	}
	got, err := fn.Call(CallContext{})
	if err != nil || got != value.Number(99) || !called {
		t.Fatalf("expected Call to invoke the native func, got (%v, %v, called=%v)", got, err, called)
	}
}

func TestOrdinaryObjectIsNotCallable(t *testing.T) {
	table := NewKindTable()
	o := New(table, nil)
	if o.IsCallable() {
		t.Error("expected an ordinary object not to be callable")
	}
	if _, err := o.Call(CallContext{}); err != ErrNotCallable {
		t.Errorf("expected ErrNotCallable, got %v", err)
	}
}

func TestBoundFunctionPrependsBoundArgsAndThis(t *testing.T) {
	table := NewKindTable()
	var gotThis value.Value
	var gotArgs []value.Value
	target := NewNative(table, nil, func(ctx CallContext) (value.Value, error) {
		gotThis = ctx.This
		gotArgs = ctx.Args
		return value.Undefined, nil
	})
	boundThis := value.Number(1)
	bound := NewBound(table, nil, target, boundThis, []value.Value{value.Number(2)})

	_, err := bound.Call(CallContext{Args: []value.Value{value.Number(3)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotThis != boundThis {
		t.Errorf("expected bound this to be forwarded, got %v", gotThis)
	}
	if len(gotArgs) != 2 || gotArgs[0] != value.Number(2) || gotArgs[1] != value.Number(3) {
		t.Errorf("expected bound args [2 3], got %v", gotArgs)
	}
}

func TestArrayDefineOwnPropertyLengthTruncatesElements(t *testing.T) {
	table := NewKindTable()
	arr := NewWithKind(table, KindArray, nil)
	arr.DefineOwnProperty(StringKey("0"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	arr.DefineOwnProperty(StringKey("1"), Property{Value: value.Number(2), Attrs: DefaultDataAttributes()})
	arr.DefineOwnProperty(StringKey("2"), Property{Value: value.Number(3), Attrs: DefaultDataAttributes()})

	ok, err := arr.DefineOwnProperty(StringKey("length"), Property{Value: value.Number(1), Attrs: DefaultDataAttributes()})
	if err != nil || !ok {
		t.Fatalf("expected truncating length to succeed, got (%v, %v)", ok, err)
	}
	if _, found := arr.GetOwnProperty(StringKey("1")); found {
		t.Error("expected index 1 to be removed after truncating length to 1")
	}
	if _, found := arr.GetOwnProperty(StringKey("0")); !found {
		t.Error("expected index 0 to survive truncating length to 1")
	}
}
