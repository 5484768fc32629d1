package environment

import (
	"testing"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

func TestCompileTimeEnvironmentDeclareAssignsSequentialSlots(t *testing.T) {
	c := NewCompileTimeEnvironment(nil, false)
	a := c.Declare("a")
	b := c.Declare("b")
	if a != 0 || b != 1 {
		t.Errorf("expected slots 0 and 1, got %d and %d", a, b)
	}
	if c.SlotCount() != 2 {
		t.Errorf("expected SlotCount 2, got %d", c.SlotCount())
	}
}

func TestCompileTimeEnvironmentRedeclareReturnsSameSlot(t *testing.T) {
	c := NewCompileTimeEnvironment(nil, false)
	first := c.Declare("x")
	second := c.Declare("x")
	if first != second {
		t.Errorf("expected redeclaring the same name to return the same slot, got %d and %d", first, second)
	}
	if c.SlotCount() != 1 {
		t.Errorf("expected a single slot for a redeclared name, got %d", c.SlotCount())
	}
}

func TestCompileTimeEnvironmentResolveWalksParents(t *testing.T) {
	outer := NewCompileTimeEnvironment(nil, false)
	outer.Declare("x")
	inner := NewCompileTimeEnvironment(outer, false)
	inner.Declare("y")

	hops, slot, ok := inner.Resolve("x")
	if !ok || hops != 1 || slot != 0 {
		t.Errorf("expected (hops=1, slot=0, ok=true), got (%d, %d, %v)", hops, slot, ok)
	}

	hops, slot, ok = inner.Resolve("y")
	if !ok || hops != 0 || slot != 0 {
		t.Errorf("expected (hops=0, slot=0, ok=true), got (%d, %d, %v)", hops, slot, ok)
	}
}

func TestCompileTimeEnvironmentResolveUnknownNameFails(t *testing.T) {
	c := NewCompileTimeEnvironment(nil, false)
	_, _, ok := c.Resolve("missing")
	if ok {
		t.Error("expected Resolve to fail for an undeclared name")
	}
}

func TestCompileTimeEnvironmentPoisonedScopeStopsStaticResolution(t *testing.T) {
	outer := NewCompileTimeEnvironment(nil, false)
	outer.Declare("x")
	inner := NewCompileTimeEnvironment(outer, false)
	inner.MarkPoisoned()

	_, _, ok := inner.Resolve("x")
	if ok {
		t.Error("expected Resolve to report not-found once the scope is poisoned, even though x exists in an enclosing scope")
	}
	if !inner.Poisoned() {
		t.Error("expected Poisoned() to report true after MarkPoisoned")
	}
}

func TestCompileTimeEnvironmentNamesPreservesDeclarationOrder(t *testing.T) {
	c := NewCompileTimeEnvironment(nil, false)
	c.Declare("b")
	c.Declare("a")
	names := c.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("expected [b a], got %v", names)
	}
}

func newTestObject() *object.Object {
	table := object.NewKindTable()
	return object.New(table, nil)
}

func TestInitSlotAndGetSlotClearsTDZ(t *testing.T) {
	env := New(nil, nil, 1)
	if _, err := env.GetSlot(0); err != ErrTDZ {
		t.Fatalf("expected ErrTDZ before InitSlot, got %v", err)
	}
	env.InitSlot(0, value.Number(1), true)
	got, err := env.GetSlot(0)
	if err != nil {
		t.Fatalf("unexpected error after InitSlot: %v", err)
	}
	if got != value.Number(1) {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestSetSlotUpdatesMutableBinding(t *testing.T) {
	env := New(nil, nil, 1)
	env.InitSlot(0, value.Number(1), true)
	ok, err := env.SetSlot(0, value.Number(2))
	if err != nil || !ok {
		t.Fatalf("expected SetSlot to succeed on a mutable binding, got (%v, %v)", ok, err)
	}
	got, _ := env.GetSlot(0)
	if got != value.Number(2) {
		t.Errorf("expected 2, got %v", got)
	}
}

func TestSetSlotRejectsConstBinding(t *testing.T) {
	env := New(nil, nil, 1)
	env.InitSlot(0, value.Number(1), false)
	ok, err := env.SetSlot(0, value.Number(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected SetSlot to fail on a const binding")
	}
	got, _ := env.GetSlot(0)
	if got != value.Number(1) {
		t.Errorf("expected the const binding to remain 1, got %v", got)
	}
}

func TestSetSlotOnUninitializedSlotReturnsTDZ(t *testing.T) {
	env := New(nil, nil, 1)
	_, err := env.SetSlot(0, value.Number(1))
	if err != ErrTDZ {
		t.Errorf("expected ErrTDZ writing to an uninitialized slot, got %v", err)
	}
}

func TestDeclareDynamicGetAndSetDynamic(t *testing.T) {
	env := New(nil, nil, 0)
	env.DeclareDynamic("x", value.Number(10), true)
	got, err := env.GetDynamic("x")
	if err != nil || got != value.Number(10) {
		t.Fatalf("expected (10, nil), got (%v, %v)", got, err)
	}
	if err := env.SetDynamic("x", value.Number(20)); err != nil {
		t.Fatalf("expected SetDynamic to succeed for a declared dynamic binding, got %v", err)
	}
	got, _ = env.GetDynamic("x")
	if got != value.Number(20) {
		t.Errorf("expected 20, got %v", got)
	}
}

func TestDeclareDynamicMarksEnvironmentPoisoned(t *testing.T) {
	env := New(nil, nil, 0)
	if env.Poisoned() {
		t.Fatal("expected a fresh environment to be unpoisoned")
	}
	env.DeclareDynamic("x", value.Undefined, true)
	if !env.Poisoned() {
		t.Error("expected DeclareDynamic to mark the environment poisoned")
	}
}

func TestGetDynamicFallsThroughToParentCompileTimeSlot(t *testing.T) {
	compile := NewCompileTimeEnvironment(nil, false)
	slot := compile.Declare("x")
	parent := New(nil, compile, compile.SlotCount())
	parent.InitSlot(slot, value.Number(1), true)
	child := New(parent, nil, 0)

	got, err := child.GetDynamic("x")
	if err != nil || got != value.Number(1) {
		t.Fatalf("expected to resolve x through the parent's compile-time slot, got (%v, %v)", got, err)
	}
}

func TestSetDynamicUnknownNameFails(t *testing.T) {
	env := New(nil, nil, 0)
	if err := env.SetDynamic("missing", value.Number(1)); err != ErrNotDefined {
		t.Errorf("expected ErrNotDefined for a name that was never declared, got %v", err)
	}
}

func TestThisBindingWalksUpToNearestFunctionBoundary(t *testing.T) {
	receiver := value.FromRef(value.KindObject, newTestObject())
	fn := NewFunction(nil, nil, 0, newTestObject(), nil)
	fn.BindThis(receiver)
	block := New(fn, nil, 0)

	if got := block.ThisBinding(); got != receiver {
		t.Error("expected ThisBinding to resolve through to the enclosing function environment")
	}
}

func TestThisBindingDefaultsToUndefinedUntilBound(t *testing.T) {
	fn := NewFunction(nil, nil, 0, newTestObject(), nil)
	if got := fn.ThisBinding(); got != value.Undefined {
		t.Errorf("expected an unbound function environment's this to read as undefined, got %v", got)
	}
}

func TestThisBindingAtGlobalIsUndefined(t *testing.T) {
	genv := NewGlobal(newTestObject())
	if got := genv.ThisBinding(); got != value.Undefined {
		t.Errorf("expected this at the global environment to be undefined, got %v", got)
	}
}

func TestNewTargetWalksToFunctionBoundary(t *testing.T) {
	newTarget := newTestObject()
	fn := NewFunction(nil, nil, 0, newTestObject(), newTarget)
	block := New(fn, nil, 0)

	if got := block.NewTarget(); got != newTarget {
		t.Error("expected NewTarget to resolve through to the enclosing function environment")
	}
}

func TestSuperBaseDefaultsToNilThenCanBeSet(t *testing.T) {
	fn := NewFunction(nil, nil, 0, newTestObject(), nil)
	if got := fn.SuperBase(); got != nil {
		t.Errorf("expected SuperBase to default to nil, got %v", got)
	}

	base := newTestObject()
	fn.SetSuperBase(base)
	if got := fn.SuperBase(); got != base {
		t.Error("expected SetSuperBase to update the value returned by SuperBase")
	}
}

func TestGlobalObjectReturnsTheBoundGlobal(t *testing.T) {
	global := newTestObject()
	env := NewGlobal(global)
	if env.GlobalObject() != global {
		t.Error("expected GlobalObject to return the object passed to NewGlobal")
	}
}

func TestGlobalObjectWalksUpFromNestedEnvironments(t *testing.T) {
	global := newTestObject()
	genv := NewGlobal(global)
	fn := NewFunction(genv, nil, 0, newTestObject(), nil)
	block := New(fn, nil, 0)

	if block.GlobalObject() != global {
		t.Error("expected GlobalObject to walk up through function and declarative environments")
	}
}
