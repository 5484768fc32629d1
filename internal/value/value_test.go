package value

import (
	"math"
	"math/big"
	"testing"
)

func TestKindStringNames(t *testing.T) {
	cases := map[Kind]string{
		KindUndefined: "undefined",
		KindNull:      "null",
		KindBoolean:   "boolean",
		KindNumber:    "number",
		KindInteger32: "number",
		KindBigInt:    "bigint",
		KindString:    "string",
		KindSymbol:    "symbol",
		KindObject:    "object",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestBoolReturnsCanonicalSingletons(t *testing.T) {
	if Bool(true) != True {
		t.Error("Bool(true) should be the True singleton")
	}
	if Bool(false) != False {
		t.Error("Bool(false) should be the False singleton")
	}
}

func TestIsNullish(t *testing.T) {
	if !Undefined.IsNullish() || !Null.IsNullish() {
		t.Error("Undefined and Null should both be nullish")
	}
	if Number(0).IsNullish() {
		t.Error("Number(0) should not be nullish")
	}
}

func TestAsFloat64CollapsesInteger32IntoNumber(t *testing.T) {
	if got := Integer32(42).AsFloat64(); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
	if got := Number(3.5).AsFloat64(); got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}
}

func TestAsFloat64OnNonNumericIsNaN(t *testing.T) {
	if got := Undefined.AsFloat64(); !math.IsNaN(got) {
		t.Errorf("expected NaN for a non-numeric Value, got %v", got)
	}
}

func TestStrictEqualsInteger32AndNumberCrossRepresentation(t *testing.T) {
	if !StrictEquals(Integer32(5), Number(5.0)) {
		t.Error("Integer32(5) should strict-equal Number(5.0)")
	}
	if !StrictEquals(Number(5.0), Integer32(5)) {
		t.Error("StrictEquals should be symmetric across representations")
	}
	if StrictEquals(Integer32(5), Number(5.5)) {
		t.Error("Integer32(5) should not strict-equal Number(5.5)")
	}
}

func TestStrictEqualsNaNIsNeverEqual(t *testing.T) {
	nan := Number(math.NaN())
	if StrictEquals(nan, nan) {
		t.Error("NaN should never strict-equal itself")
	}
}

func TestStrictEqualsDifferentKindsAreUnequal(t *testing.T) {
	if StrictEquals(Undefined, Null) {
		t.Error("Undefined and Null are different kinds and must not strict-equal")
	}
}

func TestStrictEqualsPrimitives(t *testing.T) {
	if !StrictEquals(True, Bool(true)) {
		t.Error("expected True to strict-equal Bool(true)")
	}
	if StrictEquals(True, False) {
		t.Error("True should not strict-equal False")
	}
	if !StrictEquals(Undefined, Undefined) {
		t.Error("Undefined should strict-equal Undefined")
	}
}

func TestSameValueZeroTreatsNaNAsEqual(t *testing.T) {
	nan := Number(math.NaN())
	if !SameValueZero(nan, nan) {
		t.Error("SameValueZero should treat NaN as equal to itself")
	}
}

func TestSameValueZeroTreatsSignedZeroAsEqual(t *testing.T) {
	posZero := Number(0)
	negZero := Number(math.Copysign(0, -1))
	if !SameValueZero(posZero, negZero) {
		t.Error("SameValueZero should treat +0 and -0 as equal")
	}
}

func TestSameValueDistinguishesSignedZero(t *testing.T) {
	posZero := Number(0)
	negZero := Number(math.Copysign(0, -1))
	if SameValue(posZero, negZero) {
		t.Error("SameValue must distinguish +0 from -0")
	}
	if !SameValue(posZero, Number(0)) {
		t.Error("SameValue should treat +0 as equal to +0")
	}
}

func TestSameValueTreatsNaNAsEqual(t *testing.T) {
	nan := Number(math.NaN())
	if !SameValue(nan, nan) {
		t.Error("SameValue should treat NaN as equal to itself")
	}
}

func TestToBooleanFalsyValues(t *testing.T) {
	falsy := []Value{Undefined, Null, False, Number(0), Number(math.NaN()), Integer32(0), NewBigInt(big.NewInt(0))}
	for _, v := range falsy {
		if ToBoolean(v) {
			t.Errorf("expected %v to be falsy", v.Kind())
		}
	}
}

func TestToBooleanTruthyValues(t *testing.T) {
	truthy := []Value{True, Number(1), Number(-1), Integer32(1), NewBigInt(big.NewInt(1)), NewBigInt(big.NewInt(-1))}
	for _, v := range truthy {
		if !ToBoolean(v) {
			t.Errorf("expected %v to be truthy", v.Kind())
		}
	}
}

type fakeRef struct{ id int }

func (fakeRef) HeapKind() string { return "fake" }

func TestAsNarrowsRefToConcreteType(t *testing.T) {
	ref := &fakeRef{id: 1}
	v := FromRef(KindObject, ref)
	got, ok := As[*fakeRef](v)
	if !ok || got != ref {
		t.Fatal("expected As to narrow back to the concrete *fakeRef")
	}
}

func TestAsFailsOnNonHeapValue(t *testing.T) {
	_, ok := As[*fakeRef](Number(1))
	if ok {
		t.Error("As should fail to narrow a non-Ref Value")
	}
}

func TestFromRefAsRefRoundTrips(t *testing.T) {
	ref := &fakeRef{id: 2}
	v := FromRef(KindObject, ref)
	if v.AsRef() != ref {
		t.Error("AsRef should return the same ref passed to FromRef")
	}
	if v.Kind() != KindObject {
		t.Errorf("expected KindObject, got %v", v.Kind())
	}
}
