// Package value implements the tagged-union Value type shared by every
// other engine component: the compiler's constant pool, the VM's register
// file and value stack, and the object model's property slots all hold
// value.Value directly.
package value

import (
	"math"
)

// Kind tags the case a Value currently holds.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindInteger32
	KindBigInt
	KindString
	KindSymbol
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber, KindInteger32:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Ref is the minimal interface a GC-managed heap payload must satisfy to be
// stored inline in a Value (BigInt handle, String rope/interned handle,
// Symbol handle, Object handle). The GC package provides the concrete
// implementations; this package only needs identity and a type tag.
type Ref interface {
	// HeapKind names the payload kind for debugging and the value.Kind
	// dispatch in Value.Kind.
	HeapKind() string
}

// Value is a 7-case-plus-sentinels discriminated union, per spec.md §3.
// It is deliberately a small value type (an interface-free tagged struct)
// so that pushing/popping it on the VM's value stack never allocates.
type Value struct {
	kind Kind
	num  float64 // Number payload, or the float64 bit-pattern home for Integer32
	i32  int32   // Integer32 payload
	b    bool    // Boolean payload
	ref  Ref     // BigInt / String / Symbol / Object payload
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBoolean, b: true}
	False     = Value{kind: KindBoolean, b: false}
)

// Bool returns the canonical True/False Value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number constructs a Value holding an IEEE-754 double, per spec.md §3's
// Number(f64) case.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Integer32 constructs the engine-internal fast-path integer case. It MUST
// compare strict-equal to Number(float64(n)) of the same mathematical
// value (spec.md §3 invariant).
func Integer32(n int32) Value {
	return Value{kind: KindInteger32, i32: n}
}

// FromRef wraps a heap Ref (BigInt, String, Symbol, or Object handle) as a
// Value of the matching Kind. kind must be one of KindBigInt, KindString,
// KindSymbol, KindObject.
func FromRef(kind Kind, ref Ref) Value {
	return Value{kind: kind, ref: ref}
}

// Kind reports which case v currently holds.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullish() bool   { return v.kind == KindUndefined || v.kind == KindNull }

// AsBool returns the boolean payload. Caller must check Kind() == KindBoolean.
func (v Value) AsBool() bool { return v.b }

// AsFloat64 returns the mathematical value as a float64, collapsing the
// Integer32 fast path into Number so callers that don't care about the
// distinction can treat both uniformly.
func (v Value) AsFloat64() float64 {
	switch v.kind {
	case KindInteger32:
		return float64(v.i32)
	case KindNumber:
		return v.num
	default:
		return math.NaN()
	}
}

// AsInt32 returns the Integer32 payload. Caller must check Kind() == KindInteger32.
func (v Value) AsInt32() int32 { return v.i32 }

// AsRef returns the heap payload. Caller must check Kind() is one of
// KindBigInt, KindString, KindSymbol, KindObject.
func (v Value) AsRef() Ref { return v.ref }

// As attempts to narrow v's heap Ref to the concrete type T, the Go-native
// stand-in for the embedder API's `value.try_into_rust::<T>()` (spec.md
// §6). It reports ok=false for any Value not holding a Ref of type T.
func As[T Ref](v Value) (T, bool) {
	var zero T
	if v.ref == nil {
		return zero, false
	}
	t, ok := v.ref.(T)
	return t, ok
}

// IsNaN reports whether v is the Number/Integer32 NaN value.
func (v Value) IsNaN() bool {
	return (v.kind == KindNumber) && math.IsNaN(v.num)
}

// StrictEquals implements the `===` operator, including the Integer32/Number
// cross-representation equality invariant and the NaN != NaN rule from
// spec.md §3.
func StrictEquals(a, b Value) bool {
	if a.kind == KindInteger32 && b.kind == KindNumber {
		return float64(a.i32) == b.num
	}
	if a.kind == KindNumber && b.kind == KindInteger32 {
		return a.num == float64(b.i32)
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num // NaN != NaN falls out of IEEE-754 == here
	case KindInteger32:
		return a.i32 == b.i32
	case KindBigInt, KindString, KindSymbol:
		return refEquals(a.ref, b.ref)
	case KindObject:
		return a.ref == b.ref
	default:
		return false
	}
}

// refEquals compares heap refs by the equality the owning package defines
// (e.g. interned strings compare by handle, ropes by content).
func refEquals(a, b Ref) bool {
	type valueEq interface{ ValueEquals(Ref) bool }
	if ve, ok := a.(valueEq); ok {
		return ve.ValueEquals(b)
	}
	return a == b
}

// SameValueZero implements the SameValueZero algorithm: like StrictEquals
// but +0 equals -0 is also true, and NaN equals NaN is also true — used by
// Array.prototype.includes, Map/Set key comparison, and structured clone.
func SameValueZero(a, b Value) bool {
	if a.kind == KindNumber && b.kind == KindNumber {
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	}
	return StrictEquals(a, b)
}

// SameValue implements the SameValue algorithm: like SameValueZero except
// +0 and -0 are distinguished (spec.md §3 invariant:
// `same_value(+0, -0)` is false).
func SameValue(a, b Value) bool {
	if a.kind == KindNumber && b.kind == KindNumber {
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		if a.num == 0 && b.num == 0 {
			return math.Signbit(a.num) == math.Signbit(b.num)
		}
		return a.num == b.num
	}
	return StrictEquals(a, b)
}

// ToBoolean implements the ToBoolean abstract operation used by conditional
// opcodes (jump-if-true/false) and the logical operators.
func ToBoolean(v Value) bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBoolean:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindInteger32:
		return v.i32 != 0
	case KindBigInt:
		return BigIntOf(v).Sign() != 0
	case KindString:
		if s, ok := As[interface {
			Ref
			Len() int
		}](v); ok {
			return s.Len() > 0
		}
		return true
	default:
		return true
	}
}
