package value

import (
	"math/big"
	"testing"
)

func TestNewStringStringOfRoundTrip(t *testing.T) {
	v := NewString("hello")
	if v.Kind() != KindString {
		t.Fatalf("expected KindString, got %v", v.Kind())
	}
	if got := StringOf(v); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestJSStringValueEqualsComparesContent(t *testing.T) {
	a := NewString("x")
	b := NewString("x")
	aStr, _ := As[*JSString](a)
	bStr, _ := As[*JSString](b)
	if !aStr.ValueEquals(bStr) {
		t.Error("two distinct JSString instances with the same content should be ValueEquals")
	}
	if !StrictEquals(a, b) {
		t.Error("StrictEquals on two distinct strings with identical content should be true")
	}
}

func TestJSStringLenIsByteLength(t *testing.T) {
	str, _ := As[*JSString](NewString("abc"))
	if str.Len() != 3 {
		t.Errorf("expected length 3, got %d", str.Len())
	}
}

func TestNewBigIntBigIntOfRoundTrip(t *testing.T) {
	n := big.NewInt(123456789)
	v := NewBigInt(n)
	if v.Kind() != KindBigInt {
		t.Fatalf("expected KindBigInt, got %v", v.Kind())
	}
	if got := BigIntOf(v); got.Cmp(n) != 0 {
		t.Errorf("expected %s, got %s", n, got)
	}
}

func TestNewBigIntCopiesInput(t *testing.T) {
	n := big.NewInt(1)
	v := NewBigInt(n)
	n.SetInt64(999)
	if got := BigIntOf(v); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("NewBigInt should copy its input, got %s after mutating the original", got)
	}
}

func TestBigIntValueEqualsComparesMagnitude(t *testing.T) {
	a := NewBigInt(big.NewInt(10))
	b := NewBigInt(big.NewInt(10))
	if !StrictEquals(a, b) {
		t.Error("two BigInt Values with equal magnitude should strict-equal")
	}
	c := NewBigInt(big.NewInt(11))
	if StrictEquals(a, c) {
		t.Error("BigInt Values with different magnitude should not strict-equal")
	}
}
