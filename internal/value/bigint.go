package value

import (
	"math/big"

	"github.com/termfx/ecmacore/internal/gc"
)

// JSBigInt is the heap payload backing KindBigInt Values. It wraps
// math/big.Int directly rather than hand-rolling arbitrary-precision
// arithmetic, the same way the rest of this package leans on Go's standard
// library for anything not specific to the Value tagged-union shape itself.
type JSBigInt struct {
	gc.Header
	n *big.Int
}

func (b *JSBigInt) HeapKind() string { return "bigint" }

// Trace reports no outgoing references: a JSBigInt owns only its own
// big.Int, which Go's GC already manages.
func (b *JSBigInt) Trace(visit func(gc.Cell)) {}

// Int returns the underlying arbitrary-precision integer. Callers must not
// mutate the returned pointer.
func (b *JSBigInt) Int() *big.Int { return b.n }

func (b *JSBigInt) ValueEquals(other Ref) bool {
	o, ok := other.(*JSBigInt)
	return ok && b.n.Cmp(o.n) == 0
}

// NewBigInt wraps n as a BigInt Value. n is copied so the caller's pointer
// may be reused.
func NewBigInt(n *big.Int) Value {
	return FromRef(KindBigInt, &JSBigInt{n: new(big.Int).Set(n)})
}

// BigIntOf extracts the *big.Int from a KindBigInt Value. Panics if v is
// not a BigInt.
func BigIntOf(v Value) *big.Int {
	b, _ := As[*JSBigInt](v)
	return b.Int()
}
