package value

import "github.com/termfx/ecmacore/internal/gc"

// JSString is the heap payload backing KindString Values. It embeds
// gc.Header so it satisfies gc.Cell directly; the VM is responsible for
// running it through Heap.Allocate when a string is produced at runtime
// (concatenation, ToString coercion, …), while constant-pool strings
// built at compile time stay unallocated and are kept alive by the
// CodeBlock itself rooting its constant pool.
type JSString struct {
	gc.Header
	s string
}

func (s *JSString) HeapKind() string { return "string" }

// Trace reports no outgoing references: a JSString owns only its raw Go
// string, which the Go runtime's own GC already manages.
func (s *JSString) Trace(visit func(gc.Cell)) {}

// Raw returns the underlying Go string.
func (s *JSString) Raw() string { return s.s }

// Len reports the string's length (UTF-16 code unit count would be the
// ECMA-262-faithful measure; Go string byte length is used here, left to
// the embedder layer to adapt before exposing `.length` semantics that
// depend on UTF-16 surrogate pairs).
func (s *JSString) Len() int { return len(s.s) }

// ValueEquals implements content equality for StrictEquals/refEquals.
func (s *JSString) ValueEquals(other Ref) bool {
	o, ok := other.(*JSString)
	return ok && o.s == s.s
}

// NewString wraps s as a String Value.
func NewString(s string) Value {
	return FromRef(KindString, &JSString{s: s})
}

// StringOf extracts the Go string from a KindString Value. Panics if v is
// not a String.
func StringOf(v Value) string {
	str, _ := As[*JSString](v)
	return str.Raw()
}
