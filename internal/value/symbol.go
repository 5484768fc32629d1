package value

import "github.com/termfx/ecmacore/internal/gc"

// JSSymbol is the heap payload backing KindSymbol Values. Symbols are
// compared by identity (pointer equality), never by description, so the
// type carries no canonicalization beyond the description string kept for
// Symbol.prototype.toString/description.
type JSSymbol struct {
	gc.Header
	description string
}

func (s *JSSymbol) HeapKind() string { return "symbol" }

// Trace reports no outgoing references.
func (s *JSSymbol) Trace(visit func(gc.Cell)) {}

// Description returns the string passed to Symbol(...), or "" for Symbol().
func (s *JSSymbol) Description() string { return s.description }

// NewSymbol allocates a fresh, globally-unique symbol with description desc.
func NewSymbol(desc string) Value {
	return FromRef(KindSymbol, &JSSymbol{description: desc})
}
