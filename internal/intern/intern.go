// Package intern deduplicates identifier and property-key strings behind a
// stable symbolic handle, the way internal/registry deduplicates language
// providers behind a canonical name.
package intern

import "sync"

// Symbol is a stable, comparable handle for an interned string. The zero
// Symbol is never issued by a Table and can be used as a "no symbol" value.
type Symbol uint32

// Table is a per-engine deduplicated string store. One Table is owned by
// exactly one engine instance; callers never share a Table across engines
// (spec.md §5: "The string interner is per-engine").
type Table struct {
	mu      sync.RWMutex
	strings []string
	index   map[string]Symbol
}

// New creates an empty interning table.
func New() *Table {
	return &Table{
		index: make(map[string]Symbol),
	}
}

// Intern returns the Symbol for s, allocating a new one if s was not seen
// before. The empty string interns to a valid, reusable Symbol like any
// other value.
func (t *Table) Intern(s string) Symbol {
	t.mu.RLock()
	if sym, ok := t.index[s]; ok {
		t.mu.RUnlock()
		return sym
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if sym, ok := t.index[s]; ok {
		return sym
	}
	t.strings = append(t.strings, s)
	sym := Symbol(len(t.strings))
	t.index[s] = sym
	return sym
}

// String resolves a Symbol back to its string value. Looking up a Symbol
// not produced by this Table panics, matching the invariant that Symbols
// never escape their owning engine.
func (t *Table) String(sym Symbol) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if sym == 0 || int(sym) > len(t.strings) {
		panic("intern: symbol not owned by this table")
	}
	return t.strings[sym-1]
}

// Len reports how many distinct strings have been interned.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}
