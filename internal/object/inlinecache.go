package object

// PolymorphicDegree is the number of distinct shapes an inline cache site
// remembers before it gives up specializing and falls back to a generic
// (megamorphic) lookup (spec.md §4.1: "polymorphic fallback after N
// shapes"). Four matches the common monomorphic/polymorphic/megamorphic
// split used by mainstream shape-based engines.
const PolymorphicDegree = 4

type cacheEntry struct {
	shape *Shape
	slot  int
	kind  cacheKind
}

type cacheKind uint8

const (
	cacheMiss cacheKind = iota
	cacheOwn
	cacheProto
)

// InlineCacheSite is the per-bytecode-opcode-site memo the compiler
// allocates one of for every property-access instruction (spec.md §4.5/
// §4.1: "per-opcode-site shape+slot memoization"). The VM consults it
// before falling back to the full [[Get]]/[[Set]] algorithm.
type InlineCacheSite struct {
	entries      [PolymorphicDegree]cacheEntry
	count        int
	megamorphic  bool
}

// Lookup reports the cached slot for shape, if this site has seen it
// before. ok is false on a cache miss (including once the site has gone
// megamorphic, since it stops remembering individual shapes at that
// point).
func (s *InlineCacheSite) Lookup(shape *Shape) (slot int, ok bool) {
	if s.megamorphic {
		return 0, false
	}
	for i := 0; i < s.count; i++ {
		if s.entries[i].shape == shape {
			return s.entries[i].slot, true
		}
	}
	return 0, false
}

// Fill records that shape resolves to slot at this site. Up to
// PolymorphicDegree distinct shapes are kept; a further distinct shape
// turns the site megamorphic without evicting any entry, and a
// megamorphic site records nothing more.
func (s *InlineCacheSite) Fill(shape *Shape, slot int) {
	if s.megamorphic {
		return
	}
	for i := 0; i < s.count; i++ {
		if s.entries[i].shape == shape {
			s.entries[i].slot = slot
			return
		}
	}
	if s.count < PolymorphicDegree {
		s.entries[s.count] = cacheEntry{shape: shape, slot: slot, kind: cacheOwn}
		s.count++
		return
	}
	s.megamorphic = true
}

// IsMonomorphic reports whether this site has only ever observed one
// shape, the case the VM can specialize most aggressively.
func (s *InlineCacheSite) IsMonomorphic() bool { return s.count == 1 && !s.megamorphic }

// IsMegamorphic reports whether this site gave up shape-specializing.
func (s *InlineCacheSite) IsMegamorphic() bool { return s.megamorphic }

// Reset clears a site, used when a CodeBlock is recompiled (e.g. after a
// redefinition that would make stale cache entries observably wrong, such
// as a class method redefinition).
func (s *InlineCacheSite) Reset() {
	*s = InlineCacheSite{}
}
