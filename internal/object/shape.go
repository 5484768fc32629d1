// Package object implements the shape-based object model (spec.md §4.1's
// sibling object-model section): shape transition trees, inline caches,
// and the internal-method dispatch table objects present to the VM and
// compiler. The dispatch-table shape is grounded on
// internal/provider/provider.go's LanguageProvider/BaseProvider split: a
// small closed interface plus a struct that caches derived data behind a
// lock, generalized here from "tree-sitter node kind" to "internal object
// kind".
package object

// Attributes are the three boolean property attributes ECMAScript defines
// for every data or accessor property, plus the accessor bit.
type Attributes struct {
	Writable     bool
	Enumerable   bool
	Configurable bool
	Accessor     bool
}

// DefaultDataAttributes matches the attributes an ordinary `obj.x = v`
// assignment creates a property with.
func DefaultDataAttributes() Attributes {
	return Attributes{Writable: true, Enumerable: true, Configurable: true}
}

// Shape is one node in the transition tree shared by every object that has
// followed the same sequence of property additions (spec.md: "objects with
// the same sequence of added property keys share a shape"). Shapes are
// immutable once created; adding a property walks to (or creates) a child.
type Shape struct {
	parent      *Shape
	key         string
	slot        int
	attrs       Attributes
	transitions map[string]*Shape

	dictionary bool // true once this object line has been demoted
	propCount  int  // number of data/accessor slots described by this shape's ancestry
}

// RootShape is the empty shape every fresh ordinary object starts from.
func RootShape() *Shape {
	return &Shape{}
}

// Key reports the property key this shape node added, and the slot index
// it occupies. Only meaningful on a non-root shape.
func (s *Shape) Key() string          { return s.key }
func (s *Shape) Slot() int            { return s.slot }
func (s *Shape) Attrs() Attributes    { return s.attrs }
func (s *Shape) IsDictionary() bool   { return s.dictionary }
func (s *Shape) PropertyCount() int   { return s.propCount }
func (s *Shape) Parent() *Shape       { return s.parent }

// Transition returns the child shape reached by adding key with attrs,
// creating it if this exact transition hasn't been taken before. Shapes
// are interned per-parent so that two objects adding the same key with the
// same attributes in the same order converge back onto one shape node
// (spec.md's inline-cache sharing depends on this).
func (s *Shape) Transition(key string, attrs Attributes) *Shape {
	if s.transitions == nil {
		s.transitions = make(map[string]*Shape)
	}
	if child, ok := s.transitions[key]; ok && child.attrs == attrs {
		return child
	}
	child := &Shape{
		parent:    s,
		key:       key,
		slot:      s.propCount,
		attrs:     attrs,
		propCount: s.propCount + 1,
	}
	// Only cache the transition when attrs match the common case; a
	// differently-attributed re-add of the same key still produces a
	// correct (if uncached) shape, matching how V8-style engines treat
	// attribute changes as shape-breaking.
	if _, exists := s.transitions[key]; !exists {
		s.transitions[key] = child
	}
	return child
}

// Lookup walks from s to its root looking for key, returning the shape
// node that defines it (so callers can read Slot/Attrs) and ok.
func (s *Shape) Lookup(key string) (*Shape, bool) {
	for cur := s; cur != nil && cur.parent != nil; cur = cur.parent {
		if cur.key == key {
			return cur, true
		}
	}
	return nil, false
}

// ToDictionary produces a dictionary-mode shape sentinel for objects that
// have taken on a property access pattern unsuited to the transition tree
// (very high property churn, deletes that would otherwise fragment the
// tree). Dictionary-mode objects store their own independent key->slot map
// on the Object rather than sharing a Shape (spec.md: "objects with highly
// dynamic property sets demote to a dictionary representation").
func (s *Shape) ToDictionary() *Shape {
	return &Shape{dictionary: true, propCount: s.propCount}
}

// DictionaryDemotionThreshold is the number of Delete operations against
// one shape lineage after which an object demotes to dictionary mode.
// Chosen to keep the common case (a handful of deletes on a long-lived
// object) on the fast path while bounding transition-tree fragmentation
// from pathological delete-heavy code.
const DictionaryDemotionThreshold = 8
