package object

import "testing"

func TestRootShapeHasNoParentOrKey(t *testing.T) {
	root := RootShape()
	if root.Parent() != nil {
		t.Error("expected RootShape to have no parent")
	}
	if root.PropertyCount() != 0 {
		t.Errorf("expected RootShape's PropertyCount to be 0, got %d", root.PropertyCount())
	}
}

func TestTransitionAssignsIncrementingSlots(t *testing.T) {
	root := RootShape()
	attrs := DefaultDataAttributes()
	s1 := root.Transition("x", attrs)
	s2 := s1.Transition("y", attrs)

	if s1.Slot() != 0 || s1.Key() != "x" {
		t.Errorf("expected slot 0 for x, got slot %d key %q", s1.Slot(), s1.Key())
	}
	if s2.Slot() != 1 || s2.Key() != "y" {
		t.Errorf("expected slot 1 for y, got slot %d key %q", s2.Slot(), s2.Key())
	}
	if s2.PropertyCount() != 2 {
		t.Errorf("expected PropertyCount 2, got %d", s2.PropertyCount())
	}
}

func TestTransitionIsInternedPerParent(t *testing.T) {
	root := RootShape()
	attrs := DefaultDataAttributes()
	a := root.Transition("x", attrs)
	b := root.Transition("x", attrs)
	if a != b {
		t.Error("expected two objects adding the same key with the same attrs to converge on one shape")
	}
}

func TestTransitionWithDifferentAttrsProducesDistinctShape(t *testing.T) {
	root := RootShape()
	a := root.Transition("x", DefaultDataAttributes())
	b := root.Transition("x", Attributes{Writable: false, Enumerable: true, Configurable: true})
	if a == b {
		t.Error("expected differently-attributed re-adds of the same key to produce distinct shapes")
	}
}

func TestLookupFindsKeyInAncestry(t *testing.T) {
	root := RootShape()
	s1 := root.Transition("x", DefaultDataAttributes())
	s2 := s1.Transition("y", DefaultDataAttributes())

	node, ok := s2.Lookup("x")
	if !ok || node.Slot() != 0 {
		t.Fatalf("expected to find x at slot 0, got (%v, %v)", node, ok)
	}
	if _, ok := s2.Lookup("missing"); ok {
		t.Error("expected Lookup to fail for a key never added")
	}
}

func TestLookupOnRootNeverMatches(t *testing.T) {
	root := RootShape()
	if _, ok := root.Lookup(""); ok {
		t.Error("expected the root shape (no key of its own) never to match a Lookup")
	}
}

func TestToDictionaryPreservesPropertyCount(t *testing.T) {
	root := RootShape()
	s := root.Transition("x", DefaultDataAttributes()).Transition("y", DefaultDataAttributes())
	dict := s.ToDictionary()
	if !dict.IsDictionary() {
		t.Error("expected ToDictionary's result to report IsDictionary")
	}
	if dict.PropertyCount() != s.PropertyCount() {
		t.Errorf("expected dictionary shape to preserve PropertyCount, got %d want %d", dict.PropertyCount(), s.PropertyCount())
	}
}

func TestInlineCacheLookupMissOnEmptySite(t *testing.T) {
	var site InlineCacheSite
	shape := RootShape().Transition("x", DefaultDataAttributes())
	if _, ok := site.Lookup(shape); ok {
		t.Error("expected a miss on an empty cache site")
	}
}

func TestInlineCacheFillThenLookupHits(t *testing.T) {
	var site InlineCacheSite
	shape := RootShape().Transition("x", DefaultDataAttributes())
	site.Fill(shape, 0)

	slot, ok := site.Lookup(shape)
	if !ok || slot != 0 {
		t.Fatalf("expected a hit at slot 0, got (%d, %v)", slot, ok)
	}
	if !site.IsMonomorphic() {
		t.Error("expected a site with exactly one observed shape to be monomorphic")
	}
}

func TestInlineCacheRefillOfSameShapeUpdatesSlot(t *testing.T) {
	var site InlineCacheSite
	shape := RootShape().Transition("x", DefaultDataAttributes())
	site.Fill(shape, 0)
	site.Fill(shape, 5)

	slot, ok := site.Lookup(shape)
	if !ok || slot != 5 {
		t.Fatalf("expected the slot to be updated to 5, got (%d, %v)", slot, ok)
	}
}

func TestInlineCacheGoesMegamorphicPastPolymorphicDegree(t *testing.T) {
	var site InlineCacheSite
	root := RootShape()
	for i := 0; i < PolymorphicDegree; i++ {
		shape := root.Transition(string(rune('a'+i)), DefaultDataAttributes())
		site.Fill(shape, i)
	}
	if site.IsMegamorphic() {
		t.Fatal("expected the site not to be megamorphic yet after exactly PolymorphicDegree distinct shapes")
	}

	overflow := root.Transition("overflow", DefaultDataAttributes())
	site.Fill(overflow, 99)
	if !site.IsMegamorphic() {
		t.Error("expected the site to go megamorphic after exceeding PolymorphicDegree distinct shapes")
	}
	if _, ok := site.Lookup(overflow); ok {
		t.Error("expected Lookup to always miss once megamorphic")
	}
}

func TestInlineCacheResetClearsState(t *testing.T) {
	var site InlineCacheSite
	shape := RootShape().Transition("x", DefaultDataAttributes())
	site.Fill(shape, 0)
	site.Reset()

	if _, ok := site.Lookup(shape); ok {
		t.Error("expected Lookup to miss after Reset")
	}
	if site.IsMonomorphic() {
		t.Error("expected a freshly reset site not to report monomorphic")
	}
}
