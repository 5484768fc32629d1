package gc

import "testing"

// testCell is a minimal Cell used to exercise the collector without any
// dependency on internal/object or internal/value.
type testCell struct {
	Header
	name string
	refs []*testCell
}

func (c *testCell) Trace(visit func(Cell)) {
	for _, r := range c.refs {
		visit(r)
	}
}

func newTestHeap(cfg Config) *Heap {
	return New(cfg, nil)
}

func TestRootedCellSurvivesFullCollection(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	cell := &testCell{name: "root"}
	handle := h.Allocate(cell, 1)

	h.CollectFull()

	if h.Stats.CellsFreed != 0 {
		t.Fatalf("expected the rooted cell to survive, but %d cells were freed", h.Stats.CellsFreed)
	}
	if handle.Cell().(*testCell) != cell {
		t.Error("Handle should still reference the original cell")
	}
}

func TestReleasingTheOnlyRootAllowsCollection(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	cell := &testCell{name: "orphan"}
	handle := h.Allocate(cell, 1)
	handle.Release()

	h.CollectFull()

	if h.Stats.CellsFreed != 1 {
		t.Fatalf("expected exactly one cell freed, got %d", h.Stats.CellsFreed)
	}
}

func TestUnrootedCellReachableThroughTraceSurvives(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	child := &testCell{name: "child"}
	childHandle := h.Allocate(child, 1)
	childHandle.Release() // child has no root of its own

	parent := &testCell{name: "parent", refs: []*testCell{child}}
	h.Allocate(parent, 1) // parent's own Allocate-returned Handle stays rooted

	h.CollectFull()

	if h.Stats.CellsFreed != 0 {
		t.Fatalf("expected child to survive via parent's Trace, but %d cells were freed", h.Stats.CellsFreed)
	}
}

func TestUnreachableCellWithNoIncomingEdgeIsCollected(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	child := &testCell{name: "child"}
	childHandle := h.Allocate(child, 1)
	childHandle.Release()

	parent := &testCell{name: "parent"} // does NOT reference child
	h.Allocate(parent, 1)

	h.CollectFull()

	if h.Stats.CellsFreed != 1 {
		t.Fatalf("expected the unreferenced child to be freed, got %d cells freed", h.Stats.CellsFreed)
	}
}

func TestWeakRefDiesOnceTargetIsUnreachable(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	cell := &testCell{name: "weak-target"}
	handle := h.Allocate(cell, 1)
	weak := h.NewWeak(cell)

	if _, ok := weak.Get(); !ok {
		t.Fatal("expected the weak ref to be alive before collection")
	}

	handle.Release()
	h.CollectFull()

	if _, ok := weak.Get(); ok {
		t.Error("expected the weak ref to report dead after its target was collected")
	}
}

func TestWeakRefStaysAliveWhileRooted(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	cell := &testCell{name: "weak-target"}
	h.Allocate(cell, 1)
	weak := h.NewWeak(cell)

	h.CollectFull()

	if _, ok := weak.Get(); !ok {
		t.Error("expected the weak ref to stay alive while its target is still rooted")
	}
}

func TestFinalizerRunsExactlyOnceOnCollection(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	cell := &testCell{name: "finalizable"}
	handle := h.Allocate(cell, 1)
	runs := 0
	h.RegisterFinalizer(cell, func(Cell) { runs++ })

	handle.Release()
	h.CollectFull()
	h.CollectFull()

	if runs != 1 {
		t.Errorf("expected the finalizer to run exactly once, ran %d times", runs)
	}
	if h.Stats.FinalizersRun != 1 {
		t.Errorf("expected Stats.FinalizersRun == 1, got %d", h.Stats.FinalizersRun)
	}
}

func TestFinalizerDoesNotRunWhileCellIsStillReachable(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	cell := &testCell{name: "still-rooted"}
	h.Allocate(cell, 1)
	runs := 0
	h.RegisterFinalizer(cell, func(Cell) { runs++ })

	h.CollectFull()

	if runs != 0 {
		t.Errorf("expected the finalizer not to run while the cell is still rooted, ran %d times", runs)
	}
}

func TestYoungCellPromotesAfterPromoteAgeCollections(t *testing.T) {
	h := newTestHeap(Config{YoungCountThreshold: 4096, ByteThreshold: 4 << 20, PromoteAge: 2})
	cell := &testCell{name: "aging"}
	h.Allocate(cell, 1)

	header := cell.gcHeader()
	if !header.young {
		t.Fatal("expected a freshly allocated cell to start in the young generation")
	}

	h.CollectYoung()
	if !header.young {
		t.Fatal("expected the cell to still be young after one collection short of promoteAge")
	}

	h.CollectYoung()
	if header.young {
		t.Error("expected the cell to be promoted to the old generation after promoteAge collections")
	}
}

func TestCollectYoungDoesNotFreeUnreachableOldCells(t *testing.T) {
	h := newTestHeap(Config{YoungCountThreshold: 4096, ByteThreshold: 4 << 20, PromoteAge: 1})
	cell := &testCell{name: "old-orphan"}
	handle := h.Allocate(cell, 1)

	h.CollectYoung() // promotes cell to old generation while still rooted
	handle.Release()

	h.CollectYoung() // minor collection must not sweep an unreachable OLD cell
	if h.Stats.CellsFreed != 0 {
		t.Fatalf("expected a minor collection to leave the old unreachable cell alone, freed %d", h.Stats.CellsFreed)
	}

	h.CollectFull()
	if h.Stats.CellsFreed != 1 {
		t.Fatalf("expected a full collection to free the old unreachable cell, freed %d", h.Stats.CellsFreed)
	}
}

func TestDefaultConfigFillsZeroFields(t *testing.T) {
	h := New(Config{}, nil)
	if h.youngThreshold != DefaultConfig().YoungCountThreshold {
		t.Errorf("expected default young threshold, got %d", h.youngThreshold)
	}
	if h.byteThreshold != DefaultConfig().ByteThreshold {
		t.Errorf("expected default byte threshold, got %d", h.byteThreshold)
	}
	if h.promoteAge != DefaultConfig().PromoteAge {
		t.Errorf("expected default promote age, got %d", h.promoteAge)
	}
}

type weakMapCell struct {
	Header
	key   *testCell
	value *testCell
}

func (w *weakMapCell) Trace(visit func(Cell)) {
	// The value is held weakly by key liveness, not traced directly —
	// exercised through EphemeronPairs instead.
}

func (w *weakMapCell) EphemeronPairs() []EphemeronPair {
	return []EphemeronPair{{
		Key: w.key,
		MarkValue: func(visit func(Cell)) {
			visit(w.value)
		},
	}}
}

func TestEphemeronValueSurvivesOnlyWhenKeyIsLive(t *testing.T) {
	h := newTestHeap(DefaultConfig())
	key := &testCell{name: "key"}
	keyHandle := h.Allocate(key, 1)
	value := &testCell{name: "value"}
	valueHandle := h.Allocate(value, 1)
	valueHandle.Release() // value is reachable only through the ephemeron pairing

	wm := &weakMapCell{key: key, value: value}
	h.Allocate(wm, 1)

	h.CollectFull()
	if h.Stats.CellsFreed != 0 {
		t.Fatalf("expected the value to survive while its key is live, freed %d cells", h.Stats.CellsFreed)
	}

	keyHandle.Release()
	h.CollectFull()
	if h.Stats.CellsFreed == 0 {
		t.Error("expected the value to be collected once its ephemeron key is no longer reachable")
	}
}
