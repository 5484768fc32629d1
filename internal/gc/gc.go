// Package gc implements the tracing garbage collector that owns every
// heap-allocated language value (spec.md §4.1). It is a logical mark-and-
// sweep collector layered over Go's own memory manager: Go already frees
// memory for us, but nothing in Go's runtime understands finalizer
// ordering, weak-reference liveness bits, or ephemeron (WeakMap) semantics
// for a foreign object graph — this package supplies exactly that
// reachability bookkeeping, the same way internal/registry supplied
// bookkeeping (alias/extension maps) that Go's stdlib has no opinion on.
package gc

import "sync"

// Tracer is implemented by every heap cell. Trace must call visit once for
// every Cell the receiver directly references (spec.md: the collector must
// visit each reachable cell exactly once; Trace only needs to report
// direct edges, the mark phase handles transitive closure and cycles).
type Tracer interface {
	Trace(visit func(Cell))
}

// Cell is the common header every heap-allocated value embeds. Concrete
// payloads (object.Object, value BigInt/String/Symbol handles, generator
// frames, …) embed Header and implement Tracer.
type Cell interface {
	Tracer
	gcHeader() *Header
}

// Header is the mark-bit/age/type-tag record spec.md §4.1 describes.
// Embedding Header in a payload struct and implementing gcHeader (returning
// &self.Header) satisfies Cell for free.
type Header struct {
	heap       *Heap
	next       *Header // next-in-heap pointer threading the full cell list
	mark       bool
	young      bool
	age        uint8
	needsFinal bool
	finalized  bool
	weakLinks  []*weakSlot
	cell       Cell
}

func (h *Header) gcHeader() *Header { return h }

type weakSlot struct {
	alive bool
	cell  Cell
}

// WeakRef is a non-rooting pointer plus a liveness bit updated by sweep
// (spec.md §4.1, "Weak reference").
type WeakRef struct{ slot *weakSlot }

// Get returns the referenced Cell and true if it was still alive as of the
// most recent collection; returns (nil, false) once the target has been
// collected.
func (w WeakRef) Get() (Cell, bool) {
	if w.slot == nil || !w.slot.alive {
		return nil, false
	}
	return w.slot.cell, true
}

// Finalizer runs after marking identifies a cell unreachable but before
// sweep frees it. A finalizer must not retain cell beyond the call; the
// drop guard on Heap prevents a finalizer from allocating its way into a
// second mark pass reviving its own target (spec.md §4.1, "resurrection
// safety").
type Finalizer func(cell Cell)

type finalizerEntry struct {
	header *Header
	fn     Finalizer
}

// Handle is a rooted reference. Native code (the VM, the compiler, host
// callbacks) operates exclusively through Handles; raw Cell pointers never
// escape the collector (spec.md §4.1, "raw heap pointers never escape").
type Handle struct {
	heap *Heap
	cell Cell
	id   uint64
}

// Cell returns the rooted value.
func (h Handle) Cell() Cell { return h.cell }

// Release drops this root. The cell becomes eligible for collection once
// no other root, stack slot, or environment reference reaches it.
func (h Handle) Release() {
	if h.heap == nil {
		return
	}
	h.heap.mu.Lock()
	delete(h.heap.roots, h.id)
	h.heap.mu.Unlock()
}

// Heap owns one engine instance's entire traced object graph. Per spec.md
// §5, one Heap is used by one goroutine at a time for the mark/sweep
// algorithm itself; the mutex below guards only the root-handle table,
// since host code may plausibly call Root/Handle.Release from a finalizer
// or an async callback at a different point in the call stack than the
// main interpreter loop.
type Heap struct {
	mu sync.Mutex

	head  *Header // every live cell, threaded through Header.next
	young []*Header

	roots  map[uint64]Cell
	nextID uint64

	finalizers []finalizerEntry
	weakables  []*Header // cells that carry weakLinks, swept for liveness each GC

	allocated      uint64
	youngThreshold int
	byteThreshold  uint64
	promoteAge     uint8

	finalizing bool // drop-guard: true while a finalizer callback is executing

	externalRoots func(visit func(Cell)) // VM stack / environments / well-known intrinsics

	Stats Stats
}

// Stats tracks cumulative collector activity for diagnostics and the host
// inspector surface (spec.md §6).
type Stats struct {
	YoungCollections int
	FullCollections  int
	CellsFreed       uint64
	FinalizersRun    uint64
}

// Config tunes the allocation thresholds that trigger a collection.
type Config struct {
	YoungCountThreshold int
	ByteThreshold       uint64
	PromoteAge          uint8
}

// DefaultConfig matches typical young-generation sizing for an embedded
// script engine: small enough that a young collection stays cheap, large
// enough to absorb one statement's worth of temporaries without promoting
// everything to the old generation.
func DefaultConfig() Config {
	return Config{YoungCountThreshold: 4096, ByteThreshold: 4 << 20, PromoteAge: 3}
}

// New creates an empty Heap. externalRoots is called at the start of every
// collection to enumerate roots the Heap doesn't itself track: the live VM
// stack, environment records, and well-known-symbol intrinsics (spec.md
// §4.1, "explicit handles, VM stack, environments, thread-local
// intrinsics").
func New(cfg Config, externalRoots func(visit func(Cell))) *Heap {
	if cfg.YoungCountThreshold <= 0 {
		cfg.YoungCountThreshold = DefaultConfig().YoungCountThreshold
	}
	if cfg.ByteThreshold == 0 {
		cfg.ByteThreshold = DefaultConfig().ByteThreshold
	}
	if cfg.PromoteAge == 0 {
		cfg.PromoteAge = DefaultConfig().PromoteAge
	}
	return &Heap{
		roots:          make(map[uint64]Cell),
		youngThreshold: cfg.YoungCountThreshold,
		byteThreshold:  cfg.ByteThreshold,
		promoteAge:     cfg.PromoteAge,
		externalRoots:  externalRoots,
	}
}

// Allocate registers cell with the heap, returning a rooted Handle. It may
// trigger a young collection first if thresholds are exceeded. Allocation
// never blocks for I/O (spec.md §4.1).
func (h *Heap) Allocate(cell Cell, size uint64) Handle {
	if !h.finalizing && (len(h.young) >= h.youngThreshold || h.allocated+size >= h.byteThreshold) {
		h.CollectYoung()
	}

	header := cell.gcHeader()
	header.heap = h
	header.cell = cell
	header.young = true
	header.next = h.head
	h.head = header
	h.young = append(h.young, header)
	h.allocated += size

	return h.Root(cell)
}

// Root produces a rooted Handle for an already-allocated cell without
// allocating a new one. Used when native code receives a Cell (e.g. from a
// property read) and must keep it alive across further allocations.
func (h *Heap) Root(cell Cell) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.roots[id] = cell
	return Handle{heap: h, cell: cell, id: id}
}

// NewWeak creates a non-rooting WeakRef to cell.
func (h *Heap) NewWeak(cell Cell) WeakRef {
	header := cell.gcHeader()
	slot := &weakSlot{alive: true, cell: cell}
	header.weakLinks = append(header.weakLinks, slot)
	h.weakables = append(h.weakables, header)
	return WeakRef{slot: slot}
}

// RegisterFinalizer arranges for fn to run when cell is identified as
// unreachable, before it is freed.
func (h *Heap) RegisterFinalizer(cell Cell, fn Finalizer) {
	header := cell.gcHeader()
	header.needsFinal = true
	h.finalizers = append(h.finalizers, finalizerEntry{header: header, fn: fn})
}

// CollectYoung runs a minor collection over the young generation only,
// promoting survivors that have aged past promoteAge into the old
// generation's list. This is the fast path hit on most allocations.
func (h *Heap) CollectYoung() {
	h.collect(false)
}

// CollectFull runs a full mark-sweep pass over the entire heap, including
// the ephemeron fixed-point pass for WeakMap-shaped structures (spec.md
// §4.1, "ephemeron fixed-point for WeakMap"). It runs only when called:
// Allocate triggers CollectYoung, never CollectFull. The embedder can call
// this directly (e.g. before a memory-pressure-sensitive host operation).
func (h *Heap) CollectFull() {
	h.collect(true)
}

func (h *Heap) collect(full bool) {
	h.markRoots(full)
	h.markEphemerons()
	freed, final := h.sweep(full)
	h.Stats.CellsFreed += freed
	h.Stats.FinalizersRun += final
	if full {
		h.Stats.FullCollections++
	} else {
		h.Stats.YoungCollections++
	}
}

func (h *Heap) markRoots(full bool) {
	var worklist []Cell

	h.mu.Lock()
	for _, c := range h.roots {
		worklist = append(worklist, c)
	}
	h.mu.Unlock()

	if h.externalRoots != nil {
		h.externalRoots(func(c Cell) { worklist = append(worklist, c) })
	}

	visited := make(map[*Header]bool)
	var mark func(c Cell)
	mark = func(c Cell) {
		if c == nil {
			return
		}
		hdr := c.gcHeader()
		if hdr == nil || visited[hdr] {
			return
		}
		// A minor collection only needs to trace cells reachable from a
		// root through the young generation; old cells are assumed live
		// unless this is a full collection (generational write-barrier
		// elision — the remembered set below covers the escape hatch).
		if !full && !hdr.young && hdr.mark {
			return
		}
		visited[hdr] = true
		hdr.mark = true
		c.Trace(mark)
	}
	for _, c := range worklist {
		mark(c)
	}

	// Remembered set: any old cell that itself points into the young
	// generation must re-root its young targets even on a minor
	// collection, since we didn't trace from it above.
	if !full {
		for cur := h.head; cur != nil; cur = cur.next {
			if cur.young || !cur.mark {
				continue
			}
			cur.cell.Trace(mark)
		}
	}
}

// markEphemerons implements the WeakMap fixed-point rule: a WeakMap entry's
// value is kept alive only once its key is known live from some other root
// (spec.md §4.1). Types that participate register themselves via the
// Ephemeron interface; this pass re-runs until no entry's reachability
// changes.
type Ephemeron interface {
	// EphemeronPairs reports the (key, value) pairs this cell holds weakly
	// by key. MarkValue is called by the collector once key is confirmed
	// live.
	EphemeronPairs() []EphemeronPair
}

// EphemeronPair is one weak-key/strong-value slot inside a WeakMap-shaped
// cell.
type EphemeronPair struct {
	Key      Cell
	MarkValue func(visit func(Cell))
}

func (h *Heap) markEphemerons() {
	changed := true
	for changed {
		changed = false
		for cur := h.head; cur != nil; cur = cur.next {
			eph, ok := cur.cell.(Ephemeron)
			if !ok {
				continue
			}
			for _, pair := range eph.EphemeronPairs() {
				if pair.Key == nil {
					continue
				}
				keyHdr := pair.Key.gcHeader()
				if keyHdr == nil || !keyHdr.mark {
					continue
				}
				pair.MarkValue(func(c Cell) {
					if c == nil {
						return
					}
					vh := c.gcHeader()
					if vh == nil || vh.mark {
						return
					}
					vh.mark = true
					changed = true
					c.Trace(func(inner Cell) {
						if inner == nil {
							return
						}
						ih := inner.gcHeader()
						if ih == nil || ih.mark {
							return
						}
						ih.mark = true
						changed = true
					})
				})
			}
		}
	}
}

func (h *Heap) sweep(full bool) (freed uint64, finalRun uint64) {
	// Run finalizers for newly-unreachable cells before unlinking them,
	// with the drop guard set so a finalizer cannot allocate its way back
	// into this same collection's worklist.
	h.finalizing = true
	remaining := h.finalizers[:0]
	for _, fe := range h.finalizers {
		if fe.header.mark || fe.header.finalized {
			remaining = append(remaining, fe)
			continue
		}
		fe.header.finalized = true
		fe.fn(fe.header.cell)
		finalRun++
	}
	h.finalizers = remaining
	h.finalizing = false

	// Update weak-reference liveness bits.
	for _, hdr := range h.weakables {
		if hdr.mark {
			continue
		}
		for _, slot := range hdr.weakLinks {
			slot.alive = false
		}
	}

	var prev *Header
	cur := h.head
	var newYoung []*Header
	for cur != nil {
		next := cur.next
		if !cur.mark && (full || cur.young) {
			// Unreachable: unlink.
			if prev == nil {
				h.head = next
			} else {
				prev.next = next
			}
			freed++
			cur = next
			continue
		}
		cur.mark = false
		if cur.young {
			cur.age++
			if cur.age >= h.promoteAge || full {
				cur.young = false
			} else {
				newYoung = append(newYoung, cur)
			}
		}
		prev = cur
		cur = next
	}
	h.young = newYoung
	h.allocated = 0
	return freed, finalRun
}
