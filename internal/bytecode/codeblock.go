package bytecode

import (
	"github.com/termfx/ecmacore/internal/environment"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// HandlerKind tags what an exception-handler table entry protects against
// and what it should do on unwind (spec.md §4.6, "exception handler tables
// with finally descriptors").
type HandlerKind uint8

const (
	HandlerCatch HandlerKind = iota
	HandlerFinally
)

// ExceptionHandler describes one protected region: instructions in
// [Start, End) that, on a thrown error, unwind to Target with Kind
// determining whether Target is a catch block or a finally epilogue.
type ExceptionHandler struct {
	Start, End int
	Target     int
	Kind       HandlerKind
	StackDepth int // value-stack depth to restore before resuming at Target

	// ScopeDepth is the compiler's runtime scope-nesting depth at the try
	// block's own opening brace, before any of its block-local OpPushScope
	// frames. Unwinding to Target pops runtime Environment frames down to
	// this depth, however much deeper the throw site had nested.
	ScopeDepth int
}

// SourcePosEntry maps an instruction index to its originating source
// position, for error messages and (eventually) source maps. Only entries
// where the position changes from the previous instruction are stored.
type SourcePosEntry struct {
	InstrIndex int
	Line, Col  int
}

// ClassConstructorKind distinguishes a derived class constructor (which
// must call super() before using `this`) from a base class constructor.
type ClassConstructorKind uint8

const (
	NotClassConstructor ClassConstructorKind = iota
	BaseClassConstructor
	DerivedClassConstructor
)

// ParamBinding describes where parameter i should be written during
// function entry: a simple identifier slot, or a destructuring pattern
// compiled as its own sub-sequence appended at the top of Instrs.
type ParamBinding struct {
	SlotIndex int
	IsRest    bool
	HasDefault bool
}

// CodeBlock is one compiled function or top-level script body (spec.md
// §4.6: "opcode byte array/constant pool/param+register counts/scope
// descriptors/inline-cache array/source-position table/strict+
// generator+async flags/class-constructor kind").
type CodeBlock struct {
	Name string

	Instrs []Instr
	Consts []value.Value

	NumParams   int
	Params      []ParamBinding
	NumRegisters int

	Handlers   []ExceptionHandler
	SourceMap  []SourcePosEntry
	InlineCaches []object.InlineCacheSite

	Strict     bool
	Generator  bool
	Async      bool
	Arrow      bool
	ClassKind  ClassConstructorKind

	// FunctionTable holds nested CodeBlocks (function expressions, methods,
	// class field initializers) referenced by OpNewFunction's operand.
	FunctionTable []*CodeBlock

	// ScopeDescriptor is the compile-time environment shape this block's
	// OpGetLocal/OpSetLocal hop-and-slot pairs were resolved against; the
	// VM uses it only for diagnostics (e.g. reporting a variable name in a
	// ReferenceError), never for binding resolution, which is already
	// baked into the instruction operands.
	ScopeDescriptor *ScopeDescriptor

	// RootScope is the CompileTimeEnvironment for this block's own top
	// level (the function body's parameter/var scope, or the top-level
	// script scope) — the counterpart the VM pairs with the Function or
	// Global Environment it creates for a new call frame, the same
	// pairing OpPushScope/Scopes gives inner blocks.
	RootScope *environment.CompileTimeEnvironment

	// Scopes holds one *environment.CompileTimeEnvironment per OpPushScope
	// site, indexed by that instruction's operand A. The VM pairs each
	// runtime Environment it creates with the matching entry here (mirroring
	// the compile/runtime environment pairing internal/environment's own
	// API requires) so a poisoned scope's dynamic-name fallback can still
	// consult its compile-time slot map, and so the slot count to allocate
	// is always read fresh (a scope's declaration count is only final once
	// its whole body has been compiled, which is after the OpPushScope
	// that opens it has already been emitted).
	Scopes []*environment.CompileTimeEnvironment
}

// ScopeDescriptor names the local slots of one lexical scope level, used
// purely for error messages and the host inspector surface.
type ScopeDescriptor struct {
	Names  []string
	Parent *ScopeDescriptor
}

// PositionFor returns the best-known source line/column for instruction
// index idx.
func (cb *CodeBlock) PositionFor(idx int) (line, col int) {
	line, col = 0, 0
	for _, e := range cb.SourceMap {
		if e.InstrIndex > idx {
			break
		}
		line, col = e.Line, e.Col
	}
	return line, col
}

// HandlerFor returns the innermost handler protecting instruction index
// idx, preferring the most specific (smallest enclosing range).
func (cb *CodeBlock) HandlerFor(idx int) (ExceptionHandler, bool) {
	best := -1
	for i, h := range cb.Handlers {
		if idx >= h.Start && idx < h.End {
			if best == -1 || (h.End-h.Start) < (cb.Handlers[best].End-cb.Handlers[best].Start) {
				best = i
			}
		}
	}
	if best == -1 {
		return ExceptionHandler{}, false
	}
	return cb.Handlers[best], true
}
