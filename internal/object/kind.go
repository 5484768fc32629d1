package object

import (
	"fmt"
	"sync"

	"github.com/termfx/ecmacore/internal/value"
)

// Kind names one of the closed set of internal-slot payload shapes an
// Object can carry (spec.md: "internal slots over a closed kind set").
// Unlike value.Kind (which tags a Value's case), Kind here tags which
// exotic behavior table an Object's [[Call]]/[[Construct]]/property
// internal methods dispatch through.
type Kind string

const (
	KindOrdinary       Kind = "ordinary"
	KindArray          Kind = "array"
	KindArguments      Kind = "arguments"
	KindFunction       Kind = "function"
	KindBoundFunction  Kind = "bound-function"
	KindNativeFunction Kind = "native-function"
	KindGenerator      Kind = "generator"
	KindAsyncGenerator Kind = "async-generator"
	KindProxy          Kind = "proxy"
	KindError          Kind = "error"
	KindPromise        Kind = "promise"
)

// CallContext carries what a native or bytecode-backed callable needs to
// run: the `this` binding, the argument list, and (for Construct) the
// new-target object.
type CallContext struct {
	This      value.Value
	Args      []value.Value
	NewTarget *Object // non-nil only for [[Construct]]
}

// NativeFunc is the signature every native (Go-implemented) callable
// object exposes. It is also what intrinsic built-ins and host-registered
// global functions (spec.md §6, RegisterGlobalCallable) implement.
type NativeFunc func(ctx CallContext) (value.Value, error)

// Behavior is the set of exotic-object hooks a Kind can override. Every
// field may be nil, in which case Object falls back to the ordinary
// algorithm implemented directly on Object. This mirrors
// internal/provider's BaseProvider: a small closed interface (here, a
// struct of optional hooks) plus cached derived lookups, generalized from
// "per-language node translation" to "per-kind exotic behavior".
type Behavior struct {
	Call                func(o *Object, ctx CallContext) (value.Value, error)
	Construct            func(o *Object, ctx CallContext) (value.Value, error)
	GetOwnProperty       func(o *Object, key PropertyKey) (Property, bool)
	DefineOwnProperty    func(o *Object, key PropertyKey, desc Property) (bool, error)
	Delete               func(o *Object, key PropertyKey) (bool, error)
	OwnPropertyKeysExtra func(o *Object) []PropertyKey
}

// PropertyKey is either an interned string symbol or a Symbol-kind
// heap value used as a computed property key (spec.md's property keys are
// String or Symbol).
type PropertyKey struct {
	Name   string // resolved string form, used as the map key
	Symbol value.Value
	IsSym  bool
}

// StringKey builds a PropertyKey from a plain string name.
func StringKey(name string) PropertyKey { return PropertyKey{Name: name} }

// SymbolKey builds a PropertyKey from a Symbol-kind Value.
func SymbolKey(sym value.Value) PropertyKey {
	return PropertyKey{Name: fmt.Sprintf("@@sym:%p", sym.AsRef()), Symbol: sym, IsSym: true}
}

// KindTable dispatches Kind -> Behavior, with a cache of derived metadata
// (currently: which kinds define which hooks) guarded the way
// BaseProvider guards its mapping cache.
type KindTable struct {
	mu       sync.RWMutex
	behavior map[Kind]Behavior
}

// NewKindTable seeds a table with the behaviors expressible purely in
// terms of the object model (native callables, bound-function delegation,
// array index/length exotic behavior, arguments mapped-parameter lookup).
// KindFunction — an ordinary closure over compiled bytecode — is left
// unregistered here and wired by internal/vm.New, since executing a
// function body requires the interpreter loop this package doesn't (and
// per spec.md's layering, shouldn't) depend on.
func NewKindTable() *KindTable {
	t := &KindTable{behavior: make(map[Kind]Behavior)}
	t.Register(KindNativeFunction, Behavior{Call: callNative, Construct: constructNative})
	t.Register(KindBoundFunction, Behavior{Call: callBound, Construct: constructBound})
	t.Register(KindArray, Behavior{DefineOwnProperty: defineArrayIndexOrLength, GetOwnProperty: getArrayLength})
	t.Register(KindArguments, Behavior{GetOwnProperty: getMappedArgument})
	return t
}

// Register installs or replaces the Behavior for kind.
func (t *KindTable) Register(kind Kind, b Behavior) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.behavior[kind] = b
}

// Lookup returns the Behavior registered for kind, and whether one exists.
func (t *KindTable) Lookup(kind Kind) (Behavior, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.behavior[kind]
	return b, ok
}
