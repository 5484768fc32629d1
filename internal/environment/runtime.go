package environment

import (
	"errors"

	"github.com/termfx/ecmacore/internal/gc"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// ErrNotDefined is returned by Get/Set when a dynamic (name-based) lookup
// fails to find a binding anywhere on the environment chain.
var ErrNotDefined = errors.New("environment: binding not defined")

// ErrTDZ is returned when a `let`/`const`/class binding is read before its
// declaration has executed (temporal dead zone).
var ErrTDZ = errors.New("environment: temporal dead zone")

// Kind tags which Environment Record variant a runtime Environment is,
// per spec.md §4.6.
type Kind uint8

const (
	KindDeclarative Kind = iota
	KindFunction
	KindGlobal
	KindModule
)

const tdzSentinelKind = value.KindUndefined

// binding is one slot's storage. value.Value has no "private" kind to
// mark an uninitialized let/const/class slot with, so TDZ state is the
// init flag kept next to the value rather than encoded into the Value.
type binding struct {
	val  value.Value
	init bool // false while in the temporal dead zone
	mutable bool
}

// Environment is the runtime counterpart of a CompileTimeEnvironment: the
// actual storage for one lexical scope's bindings, plus the poisoned flag
// and compile-time pairing boa's DeclarativeEnvironment documents (a
// poisoned environment may have had bindings added to it since compilation
// by a direct eval, so name-based fallback lookup must consult it even
// though static resolution skips over it).
type Environment struct {
	gc.Header

	kind   Kind
	parent *Environment
	compile *CompileTimeEnvironment

	bindings []binding
	dynamic  map[string]*binding // present only on Global/poisoned environments

	// Function Environment Record extras
	thisVal    value.Value
	thisBound  bool
	newTarget  *object.Object
	funcObject *object.Object
	superBase  *object.Object

	// Global Environment Record extras
	globalObject *object.Object

	poisoned bool
}

// New creates a fresh Declarative Environment Record with slotCount
// uninitialized (TDZ) slots, paired with compile.
func New(parent *Environment, compile *CompileTimeEnvironment, slotCount int) *Environment {
	return &Environment{
		kind:     KindDeclarative,
		parent:   parent,
		compile:  compile,
		bindings: make([]binding, slotCount),
	}
}

// NewFunction creates a Function Environment Record, additionally carrying
// the `this` binding (lazily initialized for derived-class constructors
// awaiting super()), new.target, and the active function object for
// arguments-object construction.
func NewFunction(parent *Environment, compile *CompileTimeEnvironment, slotCount int, funcObject *object.Object, newTarget *object.Object) *Environment {
	e := New(parent, compile, slotCount)
	e.kind = KindFunction
	e.funcObject = funcObject
	e.newTarget = newTarget
	return e
}

// NewGlobal creates the Global Environment Record wrapping globalObject,
// the root of every realm's environment chain.
func NewGlobal(globalObject *object.Object) *Environment {
	return &Environment{
		kind:         KindGlobal,
		globalObject: globalObject,
		dynamic:      make(map[string]*binding),
	}
}

func (e *Environment) Trace(visit func(gc.Cell)) {
	for _, b := range e.bindings {
		traceValue(b.val, visit)
	}
	for _, b := range e.dynamic {
		traceValue(b.val, visit)
	}
	if e.parent != nil {
		visit(e.parent)
	}
	if e.globalObject != nil {
		visit(e.globalObject)
	}
	if e.funcObject != nil {
		visit(e.funcObject)
	}
	if e.newTarget != nil {
		visit(e.newTarget)
	}
	if e.superBase != nil {
		visit(e.superBase)
	}
	traceValue(e.thisVal, visit)
}

func traceValue(v value.Value, visit func(gc.Cell)) {
	ref := v.AsRef()
	if ref == nil {
		return
	}
	if c, ok := ref.(gc.Cell); ok {
		visit(c)
	}
}

// Kind reports which Environment Record variant this is.
func (e *Environment) Kind() Kind { return e.kind }

// Parent returns the enclosing runtime environment, nil at the global.
func (e *Environment) Parent() *Environment { return e.parent }

// MarkPoisoned flags this environment as having had dynamic bindings
// added (e.g. by a direct eval), forcing name-based fallback lookups to
// check it even when static resolution would otherwise skip past it.
func (e *Environment) MarkPoisoned() {
	e.poisoned = true
	if e.dynamic == nil {
		e.dynamic = make(map[string]*binding)
	}
}

func (e *Environment) Poisoned() bool { return e.poisoned }

// DeclareDynamic adds a name->slot binding outside the compile-time slot
// table, as direct eval's var/function hoisting does into the nearest
// var-environment, or as a with-statement's object-backed bindings are
// modeled.
func (e *Environment) DeclareDynamic(name string, v value.Value, mutable bool) {
	e.MarkPoisoned()
	e.dynamic[name] = &binding{val: v, init: true, mutable: mutable}
}

// InitSlot initializes compile-time slot idx (the instruction that defines
// a let/const/class binding), clearing its TDZ flag.
func (e *Environment) InitSlot(idx int, v value.Value, mutable bool) {
	e.bindings[idx] = binding{val: v, init: true, mutable: mutable}
}

// GetSlot reads compile-time slot idx, returning ErrTDZ if the binding has
// not yet been initialized.
func (e *Environment) GetSlot(idx int) (value.Value, error) {
	b := &e.bindings[idx]
	if !b.init {
		return value.Undefined, ErrTDZ
	}
	return b.val, nil
}

// SetSlot writes compile-time slot idx. Writing a non-mutable (const)
// binding after initialization is a TypeError the VM surfaces; this
// method reports it via ok=false.
func (e *Environment) SetSlot(idx int, v value.Value) (ok bool, err error) {
	b := &e.bindings[idx]
	if !b.init {
		return false, ErrTDZ
	}
	if !b.mutable {
		return false, nil
	}
	b.val = v
	return true, nil
}

// GetMapped implements object.MappedEnv for the non-strict arguments
// object's live parameter aliasing.
func (e *Environment) GetMapped(slot int) value.Value {
	v, err := e.GetSlot(slot)
	if err != nil {
		return value.Undefined
	}
	return v
}

// GetDynamic performs a full name-based walk up the environment chain,
// the fallback path used once static resolution reports "not found"
// because some enclosing scope is poisoned or this is a free/global
// reference.
func (e *Environment) GetDynamic(name string) (value.Value, error) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.dynamic != nil {
			if b, ok := cur.dynamic[name]; ok {
				if !b.init {
					return value.Undefined, ErrTDZ
				}
				return b.val, nil
			}
		}
		if cur.compile != nil {
			if slot, ok := cur.compile.names[name]; ok {
				return cur.GetSlot(slot)
			}
		}
		if cur.globalObject != nil {
			if p, ok := cur.globalObject.GetOwnProperty(object.StringKey(name)); ok {
				return p.Value, nil
			}
		}
	}
	return value.Undefined, ErrNotDefined
}

// SetDynamic performs a full name-based walk, writing the first matching
// binding found. Returns ErrNotDefined if no enclosing scope (including
// the global object, which callers should check separately) defines name.
func (e *Environment) SetDynamic(name string, v value.Value) error {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.dynamic != nil {
			if b, ok := cur.dynamic[name]; ok {
				if !b.init {
					return ErrTDZ
				}
				if b.mutable {
					b.val = v
				}
				return nil
			}
		}
		if cur.compile != nil {
			if slot, ok := cur.compile.names[name]; ok {
				_, err := cur.SetSlot(slot, v)
				return err
			}
		}
	}
	return ErrNotDefined
}

// ThisBinding resolves the nearest `this` value by walking up to the
// closest Function or Global Environment Record (arrow functions don't
// carry their own `this`, so their Function Environment Records have
// thisBound == false and delegate to their parent).
func (e *Environment) ThisBinding() value.Value {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.kind == KindFunction && cur.thisBound {
			return cur.thisVal
		}
		if cur.kind == KindGlobal {
			return value.Undefined
		}
	}
	return value.Undefined
}

// BindThis sets the `this` value for a Function Environment Record,
// called once for an ordinary function's entry, or once super() returns
// for a derived-class constructor.
func (e *Environment) BindThis(v value.Value) {
	e.thisVal = v
	e.thisBound = true
}

// NewTarget returns this environment's new.target binding, walking up
// through arrow-function scopes the way ThisBinding does.
func (e *Environment) NewTarget() *object.Object {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.kind == KindFunction {
			return cur.newTarget
		}
		if cur.kind == KindGlobal {
			return nil
		}
	}
	return nil
}

// SuperBase returns the [[HomeObject]].[[GetPrototypeOf]]() target super
// property lookups resolve against, walking up through arrow-function
// scopes the way ThisBinding does. Nil if no enclosing function has a
// home object (ordinary functions, not methods).
func (e *Environment) SuperBase() *object.Object {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.kind == KindFunction {
			return cur.superBase
		}
		if cur.kind == KindGlobal {
			return nil
		}
	}
	return nil
}

// SetSuperBase installs the home object's prototype for a method's Function
// Environment Record, called once at closure-creation time for methods
// defined with a [[HomeObject]] (class/object-literal methods using super).
func (e *Environment) SetSuperBase(o *object.Object) {
	e.superBase = o
}

// GlobalObject returns the realm's global object, walking to the root of
// the environment chain.
func (e *Environment) GlobalObject() *object.Object {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.kind == KindGlobal {
			return cur.globalObject
		}
	}
	return nil
}
