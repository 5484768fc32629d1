// Package vm implements the stack-based bytecode interpreter: the
// fetch-decode-execute loop over a CodeBlock's Instrs, call-frame
// management, exception unwinding, and the glue that wires an ordinary
// closure's [[Call]]/[[Construct]] behavior into internal/object's
// KindTable (spec.md §4.7, "stack machine with register file, call
// frames, exceptions, generators/async").
package vm

import (
	"sync/atomic"

	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/environment"
	"github.com/termfx/ecmacore/internal/gc"
	"github.com/termfx/ecmacore/internal/intern"
	"github.com/termfx/ecmacore/internal/jobqueue"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// VM is one realm's interpreter: the heap, the kind dispatch table, the
// intrinsic prototypes every built-in object chains to, the global object
// and its environment, and the live call-frame stack the GC walks as a
// root set.
type VM struct {
	heap     *gc.Heap
	kinds    *object.KindTable
	interner *intern.Table

	objectProto   *object.Object
	functionProto *object.Object
	arrayProto    *object.Object
	errorProto    *object.Object
	generatorProto *object.Object
	promiseProto   *object.Object

	// errorProtos maps each native Error subtype's name ("TypeError",
	// "RangeError", …) to its dedicated prototype, each chained to
	// errorProto, so instanceof distinguishes `new TypeError()` from
	// `new RangeError()` the way spec.md §8 seed test #5 requires.
	errorProtos map[string]*object.Object

	globalObject *object.Object
	global       *environment.Environment

	// jobs is the realm's microtask queue, wired in by internal/engine
	// after construction (see SetJobQueue): Promise reactions enqueue onto
	// it rather than running inline, matching the job-queue-driven
	// scheduling spec.md §4.7/§5 describe. Left nil outside of an
	// engine.Realm (e.g. a bare internal/vm test), in which case Promise
	// reactions run inline instead of panicking on a nil queue.
	jobs *jobqueue.Queue

	frames []*CallFrame

	debugHooks DebugHooks

	// interruptRequested is checked at loop back-edges and call boundaries
	// for cooperative cancellation (spec.md §5): once set, the running
	// script unwinds every frame via an uncatchable completion rather than
	// continuing to execute. atomic.Bool since RequestInterrupt is the one
	// call an embedder is expected to make from outside the owning thread
	// (e.g. a timeout goroutine).
	interruptRequested atomic.Bool

	// maxCallDepth bounds len(frames): a recursive script that would
	// otherwise exhaust the Go goroutine stack (exec recurses through
	// vm.call for every nested JS call) instead gets a StackOverflowError
	// at a predictable, configurable depth.
	maxCallDepth int
}

// DefaultMaxCallDepth is the recursion bound New installs when the
// embedder doesn't configure one explicitly — comfortably below the point
// where Go's own growable goroutine stack would be at risk, generous
// enough for realistic recursive JS.
const DefaultMaxCallDepth = 2000

// StackOverflowError is an uncatchable completion, same as
// InterruptedError: a script that recurses past the configured depth limit
// unwinds straight out to the embedder rather than landing in a try/catch
// (a real engine makes this catchable via a RangeError; this one does not,
// since the interpreter is already over Go's own call stack at the point
// it notices — unwinding through more JS-level handler search logic before
// the Go stack itself gives out is not a safe place to be).
type StackOverflowError struct{}

func (StackOverflowError) Error() string { return "maximum call stack size exceeded" }

// SetMaxCallDepth overrides DefaultMaxCallDepth, e.g. from
// internal/config's ECMACORE_STACK_DEPTH_LIMIT.
func (vm *VM) SetMaxCallDepth(n int) {
	if n > 0 {
		vm.maxCallDepth = n
	}
}

// DebugHooks lets an embedder observe frame entry/exit and loop back-edges
// without the core needing any notion of breakpoints or stepping UI of its
// own (that UI is explicitly out of scope; these are just the observation
// points a host-built one would hang off of).
type DebugHooks struct {
	OnEnterFrame func(functionName string)
	OnLeaveFrame func(functionName string)
	OnBreakpoint func()
}

// SetDebugHooks installs h, replacing any previously installed hooks. A
// zero-value DebugHooks (the default) disables all observation with no
// per-instruction overhead beyond three nil checks.
func (vm *VM) SetDebugHooks(h DebugHooks) { vm.debugHooks = h }

// RequestInterrupt asks the running script to unwind at its next loop
// back-edge or call boundary, per spec.md §5's cooperative cancellation
// contract. Safe to call from any goroutine.
func (vm *VM) RequestInterrupt() { vm.interruptRequested.Store(true) }

// InterruptedError is the uncatchable completion RequestInterrupt produces:
// it unwinds every live frame without consulting any exception handler.
type InterruptedError struct{}

func (InterruptedError) Error() string { return "script execution interrupted" }

// funcData is the payload every ordinary (bytecode-backed) closure object
// carries in its opaque object.FunctionData slot: the compiled body, the
// environment it closed over, and (for methods) the home object super
// property lookups resolve against.
type funcData struct {
	block      *bytecode.CodeBlock
	env        *environment.Environment
	homeObject *object.Object

	// fieldThunks holds the instance field-initializer thunks (closures
	// with ExprBody set, see compiler's compileFieldThunk) a derived
	// prototype's class literal recorded; run once per `new`, in
	// declaration order, right after super() returns (or at the start of
	// a base constructor).
	fieldThunks []classMember
}

// classMember pairs a property key with the thunk function installed for
// it, the bridge OpNewClass's assembly logic uses to carry a field or
// static-block thunk from its source bag into the assembled class without
// losing which key it was declared under.
type classMember struct {
	key PropertyKeySource
	fn  *object.Object
}

// PropertyKeySource is a resolved object.PropertyKey plus enough
// information to rebuild it; kept as its own type only because
// object.PropertyKey itself already serves this role directly.
type PropertyKeySource = object.PropertyKey

// New creates a fresh realm with gc.DefaultConfig() heap sizing. Use
// NewWithGCConfig to tune young-generation thresholds (e.g. from
// internal/config's ECMACORE_GC_YOUNG_CAP).
func New(interner *intern.Table) *VM {
	return NewWithGCConfig(interner, gc.DefaultConfig())
}

// NewWithGCConfig creates a fresh realm: a heap rooted at this VM's live
// call frames and intrinsics, sized per gcCfg, a kind table with
// KindFunction wired to this VM's own invoke loop, and a global object/
// environment pair.
func NewWithGCConfig(interner *intern.Table, gcCfg gc.Config) *VM {
	vm := &VM{kinds: object.NewKindTable(), interner: interner, maxCallDepth: DefaultMaxCallDepth}
	vm.heap = gc.New(gcCfg, vm.traceRoots)
	vm.kinds.Register(object.KindFunction, object.Behavior{
		Call:      vm.callFunction,
		Construct: vm.constructFunction,
	})
	vm.kinds.Register(object.KindGenerator, object.Behavior{})

	vm.kinds.Register(object.KindPromise, object.Behavior{})

	vm.objectProto = object.New(vm.kinds, nil)
	vm.functionProto = object.New(vm.kinds, vm.objectProto)
	vm.arrayProto = object.New(vm.kinds, vm.objectProto)
	vm.errorProto = object.New(vm.kinds, vm.objectProto)
	vm.generatorProto = object.New(vm.kinds, vm.objectProto)
	vm.promiseProto = object.New(vm.kinds, vm.objectProto)

	vm.globalObject = object.New(vm.kinds, vm.objectProto)
	vm.global = environment.NewGlobal(vm.globalObject)

	// Wire the handful of builtins spec.md §8's seed tests exercise: native
	// Error subtypes, a small Array.prototype, and a Promise intrinsic.
	// Safe to do unconditionally here (rather than after internal/engine
	// applies its Options) since none of it depends on the job queue at
	// install time — promiseThen/resolvePromise/rejectPromise look up
	// vm.jobs lazily, at call time, long after SetJobQueue has run.
	vm.installErrorConstructors()
	vm.installArrayPrototype()
	vm.installPromise()

	return vm
}

// SetJobQueue wires q as the queue Promise reactions enqueue onto,
// replacing the nil default a VM built outside of internal/engine would
// otherwise run reactions against inline. internal/engine.Realm.New calls
// this once after applying every Option (including WithGCConfig, which
// replaces the VM outright), so the final queue — default or
// host-supplied via WithJobQueue — is always the one Promise sees.
func (vm *VM) SetJobQueue(q *jobqueue.Queue) { vm.jobs = q }

// errorProtoFor returns the dedicated prototype for a native error kind
// ("TypeError", "RangeError", …), falling back to the base Error
// prototype for any kind without its own (or when called on a VM that
// skipped installErrorConstructors, e.g. in isolation tests).
func (vm *VM) errorProtoFor(kind string) *object.Object {
	if p, ok := vm.errorProtos[kind]; ok {
		return p
	}
	return vm.errorProto
}

// Interner exposes the shared string-interning table, used by the engine
// layer to intern identifiers read back out through the host API.
func (vm *VM) Interner() *intern.Table { return vm.interner }

// GlobalObject returns the realm's global object, for host-side global
// registration (spec.md §6, RegisterGlobal/RegisterGlobalCallable).
func (vm *VM) GlobalObject() *object.Object { return vm.globalObject }

// GlobalEnv returns the realm's Global Environment Record, the parent a
// freshly compiled top-level script's Environment should chain to.
func (vm *VM) GlobalEnv() *environment.Environment { return vm.global }

// ObjectProto / FunctionProto / ArrayProto / ErrorProto expose the
// intrinsic prototypes new object/array/function/error instances chain
// to, for the object-construction helpers and host-registered natives.
func (vm *VM) ObjectProto() *object.Object   { return vm.objectProto }
func (vm *VM) FunctionProto() *object.Object { return vm.functionProto }
func (vm *VM) ArrayProto() *object.Object    { return vm.arrayProto }
func (vm *VM) ErrorProto() *object.Object    { return vm.errorProto }
func (vm *VM) PromiseProto() *object.Object  { return vm.promiseProto }

// Kinds exposes the kind table so the engine layer can register
// additional exotic-object behaviors (structured clone tags, host
// classes) without this package needing to know about them.
func (vm *VM) Kinds() *object.KindTable { return vm.kinds }

// NewNativeFunction wraps fn as a callable object bound to this realm's
// function prototype and heap, for host-registered globals (spec.md §6,
// RegisterGlobalCallable).
func (vm *VM) NewNativeFunction(fn object.NativeFunc) *object.Object {
	return vm.newNative(fn)
}

// NewObject allocates a plain ordinary object chained to proto (or this
// realm's object prototype, if proto is nil), for host code building
// argument/result values outside of any running script.
func (vm *VM) NewObject(proto *object.Object) *object.Object {
	if proto == nil {
		proto = vm.objectProto
	}
	return vm.newObject(proto)
}

// NewString allocates an interned/heap string value, for host code
// constructing values to pass into RegisterGlobal or a native callback's
// result.
func (vm *VM) NewString(s string) value.Value { return vm.newString(s) }

// Call invokes fn (any callable Object value) with this/args — the same
// primitive OpCall itself lowers to, exposed so host code can call back
// into a script function it was handed (spec.md §6 handle conversion).
func (vm *VM) Call(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	return vm.call(fn, this, args)
}

// NewArray builds a KindArray object from vals, for host code (and
// internal/structuredclone's Deserialize) reconstructing array values
// outside of any running script.
func (vm *VM) NewArray(vals []value.Value) *object.Object {
	return vm.newArrayFrom(vals)
}

// traceRoots is the gc.Heap's externalRoots callback: every live call
// frame's operand stack, bindings, and captured environment chain, since
// none of that is reachable from a rooted gc.Handle once alloc's
// allocate-then-immediately-release pattern (see alloc below) drops the
// handle that Allocate itself produced.
func (vm *VM) traceRoots(visit func(gc.Cell)) {
	for _, f := range vm.frames {
		f.trace(visit)
	}
	visit(vm.objectProto)
	visit(vm.functionProto)
	visit(vm.arrayProto)
	visit(vm.errorProto)
	visit(vm.generatorProto)
	visit(vm.promiseProto)
	for _, p := range vm.errorProtos {
		visit(p)
	}
	visit(vm.globalObject)
	visit(vm.global)
}

// traceValue visits v's heap ref, if it has one, the vm-package-local
// counterpart to object.traceValue/environment.traceValue (each package
// keeps its own copy rather than exporting one, since Cell/visit are the
// only things shared and exporting it buys nothing).
func traceValue(v value.Value, visit func(gc.Cell)) {
	ref := v.AsRef()
	if ref == nil {
		return
	}
	if c, ok := ref.(gc.Cell); ok {
		visit(c)
	}
}

// alloc registers cell with the heap and immediately releases the root
// Allocate hands back. Every freshly allocated cell is about to be pushed
// onto a traced frame stack, stored into a traced environment slot, or
// assigned into an already-reachable object's property — all of which
// happens before any further allocation can trigger a collection, since
// execution is single-threaded and collections only run at the start of
// Heap.Allocate/CollectYoung calls. Relying on traceRoots for liveness
// from the moment of allocation onward avoids tracking a Handle's
// lifetime through the interpreter loop, at the cost of being unsound
// if a cell is ever allocated and not immediately attached to something
// traceRoots reaches before the next allocation — callers must uphold
// that discipline.
func (vm *VM) alloc(cell gc.Cell, size uint64) {
	vm.heap.Allocate(cell, size).Release()
}

func (vm *VM) newObject(proto *object.Object) *object.Object {
	o := object.New(vm.kinds, proto)
	vm.alloc(o, 64)
	return o
}

func (vm *VM) newArray() *object.Object {
	o := object.NewWithKind(vm.kinds, object.KindArray, vm.arrayProto)
	vm.alloc(o, 64)
	return o
}

func (vm *VM) newString(s string) value.Value {
	v := value.NewString(s)
	if c, ok := v.AsRef().(gc.Cell); ok {
		vm.alloc(c, uint64(len(s))+32)
	}
	return v
}

func (vm *VM) newNative(fn object.NativeFunc) *object.Object {
	o := object.NewNative(vm.kinds, vm.functionProto, fn)
	vm.alloc(o, 64)
	return o
}

// newClosure wraps block as a callable KindFunction object closing over
// env, optionally with a home object for super property resolution.
func (vm *VM) newClosure(block *bytecode.CodeBlock, env *environment.Environment, home *object.Object) *object.Object {
	o := object.NewWithKind(vm.kinds, object.KindFunction, vm.functionProto)
	o.SetFunction(&funcData{block: block, env: env, homeObject: home})
	vm.alloc(o, 96)

	proto := vm.newObject(vm.objectProto)
	proto.DefineOwnProperty(object.StringKey("constructor"), object.Property{
		Value: value.FromRef(value.KindObject, o),
		Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	o.DefineOwnProperty(object.StringKey("prototype"), object.Property{
		Value: value.FromRef(value.KindObject, proto),
		Attrs: object.Attributes{Writable: true},
	})
	o.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(int32(block.NumParams)),
		Attrs: object.Attributes{Configurable: true},
	})
	o.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: vm.newString(block.Name),
		Attrs: object.Attributes{Configurable: true},
	})
	return o
}

// call invokes fn (any callable Object) with this/args, the shared
// primitive every OpCall/OpConstruct/native helper and host entry point
// goes through.
func (vm *VM) call(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	o, ok := value.As[*object.Object](fn)
	if !ok || !o.IsCallable() {
		return value.Undefined, vm.newTypeError("value is not a function")
	}
	return o.Call(object.CallContext{This: this, Args: args})
}

func (vm *VM) construct(fn value.Value, args []value.Value, newTarget *object.Object) (value.Value, error) {
	o, ok := value.As[*object.Object](fn)
	if !ok || !o.IsConstructor() {
		return value.Undefined, vm.newTypeError("value is not a constructor")
	}
	if newTarget == nil {
		newTarget = o
	}
	return o.Construct(object.CallContext{Args: args, NewTarget: newTarget})
}

// Run executes a top-level script CodeBlock, the entry point
// internal/engine calls for Eval/EvalModule after compilation.
func (vm *VM) Run(block *bytecode.CodeBlock) (value.Value, error) {
	env := environment.New(vm.global, block.RootScope, block.NumRegisters)
	frame := newFrame(block, env, value.Undefined, nil, nil, nil)
	return vm.exec(frame)
}

// callFunction is the KindFunction Behavior.Call hook: run fd's block as
// an ordinary function invocation.
func (vm *VM) callFunction(o *object.Object, ctx object.CallContext) (value.Value, error) {
	data, _ := o.Function()
	fd, ok := data.(*funcData)
	if !ok {
		return value.Undefined, vm.newTypeError("not a function")
	}
	env := environment.NewFunction(fd.env, fd.block.RootScope, fd.block.NumRegisters, o, ctx.NewTarget)
	env.BindThis(ctx.This)
	if fd.homeObject != nil {
		env.SetSuperBase(fd.homeObject.Prototype())
	}
	frame := newFrame(fd.block, env, ctx.This, ctx.Args, ctx.NewTarget, o)
	if fd.block.Generator {
		// Calling a generator function doesn't run its body — it returns a
		// generator object whose next()/throw()/return() drive the body
		// one OpYield at a time (see generator.go). Async generators use
		// the same suspension machinery; OpAwait inside one still just
		// blocks synchronously, same as in a plain async function.
		return value.FromRef(value.KindObject, vm.newGeneratorObject(frame)), nil
	}
	// Plain async functions have nothing to suspend across separate calls
	// — OpAwait resolves any thenable synchronously in place — so they run
	// through the ordinary exec loop exactly like a sync function, and the
	// caller receives the function's own return value, not a Promise
	// wrapping it.
	return vm.exec(frame)
}

// constructFunction is the KindFunction Behavior.Construct hook: ordinary
// [[Construct]], creating a fresh instance (unless this is a derived
// constructor, which receives `this` lazily once its own super() call
// runs), running the field-initializer thunks recorded on fd, and falling
// back to the instance if the constructor body doesn't itself return an
// object.
func (vm *VM) constructFunction(o *object.Object, ctx object.CallContext) (value.Value, error) {
	data, _ := o.Function()
	fd, ok := data.(*funcData)
	if !ok {
		return value.Undefined, vm.newTypeError("not a constructor")
	}

	newTarget := ctx.NewTarget
	if newTarget == nil {
		newTarget = o
	}

	env := environment.NewFunction(fd.env, fd.block.RootScope, fd.block.NumRegisters, o, newTarget)
	if fd.homeObject != nil {
		env.SetSuperBase(fd.homeObject.Prototype())
	}

	var instance *object.Object
	if fd.block.ClassKind != bytecode.DerivedClassConstructor {
		protoVal, _ := newTarget.Get(object.StringKey("prototype"), value.FromRef(value.KindObject, newTarget), vm.call)
		proto, _ := value.As[*object.Object](protoVal)
		if proto == nil {
			proto = vm.objectProto
		}
		instance = vm.newObject(proto)
		env.BindThis(value.FromRef(value.KindObject, instance))
		vm.runFieldThunks(fd, instance)
	}
	// A derived constructor's `this` stays TDZ until OpSuperCall runs;
	// the interpreter binds it there once the super constructor returns.

	frame := newFrame(fd.block, env, value.Undefined, ctx.Args, newTarget, o)
	frame.pendingInstance = instance
	frame.pendingFuncData = fd

	result, err := vm.exec(frame)
	if err != nil {
		return value.Undefined, err
	}
	if resObj, ok := value.As[*object.Object](result); ok {
		return value.FromRef(value.KindObject, resObj), nil
	}
	if instance == nil {
		// Derived constructor returned a non-object without ever calling
		// super(): `this` was never bound, surface as a reference error
		// the way an unreachable `this` access inside the body would
		// have already raised; reaching here without error means the
		// body simply fell off the end, which is itself invalid, but we
		// don't have a bound `this` to return.
		return value.Undefined, vm.newReferenceError("must call super constructor before returning from derived constructor")
	}
	return value.FromRef(value.KindObject, instance), nil
}

// runFieldThunks invokes each recorded instance field-initializer thunk
// with `this` bound to instance, defining the resulting value as an own
// property under the thunk's key.
func (vm *VM) runFieldThunks(fd *funcData, instance *object.Object) error {
	for _, m := range fd.fieldThunks {
		v, err := vm.call(value.FromRef(value.KindObject, m.fn), value.FromRef(value.KindObject, instance), nil)
		if err != nil {
			return err
		}
		instance.DefineOwnProperty(m.key, object.Property{Value: v, Attrs: object.DefaultDataAttributes()})
	}
	return nil
}
