package vm

import (
	"strconv"
	"strings"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// defineGlobal installs name as a writable, configurable data property of
// the realm's global object — the vm-package-internal counterpart to
// engine.Realm.RegisterGlobal, used by the handful of builtins installed
// directly on VM construction rather than through the host API.
func (vm *VM) defineGlobal(name string, v value.Value) {
	vm.globalObject.DefineOwnProperty(object.StringKey(name), object.Property{
		Value: v, Attrs: object.Attributes{Writable: true, Configurable: true},
	})
}

// defineMethod installs fn as a writable, configurable own method of proto
// under name — the shape every Array.prototype/Promise.prototype entry
// below takes.
func (vm *VM) defineMethod(proto *object.Object, name string, length int, fn object.NativeFunc) {
	native := vm.newNative(fn)
	native.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(int32(length)), Attrs: object.Attributes{Configurable: true},
	})
	native.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: vm.newString(name), Attrs: object.Attributes{Configurable: true},
	})
	proto.DefineOwnProperty(object.StringKey(name), object.Property{
		Value: value.FromRef(value.KindObject, native),
		Attrs: object.Attributes{Writable: true, Configurable: true},
	})
}

// ---- Error / TypeError / RangeError / … ----------------------------------

// errorKinds lists every native Error subtype installed as a global
// constructor, each with its own prototype chained to Error.prototype
// (spec.md §8 seed test #5 needs `e instanceof TypeError` to hold for an
// internally-thrown TypeError).
var errorKinds = []string{"TypeError", "RangeError", "ReferenceError", "SyntaxError", "EvalError", "URIError"}

// installErrorConstructors wires the base Error constructor plus every
// entry in errorKinds onto the global object, each backed by the same
// native function shape: called with or without `new`, it builds (and, for
// `new`, returns) a fresh error object carrying "name"/"message", chained
// to the matching kind's prototype (or a subclass's own prototype, when
// constructed via `new` through a `class X extends TypeError`).
func (vm *VM) installErrorConstructors() {
	vm.errorProtos = make(map[string]*object.Object, len(errorKinds)+1)
	vm.errorProtos["Error"] = vm.errorProto
	vm.installErrorConstructor("Error", vm.errorProto)
	for _, kind := range errorKinds {
		proto := object.New(vm.kinds, vm.errorProto)
		vm.errorProtos[kind] = proto
		vm.installErrorConstructor(kind, proto)
	}
}

func (vm *VM) installErrorConstructor(kind string, proto *object.Object) {
	ctor := vm.newNative(vm.errorConstructorNative(kind, proto))
	ctor.DefineOwnProperty(object.StringKey("prototype"), object.Property{
		Value: value.FromRef(value.KindObject, proto), Attrs: object.Attributes{},
	})
	ctor.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: vm.newString(kind), Attrs: object.Attributes{Configurable: true},
	})
	ctor.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(1), Attrs: object.Attributes{Configurable: true},
	})
	proto.DefineOwnProperty(object.StringKey("constructor"), object.Property{
		Value: value.FromRef(value.KindObject, ctor), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	proto.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: vm.newString(kind), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	proto.DefineOwnProperty(object.StringKey("message"), object.Property{
		Value: vm.newString(""), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	vm.defineGlobal(kind, value.FromRef(value.KindObject, ctor))
}

// errorConstructorNative builds the Call/Construct-shared native function
// for one Error subtype: `TypeError("x")` and `new TypeError("x")` behave
// identically except the latter prefers a subclass's own `.prototype`
// (ctx.NewTarget), per the ordinary [[Construct]] newTarget-aware
// prototype lookup every other constructor in this package follows.
func (vm *VM) errorConstructorNative(kind string, defaultProto *object.Object) object.NativeFunc {
	return func(ctx object.CallContext) (value.Value, error) {
		msg := ""
		if len(ctx.Args) > 0 && !ctx.Args[0].IsUndefined() {
			s, err := vm.toString(ctx.Args[0])
			if err != nil {
				return value.Undefined, err
			}
			msg = s
		}
		proto := defaultProto
		if ctx.NewTarget != nil {
			if protoVal, err := ctx.NewTarget.Get(object.StringKey("prototype"), value.FromRef(value.KindObject, ctx.NewTarget), vm.call); err == nil {
				if p, ok := value.As[*object.Object](protoVal); ok {
					proto = p
				}
			}
		}
		return value.FromRef(value.KindObject, vm.newError(proto, kind, msg)), nil
	}
}

// ---- Array.prototype ------------------------------------------------------

// installArrayPrototype wires the handful of Array.prototype methods
// spec.md §8's seed tests and realistic scripts reach for: the mutator
// push/pop, the iteration family map/forEach/filter, and the read-only
// slice/indexOf/includes/join.
func (vm *VM) installArrayPrototype() {
	vm.defineMethod(vm.arrayProto, "push", 1, vm.arrayPush)
	vm.defineMethod(vm.arrayProto, "pop", 0, vm.arrayPop)
	vm.defineMethod(vm.arrayProto, "map", 1, vm.arrayMap)
	vm.defineMethod(vm.arrayProto, "forEach", 1, vm.arrayForEach)
	vm.defineMethod(vm.arrayProto, "filter", 1, vm.arrayFilter)
	vm.defineMethod(vm.arrayProto, "slice", 2, vm.arraySlice)
	vm.defineMethod(vm.arrayProto, "indexOf", 1, vm.arrayIndexOf)
	vm.defineMethod(vm.arrayProto, "includes", 1, vm.arrayIncludes)
	vm.defineMethod(vm.arrayProto, "join", 1, vm.arrayJoin)
}

func thisArray(vm *VM, ctx object.CallContext) (*object.Object, error) {
	o, ok := value.As[*object.Object](ctx.This)
	if !ok {
		return nil, vm.newTypeError("Array.prototype method called on a non-object")
	}
	return o, nil
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}

func (vm *VM) arrayPush(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	n := uint32(len(vm.arrayElements(o)))
	for i, v := range ctx.Args {
		o.DefineOwnProperty(object.StringKey(strconv.FormatUint(uint64(n)+uint64(i), 10)), object.Property{
			Value: v, Attrs: object.DefaultDataAttributes(),
		})
	}
	return value.Integer32(int32(n) + int32(len(ctx.Args))), nil
}

func (vm *VM) arrayPop(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	elems := vm.arrayElements(o)
	if len(elems) == 0 {
		return value.Undefined, nil
	}
	last := elems[len(elems)-1]
	o.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(int32(len(elems) - 1)), Attrs: object.Attributes{Writable: true},
	})
	return last, nil
}

func (vm *VM) arrayMap(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	cb := arg(ctx.Args, 0)
	thisArg := arg(ctx.Args, 1)
	elems := vm.arrayElements(o)
	out := make([]value.Value, len(elems))
	for i, v := range elems {
		r, err := vm.call(cb, thisArg, []value.Value{v, value.Integer32(int32(i)), ctx.This})
		if err != nil {
			return value.Undefined, err
		}
		out[i] = r
	}
	return value.FromRef(value.KindObject, vm.newArrayFrom(out)), nil
}

func (vm *VM) arrayForEach(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	cb := arg(ctx.Args, 0)
	thisArg := arg(ctx.Args, 1)
	for i, v := range vm.arrayElements(o) {
		if _, err := vm.call(cb, thisArg, []value.Value{v, value.Integer32(int32(i)), ctx.This}); err != nil {
			return value.Undefined, err
		}
	}
	return value.Undefined, nil
}

func (vm *VM) arrayFilter(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	cb := arg(ctx.Args, 0)
	thisArg := arg(ctx.Args, 1)
	var out []value.Value
	for i, v := range vm.arrayElements(o) {
		r, err := vm.call(cb, thisArg, []value.Value{v, value.Integer32(int32(i)), ctx.This})
		if err != nil {
			return value.Undefined, err
		}
		if vm.toBoolean(r) {
			out = append(out, v)
		}
	}
	return value.FromRef(value.KindObject, vm.newArrayFrom(out)), nil
}

func (vm *VM) arraySlice(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	elems := vm.arrayElements(o)
	n := len(elems)
	start := sliceIndex(vm, arg(ctx.Args, 0), n, 0)
	end := sliceIndex(vm, arg(ctx.Args, 1), n, n)
	if start > end {
		start = end
	}
	return value.FromRef(value.KindObject, vm.newArrayFrom(elems[start:end])), nil
}

// sliceIndex clamps a (possibly negative, possibly absent) relative index
// argument into [0, n], per Array.prototype.slice's relativeStart/End
// algorithm; def is used when arg is undefined.
func sliceIndex(vm *VM, v value.Value, n, def int) int {
	if v.IsUndefined() {
		return def
	}
	f, err := vm.toNumber(v)
	if err != nil {
		return def
	}
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func (vm *VM) arrayIndexOf(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	target := arg(ctx.Args, 0)
	for i, v := range vm.arrayElements(o) {
		if value.StrictEquals(v, target) {
			return value.Integer32(int32(i)), nil
		}
	}
	return value.Integer32(-1), nil
}

func (vm *VM) arrayIncludes(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	target := arg(ctx.Args, 0)
	for _, v := range vm.arrayElements(o) {
		if value.SameValueZero(v, target) {
			return value.True, nil
		}
	}
	return value.False, nil
}

func (vm *VM) arrayJoin(ctx object.CallContext) (value.Value, error) {
	o, err := thisArray(vm, ctx)
	if err != nil {
		return value.Undefined, err
	}
	sep := ","
	if s := arg(ctx.Args, 0); !s.IsUndefined() {
		sep, err = vm.toString(s)
		if err != nil {
			return value.Undefined, err
		}
	}
	var parts []string
	for _, v := range vm.arrayElements(o) {
		if v.IsNullish() {
			parts = append(parts, "")
			continue
		}
		s, err := vm.toString(v)
		if err != nil {
			return value.Undefined, err
		}
		parts = append(parts, s)
	}
	return vm.newString(strings.Join(parts, sep)), nil
}

// ---- Promise --------------------------------------------------------------

type promiseState int

const (
	promisePending promiseState = iota
	promiseFulfilled
	promiseRejected
)

// promiseReaction pairs the fulfillment/rejection handlers registered by
// one `.then` call with the promise that call returned, the pending work
// promiseResolve/promiseReject schedule once this promise settles.
type promiseReaction struct {
	onFulfilled value.Value
	onRejected  value.Value
	result      *object.Object
}

// promiseData is the internal state a Promise object carries in its
// InternalData slot (not FunctionData — a Promise is never callable, so it
// uses the non-function-forcing counterpart, see object.Object.SetInternalData).
type promiseData struct {
	state     promiseState
	result    value.Value
	reactions []promiseReaction
}

// installPromise wires a synchronous-resolution-only Promise intrinsic
// onto the global object: executor/resolve/reject run inline (there is no
// timer or I/O event loop in this engine, per spec.md's scope), but every
// `.then` reaction is scheduled onto internal/jobqueue rather than called
// inline, matching real engines' microtask-ordering guarantee and
// exercising the queue spec.md §4.7/§5 otherwise leaves unused.
func (vm *VM) installPromise() {
	ctor := vm.newNative(vm.promiseConstructorNative)
	ctor.DefineOwnProperty(object.StringKey("prototype"), object.Property{
		Value: value.FromRef(value.KindObject, vm.promiseProto), Attrs: object.Attributes{},
	})
	ctor.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: vm.newString("Promise"), Attrs: object.Attributes{Configurable: true},
	})
	ctor.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(1), Attrs: object.Attributes{Configurable: true},
	})
	vm.promiseProto.DefineOwnProperty(object.StringKey("constructor"), object.Property{
		Value: value.FromRef(value.KindObject, ctor), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	vm.defineMethod(ctor, "resolve", 1, vm.promiseResolveStatic)
	vm.defineMethod(ctor, "reject", 1, vm.promiseRejectStatic)
	vm.defineMethod(vm.promiseProto, "then", 2, vm.promiseThenMethod)
	vm.defineMethod(vm.promiseProto, "catch", 1, vm.promiseCatchMethod)

	vm.defineGlobal("Promise", value.FromRef(value.KindObject, ctor))
}

func (vm *VM) newPromiseObject() *object.Object {
	p := object.NewWithKind(vm.kinds, object.KindPromise, vm.promiseProto)
	vm.alloc(p, 64)
	p.SetInternalData(&promiseData{state: promisePending})
	return p
}

func promiseDataOf(o *object.Object) *promiseData {
	d, _ := o.InternalData()
	pd, _ := d.(*promiseData)
	return pd
}

func (vm *VM) promiseConstructorNative(ctx object.CallContext) (value.Value, error) {
	if ctx.NewTarget == nil {
		return value.Undefined, vm.newTypeError("Promise constructor cannot be invoked without 'new'")
	}
	executor := arg(ctx.Args, 0)
	eo, ok := value.As[*object.Object](executor)
	if !ok || !eo.IsCallable() {
		return value.Undefined, vm.newTypeError("Promise resolver is not a function")
	}
	p := vm.newPromiseObject()
	resolveFn := vm.newNative(func(c object.CallContext) (value.Value, error) {
		vm.resolvePromise(p, arg(c.Args, 0))
		return value.Undefined, nil
	})
	rejectFn := vm.newNative(func(c object.CallContext) (value.Value, error) {
		vm.rejectPromise(p, arg(c.Args, 0))
		return value.Undefined, nil
	})
	_, err := vm.call(executor, value.Undefined, []value.Value{
		value.FromRef(value.KindObject, resolveFn),
		value.FromRef(value.KindObject, rejectFn),
	})
	if err != nil {
		if thrown, ok := err.(*ThrownError); ok {
			vm.rejectPromise(p, thrown.Value)
		} else {
			return value.Undefined, err
		}
	}
	return value.FromRef(value.KindObject, p), nil
}

func (vm *VM) promiseResolveStatic(ctx object.CallContext) (value.Value, error) {
	v := arg(ctx.Args, 0)
	if o, ok := value.As[*object.Object](v); ok && o.Kind() == object.KindPromise {
		return v, nil
	}
	p := vm.newPromiseObject()
	vm.resolvePromise(p, v)
	return value.FromRef(value.KindObject, p), nil
}

func (vm *VM) promiseRejectStatic(ctx object.CallContext) (value.Value, error) {
	p := vm.newPromiseObject()
	vm.rejectPromise(p, arg(ctx.Args, 0))
	return value.FromRef(value.KindObject, p), nil
}

func (vm *VM) promiseThenMethod(ctx object.CallContext) (value.Value, error) {
	p, ok := value.As[*object.Object](ctx.This)
	if !ok || p.Kind() != object.KindPromise {
		return value.Undefined, vm.newTypeError("Promise.prototype.then called on a non-Promise")
	}
	return value.FromRef(value.KindObject, vm.promiseThen(p, arg(ctx.Args, 0), arg(ctx.Args, 1))), nil
}

func (vm *VM) promiseCatchMethod(ctx object.CallContext) (value.Value, error) {
	p, ok := value.As[*object.Object](ctx.This)
	if !ok || p.Kind() != object.KindPromise {
		return value.Undefined, vm.newTypeError("Promise.prototype.catch called on a non-Promise")
	}
	return value.FromRef(value.KindObject, vm.promiseThen(p, value.Undefined, arg(ctx.Args, 0))), nil
}

// promiseThen implements the shared bookkeeping behind .then/.catch:
// immediately scheduling a reaction job if p has already settled, or
// queuing onFulfilled/onRejected for later if still pending.
func (vm *VM) promiseThen(p *object.Object, onFulfilled, onRejected value.Value) *object.Object {
	result := vm.newPromiseObject()
	pd := promiseDataOf(p)
	r := promiseReaction{onFulfilled: onFulfilled, onRejected: onRejected, result: result}
	switch pd.state {
	case promisePending:
		pd.reactions = append(pd.reactions, r)
	case promiseFulfilled:
		vm.scheduleReaction(r, true, pd.result)
	case promiseRejected:
		vm.scheduleReaction(r, false, pd.result)
	}
	return result
}

// resolvePromise settles p as fulfilled with v, unless v is itself a
// thenable (another Promise, or any object with a callable "then"), in
// which case p instead adopts that thenable's eventual state — scheduled
// as a job, matching the spec's PromiseResolveThenableJob rather than
// recursing inline.
func (vm *VM) resolvePromise(p *object.Object, v value.Value) {
	pd := promiseDataOf(p)
	if pd.state != promisePending {
		return
	}
	if o, ok := value.As[*object.Object](v); ok {
		thenVal, err := o.Get(object.StringKey("then"), v, vm.call)
		if err == nil {
			if thenFn, ok := value.As[*object.Object](thenVal); ok && thenFn.IsCallable() {
				vm.enqueue(func() error {
					resolveFn := vm.newNative(func(c object.CallContext) (value.Value, error) {
						vm.resolvePromise(p, arg(c.Args, 0))
						return value.Undefined, nil
					})
					rejectFn := vm.newNative(func(c object.CallContext) (value.Value, error) {
						vm.rejectPromise(p, arg(c.Args, 0))
						return value.Undefined, nil
					})
					_, callErr := vm.call(thenVal, v, []value.Value{
						value.FromRef(value.KindObject, resolveFn),
						value.FromRef(value.KindObject, rejectFn),
					})
					if thrown, ok := callErr.(*ThrownError); ok {
						vm.rejectPromise(p, thrown.Value)
						return nil
					}
					return callErr
				})
				return
			}
		}
	}
	pd.state = promiseFulfilled
	pd.result = v
	reactions := pd.reactions
	pd.reactions = nil
	for _, r := range reactions {
		vm.scheduleReaction(r, true, v)
	}
}

// rejectPromise settles p as rejected with v; unlike resolvePromise, a
// rejection value is never itself unwrapped as a thenable.
func (vm *VM) rejectPromise(p *object.Object, v value.Value) {
	pd := promiseDataOf(p)
	if pd.state != promisePending {
		return
	}
	pd.state = promiseRejected
	pd.result = v
	reactions := pd.reactions
	pd.reactions = nil
	for _, r := range reactions {
		vm.scheduleReaction(r, false, v)
	}
}

// scheduleReaction enqueues the job that runs one registered handler
// against a settled value and propagates its outcome into r.result, the
// next promise in a `.then` chain.
func (vm *VM) scheduleReaction(r promiseReaction, fulfilled bool, v value.Value) {
	vm.enqueue(func() error {
		handler := r.onRejected
		if fulfilled {
			handler = r.onFulfilled
		}
		ho, ok := value.As[*object.Object](handler)
		if !ok || !ho.IsCallable() {
			// No handler of this kind: propagate the settled value/reason
			// unchanged, per Promise.prototype.then's pass-through rule.
			if fulfilled {
				vm.resolvePromise(r.result, v)
			} else {
				vm.rejectPromise(r.result, v)
			}
			return nil
		}
		out, err := vm.call(handler, value.Undefined, []value.Value{v})
		if err != nil {
			if thrown, ok := err.(*ThrownError); ok {
				vm.rejectPromise(r.result, thrown.Value)
				return nil
			}
			return err
		}
		vm.resolvePromise(r.result, out)
		return nil
	})
}

// enqueue posts job to the realm's job queue, or runs it inline if this VM
// was built without one (a bare internal/vm test, rather than through
// internal/engine.Realm.New).
func (vm *VM) enqueue(job func() error) {
	if vm.jobs != nil {
		vm.jobs.Enqueue(job)
		return
	}
	job()
}
