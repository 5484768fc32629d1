package vm

import (
	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// generatorState is the suspension point a generator function's frame
// carries: OpYield/OpYieldStar hand a value across resumeCh/yieldCh to
// whichever goroutine is driving the generator object's next/throw/return
// methods. The handshake is strictly alternating (push, then block for a
// reply, on both sides) so the two goroutines are never actually running
// concurrently — this is cooperative coroutine scheduling over goroutines,
// not real parallelism, matching a single-threaded realm.
type generatorState struct {
	resumeCh chan generatorResume
	yieldCh  chan generatorYield
	started  bool
	done     bool
}

type generatorResumeKind uint8

const (
	resumeNext generatorResumeKind = iota
	resumeThrow
	resumeReturn
)

type generatorResume struct {
	kind  generatorResumeKind
	value value.Value
}

type generatorYield struct {
	value value.Value
	done  bool
	err   error
}

// newGeneratorObject builds the generator object returned by calling a
// generator function: frame's body hasn't run at all yet, it only starts
// once next() is first called.
func (vm *VM) newGeneratorObject(frame *CallFrame) *object.Object {
	gs := &generatorState{
		resumeCh: make(chan generatorResume),
		yieldCh:  make(chan generatorYield),
	}
	frame.gen = gs

	o := object.NewWithKind(vm.kinds, object.KindGenerator, vm.generatorProto)
	vm.alloc(o, 64)

	o.DefineOwnProperty(object.StringKey("next"), object.Property{
		Value: value.FromRef(value.KindObject, vm.newNative(func(ctx object.CallContext) (value.Value, error) {
			var arg value.Value = value.Undefined
			if len(ctx.Args) > 0 {
				arg = ctx.Args[0]
			}
			return vm.resumeGenerator(gs, frame, generatorResume{kind: resumeNext, value: arg})
		})),
		Attrs: object.DefaultDataAttributes(),
	})
	o.DefineOwnProperty(object.StringKey("throw"), object.Property{
		Value: value.FromRef(value.KindObject, vm.newNative(func(ctx object.CallContext) (value.Value, error) {
			var arg value.Value = value.Undefined
			if len(ctx.Args) > 0 {
				arg = ctx.Args[0]
			}
			return vm.resumeGenerator(gs, frame, generatorResume{kind: resumeThrow, value: arg})
		})),
		Attrs: object.DefaultDataAttributes(),
	})
	o.DefineOwnProperty(object.StringKey("return"), object.Property{
		Value: value.FromRef(value.KindObject, vm.newNative(func(ctx object.CallContext) (value.Value, error) {
			var arg value.Value = value.Undefined
			if len(ctx.Args) > 0 {
				arg = ctx.Args[0]
			}
			return vm.resumeGenerator(gs, frame, generatorResume{kind: resumeReturn, value: arg})
		})),
		Attrs: object.DefaultDataAttributes(),
	})
	return o
}

// resumeGenerator drives gs's body goroutine (starting it on the first
// call) and turns its next yield/return/error into the {value, done}
// iterator-result object next()/throw()/return() all hand back.
func (vm *VM) resumeGenerator(gs *generatorState, frame *CallFrame, resume generatorResume) (value.Value, error) {
	if gs.done {
		if resume.kind == resumeThrow {
			return value.Undefined, &ThrownError{Value: resume.value}
		}
		return vm.iteratorResult(resume.value, true), nil
	}
	if !gs.started {
		gs.started = true
		go vm.runGeneratorBody(gs, frame)
	}
	gs.resumeCh <- resume
	y := <-gs.yieldCh
	if y.done {
		gs.done = true
	}
	if y.err != nil {
		return value.Undefined, y.err
	}
	return vm.iteratorResult(y.value, y.done), nil
}

func (vm *VM) iteratorResult(v value.Value, done bool) value.Value {
	o := vm.newObject(vm.objectProto)
	o.DefineOwnProperty(object.StringKey("value"), object.Property{Value: v, Attrs: object.DefaultDataAttributes()})
	o.DefineOwnProperty(object.StringKey("done"), object.Property{Value: value.Bool(done), Attrs: object.DefaultDataAttributes()})
	return value.FromRef(value.KindObject, o)
}

// runGeneratorBody is the coroutine: it waits for the first resume (whose
// value, if any, is discarded — a generator's first .next(x) argument has
// nowhere to go, per the iterator protocol), then runs the frame's code to
// completion, reporting its eventual return value as the final {done:true}
// yield. A throw()/return() before the body ever starts just settles the
// generator immediately without running any of its code.
func (vm *VM) runGeneratorBody(gs *generatorState, frame *CallFrame) {
	first := <-gs.resumeCh
	switch first.kind {
	case resumeThrow:
		gs.yieldCh <- generatorYield{err: &ThrownError{Value: first.value}, done: true}
		return
	case resumeReturn:
		gs.yieldCh <- generatorYield{value: first.value, done: true}
		return
	}

	result, err := vm.exec(frame)
	if err != nil {
		gs.yieldCh <- generatorYield{err: err, done: true}
		return
	}
	gs.yieldCh <- generatorYield{value: result, done: true}
}

// stepGenerator handles the suspension opcodes. OpAwait needs no coroutine
// machinery at all: it resolves its operand synchronously in place, inside
// whichever goroutine happens to be executing (the generator's own, for an
// async generator, or the caller's, for a plain async function — this
// engine runs async functions to completion synchronously and returns
// their value rather than a Promise; see callFunction).
func (vm *VM) stepGenerator(frame *CallFrame, instr bytecode.Instr) (value.Value, bool, error) {
	switch instr.Op {
	case bytecode.OpAwait:
		v := frame.pop()
		resolved, err := vm.awaitValue(v)
		if err != nil {
			return value.Undefined, false, err
		}
		frame.push(resolved)
		return value.Undefined, false, nil

	case bytecode.OpYield:
		v := frame.pop()
		if frame.gen == nil {
			return value.Undefined, false, vm.newSyntaxError("yield is only valid inside a generator function")
		}
		return vm.suspend(frame, v, false)

	case bytecode.OpYieldStar:
		return vm.yieldStar(frame)

	default: // OpAsyncResolve, OpAsyncReject: never emitted by the compiler
		return value.Undefined, false, nil
	}
}

// suspend hands v out through the generator's yield channel and blocks for
// the next resume, translating throw()/return() into the matching frame
// outcome (an exception propagating out of the yield expression, or an
// immediate OpReturn-equivalent completion).
func (vm *VM) suspend(frame *CallFrame, v value.Value, delegating bool) (value.Value, bool, error) {
	frame.gen.yieldCh <- generatorYield{value: v, done: false}
	resume := <-frame.gen.resumeCh
	switch resume.kind {
	case resumeThrow:
		return value.Undefined, false, &ThrownError{Value: resume.value}
	case resumeReturn:
		return resume.value, true, nil
	default:
		frame.push(resume.value)
		return value.Undefined, false, nil
	}
}

// yieldStar implements `yield*`: pump the operand's iterator and re-yield
// each element through this generator in turn. The resumed value sent back
// in by next()/throw()/return() is not forwarded into the inner iterator's
// own next() call (this engine's iterator protocol, internal/vm/objects.go,
// has no facility for sending a value into .next()) — only the outer
// generator's own suspend/resume is honored, a deliberate simplification.
func (vm *VM) yieldStar(frame *CallFrame) (value.Value, bool, error) {
	v := frame.pop()
	iterObj, err := vm.getIterator(v)
	if err != nil {
		return value.Undefined, false, err
	}
	for {
		el, isDone, nerr := vm.iteratorStep(iterObj)
		if nerr != nil {
			return value.Undefined, false, nerr
		}
		if isDone {
			frame.push(el)
			return value.Undefined, false, nil
		}
		result, done, serr := vm.suspend(frame, el, true)
		if serr != nil || done {
			return result, done, serr
		}
		frame.pop() // discard the sent-back resume value pushed by suspend; yield* doesn't expose it to the delegate
	}
}

// awaitValue resolves a thenable synchronously: call its `then` with
// callbacks that capture whichever one fires. A thenable that never calls
// either synchronously (e.g. one queuing real microtasks) has nothing for
// this engine to drain yet, so it settles as undefined rather than hanging.
func (vm *VM) awaitValue(v value.Value) (value.Value, error) {
	o, ok := value.As[*object.Object](v)
	if !ok {
		return v, nil
	}
	thenVal, err := o.Get(object.StringKey("then"), v, vm.call)
	if err != nil {
		return value.Undefined, err
	}
	thenFn, ok := value.As[*object.Object](thenVal)
	if !ok || !thenFn.IsCallable() {
		return v, nil
	}

	var settled value.Value = value.Undefined
	var rejected, called bool
	resolve := vm.newNative(func(ctx object.CallContext) (value.Value, error) {
		if len(ctx.Args) > 0 {
			settled = ctx.Args[0]
		}
		called = true
		return value.Undefined, nil
	})
	reject := vm.newNative(func(ctx object.CallContext) (value.Value, error) {
		if len(ctx.Args) > 0 {
			settled = ctx.Args[0]
		}
		rejected, called = true, true
		return value.Undefined, nil
	})
	if _, err := vm.call(thenVal, v, []value.Value{
		value.FromRef(value.KindObject, resolve),
		value.FromRef(value.KindObject, reject),
	}); err != nil {
		return value.Undefined, err
	}
	if !called {
		return value.Undefined, nil
	}
	if rejected {
		return value.Undefined, &ThrownError{Value: settled}
	}
	return settled, nil
}
