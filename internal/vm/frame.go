package vm

import (
	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/environment"
	"github.com/termfx/ecmacore/internal/gc"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// CallFrame is one activation record: a CodeBlock being executed, its
// program counter, the paired runtime Environment, and the operand stack
// the compiler's push/pop/dup/swap opcodes manipulate. There is no separate
// register file distinct from the environment's binding slots — CodeBlock.
// NumRegisters is the function's own top-level scope's slot count, reused
// as the size of the Function Environment Record's binding array.
type CallFrame struct {
	block *bytecode.CodeBlock
	pc    int
	env   *environment.Environment

	stack []value.Value

	// scopeDepth counts runtime Environment frames pushed since this frame
	// began (OpPushScope/OpPopScope), mirroring the compiler's own
	// scopeDepth so OpJump's B operand (break/continue scope-pop count) and
	// exception handler ScopeDepth values mean the same thing here as they
	// did at compile time.
	scopeDepth int

	args      []value.Value
	this      value.Value
	newTarget *object.Object
	funcObj   *object.Object // the closure object currently executing, for arguments-object construction and home-object lookup

	// pendingException is stashed by the unwind logic when control reaches
	// a finally handler because an exception is in flight; OpFinallyExit
	// re-raises it once the finally body completes normally.
	pendingException    value.Value
	hasPendingException bool

	// pendingInstance/pendingFuncData carry a derived constructor's
	// not-yet-bound `this` and the funcData of the most-derived class
	// across OpSuperCall, which creates the instance only once the
	// superclass constructor has actually run.
	pendingInstance *object.Object
	pendingFuncData *funcData

	// gen is non-nil only for a generator function's frame, set by
	// newGeneratorObject before its body ever starts running. OpYield/
	// OpYieldStar (see generator.go) use it to suspend this frame's
	// execution and hand control back to whichever goroutine is driving
	// the generator object's next()/throw()/return().
	gen *generatorState
}

func newFrame(block *bytecode.CodeBlock, env *environment.Environment, this value.Value, args []value.Value, newTarget *object.Object, funcObj *object.Object) *CallFrame {
	return &CallFrame{
		block:     block,
		env:       env,
		args:      args,
		this:      this,
		newTarget: newTarget,
		funcObj:   funcObj,
	}
}

func (f *CallFrame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *CallFrame) pop() value.Value {
	n := len(f.stack)
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (f *CallFrame) peek() value.Value { return f.stack[len(f.stack)-1] }

// peekAt returns the value depth slots from the top (0 = top).
func (f *CallFrame) peekAt(depth int) value.Value { return f.stack[len(f.stack)-1-depth] }

func (f *CallFrame) popN(n int) []value.Value {
	start := len(f.stack) - n
	out := append([]value.Value(nil), f.stack[start:]...)
	f.stack = f.stack[:start]
	return out
}

// trace implements the frame's contribution to GC root scanning: its
// operand stack, its environment chain (environments trace their own
// parent chain and bindings, so rooting the innermost one is enough), and
// anything else reachable only from this activation.
func (f *CallFrame) trace(visit func(gc.Cell)) {
	for _, v := range f.stack {
		traceValue(v, visit)
	}
	for _, v := range f.args {
		traceValue(v, visit)
	}
	traceValue(f.this, visit)
	if f.env != nil {
		visit(f.env)
	}
	if f.newTarget != nil {
		visit(f.newTarget)
	}
	if f.funcObj != nil {
		visit(f.funcObj)
	}
	traceValue(f.pendingException, visit)
	if f.pendingInstance != nil {
		visit(f.pendingInstance)
	}
}
