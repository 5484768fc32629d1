package vm

import (
	"fmt"

	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// ThrownError carries a JS-level thrown value up through Go's own call
// stack, the mechanism cross-frame exception propagation rides on: a
// frame with no matching handler simply returns this error from exec,
// which the caller (another frame's OpCall handling, or Run itself)
// either catches via its own handler search or propagates further.
type ThrownError struct {
	Value value.Value
}

func (e *ThrownError) Error() string {
	if o, ok := value.As[*object.Object](e.Value); ok {
		if msg, err := o.Get(object.StringKey("message"), e.Value, nil); err == nil && msg.Kind() == value.KindString {
			return value.StringOf(msg)
		}
	}
	if e.Value.Kind() == value.KindString {
		return value.StringOf(e.Value)
	}
	return "uncaught exception"
}

func (vm *VM) newError(proto *object.Object, kind, message string) *object.Object {
	o := object.NewWithKind(vm.kinds, object.KindError, proto)
	vm.alloc(o, 64)
	o.SetErrorKind(kind)
	o.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: vm.newString(kind), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	o.DefineOwnProperty(object.StringKey("message"), object.Property{
		Value: vm.newString(message), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	return o
}

func (vm *VM) newTypeError(message string) error {
	return &ThrownError{Value: value.FromRef(value.KindObject, vm.newError(vm.errorProtoFor("TypeError"), "TypeError", message))}
}

func (vm *VM) newReferenceError(message string) error {
	return &ThrownError{Value: value.FromRef(value.KindObject, vm.newError(vm.errorProtoFor("ReferenceError"), "ReferenceError", message))}
}

func (vm *VM) newRangeError(message string) error {
	return &ThrownError{Value: value.FromRef(value.KindObject, vm.newError(vm.errorProtoFor("RangeError"), "RangeError", message))}
}

func (vm *VM) newSyntaxError(message string) error {
	return &ThrownError{Value: value.FromRef(value.KindObject, vm.newError(vm.errorProtoFor("SyntaxError"), "SyntaxError", message))}
}

// throwValue searches frame.block's static handler table for one
// protecting the current instruction. If found, it truncates the operand
// stack and environment chain to the handler's recorded depths and jumps
// there — pushing the thrown value for a catch handler (whose prologue
// expects to consume it), or stashing it as the frame's pending exception
// for a finally handler (whose body runs with a clean stack and re-raises
// the pending value via OpFinallyExit once it completes normally). It
// reports whether a handler was found; on false, the caller must turn v
// into a *ThrownError and return it up the Go call stack.
func (vm *VM) throwValue(frame *CallFrame, at int, v value.Value) bool {
	h, ok := frame.block.HandlerFor(at)
	if !ok {
		return false
	}
	for frame.scopeDepth > h.ScopeDepth {
		frame.env = frame.env.Parent()
		frame.scopeDepth--
	}
	if len(frame.stack) > h.StackDepth {
		frame.stack = frame.stack[:h.StackDepth]
	}
	switch h.Kind {
	case bytecode.HandlerCatch:
		frame.push(v)
	case bytecode.HandlerFinally:
		frame.pendingException = v
		frame.hasPendingException = true
	}
	frame.pc = h.Target
	return true
}

func (vm *VM) errorMessage(msg string, args ...interface{}) string {
	return fmt.Sprintf(msg, args...)
}
