package vm

import (
	"strings"
	"testing"

	"github.com/termfx/ecmacore/internal/compiler"
	"github.com/termfx/ecmacore/internal/gc"
	"github.com/termfx/ecmacore/internal/intern"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/parser"
	"github.com/termfx/ecmacore/internal/value"
)

// run compiles and executes source against a fresh VM, mirroring
// internal/engine.Realm.run's parse -> compile -> vm.Run pipeline without
// pulling in the engine package (which imports vm, not the reverse).
func run(t *testing.T, src string) (value.Value, *VM, error) {
	t.Helper()
	p := parser.New(src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	interner := intern.New()
	c := compiler.New(interner)
	block, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	machine := New(interner)
	result, err := machine.Run(block)
	return result, machine, err
}

func TestRunArithmetic(t *testing.T) {
	result, _, err := run(t, "1 + 2 * 3;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.AsFloat64(); got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}

func TestRunUncaughtThrowReturnsThrownError(t *testing.T) {
	_, _, err := run(t, "throw 'boom';")
	if err == nil {
		t.Fatal("expected an error")
	}
	thrown, ok := err.(*ThrownError)
	if !ok {
		t.Fatalf("expected *ThrownError, got %T", err)
	}
	if !strings.Contains(thrown.Error(), "boom") {
		t.Errorf("expected thrown error to mention boom, got %q", thrown.Error())
	}
}

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	_, machine, err := run(t, "function f() { return f(); } f();")
	if err == nil {
		t.Fatal("expected a stack overflow error")
	}
	if _, ok := err.(StackOverflowError); !ok {
		t.Fatalf("expected StackOverflowError, got %T: %v", err, err)
	}
	if machine.maxCallDepth != DefaultMaxCallDepth {
		t.Errorf("expected default max call depth %d, got %d", DefaultMaxCallDepth, machine.maxCallDepth)
	}
}

func TestSetMaxCallDepthLowersTheBound(t *testing.T) {
	interner := intern.New()
	machine := New(interner)
	machine.SetMaxCallDepth(5)
	if machine.maxCallDepth != 5 {
		t.Fatalf("expected maxCallDepth 5, got %d", machine.maxCallDepth)
	}

	p := parser.New("function f(n) { return n <= 0 ? 0 : f(n - 1); } f(100);")
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := compiler.New(interner)
	block, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = machine.Run(block)
	if _, ok := err.(StackOverflowError); !ok {
		t.Fatalf("expected StackOverflowError with a tight depth bound, got %T: %v", err, err)
	}
}

func TestSetMaxCallDepthIgnoresNonPositive(t *testing.T) {
	machine := New(intern.New())
	machine.SetMaxCallDepth(0)
	if machine.maxCallDepth != DefaultMaxCallDepth {
		t.Errorf("expected SetMaxCallDepth(0) to be a no-op, got %d", machine.maxCallDepth)
	}
	machine.SetMaxCallDepth(-10)
	if machine.maxCallDepth != DefaultMaxCallDepth {
		t.Errorf("expected SetMaxCallDepth(-10) to be a no-op, got %d", machine.maxCallDepth)
	}
}

func TestNewWithGCConfigAppliesYoungThreshold(t *testing.T) {
	cfg := gc.DefaultConfig()
	cfg.YoungCountThreshold = 1
	machine := NewWithGCConfig(intern.New(), cfg)
	if machine == nil {
		t.Fatal("expected a non-nil VM")
	}
	// A VM built with an aggressive young-generation threshold should still
	// run ordinary scripts correctly; the GC must not corrupt live state
	// across a forced collection.
	p := parser.New("let n = 0; for (let i = 0; i < 50; i++) { let o = { i: i }; n = n + o.i - o.i + 1; } n;")
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := compiler.New(machine.interner)
	block, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := machine.Run(block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.AsFloat64(); got != 50 {
		t.Errorf("expected n == 50, got %v", got)
	}
}

func TestNewArrayBuildsArrayObject(t *testing.T) {
	machine := New(intern.New())
	arr := machine.NewArray([]value.Value{value.Integer32(1), value.Integer32(2), value.Integer32(3)})
	if arr.Kind() != object.KindArray {
		t.Fatalf("expected KindArray, got %v", arr.Kind())
	}
	keys := arr.OwnPropertyKeys()
	if len(keys) == 0 {
		t.Fatal("expected the array to have own properties")
	}
}

func TestNewNativeFunctionIsCallableFromScript(t *testing.T) {
	machine := New(intern.New())
	called := false
	native := machine.NewNativeFunction(func(ctx object.CallContext) (value.Value, error) {
		called = true
		return value.Integer32(42), nil
	})
	machine.GlobalObject().DefineOwnProperty(object.StringKey("nativeFn"), object.Property{
		Value: value.FromRef(value.KindObject, native),
		Attrs: object.Attributes{Writable: true, Configurable: true},
	})

	p := parser.New("nativeFn();")
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := compiler.New(machine.interner)
	block, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := machine.Run(block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected the native function to have been invoked")
	}
	if result.AsInt32() != 42 {
		t.Errorf("expected 42, got %v", result)
	}
}
